package properties

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neighbora/neighbora-api/internal/platform/mongodb"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// CondominiumChecker confirms that a condominium exists and is active.
type CondominiumChecker interface {
	Exists(ctx context.Context, id string) error
}

type Service struct {
	repo         Repository
	condominiums CondominiumChecker
	now          func() time.Time
}

func NewService(repo Repository, condominiums CondominiumChecker) *Service {
	return &Service{repo: repo, condominiums: condominiums, now: func() time.Time { return time.Now().UTC() }}
}

// ListForUser returns compact views of the active units uid owns or lives in.
func (s *Service) ListForUser(ctx context.Context, uid string) ([]Summary, error) {
	if uid == "" {
		return nil, shared.ErrUnauthenticated
	}
	props, err := s.repo.ListActiveForUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(props))
	for _, p := range props {
		out = append(out, p.Summarize())
	}
	return out, nil
}

func (s *Service) ListByCondominium(ctx context.Context, condominiumID string) ([]Property, error) {
	cid, err := mongodb.ParseID(condominiumID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListActiveByCondominium(ctx, cid)
}

func (s *Service) Get(ctx context.Context, id string) (*Property, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, oid)
}

func (s *Service) Create(ctx context.Context, actor, condominiumID string, in Input) (*Property, error) {
	cid, err := mongodb.ParseID(condominiumID)
	if err != nil {
		return nil, err
	}
	if s.condominiums != nil {
		if err := s.condominiums.Exists(ctx, condominiumID); err != nil {
			return nil, err
		}
	}
	now := s.now()
	p := &Property{
		CondominiumID:     cid,
		Type:              TypeApartment,
		Residents:         []Resident{},
		FinancialSettings: FinancialSettings{CommonExpensePercentage: 1},
		CreatedBy:         actor,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	apply(p, in)
	p.IsActive = true
	if err := validate(p); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, actor, id string, in Input) (*Property, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(p, in)
	p.LastModifiedBy = actor
	if err := validate(p); err != nil {
		return nil, err
	}
	if err := s.repo.Replace(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Deactivate soft-deletes a property.
func (s *Service) Deactivate(ctx context.Context, actor, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	p.IsActive = false
	p.LastModifiedBy = actor
	return s.repo.Replace(ctx, p)
}

// AddResident registers an active resident on the property.
func (s *Service) AddResident(ctx context.Context, id string, in ResidentInput) (*Property, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	r := Resident{
		FirebaseUID:  strings.TrimSpace(in.FirebaseUID),
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Relationship: in.Relationship,
		StartDate:    s.now(),
		IsActive:     true,
	}
	if r.Name == "" || r.Email == "" {
		return nil, fmt.Errorf("%w: name and email are required", shared.ErrValidation)
	}
	return s.repo.PushResident(ctx, oid, r)
}

func (s *Service) UpdateResident(ctx context.Context, id, email string, patch ResidentPatch) (*Property, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateResident(ctx, oid, normalizeEmail(email), patch)
}

func (s *Service) RemoveResident(ctx context.Context, id, email string) (*Property, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.PullResident(ctx, oid, normalizeEmail(email))
}

// LocateResidence returns the condominium id and compact view of the first
// active unit uid owns or lives in.
func (s *Service) LocateResidence(ctx context.Context, uid string) (string, any, error) {
	props, err := s.repo.ListActiveForUser(ctx, uid)
	if err != nil {
		return "", nil, err
	}
	if len(props) == 0 {
		return "", nil, fmt.Errorf("property for this user %w", shared.ErrNotFound)
	}
	return props[0].CondominiumID.Hex(), props[0].Summarize(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
