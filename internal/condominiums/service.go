package condominiums

import (
	"context"
	"fmt"
	"time"

	"github.com/neighbora/neighbora-api/internal/platform/mongodb"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// ResidenceLocator finds the active property a user owns or lives in.
type ResidenceLocator interface {
	LocateResidence(ctx context.Context, uid string) (condominiumID string, property any, err error)
}

type Service struct {
	repo      Repository
	residence ResidenceLocator
	now       func() time.Time
}

func NewService(repo Repository, residence ResidenceLocator) *Service {
	return &Service{repo: repo, residence: residence, now: func() time.Time { return time.Now().UTC() }}
}

// UseResidenceLocator sets the locator after construction; properties
// depend on condominiums, so the two services are wired in two steps.
func (s *Service) UseResidenceLocator(l ResidenceLocator) {
	s.residence = l
}

func (s *Service) ListForCreator(ctx context.Context, uid string) ([]Condominium, error) {
	if uid == "" {
		return nil, shared.ErrUnauthenticated
	}
	return s.repo.ListActiveByCreator(ctx, uid)
}

func (s *Service) Get(ctx context.Context, id string) (*Condominium, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, oid)
}

// Exists reports whether an active condominium has the given id.
func (s *Service) Exists(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !c.IsActive {
		return fmt.Errorf("condominium %w", shared.ErrNotFound)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actor string, in Input) (*Condominium, error) {
	now := s.now()
	c := &Condominium{
		Country:   "Chile",
		Type:      TypeResidential,
		Settings:  DefaultSettings(),
		IsActive:  true,
		CreatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(c, in)
	c.IsActive = true
	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, actor, id string, in Input) (*Condominium, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(c, in)
	c.LastModifiedBy = actor
	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.repo.Replace(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Deactivate soft-deletes a condominium.
func (s *Service) Deactivate(ctx context.Context, actor, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	c.IsActive = false
	c.LastModifiedBy = actor
	return s.repo.Replace(ctx, c)
}

// CurrentResidence returns the condominium and property linked to uid.
func (s *Service) CurrentResidence(ctx context.Context, uid string) (*Residence, error) {
	if uid == "" {
		return nil, shared.ErrUnauthenticated
	}
	if s.residence == nil {
		return nil, fmt.Errorf("property for this user %w", shared.ErrNotFound)
	}
	condominiumID, property, err := s.residence.LocateResidence(ctx, uid)
	if err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, condominiumID)
	if err != nil {
		return nil, err
	}
	return &Residence{Condominium: c, Property: property}, nil
}
