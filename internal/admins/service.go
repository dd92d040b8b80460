package admins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/identity"
	"github.com/neighbora/neighbora-api/internal/platform/mongodb"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// Service manages admin records and mirrors them into provider custom claims.
type Service struct {
	repo     Repository
	provider identity.Provider
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service. provider may be nil, in which case claims
// are never synced.
func NewService(repo Repository, provider identity.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, provider: provider, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns all active admins.
func (s *Service) List(ctx context.Context) ([]Admin, error) {
	return s.repo.ListActive(ctx)
}

// Get returns one admin by hex id.
func (s *Service) Get(ctx context.Context, id string) (*Admin, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, oid)
}

// Verify reports whether uid holds an active admin record.
func (s *Service) Verify(ctx context.Context, uid string) (*Verification, error) {
	if uid == "" {
		return nil, shared.ErrUnauthenticated
	}
	grant, err := s.repo.ActiveGrant(ctx, uid)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &Verification{IsAdmin: false, Role: auth.RoleUser}, nil
		}
		return nil, err
	}
	return &Verification{IsAdmin: true, Role: grant.Role, Permissions: grant.Permissions}, nil
}

// Create registers a new admin. An existing record for the uid, active or not,
// is a conflict; reactivation goes through Update.
func (s *Service) Create(ctx context.Context, actor string, in CreateInput) (*Admin, error) {
	in.FirebaseUID = strings.TrimSpace(in.FirebaseUID)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.FirebaseUID == "" || in.Email == "" {
		return nil, fmt.Errorf("%w: firebaseUid and email are required", shared.ErrValidation)
	}
	role := auth.RoleAdmin
	if in.Role != "" {
		role = auth.Role(in.Role)
	}
	if !role.Elevated() {
		return nil, fmt.Errorf("%w: role must be admin or superadmin", shared.ErrValidation)
	}

	if _, err := s.repo.FindByFirebaseUID(ctx, in.FirebaseUID); err == nil {
		return nil, fmt.Errorf("%w: admin already exists", shared.ErrConflict)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	admin := &Admin{
		FirebaseUID: in.FirebaseUID,
		Email:       in.Email,
		Name:        strings.TrimSpace(in.Name),
		Role:        role,
		Permissions: in.Permissions,
		IsActive:    true,
		CreatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if admin.Permissions == nil {
		admin.Permissions = []string{}
	}
	if in.CondominiumID != "" {
		oid, err := mongodb.ParseID(in.CondominiumID)
		if err != nil {
			return nil, err
		}
		admin.CondominiumID = &oid
	}
	if err := s.repo.Insert(ctx, admin); err != nil {
		return nil, err
	}
	s.syncClaims(ctx, admin)
	return admin, nil
}

// Update changes name, role, permissions or the active flag of an admin.
func (s *Service) Update(ctx context.Context, actor, id string, in UpdateInput) (*Admin, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{"lastModifiedBy": actor}
	if in.Name != nil {
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Role != nil {
		role := auth.Role(*in.Role)
		if !role.Elevated() {
			return nil, fmt.Errorf("%w: role must be admin or superadmin", shared.ErrValidation)
		}
		set["role"] = role
	}
	if in.Permissions != nil {
		perms := *in.Permissions
		if perms == nil {
			perms = []string{}
		}
		set["permissions"] = perms
	}
	if in.IsActive != nil {
		set["isActive"] = *in.IsActive
	}
	admin, err := s.repo.Update(ctx, oid, set)
	if err != nil {
		return nil, err
	}
	if in.Role != nil || in.IsActive != nil {
		s.syncClaims(ctx, admin)
	}
	return admin, nil
}

// Deactivate soft-deletes an admin and clears its custom claims.
func (s *Service) Deactivate(ctx context.Context, actor, id string) (*Admin, error) {
	inactive := false
	return s.Update(ctx, actor, id, UpdateInput{IsActive: &inactive})
}

// DeactivateByFirebaseUID soft-deletes the admin record of uid.
func (s *Service) DeactivateByFirebaseUID(ctx context.Context, actor, uid string) (*Admin, error) {
	admin, err := s.repo.FindByFirebaseUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.Deactivate(ctx, actor, admin.ID.Hex())
}

// SyncClaims rewrites the provider claims of uid from its admin record. It
// returns the provider error instead of logging it.
func (s *Service) SyncClaims(ctx context.Context, uid string) error {
	if s.provider == nil {
		return shared.ErrProviderUnavailable
	}
	admin, err := s.repo.FindByFirebaseUID(ctx, uid)
	if err != nil {
		return err
	}
	return s.provider.SetCustomClaims(ctx, admin.FirebaseUID, claimsFor(admin))
}

// syncClaims mirrors admin into custom claims; failures are logged and ignored.
func (s *Service) syncClaims(ctx context.Context, admin *Admin) {
	if s.provider == nil || admin == nil {
		return
	}
	if err := s.provider.SetCustomClaims(ctx, admin.FirebaseUID, claimsFor(admin)); err != nil {
		s.logger.Warn("sync admin custom claims",
			slog.String("uid", admin.FirebaseUID),
			slog.Any("error", err),
		)
	}
}

func claimsFor(admin *Admin) map[string]any {
	if !admin.IsActive {
		return nil
	}
	return auth.ClaimsForRole(admin.Role)
}
