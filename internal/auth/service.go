package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neighbora/neighbora-api/internal/identity"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// Profile is the account view returned by the session endpoints.
type Profile struct {
	UID           string         `json:"uid"`
	Email         string         `json:"email,omitempty"`
	Name          string         `json:"name,omitempty"`
	PhotoURL      string         `json:"photoURL,omitempty"`
	EmailVerified bool           `json:"emailVerified"`
	CustomClaims  map[string]any `json:"customClaims,omitempty"`
	Source        Source         `json:"source"`
}

// Service wraps session lookups on top of the gate and the identity provider.
type Service struct {
	gate     *Gate
	provider identity.Provider
}

// NewService constructs a new Service. provider may be nil.
func NewService(gate *Gate, provider identity.Provider) *Service {
	return &Service{gate: gate, provider: provider}
}

// Login verifies an ID token submitted in a request body and returns the profile.
func (s *Service) Login(ctx context.Context, idToken string) (*Profile, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, fmt.Errorf("%w: idToken is required", shared.ErrValidation)
	}
	principal, err := s.gate.Authenticate(ctx, "Bearer "+idToken)
	if err != nil {
		return nil, err
	}
	return s.Profile(ctx, principal)
}

// Profile loads the provider account for an authenticated principal.
func (s *Service) Profile(ctx context.Context, p *Principal) (*Profile, error) {
	if p == nil {
		return nil, shared.ErrUnauthenticated
	}
	if s.provider == nil || p.Source == SourceInsecureDev {
		return &Profile{UID: p.UID, Email: p.Email, Name: p.Name, Source: p.Source}, nil
	}
	user, err := s.provider.GetUser(ctx, p.UID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, fmt.Errorf("user %w", shared.ErrNotFound)
		}
		return nil, err
	}
	return &Profile{
		UID:           user.UID,
		Email:         user.Email,
		Name:          user.Name,
		PhotoURL:      user.PhotoURL,
		EmailVerified: user.EmailVerified,
		CustomClaims:  user.CustomClaims,
		Source:        p.Source,
	}, nil
}
