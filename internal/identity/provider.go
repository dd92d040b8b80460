// Package identity adapts the external identity provider that issues bearer credentials.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrTokenExpired is returned when a credential is past its expiry.
	ErrTokenExpired = errors.New("identity: token expired")
	// ErrTokenInvalid is returned when a credential is malformed or fails signature checks.
	ErrTokenInvalid = errors.New("identity: token invalid")
	// ErrUserNotFound is returned when the provider has no account for a uid.
	ErrUserNotFound = errors.New("identity: user not found")
	// ErrNotConfigured is returned when no provider credentials were supplied.
	ErrNotConfigured = errors.New("identity: provider not configured")
)

// VerifiedToken is the decoded payload of a verified credential.
type VerifiedToken struct {
	UID    string
	Email  string
	Name   string
	Claims map[string]any
}

// UserProfile is the provider's account record for a uid.
type UserProfile struct {
	UID           string         `json:"uid"`
	Email         string         `json:"email"`
	Name          string         `json:"name"`
	PhotoURL      string         `json:"photoURL,omitempty"`
	EmailVerified bool           `json:"emailVerified"`
	Disabled      bool           `json:"disabled"`
	CustomClaims  map[string]any `json:"customClaims,omitempty"`
}

// Provider verifies credentials and manages provider-side account metadata.
type Provider interface {
	VerifyIDToken(ctx context.Context, token string) (*VerifiedToken, error)
	GetUser(ctx context.Context, uid string) (*UserProfile, error)
	SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error
}

// ClaimBool reads a boolean custom claim, treating absent or non-bool values as false.
func ClaimBool(claims map[string]any, key string) bool {
	if claims == nil {
		return false
	}
	v, ok := claims[key].(bool)
	return ok && v
}

// ClaimString reads a string claim.
func ClaimString(claims map[string]any, key string) string {
	if claims == nil {
		return ""
	}
	v, _ := claims[key].(string)
	return v
}
