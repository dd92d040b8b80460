// Package identitytest provides an in-memory identity provider for tests.
package identitytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/neighbora/neighbora-api/internal/identity"
)

// Provider is an in-memory identity.Provider.
type Provider struct {
	mu     sync.Mutex
	tokens map[string]*identity.VerifiedToken
	users  map[string]*identity.UserProfile
	errs   map[string]error

	// VerifyErr, GetUserErr and ClaimsErr force failures when set.
	VerifyErr  error
	GetUserErr error
	ClaimsErr  error

	VerifyCalls  int
	GetUserCalls int
}

// New returns an empty provider.
func New() *Provider {
	return &Provider{
		tokens: map[string]*identity.VerifiedToken{},
		users:  map[string]*identity.UserProfile{},
		errs:   map[string]error{},
	}
}

// AddUser registers uid and a token that verifies to it.
func (p *Provider) AddUser(token, uid, email, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[token] = &identity.VerifiedToken{UID: uid, Email: email, Name: name, Claims: map[string]any{}}
	p.users[uid] = &identity.UserProfile{UID: uid, Email: email, Name: name, EmailVerified: true}
}

// FailToken makes token verification fail with err.
func (p *Provider) FailToken(token string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[token] = err
}

// Claims returns the stored custom claims of uid.
func (p *Provider) Claims(uid string) map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.users[uid]; ok {
		return u.CustomClaims
	}
	return nil
}

func (p *Provider) VerifyIDToken(_ context.Context, token string) (*identity.VerifiedToken, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.VerifyCalls++
	if p.VerifyErr != nil {
		return nil, p.VerifyErr
	}
	if err, ok := p.errs[token]; ok {
		return nil, err
	}
	tok, ok := p.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", identity.ErrTokenInvalid)
	}
	copied := *tok
	return &copied, nil
}

func (p *Provider) GetUser(_ context.Context, uid string) (*identity.UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GetUserCalls++
	if p.GetUserErr != nil {
		return nil, p.GetUserErr
	}
	u, ok := p.users[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", identity.ErrUserNotFound, uid)
	}
	copied := *u
	return &copied, nil
}

func (p *Provider) SetCustomClaims(_ context.Context, uid string, claims map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ClaimsErr != nil {
		return p.ClaimsErr
	}
	u, ok := p.users[uid]
	if !ok {
		return fmt.Errorf("%w: %s", identity.ErrUserNotFound, uid)
	}
	u.CustomClaims = claims
	return nil
}
