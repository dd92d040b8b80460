package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/neighbora/neighbora-api/internal/identity"
	"github.com/neighbora/neighbora-api/internal/platform/httpx"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// Grant is an authorization source's answer for a principal.
type Grant struct {
	Role        Role
	Permissions []string
}

// AuthorizationSource decides whether a uid holds admin rights. It returns
// (nil, nil) when the uid has no grant.
type AuthorizationSource interface {
	Lookup(ctx context.Context, uid string) (*Grant, error)
	Name() string
}

// ActiveGrantFinder reads active admin records by provider uid.
type ActiveGrantFinder interface {
	ActiveGrant(ctx context.Context, firebaseUID string) (*Grant, error)
}

// RecordSource authorizes against the persisted admin records. Every call hits
// the store so a deactivation takes effect on the next request.
type RecordSource struct {
	Records ActiveGrantFinder
}

func (s RecordSource) Name() string { return "record" }

// Lookup returns the grant of the active record for uid, if any.
func (s RecordSource) Lookup(ctx context.Context, uid string) (*Grant, error) {
	if s.Records == nil {
		return nil, errors.New("auth: record source has no store")
	}
	grant, err := s.Records.ActiveGrant(ctx, uid)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return grant, nil
}

// ClaimsSource authorizes against the provider-side custom claims.
type ClaimsSource struct {
	Provider identity.Provider
}

func (s ClaimsSource) Name() string { return "claims" }

// Lookup reads admin and superadmin custom claims for uid.
func (s ClaimsSource) Lookup(ctx context.Context, uid string) (*Grant, error) {
	if s.Provider == nil {
		return nil, shared.ErrProviderUnavailable
	}
	user, err := s.Provider.GetUser(ctx, uid)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return GrantFromClaims(user.CustomClaims), nil
}

// GrantFromClaims maps custom claims to a grant; superadmin wins over admin.
func GrantFromClaims(claims map[string]any) *Grant {
	switch {
	case identity.ClaimBool(claims, "superadmin"):
		return &Grant{Role: RoleSuperAdmin}
	case identity.ClaimBool(claims, "admin"):
		return &Grant{Role: RoleAdmin}
	default:
		return nil
	}
}

// ClaimsForRole builds the custom claims mirrored for an admin role.
func ClaimsForRole(role Role) map[string]any {
	return map[string]any{
		"admin":      true,
		"superadmin": role == RoleSuperAdmin,
	}
}

// AdminGate elevates a principal using exactly one authorization source.
type AdminGate struct {
	source AuthorizationSource
	logger *slog.Logger
}

// NewAdminGate constructs an AdminGate over source.
func NewAdminGate(source AuthorizationSource, logger *slog.Logger) *AdminGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminGate{source: source, logger: logger}
}

// Authorize returns a copy of p whose role is overwritten by the source's grant.
func (g *AdminGate) Authorize(ctx context.Context, p *Principal) (*Principal, []string, error) {
	if p == nil || p.UID == "" {
		return nil, nil, shared.ErrUnauthenticated
	}
	grant, err := g.source.Lookup(ctx, p.UID)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: %s source lookup: %w", g.source.Name(), err)
	}
	if grant == nil || !grant.Role.Elevated() {
		return nil, nil, shared.ErrForbidden
	}
	elevated := *p
	elevated.Role = grant.Role
	return &elevated, grant.Permissions, nil
}

// Check reports the admin standing of p without failing on a missing grant.
func (g *AdminGate) Check(ctx context.Context, p *Principal) (*Principal, []string, bool, error) {
	elevated, perms, err := g.Authorize(ctx, p)
	switch {
	case err == nil:
		return elevated, perms, true, nil
	case errors.Is(err, shared.ErrForbidden):
		return p, nil, false, nil
	default:
		return nil, nil, false, err
	}
}

// RequireAdmin admits principals holding an admin or superadmin grant.
func (g *AdminGate) RequireAdmin(next http.Handler) http.Handler {
	return g.require(next, false)
}

// RequireSuperAdmin admits only superadmin grants.
func (g *AdminGate) RequireSuperAdmin(next http.Handler) http.Handler {
	return g.require(next, true)
}

func (g *AdminGate) require(next http.Handler, super bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		elevated, _, err := g.Authorize(r.Context(), PrincipalFromContext(r.Context()))
		if err == nil && super && elevated.Role != RoleSuperAdmin {
			err = shared.ErrForbidden
		}
		if err != nil {
			if !errors.Is(err, shared.ErrForbidden) && !errors.Is(err, shared.ErrUnauthenticated) {
				g.logger.Error("admin gate", slog.Any("error", err), slog.String("source", g.source.Name()))
			}
			httpx.RespondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), elevated)))
	})
}

// SourceFromConfig selects the authorization source named by kind.
func SourceFromConfig(kind string, records ActiveGrantFinder, provider identity.Provider) (AuthorizationSource, error) {
	switch kind {
	case "record":
		return RecordSource{Records: records}, nil
	case "claims":
		if provider == nil {
			return nil, fmt.Errorf("auth: claims source requires a configured identity provider")
		}
		return ClaimsSource{Provider: provider}, nil
	default:
		return nil, fmt.Errorf("auth: unknown admin source %q", kind)
	}
}
