package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/identity/identitytest"
	"github.com/neighbora/neighbora-api/internal/shared"
)

type stubGrants struct {
	grants map[string]*auth.Grant
	err    error
	calls  int
}

func (s *stubGrants) ActiveGrant(_ context.Context, uid string) (*auth.Grant, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	g, ok := s.grants[uid]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return g, nil
}

func TestAdminGateRecordSourceElevates(t *testing.T) {
	grants := &stubGrants{grants: map[string]*auth.Grant{
		"uid-admin": {Role: auth.RoleSuperAdmin, Permissions: []string{"expenses"}},
	}}
	gate := auth.NewAdminGate(auth.RecordSource{Records: grants}, nil)
	in := &auth.Principal{UID: "uid-admin", Role: auth.RoleUser}

	out, perms, err := gate.Authorize(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, auth.RoleSuperAdmin, out.Role)
	require.Equal(t, []string{"expenses"}, perms)
	require.Equal(t, auth.RoleUser, in.Role, "input principal must not be mutated")
}

func TestAdminGateRecordSourceRejectsMissingOrInactive(t *testing.T) {
	grants := &stubGrants{grants: map[string]*auth.Grant{}}
	gate := auth.NewAdminGate(auth.RecordSource{Records: grants}, nil)

	_, _, err := gate.Authorize(context.Background(), &auth.Principal{UID: "uid-user"})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, _, err = gate.Authorize(context.Background(), nil)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestAdminGateRevocationTakesEffectOnNextRequest(t *testing.T) {
	grants := &stubGrants{grants: map[string]*auth.Grant{"uid-1": {Role: auth.RoleAdmin}}}
	gate := auth.NewAdminGate(auth.RecordSource{Records: grants}, nil)
	p := &auth.Principal{UID: "uid-1"}

	_, _, err := gate.Authorize(context.Background(), p)
	require.NoError(t, err)

	delete(grants.grants, "uid-1")
	_, _, err = gate.Authorize(context.Background(), p)
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Equal(t, 2, grants.calls)
}

func TestAdminGateStoreFailureIsNotForbidden(t *testing.T) {
	grants := &stubGrants{err: errors.New("mongo down")}
	gate := auth.NewAdminGate(auth.RecordSource{Records: grants}, nil)

	_, _, err := gate.Authorize(context.Background(), &auth.Principal{UID: "uid-1"})
	require.Error(t, err)
	require.NotErrorIs(t, err, shared.ErrForbidden)
}

func TestAdminGateClaimsSource(t *testing.T) {
	provider := identitytest.New()
	provider.AddUser("t1", "uid-admin", "a@example.com", "A")
	provider.AddUser("t2", "uid-super", "s@example.com", "S")
	provider.AddUser("t3", "uid-user", "u@example.com", "U")
	ctx := context.Background()
	require.NoError(t, provider.SetCustomClaims(ctx, "uid-admin", map[string]any{"admin": true}))
	require.NoError(t, provider.SetCustomClaims(ctx, "uid-super", map[string]any{"admin": true, "superadmin": true}))

	gate := auth.NewAdminGate(auth.ClaimsSource{Provider: provider}, nil)

	p, _, err := gate.Authorize(ctx, &auth.Principal{UID: "uid-admin"})
	require.NoError(t, err)
	require.Equal(t, auth.RoleAdmin, p.Role)

	p, _, err = gate.Authorize(ctx, &auth.Principal{UID: "uid-super"})
	require.NoError(t, err)
	require.Equal(t, auth.RoleSuperAdmin, p.Role)

	_, _, err = gate.Authorize(ctx, &auth.Principal{UID: "uid-user"})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, _, err = gate.Authorize(ctx, &auth.Principal{UID: "uid-ghost"})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestAdminGateCheck(t *testing.T) {
	grants := &stubGrants{grants: map[string]*auth.Grant{"uid-admin": {Role: auth.RoleAdmin}}}
	gate := auth.NewAdminGate(auth.RecordSource{Records: grants}, nil)
	ctx := context.Background()

	p, _, ok, err := gate.Check(ctx, &auth.Principal{UID: "uid-admin", Role: auth.RoleUser})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, auth.RoleAdmin, p.Role)

	p, _, ok, err = gate.Check(ctx, &auth.Principal{UID: "uid-user", Role: auth.RoleUser})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, auth.RoleUser, p.Role)
}

func TestRequireAdminMiddleware(t *testing.T) {
	grants := &stubGrants{grants: map[string]*auth.Grant{
		"uid-admin": {Role: auth.RoleAdmin},
		"uid-super": {Role: auth.RoleSuperAdmin},
	}}
	gate := auth.NewAdminGate(auth.RecordSource{Records: grants}, nil)

	var seenRole auth.Role
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRole = auth.PrincipalFromContext(r.Context()).Role
		w.WriteHeader(http.StatusOK)
	})

	serve := func(mw func(http.Handler) http.Handler, p *auth.Principal) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if p != nil {
			req = req.WithContext(auth.ContextWithPrincipal(req.Context(), p))
		}
		rr := httptest.NewRecorder()
		mw(next).ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusOK, serve(gate.RequireAdmin, &auth.Principal{UID: "uid-admin", Role: auth.RoleUser}))
	require.Equal(t, auth.RoleAdmin, seenRole)
	require.Equal(t, http.StatusForbidden, serve(gate.RequireAdmin, &auth.Principal{UID: "uid-user"}))
	require.Equal(t, http.StatusUnauthorized, serve(gate.RequireAdmin, nil))
	require.Equal(t, http.StatusForbidden, serve(gate.RequireSuperAdmin, &auth.Principal{UID: "uid-admin"}))
	require.Equal(t, http.StatusOK, serve(gate.RequireSuperAdmin, &auth.Principal{UID: "uid-super"}))
	require.Equal(t, auth.RoleSuperAdmin, seenRole)
}

func TestSourceFromConfig(t *testing.T) {
	src, err := auth.SourceFromConfig("record", &stubGrants{}, nil)
	require.NoError(t, err)
	require.Equal(t, "record", src.Name())

	_, err = auth.SourceFromConfig("claims", nil, nil)
	require.Error(t, err)

	src, err = auth.SourceFromConfig("claims", nil, identitytest.New())
	require.NoError(t, err)
	require.Equal(t, "claims", src.Name())

	_, err = auth.SourceFromConfig("both", nil, nil)
	require.Error(t, err)
}

func TestClaimsForRole(t *testing.T) {
	require.Equal(t, map[string]any{"admin": true, "superadmin": true}, auth.ClaimsForRole(auth.RoleSuperAdmin))
	require.Equal(t, map[string]any{"admin": true, "superadmin": false}, auth.ClaimsForRole(auth.RoleAdmin))
	require.Nil(t, auth.GrantFromClaims(nil))
}
