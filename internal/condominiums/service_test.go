package condominiums

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/shared"
	_ "github.com/neighbora/neighbora-api/testing"
)

type mockRepo struct {
	items map[primitive.ObjectID]*Condominium
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: map[primitive.ObjectID]*Condominium{}}
}

func (m *mockRepo) ListActiveByCreator(_ context.Context, uid string) ([]Condominium, error) {
	var out []Condominium
	for _, c := range m.items {
		if c.IsActive && c.CreatedBy == uid {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockRepo) Get(_ context.Context, id primitive.ObjectID) (*Condominium, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("condominium %w", shared.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

func (m *mockRepo) Insert(_ context.Context, c *Condominium) error {
	c.ID = primitive.NewObjectID()
	copied := *c
	m.items[c.ID] = &copied
	return nil
}

func (m *mockRepo) Replace(_ context.Context, c *Condominium) error {
	if _, ok := m.items[c.ID]; !ok {
		return fmt.Errorf("condominium %w", shared.ErrNotFound)
	}
	copied := *c
	m.items[c.ID] = &copied
	return nil
}

type stubLocator struct {
	condominiumID string
	property      any
	err           error
}

func (s stubLocator) LocateResidence(_ context.Context, _ string) (string, any, error) {
	return s.condominiumID, s.property, s.err
}

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func validInput() Input {
	return Input{
		Name:       strp("Torre Los Andes"),
		Address:    strp("Av. Providencia 1234"),
		City:       strp("Santiago"),
		Region:     strp("RM"),
		TotalUnits: intp(48),
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	c, err := svc.Create(context.Background(), "uid-admin", validInput())
	require.NoError(t, err)
	assert.Equal(t, "Chile", c.Country)
	assert.Equal(t, TypeResidential, c.Type)
	assert.Equal(t, DefaultSettings(), c.Settings)
	assert.True(t, c.IsActive)
	assert.Equal(t, "uid-admin", c.CreatedBy)
}

func TestCreateValidates(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	in := validInput()
	in.TotalUnits = intp(0)
	in.Type = strp("industrial")
	in.Settings = &Settings{BillingCutoffDay: 31, Currency: "PESOS", Language: "!!", Timezone: "Mars/Olympus"}
	_, err := svc.Create(context.Background(), "uid-admin", in)
	require.ErrorIs(t, err, shared.ErrValidation)
	for _, fragment := range []string{"totalUnits", "type must be one of", "billingCutoffDay", "currency", "language", "timezone"} {
		assert.Contains(t, err.Error(), fragment)
	}
}

func TestUpdateMergesSettings(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, "uid-admin", validInput())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "uid-other", c.ID.Hex(), Input{Settings: &Settings{Currency: "usd", BillingCutoffDay: 15}})
	require.NoError(t, err)
	assert.Equal(t, "USD", updated.Settings.Currency)
	assert.Equal(t, 15, updated.Settings.BillingCutoffDay)
	assert.Equal(t, 10, updated.Settings.PaymentDueDays)
	assert.Equal(t, "uid-other", updated.LastModifiedBy)
	assert.Equal(t, "Torre Los Andes", updated.Name)
}

func TestDeactivateHidesFromListing(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, "uid-admin", validInput())
	require.NoError(t, err)
	list, err := svc.ListForCreator(ctx, "uid-admin")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Deactivate(ctx, "uid-admin", c.ID.Hex()))
	list, err = svc.ListForCreator(ctx, "uid-admin")
	require.NoError(t, err)
	require.Empty(t, list)
	require.ErrorIs(t, svc.Exists(ctx, c.ID.Hex()), shared.ErrNotFound)
}

func TestCurrentResidence(t *testing.T) {
	repo := newMockRepo()
	ctx := context.Background()
	c, err := NewService(repo, nil).Create(ctx, "uid-admin", validInput())
	require.NoError(t, err)

	svc := NewService(repo, stubLocator{condominiumID: c.ID.Hex(), property: map[string]string{"number": "101"}})
	res, err := svc.CurrentResidence(ctx, "uid-resident")
	require.NoError(t, err)
	require.Equal(t, c.ID, res.Condominium.ID)

	missing := NewService(repo, stubLocator{err: fmt.Errorf("property %w", shared.ErrNotFound)})
	_, err = missing.CurrentResidence(ctx, "uid-nobody")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

type grantFinder map[string]auth.Role

func (g grantFinder) ActiveGrant(_ context.Context, uid string) (*auth.Grant, error) {
	role, ok := g[uid]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &auth.Grant{Role: role}, nil
}

func TestWriteRoutesRequireAdmin(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	gate := auth.NewAdminGate(auth.RecordSource{Records: grantFinder{"uid-admin": auth.RoleAdmin}}, nil)
	r := chi.NewRouter()
	r.Route("/api/admin/condominiums", NewHandler(nil, svc, gate).MountRoutes)

	body := `{"name":"Edificio Sol","address":"Calle 1","city":"Valparaíso","region":"V","totalUnits":12}`
	post := func(uid string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/condominiums/", strings.NewReader(body))
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), &auth.Principal{UID: uid, Role: auth.RoleUser}))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusForbidden, post("uid-user"))
	require.Equal(t, http.StatusCreated, post("uid-admin"))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/condominiums/verify-admin", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), &auth.Principal{UID: "uid-user", Role: auth.RoleUser}))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"isAdmin":false`)
}
