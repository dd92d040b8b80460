package publications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/shared"
)

type mockRepo struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*Publication
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: map[primitive.ObjectID]*Publication{}}
}

func (m *mockRepo) PageVisible(_ context.Context, cid primitive.ObjectID, f Filter, now time.Time, page shared.PageRequest) ([]Publication, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Publication
	for _, p := range m.items {
		if p.CondominiumID != cid || !p.IsActive || !p.IsVisible || p.PublishDate.After(now) {
			continue
		}
		if p.ExpirationDate != nil && !p.ExpirationDate.After(now) {
			continue
		}
		if (f.Category != "" && p.Category != f.Category) || (f.Priority != "" && p.Priority != f.Priority) {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PublishDate.After(all[j].PublishDate) })
	start := min(int(page.Skip()), len(all))
	end := min(start+int(page.Limit()), len(all))
	return all[start:end], int64(len(all)), nil
}

func (m *mockRepo) IncrementViews(_ context.Context, id primitive.ObjectID) (*Publication, error) {
	return m.mutate(id, true, func(p *Publication) error {
		p.Views++
		return nil
	})
}

func (m *mockRepo) Insert(_ context.Context, p *Publication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = primitive.NewObjectID()
	c := *p
	m.items[p.ID] = &c
	return nil
}

func (m *mockRepo) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*Publication, error) {
	return m.mutate(id, false, func(p *Publication) error {
		for k, v := range set {
			switch k {
			case "title":
				p.Title = v.(string)
			case "content":
				p.Content = v.(string)
			case "category":
				p.Category = v.(string)
			case "priority":
				p.Priority = v.(string)
			case "isVisible":
				p.IsVisible = v.(bool)
			case "isActive":
				p.IsActive = v.(bool)
			case "lastModifiedBy":
				p.LastModifiedBy = v.(string)
			case "expirationDate":
				t := v.(time.Time)
				p.ExpirationDate = &t
			}
		}
		return nil
	})
}

func (m *mockRepo) React(_ context.Context, id primitive.ObjectID, r Reaction) (*Publication, error) {
	return m.mutate(id, true, func(p *Publication) error {
		for i := range p.Reactions {
			if p.Reactions[i].FirebaseUID == r.FirebaseUID {
				p.Reactions[i] = r
				return nil
			}
		}
		p.Reactions = append(p.Reactions, r)
		return nil
	})
}

func (m *mockRepo) AddComment(_ context.Context, id primitive.ObjectID, c Comment) (*Publication, error) {
	return m.mutate(id, true, func(p *Publication) error {
		p.Comments = append(p.Comments, c)
		return nil
	})
}

func (m *mockRepo) CategoryBreakdown(_ context.Context, cid primitive.ObjectID) ([]CategoryBucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buckets := map[string]*CategoryBucket{}
	reactions := map[string]int{}
	for _, p := range m.items {
		if p.CondominiumID != cid || !p.IsActive {
			continue
		}
		b, ok := buckets[p.Category]
		if !ok {
			b = &CategoryBucket{Category: p.Category}
			buckets[p.Category] = b
		}
		b.Count++
		b.TotalViews += p.Views
		reactions[p.Category] += len(p.Reactions)
	}
	var out []CategoryBucket
	for cat, b := range buckets {
		b.AvgReactions = float64(reactions[cat]) / float64(b.Count)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (m *mockRepo) TotalViews(_ context.Context, cid primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.items {
		if p.CondominiumID == cid && p.IsActive {
			n += p.Views
		}
	}
	return n, nil
}

func (m *mockRepo) mutate(id primitive.ObjectID, activeOnly bool, fn func(*Publication) error) (*Publication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok || (activeOnly && !p.IsActive) {
		return nil, fmt.Errorf("publication %w", shared.ErrNotFound)
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	c := *p
	c.Reactions = append([]Reaction(nil), p.Reactions...)
	c.Comments = append([]Comment(nil), p.Comments...)
	return &c, nil
}

type knownCondominiums map[string]bool

func (k knownCondominiums) Exists(_ context.Context, id string) error {
	if !k[id] {
		return fmt.Errorf("condominium %w", shared.ErrNotFound)
	}
	return nil
}

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc  *Service
	repo *mockRepo
	cid  primitive.ObjectID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cid := primitive.NewObjectID()
	repo := newMockRepo()
	svc := NewService(repo, knownCondominiums{cid.Hex(): true})
	svc.now = func() time.Time { return fixedNow }
	return &fixture{svc: svc, repo: repo, cid: cid}
}

func (f *fixture) post(t *testing.T, title, category string, mod func(*CreateInput)) *Publication {
	t.Helper()
	in := CreateInput{CondominiumID: f.cid.Hex(), Title: title, Content: "body", Category: category}
	if mod != nil {
		mod(&in)
	}
	p, err := f.svc.Create(context.Background(), &auth.Principal{UID: "uid-admin", Role: auth.RoleAdmin}, in)
	require.NoError(t, err)
	return p
}

func TestCreateAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, "  Water cut  ", CategoryMaintenance, nil)

	require.Equal(t, "Water cut", p.Title)
	require.Equal(t, PriorityMedium, p.Priority)
	require.Equal(t, defaultAuthorName, p.Author.Name)
	require.Equal(t, AuthorAdmin, p.Author.Role)
	require.Equal(t, "uid-admin", p.CreatedBy)
	require.True(t, p.IsVisible)
	require.True(t, p.IsActive)
	require.Equal(t, fixedNow, p.PublishDate)
	require.NotNil(t, p.Reactions)
	require.NotNil(t, p.Comments)
}

func TestCreateRejectsUnknownCondominiumAndBadWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := &auth.Principal{UID: "uid-admin"}

	_, err := f.svc.Create(ctx, admin, CreateInput{CondominiumID: primitive.NewObjectID().Hex(), Title: "x", Content: "y", Category: CategoryGeneral})
	require.ErrorIs(t, err, shared.ErrNotFound)

	past := fixedNow.Add(-time.Hour)
	_, err = f.svc.Create(ctx, admin, CreateInput{CondominiumID: f.cid.Hex(), Title: "x", Content: "y", Category: CategoryGeneral, ExpirationDate: &past})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Create(ctx, nil, CreateInput{CondominiumID: f.cid.Hex()})
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestBoardHidesInvisibleExpiredAndScheduled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	older := f.post(t, "older", CategoryNotice, func(in *CreateInput) {
		at := fixedNow.Add(-48 * time.Hour)
		in.PublishDate = &at
	})
	newer := f.post(t, "newer", CategoryEmergency, func(in *CreateInput) { in.Priority = PriorityUrgent })
	f.post(t, "scheduled", CategoryEvent, func(in *CreateInput) {
		at := fixedNow.Add(24 * time.Hour)
		in.PublishDate = &at
	})
	expiring := f.post(t, "expiring", CategoryNotice, func(in *CreateInput) {
		at := fixedNow.Add(-72 * time.Hour)
		exp := fixedNow.Add(-time.Hour)
		in.PublishDate, in.ExpirationDate = &at, &exp
	})
	require.NotNil(t, expiring)
	hidden := f.post(t, "hidden", CategoryGeneral, nil)
	_, err := f.svc.Update(ctx, "uid-admin", hidden.ID.Hex(), UpdateInput{IsVisible: ptr(false)})
	require.NoError(t, err)
	removed := f.post(t, "removed", CategoryGeneral, nil)
	require.NoError(t, f.svc.Delete(ctx, "uid-admin", removed.ID.Hex()))

	items, pagination, err := f.svc.Board(ctx, f.cid.Hex(), Filter{}, shared.PageRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, newer.ID, items[0].ID)
	require.Equal(t, older.ID, items[1].ID)
	require.Equal(t, 2, pagination.Total)

	items, _, err = f.svc.Board(ctx, f.cid.Hex(), Filter{Priority: PriorityUrgent}, shared.PageRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "newer", items[0].Title)

	_, err = f.svc.View(ctx, removed.ID.Hex())
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestViewCountsReads(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, "assembly", CategoryEvent, nil)
	for range 3 {
		_, err := f.svc.View(context.Background(), p.ID.Hex())
		require.NoError(t, err)
	}
	got, err := f.svc.View(context.Background(), p.ID.Hex())
	require.NoError(t, err)
	require.EqualValues(t, 4, got.Views)
}

func TestReactReplacesEarlierReaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, "pool", CategoryNotice, nil)

	_, err := f.svc.React(ctx, "uid-a", p.ID.Hex(), ReactionInput{Type: "like"})
	require.NoError(t, err)
	_, err = f.svc.React(ctx, "uid-b", p.ID.Hex(), ReactionInput{Type: "useful"})
	require.NoError(t, err)
	got, err := f.svc.React(ctx, "uid-a", p.ID.Hex(), ReactionInput{Type: "important"})
	require.NoError(t, err)

	require.Len(t, got.Reactions, 2)
	require.Equal(t, "important", got.Reactions[0].Type)
}

func TestCommentDefaultsUserName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, "parking", CategoryGeneral, nil)

	got, err := f.svc.Comment(ctx, &auth.Principal{UID: "uid-a"}, p.ID.Hex(), CommentInput{Content: " thanks "})
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	require.Equal(t, defaultCommenterName, got.Comments[0].UserName)
	require.Equal(t, "thanks", got.Comments[0].Content)
	require.NotEmpty(t, got.Comments[0].ID)

	_, err = f.svc.Comment(ctx, &auth.Principal{UID: "uid-a"}, p.ID.Hex(), CommentInput{Content: "   "})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestStatsByCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.post(t, "a", CategoryNotice, nil)
	f.post(t, "b", CategoryNotice, nil)
	f.post(t, "c", CategoryEvent, nil)
	_, err := f.svc.View(ctx, a.ID.Hex())
	require.NoError(t, err)
	_, err = f.svc.React(ctx, "uid-a", a.ID.Hex(), ReactionInput{Type: "like"})
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, f.cid.Hex())
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.TotalPublications)
	require.EqualValues(t, 1, stats.TotalViews)
	require.Len(t, stats.ByCategory, 2)
	require.Equal(t, CategoryEvent, stats.ByCategory[0].Category)
	require.Equal(t, CategoryNotice, stats.ByCategory[1].Category)
	require.EqualValues(t, 2, stats.ByCategory[1].Count)
	require.InDelta(t, 0.5, stats.ByCategory[1].AvgReactions, 1e-9)
}

type grantFinder map[string]auth.Role

func (g grantFinder) ActiveGrant(_ context.Context, uid string) (*auth.Grant, error) {
	role, ok := g[uid]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &auth.Grant{Role: role}, nil
}

func TestHandlerRoutes(t *testing.T) {
	f := newFixture(t)
	gate := auth.NewAdminGate(auth.RecordSource{Records: grantFinder{"uid-admin": auth.RoleAdmin}}, nil)
	r := chi.NewRouter()
	r.Route("/api/admin/publications", NewHandler(nil, f.svc, gate).MountRoutes)

	do := func(method, path, uid, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/admin/publications"+path, strings.NewReader(body))
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), &auth.Principal{UID: uid, Name: "Ana", Role: auth.RoleUser}))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	body := fmt.Sprintf(`{"condominiumId":%q,"title":"Elevator","content":"Out of service","category":"maintenance"}`, f.cid.Hex())
	require.Equal(t, http.StatusForbidden, do(http.MethodPost, "/", "uid-resident", body).Code)
	require.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/", "uid-admin", `{"title":"x"}`).Code)

	rr := do(http.MethodPost, "/", "uid-admin", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		Data Publication `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, "Ana", created.Data.Author.Name)

	rr = do(http.MethodGet, "/?condominiumId="+f.cid.Hex(), "uid-resident", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var board struct {
		Data struct {
			Publications []Publication    `json:"publications"`
			Pagination   shared.Pagination `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &board))
	require.Len(t, board.Data.Publications, 1)

	require.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/", "uid-resident", "").Code)
	require.Equal(t, http.StatusOK, do(http.MethodGet, "/"+created.Data.ID.Hex(), "uid-resident", "").Code)
	require.Equal(t, http.StatusForbidden, do(http.MethodGet, "/condominium/"+f.cid.Hex()+"/stats", "uid-resident", "").Code)
	require.Equal(t, http.StatusOK, do(http.MethodGet, "/condominium/"+f.cid.Hex()+"/stats", "uid-admin", "").Code)
	require.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/"+created.Data.ID.Hex()+"/reaction", "uid-admin", `{"type":"love"}`).Code)
	require.Equal(t, http.StatusCreated, do(http.MethodPost, "/"+created.Data.ID.Hex()+"/comment", "uid-admin", `{"content":"ok"}`).Code)
	require.Equal(t, http.StatusOK, do(http.MethodDelete, "/"+created.Data.ID.Hex(), "uid-admin", "").Code)
	require.Equal(t, http.StatusNotFound, do(http.MethodGet, "/"+created.Data.ID.Hex(), "uid-resident", "").Code)
}

func ptr[T any](v T) *T { return &v }
