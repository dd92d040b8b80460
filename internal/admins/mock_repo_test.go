package admins

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/shared"
)

type mockRepo struct {
	mu     sync.Mutex
	admins map[primitive.ObjectID]*Admin

	insertErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{admins: map[primitive.ObjectID]*Admin{}}
}

func (m *mockRepo) ListActive(_ context.Context) ([]Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Admin
	for _, a := range m.admins {
		if a.IsActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockRepo) Get(_ context.Context, id primitive.ObjectID) (*Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, fmt.Errorf("admin %w", shared.ErrNotFound)
	}
	copied := *a
	return &copied, nil
}

func (m *mockRepo) FindByFirebaseUID(_ context.Context, uid string) (*Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.FirebaseUID == uid {
			copied := *a
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("admin %w", shared.ErrNotFound)
}

func (m *mockRepo) Insert(_ context.Context, admin *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, a := range m.admins {
		if a.Email == admin.Email || a.FirebaseUID == admin.FirebaseUID {
			return fmt.Errorf("%w: admin already exists", shared.ErrConflict)
		}
	}
	admin.ID = primitive.NewObjectID()
	copied := *admin
	m.admins[admin.ID] = &copied
	return nil
}

func (m *mockRepo) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, fmt.Errorf("admin %w", shared.ErrNotFound)
	}
	for k, v := range set {
		switch k {
		case "name":
			a.Name = v.(string)
		case "role":
			a.Role = v.(auth.Role)
		case "permissions":
			a.Permissions = v.([]string)
		case "isActive":
			a.IsActive = v.(bool)
		case "lastModifiedBy":
			a.LastModifiedBy = v.(string)
		}
	}
	copied := *a
	return &copied, nil
}

func (m *mockRepo) ActiveGrant(_ context.Context, uid string) (*auth.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.FirebaseUID == uid && a.IsActive {
			return &auth.Grant{Role: a.Role, Permissions: a.Permissions}, nil
		}
	}
	return nil, fmt.Errorf("admin %w", shared.ErrNotFound)
}
