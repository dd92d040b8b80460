// Package propertiestest provides an in-memory properties.Repository for tests.
package propertiestest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/neighbora/neighbora-api/internal/properties"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// Repository keeps properties in a map and mirrors the unique (condominium, number) index.
type Repository struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*properties.Property
}

func New() *Repository {
	return &Repository{items: map[primitive.ObjectID]*properties.Property{}}
}

// Seed stores p as-is, assigning an id when missing.
func (m *Repository) Seed(p properties.Property) properties.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.items[p.ID] = clone(&p)
	return p
}

func (m *Repository) ListActiveByCondominium(_ context.Context, cid primitive.ObjectID) ([]properties.Property, error) {
	return m.filter(func(p *properties.Property) bool { return p.IsActive && p.CondominiumID == cid }), nil
}

func (m *Repository) ListActiveForUser(_ context.Context, uid string) ([]properties.Property, error) {
	return m.filter(func(p *properties.Property) bool {
		if !p.IsActive {
			return false
		}
		if p.Owner != nil && p.Owner.FirebaseUID == uid {
			return true
		}
		for _, r := range p.Residents {
			if r.FirebaseUID == uid {
				return true
			}
		}
		return false
	}), nil
}

func (m *Repository) Get(_ context.Context, id primitive.ObjectID) (*properties.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("property %w", shared.ErrNotFound)
	}
	return clone(p), nil
}

func (m *Repository) Insert(_ context.Context, p *properties.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.numberTaken(p) {
		return fmt.Errorf("%w: property number already exists in this condominium", shared.ErrConflict)
	}
	p.ID = primitive.NewObjectID()
	m.items[p.ID] = clone(p)
	return nil
}

func (m *Repository) Replace(_ context.Context, p *properties.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[p.ID]; !ok {
		return fmt.Errorf("property %w", shared.ErrNotFound)
	}
	if m.numberTaken(p) {
		return fmt.Errorf("%w: property number already exists in this condominium", shared.ErrConflict)
	}
	m.items[p.ID] = clone(p)
	return nil
}

func (m *Repository) PushResident(_ context.Context, id primitive.ObjectID, r properties.Resident) (*properties.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("property %w", shared.ErrNotFound)
	}
	if _, dup := p.ActiveResident(r.Email); dup {
		return nil, fmt.Errorf("%w: resident %s is already active on this property", shared.ErrConflict, r.Email)
	}
	p.Residents = append(p.Residents, r)
	return clone(p), nil
}

func (m *Repository) UpdateResident(_ context.Context, id primitive.ObjectID, email string, patch properties.ResidentPatch) (*properties.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("property %w", shared.ErrNotFound)
	}
	for i := range p.Residents {
		if p.Residents[i].Email == email {
			patch.Apply(&p.Residents[i], time.Now().UTC())
			return clone(p), nil
		}
	}
	return nil, fmt.Errorf("resident %w", shared.ErrNotFound)
}

func (m *Repository) PullResident(_ context.Context, id primitive.ObjectID, email string) (*properties.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("property %w", shared.ErrNotFound)
	}
	kept := p.Residents[:0]
	for _, r := range p.Residents {
		if r.Email != email {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(p.Residents) {
		return nil, fmt.Errorf("resident %w", shared.ErrNotFound)
	}
	p.Residents = kept
	return clone(p), nil
}

func (m *Repository) numberTaken(p *properties.Property) bool {
	for id, other := range m.items {
		if id != p.ID && other.CondominiumID == p.CondominiumID && other.Number == p.Number {
			return true
		}
	}
	return false
}

func (m *Repository) filter(keep func(*properties.Property) bool) []properties.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []properties.Property
	for _, p := range m.items {
		if keep(p) {
			out = append(out, *clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func clone(p *properties.Property) *properties.Property {
	c := *p
	c.Residents = append([]properties.Resident(nil), p.Residents...)
	return &c
}
