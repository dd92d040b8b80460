package expenses

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

type mockRepo struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*CommonExpense

	// beforeWrite runs ahead of every versioned write; tests use it to
	// simulate a concurrent writer.
	beforeWrite func(id primitive.ObjectID)
	appendCalls int
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: map[primitive.ObjectID]*CommonExpense{}}
}

func (m *mockRepo) Get(_ context.Context, id primitive.ObjectID) (*CommonExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("common expense %w", shared.ErrNotFound)
	}
	return cloneExpense(e), nil
}

func (m *mockRepo) ListByProperty(_ context.Context, pid primitive.ObjectID, f Filter) ([]CommonExpense, error) {
	return m.filter(func(e *CommonExpense) bool { return e.PropertyID == pid && matches(e, f) }), nil
}

func (m *mockRepo) PageByCondominium(_ context.Context, cid primitive.ObjectID, f Filter, page shared.PageRequest) ([]CommonExpense, int64, error) {
	all := m.filter(func(e *CommonExpense) bool { return e.CondominiumID == cid && matches(e, f) })
	start := min(int(page.Skip()), len(all))
	end := min(start+int(page.Limit()), len(all))
	return all[start:end], int64(len(all)), nil
}

func (m *mockRepo) Insert(_ context.Context, e *CommonExpense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.items {
		if other.PropertyID == e.PropertyID && other.Period == e.Period {
			return fmt.Errorf("%w: an expense for period %s already exists for this property", shared.ErrConflict, e.Period)
		}
	}
	e.ID = primitive.NewObjectID()
	m.items[e.ID] = cloneExpense(e)
	return nil
}

func (m *mockRepo) AppendPayment(_ context.Context, id primitive.ObjectID, version int64, p Payment, rec Reconciliation, overdue bool) error {
	if m.beforeWrite != nil {
		m.beforeWrite(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendCalls++
	e, ok := m.items[id]
	if !ok {
		return fmt.Errorf("common expense %w", shared.ErrNotFound)
	}
	if e.Version != version {
		return ErrStaleVersion
	}
	e.Payments = append(e.Payments, p)
	e.TotalPaid = rec.TotalPaid
	e.Status = rec.Status
	e.Overdue = overdue
	e.Version++
	return nil
}

func (m *mockRepo) Save(_ context.Context, e *CommonExpense) error {
	if m.beforeWrite != nil {
		m.beforeWrite(e.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[e.ID]
	if !ok {
		return fmt.Errorf("common expense %w", shared.ErrNotFound)
	}
	if stored.Version != e.Version {
		return ErrStaleVersion
	}
	e.Version++
	m.items[e.ID] = cloneExpense(e)
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("common expense %w", shared.ErrNotFound)
	}
	delete(m.items, id)
	return nil
}

func (m *mockRepo) StatusBreakdown(_ context.Context, cid primitive.ObjectID) ([]StatusBucket, error) {
	buckets := map[Status]*StatusBucket{}
	for _, e := range m.filter(func(e *CommonExpense) bool { return e.CondominiumID == cid }) {
		b, ok := buckets[e.Status]
		if !ok {
			b = &StatusBucket{Status: e.Status}
			buckets[e.Status] = b
		}
		b.Count++
		b.TotalAmount = b.TotalAmount.Add(e.Amounts.Total)
		b.TotalPaid = b.TotalPaid.Add(e.TotalPaid)
	}
	var out []StatusBucket
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (m *mockRepo) CountOverdue(_ context.Context, cid primitive.ObjectID) (int64, error) {
	return int64(len(m.filter(func(e *CommonExpense) bool { return e.CondominiumID == cid && e.Overdue }))), nil
}

func (m *mockRepo) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.items {
		if e.DueDate.Before(now) && e.Status != StatusPaid && !e.Overdue {
			e.Overdue = true
			e.Version++
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) filter(keep func(*CommonExpense) bool) []CommonExpense {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CommonExpense
	for _, e := range m.items {
		if keep(e) {
			out = append(out, *cloneExpense(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	return out
}

func matches(e *CommonExpense, f Filter) bool {
	if f.Period != "" && e.Period != f.Period {
		return false
	}
	switch f.Status {
	case "":
		return true
	case string(StatusOverdue):
		return e.Overdue
	default:
		return string(e.Status) == f.Status
	}
}

func cloneExpense(e *CommonExpense) *CommonExpense {
	c := *e
	c.Payments = append([]Payment(nil), e.Payments...)
	c.ExpenseDetails = append([]Detail(nil), e.ExpenseDetails...)
	return &c
}

type stubProperties struct {
	units map[string]*properties.Property
	users map[string][]properties.Summary
}

func (s stubProperties) Get(_ context.Context, id string) (*properties.Property, error) {
	p, ok := s.units[id]
	if !ok {
		return nil, fmt.Errorf("property %w", shared.ErrNotFound)
	}
	return p, nil
}

func (s stubProperties) ListForUser(_ context.Context, uid string) ([]properties.Summary, error) {
	return s.users[uid], nil
}
