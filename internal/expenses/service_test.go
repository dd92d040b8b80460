package expenses

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/neighbora/neighbora-api/internal/money"
	"github.com/neighbora/neighbora-api/internal/properties"
	"github.com/neighbora/neighbora-api/internal/shared"
	_ "github.com/neighbora/neighbora-api/testing"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc           *Service
	repo          *mockRepo
	condominiumID primitive.ObjectID
	propertyID    primitive.ObjectID
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	cid := primitive.NewObjectID()
	pid := primitive.NewObjectID()
	props := stubProperties{
		units: map[string]*properties.Property{
			pid.Hex(): {ID: pid, CondominiumID: cid, Number: "101", IsActive: true},
		},
		users: map[string][]properties.Summary{
			"uid-resident": {{ID: pid, Number: "101", Type: properties.TypeApartment}},
		},
	}
	repo := newMockRepo()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return &fixture{svc: NewService(repo, props, opts...), repo: repo, condominiumID: cid, propertyID: pid}
}

func (f *fixture) create(t *testing.T, period string, total int64, due time.Time) *CommonExpense {
	t.Helper()
	e, err := f.svc.Create(context.Background(), "uid-admin", CreateInput{
		CondominiumID: f.condominiumID.Hex(),
		PropertyID:    f.propertyID.Hex(),
		Period:        period,
		Amounts:       Amounts{CommonExpense: money.New(total)},
		IssueDate:     due.AddDate(0, 0, -10),
		DueDate:       due,
	})
	require.NoError(t, err)
	return e
}

func payment(amount string) PaymentInput {
	return PaymentInput{Amount: money.MustParse(amount), PaymentDate: fixedNow, PaymentMethod: MethodTransfer}
}

func TestCreateDerivesTotalAndStatus(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, "2024-06", 85000, fixedNow.AddDate(0, 0, 10))

	assert.True(t, money.New(85000).Equal(e.Amounts.Total))
	assert.Equal(t, StatusPending, e.Status)
	assert.True(t, e.TotalPaid.IsZero())
	assert.False(t, e.Overdue)
	assert.Empty(t, e.Payments)

	_, err := f.svc.Create(context.Background(), "uid-admin", CreateInput{
		CondominiumID: f.condominiumID.Hex(),
		PropertyID:    f.propertyID.Hex(),
		Period:        "2024-06",
		Amounts:       Amounts{CommonExpense: money.New(1)},
		IssueDate:     fixedNow,
		DueDate:       fixedNow,
	})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	base := CreateInput{
		CondominiumID: f.condominiumID.Hex(),
		PropertyID:    f.propertyID.Hex(),
		Period:        "2024-13",
		Amounts:       Amounts{CommonExpense: money.New(1)},
		IssueDate:     fixedNow,
		DueDate:       fixedNow,
	}
	_, err := f.svc.Create(context.Background(), "uid-admin", base)
	require.ErrorIs(t, err, shared.ErrValidation)

	base.Period = "2024-07"
	base.Amounts = Amounts{CommonExpense: money.New(-5)}
	_, err = f.svc.Create(context.Background(), "uid-admin", base)
	require.ErrorIs(t, err, shared.ErrValidation)

	base.Amounts = Amounts{CommonExpense: money.New(5)}
	base.CondominiumID = primitive.NewObjectID().Hex()
	_, err = f.svc.Create(context.Background(), "uid-admin", base)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordPaymentReconcilesAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "2024-06", 100000, fixedNow.AddDate(0, 0, 5))

	got, err := f.svc.RecordPayment(ctx, "uid-admin", e.ID.Hex(), "", payment("40000"))
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, got.Status)
	assert.True(t, money.New(40000).Equal(got.TotalPaid))
	require.Len(t, got.Payments, 1)
	assert.NotEmpty(t, got.Payments[0].ID)
	assert.Equal(t, "uid-admin", got.Payments[0].RegisteredBy)

	got, err = f.svc.RecordPayment(ctx, "uid-admin", e.ID.Hex(), "", payment("60000"))
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)

	stored, err := f.repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, stored.Status)
	assert.True(t, money.New(100000).Equal(stored.TotalPaid))
	assert.Equal(t, int64(2), stored.Version)

	_, err = f.svc.RecordPayment(ctx, "uid-admin", e.ID.Hex(), "", payment("0"))
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.RecordPayment(ctx, "uid-admin", primitive.NewObjectID().Hex(), "", payment("10"))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRecordPaymentRetriesOnStaleVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "2024-06", 100000, fixedNow.AddDate(0, 0, 5))

	raced := false
	f.repo.beforeWrite = func(id primitive.ObjectID) {
		if raced {
			return
		}
		raced = true
		f.repo.mu.Lock()
		stored := f.repo.items[id]
		stored.Payments = append(stored.Payments, Payment{ID: "concurrent", Amount: money.New(30000)})
		stored.TotalPaid = money.New(30000)
		stored.Status = StatusPartial
		stored.Version++
		f.repo.mu.Unlock()
	}

	got, err := f.svc.RecordPayment(ctx, "uid-admin", e.ID.Hex(), "", payment("70000"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.repo.appendCalls)
	assert.Equal(t, StatusPaid, got.Status)
	assert.True(t, money.New(100000).Equal(got.TotalPaid))
	require.Len(t, got.Payments, 2)
}

func TestRecordPaymentGivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, "2024-06", 100000, fixedNow.AddDate(0, 0, 5))
	f.repo.beforeWrite = func(id primitive.ObjectID) {
		f.repo.mu.Lock()
		f.repo.items[id].Version++
		f.repo.mu.Unlock()
	}

	_, err := f.svc.RecordPayment(context.Background(), "uid-admin", e.ID.Hex(), "", payment("100"))
	require.ErrorIs(t, err, shared.ErrConflict)
	assert.Equal(t, maxWriteAttempts, f.repo.appendCalls)
}

func TestConcurrentPaymentsAreNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "2024-06", 100000, fixedNow.AddDate(0, 0, 5))

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, amount := range []string{"50000", "50000"} {
		wg.Add(1)
		go func(amount string) {
			defer wg.Done()
			_, err := f.svc.RecordPayment(ctx, "uid-admin", e.ID.Hex(), "", payment(amount))
			errs <- err
		}(amount)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.repo.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, stored.Payments, 2)
	assert.Equal(t, StatusPaid, stored.Status)
}

type claimsSpy struct {
	*shared.IdempotencyStore
	deleted []string
}

func (c *claimsSpy) Delete(ctx context.Context, key, module string) error {
	c.deleted = append(c.deleted, key)
	return c.IdempotencyStore.Delete(ctx, key, module)
}

func TestRecordPaymentIdempotencyKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	claims := &claimsSpy{IdempotencyStore: shared.NewIdempotencyStore(client, time.Hour)}

	f := newFixture(t, WithIdempotency(claims))
	ctx := context.Background()
	e := f.create(t, "2024-06", 100000, fixedNow.AddDate(0, 0, 5))

	_, err := f.svc.RecordPayment(ctx, "uid-admin", e.ID.Hex(), "key-1", payment("40000"))
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, "uid-admin", e.ID.Hex(), "key-1", payment("40000"))
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Contains(t, err.Error(), "payment already recorded")

	stored, err := f.repo.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, stored.Payments, 1)

	// A failed recording releases its claim so the client can retry.
	_, err = f.svc.RecordPayment(ctx, "uid-admin", primitive.NewObjectID().Hex(), "key-2", payment("10"))
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Equal(t, []string{"key-2"}, claims.deleted)
	require.False(t, mr.Exists("idempotency:expenses.payment:key-2"))
}

type notifierFunc func(ctx context.Context, e *CommonExpense, p Payment) error

func (f notifierFunc) PaymentRecorded(ctx context.Context, e *CommonExpense, p Payment) error {
	return f(ctx, e, p)
}

type observerSpy struct{ statuses []string }

func (o *observerSpy) ObservePayment(status string) { o.statuses = append(o.statuses, status) }

func TestRecordPaymentNotifiesAndObserves(t *testing.T) {
	var notified []string
	notifier := notifierFunc(func(_ context.Context, e *CommonExpense, p Payment) error {
		notified = append(notified, p.ID)
		return errors.New("queue down")
	})
	observer := &observerSpy{}
	f := newFixture(t, WithNotifier(notifier), WithObserver(observer))
	e := f.create(t, "2024-06", 100000, fixedNow.AddDate(0, 0, 5))

	got, err := f.svc.RecordPayment(context.Background(), "uid-admin", e.ID.Hex(), "", payment("100000"))
	require.NoError(t, err, "notification failures do not fail the payment")
	require.Equal(t, []string{got.Payments[0].ID}, notified)
	require.Equal(t, []string{"paid"}, observer.statuses)
}

func TestOverdueFlagIsOrthogonal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	late := f.create(t, "2024-05", 100000, fixedNow.AddDate(0, 0, -3))
	assert.True(t, late.Overdue)
	assert.Equal(t, StatusPending, late.Status)

	got, err := f.svc.RecordPayment(ctx, "uid-admin", late.ID.Hex(), "", payment("20000"))
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, got.Status)
	assert.True(t, got.Overdue)

	got, err = f.svc.RecordPayment(ctx, "uid-admin", late.ID.Hex(), "", payment("80000"))
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)
	assert.False(t, got.Overdue)

	items, err := f.svc.ListByProperty(ctx, f.propertyID.Hex(), Filter{Status: "overdue"})
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = f.svc.ListByProperty(ctx, f.propertyID.Hex(), Filter{Status: "late"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestMarkOverdueSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "2024-05", 1000, fixedNow.AddDate(0, 0, 3))

	// Stored flag was false at creation; move the clock past the due date.
	f.svc.now = func() time.Time { return fixedNow.AddDate(0, 0, 4) }
	n, err := f.svc.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	items, err := f.svc.ListByProperty(ctx, f.propertyID.Hex(), Filter{Status: "overdue"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, e.ID, items[0].ID)

	n, err = f.svc.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateReReconciles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "2024-06", 100000, fixedNow.AddDate(0, 0, 5))
	_, err := f.svc.RecordPayment(ctx, "uid-admin", e.ID.Hex(), "", payment("60000"))
	require.NoError(t, err)

	lowered := Amounts{CommonExpense: money.New(50000), ReserveFund: money.New(10000)}
	got, err := f.svc.Update(ctx, "uid-admin", e.ID.Hex(), UpdateInput{Amounts: &lowered})
	require.NoError(t, err)
	assert.True(t, money.New(60000).Equal(got.Amounts.Total))
	assert.Equal(t, StatusPaid, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestStatsAggregatesConcurrently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	paid := f.create(t, "2024-04", 1000, fixedNow.AddDate(0, 0, 5))
	_, err := f.svc.RecordPayment(ctx, "uid-admin", paid.ID.Hex(), "", payment("1000"))
	require.NoError(t, err)
	f.create(t, "2024-05", 2000, fixedNow.AddDate(0, 0, -5))

	stats, err := f.svc.Stats(ctx, f.condominiumID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalExpenses)
	assert.True(t, money.New(3000).Equal(stats.TotalAmount))
	assert.True(t, money.New(1000).Equal(stats.TotalPaid))
	assert.True(t, money.New(2000).Equal(stats.Outstanding))
	assert.Equal(t, int64(1), stats.OverdueCount)
	assert.Len(t, stats.ByStatus, 2)
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	f.create(t, "2024-05", 1000, fixedNow)
	f.create(t, "2024-06", 1000, fixedNow)

	res, err := f.svc.ListForUser(context.Background(), "uid-resident")
	require.NoError(t, err)
	assert.Equal(t, "101", res.Property.Number)
	require.Len(t, res.CommonExpenses, 2)
	assert.Equal(t, "2024-06", res.CommonExpenses[0].Period)

	_, err = f.svc.ListForUser(context.Background(), "uid-stranger")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
