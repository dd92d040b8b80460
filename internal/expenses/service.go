package expenses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/neighbora/neighbora-api/internal/money"
	"github.com/neighbora/neighbora-api/internal/platform/mongodb"
	"github.com/neighbora/neighbora-api/internal/properties"
	"github.com/neighbora/neighbora-api/internal/shared"
)

const (
	idempotencyModule = "expenses.payment"
	maxWriteAttempts  = 4
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Properties resolves the units expenses are billed to.
type Properties interface {
	Get(ctx context.Context, id string) (*properties.Property, error)
	ListForUser(ctx context.Context, uid string) ([]properties.Summary, error)
}

// IdempotencyClaims guards payment recording against replays.
type IdempotencyClaims interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// PaymentNotifier is told about every recorded payment.
type PaymentNotifier interface {
	PaymentRecorded(ctx context.Context, e *CommonExpense, p Payment) error
}

// PaymentObserver counts recorded payments by resulting status.
type PaymentObserver interface {
	ObservePayment(status string)
}

// Option customises a Service.
type Option func(*Service)

func WithIdempotency(claims IdempotencyClaims) Option {
	return func(s *Service) { s.claims = claims }
}

func WithNotifier(n PaymentNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithObserver(o PaymentObserver) Option {
	return func(s *Service) { s.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	repo     Repository
	props    Properties
	claims   IdempotencyClaims
	notifier PaymentNotifier
	observer PaymentObserver
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, props Properties, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		props:  props,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, id string) (*CommonExpense, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	e, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	s.refresh(e)
	return e, nil
}

// ListForUser returns the expense history of the first unit uid owns or lives in.
func (s *Service) ListForUser(ctx context.Context, uid string) (*UserExpenses, error) {
	if uid == "" {
		return nil, shared.ErrUnauthenticated
	}
	units, err := s.props.ListForUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("property for this user %w", shared.ErrNotFound)
	}
	items, err := s.repo.ListByProperty(ctx, units[0].ID, Filter{})
	if err != nil {
		return nil, err
	}
	return &UserExpenses{Property: units[0], CommonExpenses: s.refreshAll(items)}, nil
}

func (s *Service) ListByProperty(ctx context.Context, propertyID string, f Filter) ([]CommonExpense, error) {
	pid, err := mongodb.ParseID(propertyID)
	if err != nil {
		return nil, err
	}
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByProperty(ctx, pid, f)
	if err != nil {
		return nil, err
	}
	return s.refreshAll(items), nil
}

func (s *Service) PageByCondominium(ctx context.Context, condominiumID string, f Filter, page shared.PageRequest) ([]CommonExpense, shared.Pagination, error) {
	cid, err := mongodb.ParseID(condominiumID)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if err := validateFilter(f); err != nil {
		return nil, shared.Pagination{}, err
	}
	items, total, err := s.repo.PageByCondominium(ctx, cid, f, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return s.refreshAll(items), shared.NewPagination(page.Page, page.PerPage, int(total)), nil
}

func (s *Service) Create(ctx context.Context, actor string, in CreateInput) (*CommonExpense, error) {
	cid, err := mongodb.ParseID(in.CondominiumID)
	if err != nil {
		return nil, err
	}
	prop, err := s.props.Get(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if prop.CondominiumID != cid {
		return nil, fmt.Errorf("%w: property does not belong to condominium %s", shared.ErrValidation, in.CondominiumID)
	}
	now := s.now()
	e := &CommonExpense{
		CondominiumID:  cid,
		PropertyID:     prop.ID,
		Period:         in.Period,
		Amounts:        normalizeAmounts(in.Amounts),
		IssueDate:      in.IssueDate.UTC(),
		DueDate:        in.DueDate.UTC(),
		Payments:       []Payment{},
		ExpenseDetails: in.ExpenseDetails,
		Notes:          in.Notes,
		CreatedBy:      actor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if e.ExpenseDetails == nil {
		e.ExpenseDetails = []Detail{}
	}
	if err := validateExpense(e); err != nil {
		return nil, err
	}
	s.reconcile(e)
	if err := s.repo.Insert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Update changes amounts, due date, details or notes and re-reconciles the
// stored status under the same versioned write as payments.
func (s *Service) Update(ctx context.Context, actor, id string, in UpdateInput) (*CommonExpense, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		e, err := s.repo.Get(ctx, oid)
		if err != nil {
			return nil, err
		}
		if in.Amounts != nil {
			e.Amounts = normalizeAmounts(*in.Amounts)
		}
		if in.DueDate != nil {
			e.DueDate = in.DueDate.UTC()
		}
		if in.ExpenseDetails != nil {
			e.ExpenseDetails = *in.ExpenseDetails
		}
		if in.Notes != nil {
			e.Notes = *in.Notes
		}
		e.LastModifiedBy = actor
		if err := validateExpense(e); err != nil {
			return nil, err
		}
		s.reconcile(e)
		err = s.repo.Save(ctx, e)
		if errors.Is(err, ErrStaleVersion) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, concurrentWrite()
}

func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, oid)
}

// RecordPayment appends a payment and persists the reconciled status in the
// same conditional write. A non-empty idempotency key is claimed first and
// released again when recording fails.
func (s *Service) RecordPayment(ctx context.Context, actor, id, idempotencyKey string, in PaymentInput) (*CommonExpense, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than 0", shared.ErrValidation)
	}
	if actor == "" {
		actor = "system"
	}

	claimed := false
	if idempotencyKey != "" && s.claims != nil {
		if err := s.claims.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, fmt.Errorf("%w: payment already recorded", shared.ErrConflict)
			}
			return nil, fmt.Errorf("expenses: claim idempotency key: %w", err)
		}
		claimed = true
	}

	payment := Payment{
		ID:            uuid.NewString(),
		Amount:        in.Amount,
		PaymentDate:   in.PaymentDate.UTC(),
		PaymentMethod: in.PaymentMethod,
		Receipt:       in.Receipt,
		Notes:         in.Notes,
		RegisteredBy:  actor,
	}
	e, err := s.appendPayment(ctx, oid, payment)
	if err != nil {
		if claimed {
			if relErr := s.claims.Delete(context.WithoutCancel(ctx), idempotencyKey, idempotencyModule); relErr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", idempotencyKey), slog.Any("error", relErr))
			}
		}
		return nil, err
	}

	if s.observer != nil {
		s.observer.ObservePayment(string(e.Status))
	}
	if s.notifier != nil {
		if err := s.notifier.PaymentRecorded(ctx, e, payment); err != nil {
			s.logger.Warn("payment notification", slog.String("expense_id", e.ID.Hex()), slog.Any("error", err))
		}
	}
	return e, nil
}

func (s *Service) appendPayment(ctx context.Context, id primitive.ObjectID, p Payment) (*CommonExpense, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		e, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		rec := Reconcile(e.Amounts.Total, append(e.PaidAmounts(), p.Amount))
		overdue := IsOverdue(e.DueDate, rec.Status, s.now())
		err = s.repo.AppendPayment(ctx, id, e.Version, p, rec, overdue)
		if errors.Is(err, ErrStaleVersion) {
			s.logger.Debug("payment write raced, retrying", slog.String("expense_id", id.Hex()), slog.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		e.Payments = append(e.Payments, p)
		e.TotalPaid = rec.TotalPaid
		e.Status = rec.Status
		e.Overdue = overdue
		e.LastModifiedBy = p.RegisteredBy
		e.Version++
		return e, nil
	}
	return nil, concurrentWrite()
}

// Stats aggregates a condominium's expenses. The status breakdown and the
// overdue count are read concurrently.
func (s *Service) Stats(ctx context.Context, condominiumID string) (*Stats, error) {
	cid, err := mongodb.ParseID(condominiumID)
	if err != nil {
		return nil, err
	}
	var (
		buckets []StatusBucket
		overdue int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		buckets, err = s.repo.StatusBreakdown(gctx, cid)
		return err
	})
	g.Go(func() error {
		var err error
		overdue, err = s.repo.CountOverdue(gctx, cid)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &Stats{OverdueCount: overdue, ByStatus: buckets}
	if stats.ByStatus == nil {
		stats.ByStatus = []StatusBucket{}
	}
	for _, b := range buckets {
		stats.TotalExpenses += b.Count
		stats.TotalAmount = stats.TotalAmount.Add(b.TotalAmount)
		stats.TotalPaid = stats.TotalPaid.Add(b.TotalPaid)
	}
	stats.Outstanding = stats.TotalAmount.Sub(stats.TotalPaid)
	if stats.Outstanding.IsNegative() {
		stats.Outstanding = money.Zero
	}
	return stats, nil
}

// MarkOverdue flags unpaid expenses whose due date has passed.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	return s.repo.MarkOverdue(ctx, s.now())
}

// reconcile recomputes the stored aggregate from the payments on e.
func (s *Service) reconcile(e *CommonExpense) {
	rec := Reconcile(e.Amounts.Total, e.PaidAmounts())
	e.TotalPaid = rec.TotalPaid
	e.Status = rec.Status
	e.Overdue = IsOverdue(e.DueDate, e.Status, s.now())
}

// refresh derives the overdue flag at read time so callers never see a value
// older than the last sweep.
func (s *Service) refresh(e *CommonExpense) {
	if e.Status == StatusOverdue {
		s.reconcile(e)
		return
	}
	e.Overdue = IsOverdue(e.DueDate, e.Status, s.now())
}

func (s *Service) refreshAll(items []CommonExpense) []CommonExpense {
	if items == nil {
		return []CommonExpense{}
	}
	for i := range items {
		s.refresh(&items[i])
	}
	return items
}

func normalizeAmounts(a Amounts) Amounts {
	if a.Total.IsZero() {
		a.Total = money.Sum(a.Components()...)
	}
	return a
}

func validateExpense(e *CommonExpense) error {
	if !periodPattern.MatchString(e.Period) {
		return fmt.Errorf("%w: period must use the YYYY-MM format", shared.ErrValidation)
	}
	for _, a := range append(e.Amounts.Components(), e.Amounts.Total) {
		if a.IsNegative() {
			return fmt.Errorf("%w: amounts must not be negative", shared.ErrValidation)
		}
	}
	if e.DueDate.Before(e.IssueDate) {
		return fmt.Errorf("%w: dueDate must not be before issueDate", shared.ErrValidation)
	}
	for _, d := range e.ExpenseDetails {
		if d.Amount.IsNegative() {
			return fmt.Errorf("%w: expense detail amounts must not be negative", shared.ErrValidation)
		}
	}
	return nil
}

func validateFilter(f Filter) error {
	if f.Period != "" && !periodPattern.MatchString(f.Period) {
		return fmt.Errorf("%w: period must use the YYYY-MM format", shared.ErrValidation)
	}
	switch Status(f.Status) {
	case "", StatusPending, StatusPartial, StatusPaid, StatusOverdue:
		return nil
	default:
		return fmt.Errorf("%w: status must be one of [pending partial paid overdue]", shared.ErrValidation)
	}
}

func concurrentWrite() error {
	return fmt.Errorf("%w: expense was modified concurrently, retry the request", shared.ErrConflict)
}
