package expenses

import (
	"time"

	"github.com/neighbora/neighbora-api/internal/money"
)

// Status is the payment classification of a common expense.
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
	// StatusOverdue is only read from legacy documents. Lateness is tracked by
	// the Overdue flag and never produced by Reconcile.
	StatusOverdue Status = "overdue"
)

// Rank orders payment statuses: pending < partial < paid.
func (s Status) Rank() int {
	switch s {
	case StatusPartial:
		return 1
	case StatusPaid:
		return 2
	default:
		return 0
	}
}

// Reconciliation is the aggregate derived from an expense's payments.
type Reconciliation struct {
	TotalPaid money.Amount
	Status    Status
}

// Reconcile sums payments exactly and classifies them against totalOwed.
// Overpayment is accepted and reported as paid.
func Reconcile(totalOwed money.Amount, payments []money.Amount) Reconciliation {
	paid := money.Sum(payments...)
	switch {
	case paid.IsZero():
		return Reconciliation{TotalPaid: paid, Status: StatusPending}
	case paid.Cmp(totalOwed) < 0:
		return Reconciliation{TotalPaid: paid, Status: StatusPartial}
	default:
		return Reconciliation{TotalPaid: paid, Status: StatusPaid}
	}
}

// IsOverdue reports whether an unpaid expense is past its due date.
func IsOverdue(dueDate time.Time, status Status, now time.Time) bool {
	return status != StatusPaid && now.After(dueDate)
}
