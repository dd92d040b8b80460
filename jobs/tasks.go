package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/neighbora/neighbora-api/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueSweep flags unpaid expenses whose due date has passed.
	TaskOverdueSweep = "expenses:overdue-sweep"
	// TaskPaymentReceipt mails a receipt for a recorded payment.
	TaskPaymentReceipt = "mail:payment-receipt"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PaymentReceiptPayload carries everything the receipt mail renders, so the
// worker never reads the expense back.
type PaymentReceiptPayload struct {
	To             string `json:"to"`
	RecipientName  string `json:"recipientName,omitempty"`
	ExpenseID      string `json:"expenseId"`
	PaymentID      string `json:"paymentId"`
	PropertyNumber string `json:"propertyNumber,omitempty"`
	Period         string `json:"period"`
	Amount         string `json:"amount"`
	PaymentMethod  string `json:"paymentMethod"`
	PaymentDate    string `json:"paymentDate"`
	Status         string `json:"status"`
	Balance        string `json:"balance"`
}

// NewPaymentReceiptTask constructs a receipt task. The task id is derived
// from the payment id so a receipt is enqueued at most once.
func NewPaymentReceiptTask(payload PaymentReceiptPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentReceipt, data, asynq.TaskID("receipt:"+payload.PaymentID), asynq.MaxRetry(5)), nil
}

// NewOverdueSweepTask constructs a sweep task; it carries no payload.
func NewOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOverdueSweep, nil, asynq.MaxRetry(3))
}
