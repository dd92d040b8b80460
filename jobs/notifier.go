package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/neighbora/neighbora-api/internal/expenses"
	"github.com/neighbora/neighbora-api/internal/properties"
)

// PropertyLookup resolves the unit an expense is billed to.
type PropertyLookup interface {
	Get(ctx context.Context, id string) (*properties.Property, error)
}

// ReceiptNotifier turns recorded payments into receipt tasks.
type ReceiptNotifier struct {
	client     *Client
	properties PropertyLookup
	logger     *slog.Logger
}

func NewReceiptNotifier(client *Client, props PropertyLookup, logger *slog.Logger) *ReceiptNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptNotifier{client: client, properties: props, logger: logger}
}

// PaymentRecorded enqueues a receipt addressed to the unit's owner, or to
// its first active resident when no owner email is on file.
func (n *ReceiptNotifier) PaymentRecorded(ctx context.Context, e *expenses.CommonExpense, p expenses.Payment) error {
	payload := PaymentReceiptPayload{
		ExpenseID:     e.ID.Hex(),
		PaymentID:     p.ID,
		Period:        e.Period,
		Amount:        p.Amount.StringFixed(2),
		PaymentMethod: p.PaymentMethod,
		PaymentDate:   p.PaymentDate.UTC().Format(time.DateOnly),
		Status:        string(e.Status),
		Balance:       e.Balance().StringFixed(2),
	}
	prop, err := n.properties.Get(ctx, e.PropertyID.Hex())
	if err != nil {
		return err
	}
	payload.PropertyNumber = prop.Number
	payload.To, payload.RecipientName = recipient(prop)
	if payload.To == "" {
		n.logger.Info("no receipt recipient", slog.String("property_id", e.PropertyID.Hex()))
		return nil
	}
	return n.client.EnqueuePaymentReceipt(ctx, payload)
}

func recipient(p *properties.Property) (string, string) {
	if p.Owner != nil && p.Owner.Email != "" {
		return p.Owner.Email, p.Owner.Name
	}
	for _, r := range p.Residents {
		if r.IsActive && r.Email != "" {
			return r.Email, r.Name
		}
	}
	return "", ""
}
