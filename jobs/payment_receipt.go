package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	jobmetrics "github.com/neighbora/neighbora-api/internal/jobs"
)

// MailSender delivers a composed message. *sendgrid.Client satisfies it.
type MailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// ReceiptMailerConfig configures receipt delivery.
type ReceiptMailerConfig struct {
	APIKey   string
	From     string
	FromName string
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// PaymentReceiptJob mails payment receipts through SendGrid.
type PaymentReceiptJob struct {
	Sender   MailSender
	From     string
	FromName string
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewPaymentReceiptJob builds the receipt handler. Without an API key the
// handler acknowledges tasks without sending.
func NewPaymentReceiptJob(cfg ReceiptMailerConfig) *PaymentReceiptJob {
	j := &PaymentReceiptJob{From: cfg.From, FromName: cfg.FromName, Logger: cfg.Logger, Metrics: cfg.Metrics}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		j.Sender = sendgrid.NewSendClient(key)
	}
	return j
}

// Handle renders and sends one receipt.
func (j *PaymentReceiptJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload PaymentReceiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("payment receipt: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.metrics().Track(TaskPaymentReceipt)
	logger := j.logger().With(slog.String("payment_id", payload.PaymentID))
	if j.Sender == nil {
		logger.Info("receipt skipped, mail delivery not configured")
		tracker.Skip("no_api_key")
		return nil
	}
	if strings.TrimSpace(payload.To) == "" {
		logger.Info("receipt skipped, no recipient")
		tracker.Skip("no_recipient")
		return nil
	}

	subject, text := renderReceipt(payload)
	from := mail.NewEmail(j.FromName, j.From)
	to := mail.NewEmail(payload.RecipientName, payload.To)
	message := mail.NewSingleEmail(from, subject, to, text, "<pre>"+html.EscapeString(text)+"</pre>")

	resp, err := j.Sender.SendWithContext(ctx, message)
	if err != nil {
		logger.Warn("send receipt", slog.Any("error", err))
		return tracker.End(err)
	}
	switch {
	case resp.StatusCode >= 500:
		return tracker.End(fmt.Errorf("payment receipt: sendgrid status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		logger.Error("receipt rejected", slog.Int("status", resp.StatusCode), slog.String("body", resp.Body))
		return tracker.End(fmt.Errorf("payment receipt: sendgrid status %d: %w", resp.StatusCode, asynq.SkipRetry))
	}
	logger.Info("receipt sent", slog.Int("status", resp.StatusCode))
	return tracker.End(nil)
}

func renderReceipt(p PaymentReceiptPayload) (string, string) {
	subject := fmt.Sprintf("Payment received for period %s", p.Period)
	var b strings.Builder
	name := p.RecipientName
	if name == "" {
		name = "resident"
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "We registered a payment of %s", p.Amount)
	if p.PropertyNumber != "" {
		fmt.Fprintf(&b, " for unit %s", p.PropertyNumber)
	}
	fmt.Fprintf(&b, " (period %s).\n\n", p.Period)
	fmt.Fprintf(&b, "Method: %s\n", p.PaymentMethod)
	fmt.Fprintf(&b, "Date: %s\n", p.PaymentDate)
	fmt.Fprintf(&b, "Status: %s\n", p.Status)
	fmt.Fprintf(&b, "Outstanding balance: %s\n", p.Balance)
	fmt.Fprintf(&b, "Reference: %s\n", p.PaymentID)
	return subject, b.String()
}

func (j *PaymentReceiptJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPaymentReceipt))
	}
	return slog.Default().With(slog.String("job", TaskPaymentReceipt))
}

func (j *PaymentReceiptJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
