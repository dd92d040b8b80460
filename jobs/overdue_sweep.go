package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/neighbora/neighbora-api/internal/jobs"
)

// OverdueMarker persists the overdue flag on every lapsed, unpaid expense.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context) (int64, error)
}

// OverdueSweepJob keeps the stored overdue flag in step with due dates so
// that filters and stats over the flag stay accurate between payments.
type OverdueSweepJob struct {
	Expenses OverdueMarker
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

func NewOverdueSweepJob(expenses OverdueMarker, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueSweepJob {
	return &OverdueSweepJob{Expenses: expenses, Logger: logger, Metrics: metrics}
}

// Handle executes one sweep.
func (j *OverdueSweepJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Expenses == nil {
		return errors.New("overdue sweep: handler not configured")
	}
	start := time.Now()
	tracker := j.metrics().Track(TaskOverdueSweep)
	flagged, err := j.Expenses.MarkOverdue(ctx)
	if err != nil {
		j.logger().Error("sweep failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger().Info("completed overdue sweep",
		slog.Int64("flagged", flagged),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(nil)
}

func (j *OverdueSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskOverdueSweep))
	}
	return slog.Default().With(slog.String("job", TaskOverdueSweep))
}

func (j *OverdueSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
