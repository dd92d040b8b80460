package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/neighbora/neighbora-api/internal/app"
	"github.com/neighbora/neighbora-api/internal/condominiums"
	"github.com/neighbora/neighbora-api/internal/expenses"
	"github.com/neighbora/neighbora-api/internal/observability"
	"github.com/neighbora/neighbora-api/internal/platform/mongodb"
	"github.com/neighbora/neighbora-api/internal/properties"
	"github.com/neighbora/neighbora-api/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	mongoClient, db, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.Error("connect mongodb", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongodb disconnect", slog.Any("error", err))
		}
	}()

	condoService := condominiums.NewService(condominiums.NewRepository(db), nil)
	propertyService := properties.NewService(properties.NewRepository(db), condoService)
	condoService.UseResidenceLocator(propertyService)
	expenseService := expenses.NewService(expenses.NewRepository(db), propertyService, expenses.WithLogger(logger))

	metrics := observability.NewMetrics()
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("worker metrics listener", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	sweepJob := jobs.NewOverdueSweepJob(expenseService, logger, metrics.Jobs())
	receiptJob := jobs.NewPaymentReceiptJob(jobs.ReceiptMailerConfig{
		APIKey:   cfg.SendGridAPIKey,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
		Logger:   logger,
		Metrics:  metrics.Jobs(),
	})
	if receiptJob.Sender == nil {
		logger.Warn("SENDGRID_API_KEY not set, payment receipts will be skipped")
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.Redis().Asynq(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskOverdueSweep, Handler: sweepJob.Handle},
			{Type: jobs.TaskPaymentReceipt, Handler: receiptJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OverdueSweepCron, Task: jobs.NewOverdueSweepTask(), Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("overdueSweepCron", cfg.OverdueSweepCron))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
