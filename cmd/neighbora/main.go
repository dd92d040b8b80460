package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/neighbora/neighbora-api/internal/admins"
	"github.com/neighbora/neighbora-api/internal/app"
	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/condominiums"
	"github.com/neighbora/neighbora-api/internal/expenses"
	"github.com/neighbora/neighbora-api/internal/identity"
	"github.com/neighbora/neighbora-api/internal/observability"
	"github.com/neighbora/neighbora-api/internal/platform/cache"
	"github.com/neighbora/neighbora-api/internal/platform/mongodb"
	"github.com/neighbora/neighbora-api/internal/properties"
	"github.com/neighbora/neighbora-api/internal/publications"
	"github.com/neighbora/neighbora-api/internal/residents"
	"github.com/neighbora/neighbora-api/internal/shared"
	"github.com/neighbora/neighbora-api/jobs"
)

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	var idempotency *shared.IdempotencyStore
	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, payment idempotency keys disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		idempotency = shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
	}

	var provider identity.Provider
	firebaseProvider, err := identity.NewFirebaseProvider(ctx, identity.FirebaseConfig{
		ProjectID:          cfg.FirebaseProjectID,
		ServiceAccountJSON: cfg.FirebaseServiceAccountKey,
		ServiceAccountPath: cfg.FirebaseServiceAccountPath,
	})
	switch {
	case err == nil:
		provider = firebaseProvider
	case errors.Is(err, identity.ErrNotConfigured):
		if cfg.AuthInsecureDevTokens {
			logger.Warn("firebase not configured, accepting UNVERIFIED dev tokens")
		} else {
			logger.Warn("firebase not configured, authenticated routes will answer 503")
		}
	default:
		logger.Error("init firebase", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	adminRepo := admins.NewRepository(db)
	condoRepo := condominiums.NewRepository(db)
	propertyRepo := properties.NewRepository(db)
	expenseRepo := expenses.NewRepository(db)
	publicationRepo := publications.NewRepository(db)
	for _, repo := range []indexer{adminRepo, condoRepo, propertyRepo, expenseRepo, publicationRepo} {
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Error("ensure indexes", slog.Any("error", err))
			os.Exit(1)
		}
	}

	source, err := auth.SourceFromConfig(cfg.AuthAdminSource, adminRepo, provider)
	if err != nil {
		logger.Error("admin authorization source", slog.Any("error", err))
		os.Exit(1)
	}
	gate := auth.NewGate(auth.GateConfig{
		Provider:               provider,
		AllowInsecureDevTokens: cfg.AuthInsecureDevTokens,
		Logger:                 logger,
		Observer:               metrics,
	})
	adminGate := auth.NewAdminGate(source, logger)
	logger.Info("admin gate ready", slog.String("source", source.Name()))

	condoService := condominiums.NewService(condoRepo, nil)
	propertyService := properties.NewService(propertyRepo, condoService)
	condoService.UseResidenceLocator(propertyService)

	redisOpts := cfg.Redis().Asynq()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	expenseOpts := []expenses.Option{
		expenses.WithLogger(logger),
		expenses.WithObserver(metrics),
		expenses.WithNotifier(jobs.NewReceiptNotifier(jobClient, propertyService, logger)),
	}
	if idempotency != nil {
		expenseOpts = append(expenseOpts, expenses.WithIdempotency(idempotency))
	}
	expenseService := expenses.NewService(expenseRepo, propertyService, expenseOpts...)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Gate:                gate,
		Metrics:             metrics,
		AuthHandler:         auth.NewHandler(logger, auth.NewService(gate, provider), gate),
		AdminsHandler:       admins.NewHandler(logger, admins.NewService(adminRepo, provider, logger), adminGate),
		CondominiumsHandler: condominiums.NewHandler(logger, condoService, adminGate),
		PropertiesHandler:   properties.NewHandler(logger, propertyService, adminGate),
		ResidentsHandler:    residents.NewHandler(logger, residents.NewService(propertyService), adminGate),
		ExpensesHandler:     expenses.NewHandler(logger, expenseService, adminGate),
		PublicationsHandler: publications.NewHandler(logger, publications.NewService(publicationRepo, condoService), adminGate),
		JobHandler:          jobs.NewHandler(inspector, jobClient, adminGate, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
