package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neighbora/neighbora-api/internal/admins"
	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/condominiums"
	"github.com/neighbora/neighbora-api/internal/expenses"
	"github.com/neighbora/neighbora-api/internal/observability"
	"github.com/neighbora/neighbora-api/internal/platform/httpx"
	"github.com/neighbora/neighbora-api/internal/properties"
	"github.com/neighbora/neighbora-api/internal/publications"
	"github.com/neighbora/neighbora-api/internal/residents"
	"github.com/neighbora/neighbora-api/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Gate    *auth.Gate
	Metrics *observability.Metrics

	AuthHandler         *auth.Handler
	AdminsHandler       *admins.Handler
	CondominiumsHandler *condominiums.Handler
	PropertiesHandler   *properties.Handler
	ResidentsHandler    *residents.Handler
	ExpensesHandler     *expenses.Handler
	PublicationsHandler *publications.Handler
	JobHandler          *jobs.Handler
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		env := ""
		if params.Config != nil {
			env = params.Config.AppEnv
		}
		httpx.OK(w, http.StatusOK, map[string]any{"status": "ok", "environment": env}, "")
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(params.Config))
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		r.Route("/admin", func(r chi.Router) {
			r.Use(params.Gate.Middleware)
			mount(r, "/admins", params.AdminsHandler)
			mount(r, "/condominiums", params.CondominiumsHandler)
			mount(r, "/properties", params.PropertiesHandler)
			mount(r, "/residents", params.ResidentsHandler)
			mount(r, "/common-expenses", params.ExpensesHandler)
			mount(r, "/publications", params.PublicationsHandler)
			mount(r, "/jobs", params.JobHandler)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, httpx.CodeNotFound, "Route not found")
	})

	return r
}

// mount skips handlers left nil so partial wiring stays usable in tests.
func mount[T any, H interface {
	*T
	MountRoutes(r chi.Router)
}](r chi.Router, pattern string, h H) {
	if h == nil {
		return
	}
	r.Route(pattern, h.MountRoutes)
}
