package admins

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/platform/httpx"
)

// Handler exposes admin record management. Routes expect an authenticated
// principal in the request context.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	adminGate *auth.AdminGate
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, adminGate *auth.AdminGate) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, adminGate: adminGate, validator: validator.New()}
}

// MountRoutes registers admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/verify-admin-db", h.verify)
	r.Group(func(r chi.Router) {
		r.Use(h.adminGate.RequireAdmin)
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	uid := ""
	if p != nil {
		uid = p.UID
	}
	result, err := h.service.Verify(r.Context(), uid)
	if err != nil {
		h.logger.Error("verify admin", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, result, "")
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	admins, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list admins", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	if admins == nil {
		admins = []Admin{}
	}
	httpx.OK(w, http.StatusOK, map[string]any{"admins": admins, "total": len(admins)}, "")
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	admin, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, admin, "")
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	admin, err := h.service.Create(r.Context(), actorUID(r), in)
	if err != nil {
		h.logger.Warn("create admin", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	h.logger.Info("admin created", slog.String("uid", admin.FirebaseUID), slog.String("by", actorUID(r)))
	httpx.OK(w, http.StatusCreated, admin, "Admin created successfully")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	admin, err := h.service.Update(r.Context(), actorUID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, admin, "Admin updated successfully")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	admin, err := h.service.Deactivate(r.Context(), actorUID(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	h.logger.Info("admin deactivated", slog.String("uid", admin.FirebaseUID), slog.String("by", actorUID(r)))
	httpx.OK(w, http.StatusOK, nil, "Admin deactivated successfully")
}

func actorUID(r *http.Request) string {
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		return p.UID
	}
	return ""
}
