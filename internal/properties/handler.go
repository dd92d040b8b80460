package properties

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/platform/httpx"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	adminGate *auth.AdminGate
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, adminGate *auth.AdminGate) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, adminGate: adminGate, validator: validator.New()}
}

// MountRoutes registers property routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/user/current", h.listForUser)
	r.Get("/condominium/{condominiumId}", h.listByCondominium)
	r.Get("/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.adminGate.RequireAdmin)
		r.Post("/condominium/{condominiumId}", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/residents", h.addResident)
	})
}

func (h *Handler) listForUser(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListForUser(r.Context(), principalUID(r))
	if err != nil {
		h.logger.Error("list user properties", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"properties": items}, "")
}

func (h *Handler) listByCondominium(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListByCondominium(r.Context(), chi.URLParam(r, "condominiumId"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if items == nil {
		items = []Property{}
	}
	httpx.OK(w, http.StatusOK, items, "")
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, p, "")
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	p, err := h.service.Create(r.Context(), principalUID(r), chi.URLParam(r, "condominiumId"), in)
	if err != nil {
		h.logger.Warn("create property", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, p, "Property created successfully")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	p, err := h.service.Update(r.Context(), principalUID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, p, "Property updated successfully")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), principalUID(r), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "Property deleted successfully")
}

func (h *Handler) addResident(w http.ResponseWriter, r *http.Request) {
	var in ResidentInput
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	p, err := h.service.AddResident(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, p, "Resident added successfully")
}

func principalUID(r *http.Request) string {
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		return p.UID
	}
	return ""
}
