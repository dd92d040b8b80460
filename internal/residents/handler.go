package residents

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/platform/httpx"
	"github.com/neighbora/neighbora-api/internal/properties"
	"github.com/neighbora/neighbora-api/internal/shared"
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

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/condominium/{condominiumId}", h.list)
	r.Get("/condominium/{condominiumId}/stats", h.stats)
	r.Get("/property/{propertyId}", h.forProperty)
	r.Group(func(r chi.Router) {
		r.Use(h.adminGate.RequireAdmin)
		r.Post("/property/{propertyId}", h.add)
		r.Put("/property/{propertyId}/{email}", h.update)
		r.Delete("/property/{propertyId}/{email}", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), chi.URLParam(r, "condominiumId"), r.URL.Query().Get("status"), shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		h.logger.Error("list residents", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, page, "")
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), chi.URLParam(r, "condominiumId"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, stats, "")
}

func (h *Handler) forProperty(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ForProperty(r.Context(), chi.URLParam(r, "propertyId"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, res, "")
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var in properties.ResidentInput
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	residents, err := h.service.Add(r.Context(), chi.URLParam(r, "propertyId"), in)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, residents, "Resident added successfully")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var patch properties.ResidentPatch
	if err := httpx.DecodeAndValidate(r, h.validator, &patch); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	residents, err := h.service.Update(r.Context(), chi.URLParam(r, "propertyId"), chi.URLParam(r, "email"), patch)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, residents, "Resident updated successfully")
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	residents, err := h.service.Remove(r.Context(), chi.URLParam(r, "propertyId"), chi.URLParam(r, "email"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, residents, "Resident removed successfully")
}
