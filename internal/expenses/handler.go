package expenses

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/platform/httpx"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// IdempotencyHeader optionally deduplicates payment submissions.
const IdempotencyHeader = "Idempotency-Key"

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

// MountRoutes registers common expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/user/current", h.listForUser)
	r.Get("/property/{propertyId}", h.listByProperty)
	r.Get("/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.adminGate.RequireAdmin)
		r.Get("/condominium/{condominiumId}", h.listByCondominium)
		r.Get("/condominium/{condominiumId}/stats", h.stats)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/payment", h.recordPayment)
	})
}

func (h *Handler) listForUser(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListForUser(r.Context(), principalUID(r))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, res, "")
}

func (h *Handler) listByProperty(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListByProperty(r.Context(), chi.URLParam(r, "propertyId"), filterFromQuery(r))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"commonExpenses": items}, "")
}

func (h *Handler) listByCondominium(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromQuery(r.URL.Query())
	items, pagination, err := h.service.PageByCondominium(r.Context(), chi.URLParam(r, "condominiumId"), filterFromQuery(r), page)
	if err != nil {
		h.logger.Error("list condominium expenses", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"commonExpenses": items, "pagination": pagination}, "")
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), chi.URLParam(r, "condominiumId"))
	if err != nil {
		h.logger.Error("expense stats", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, stats, "")
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, e, "")
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	e, err := h.service.Create(r.Context(), principalUID(r), in)
	if err != nil {
		h.logger.Warn("create common expense", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, e, "Common expense created successfully")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	e, err := h.service.Update(r.Context(), principalUID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, e, "Common expense updated successfully")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "Common expense deleted successfully")
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var in PaymentInput
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	e, err := h.service.RecordPayment(r.Context(), principalUID(r), chi.URLParam(r, "id"), r.Header.Get(IdempotencyHeader), in)
	if err != nil {
		h.logger.Warn("record payment", slog.String("expense_id", chi.URLParam(r, "id")), slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, e, "Payment recorded successfully")
}

func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	return Filter{Period: q.Get("period"), Status: q.Get("status")}
}

func principalUID(r *http.Request) string {
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		return p.UID
	}
	return ""
}
