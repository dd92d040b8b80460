package condominiums

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/platform/httpx"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	adminGate *auth.AdminGate
}

func NewHandler(logger *slog.Logger, service *Service, adminGate *auth.AdminGate) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, adminGate: adminGate}
}

// MountRoutes registers condominium routes. Reads need an authenticated
// principal; writes additionally require an admin grant.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/verify-admin", h.verifyAdmin)
	r.Get("/user/current", h.currentResidence)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.adminGate.RequireAdmin)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) verifyAdmin(w http.ResponseWriter, r *http.Request) {
	p, _, isAdmin, err := h.adminGate.Check(r.Context(), auth.PrincipalFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"isAdmin": isAdmin, "role": p.Role}, "")
}

func (h *Handler) currentResidence(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.CurrentResidence(r.Context(), principalUID(r))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, res, "")
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListForCreator(r.Context(), principalUID(r))
	if err != nil {
		h.logger.Error("list condominiums", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	if items == nil {
		items = []Condominium{}
	}
	httpx.OK(w, http.StatusOK, items, "")
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, c, "")
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	c, err := h.service.Create(r.Context(), principalUID(r), in)
	if err != nil {
		h.logger.Warn("create condominium", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, c, "Condominium created successfully")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	c, err := h.service.Update(r.Context(), principalUID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, c, "Condominium updated successfully")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), principalUID(r), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "Condominium deleted successfully")
}

func principalUID(r *http.Request) string {
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		return p.UID
	}
	return ""
}
