package publications

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/platform/httpx"
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

// MountRoutes registers board routes. Residents may read; authoring and
// moderation need an admin grant.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.board)
	r.Get("/condominium/{condominiumId}", h.board)
	r.Get("/{id}", h.view)
	r.Group(func(r chi.Router) {
		r.Use(h.adminGate.RequireAdmin)
		r.Get("/condominium/{condominiumId}/stats", h.stats)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/reaction", h.react)
		r.Post("/{id}/comment", h.comment)
	})
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cid := chi.URLParam(r, "condominiumId")
	if cid == "" {
		cid = q.Get("condominiumId")
	}
	if cid == "" {
		httpx.RespondError(w, r, fmt.Errorf("%w: condominiumId is required", shared.ErrValidation))
		return
	}
	f := Filter{Category: q.Get("category"), Priority: q.Get("priority")}
	items, pagination, err := h.service.Board(r.Context(), cid, f, shared.PageFromQuery(q))
	if err != nil {
		h.logger.Error("list publications", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"publications": items, "pagination": pagination}, "")
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, p, "")
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), chi.URLParam(r, "condominiumId"))
	if err != nil {
		h.logger.Error("publication stats", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, stats, "")
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	p, err := h.service.Create(r.Context(), auth.PrincipalFromContext(r.Context()), in)
	if err != nil {
		h.logger.Warn("create publication", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, p, "Publication created successfully")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	p, err := h.service.Update(r.Context(), principalUID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, p, "Publication updated successfully")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), principalUID(r), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "Publication deleted successfully")
}

func (h *Handler) react(w http.ResponseWriter, r *http.Request) {
	var in ReactionInput
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	p, err := h.service.React(r.Context(), principalUID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"reactions": p.Reactions}, "Reaction added successfully")
}

func (h *Handler) comment(w http.ResponseWriter, r *http.Request) {
	var in CommentInput
	if err := httpx.DecodeAndValidate(r, h.validator, &in); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	p, err := h.service.Comment(r.Context(), auth.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"comments": p.Comments}, "Comment added successfully")
}

func principalUID(r *http.Request) string {
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		return p.UID
	}
	return ""
}
