package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/neighbora/neighbora-api/internal/platform/httpx"
)

// Handler wires HTTP endpoints for session flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      *Gate
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate *Gate) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		gate:      gate,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Middleware)
		r.Get("/verify", h.handleVerify)
		r.Get("/me", h.handleMe)
	})
}

type loginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	profile, err := h.service.Login(r.Context(), req.IDToken)
	if err != nil {
		h.logger.Info("login rejected", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"user": profile}, "Login successful")
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	httpx.OK(w, http.StatusOK, map[string]any{"valid": true, "user": principal}, "")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		h.logger.Error("load profile", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, profile, "")
}
