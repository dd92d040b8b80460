package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/neighbora/neighbora-api/internal/identity"
	"github.com/neighbora/neighbora-api/internal/platform/httpx"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// FailureObserver records rejected credentials by reason.
type FailureObserver interface {
	ObserveAuthFailure(reason string)
}

// GateConfig collects the Gate dependencies.
type GateConfig struct {
	// Provider verifies credentials. Nil means the provider is not configured.
	Provider identity.Provider
	// AllowInsecureDevTokens enables InsecureDevPrincipal when Provider is nil.
	AllowInsecureDevTokens bool
	Logger                 *slog.Logger
	Observer               FailureObserver
}

// Gate turns a bearer credential into a request-scoped Principal.
type Gate struct {
	provider      identity.Provider
	allowInsecure bool
	logger        *slog.Logger
	observer      FailureObserver
}

// NewGate constructs a Gate.
func NewGate(cfg GateConfig) *Gate {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		provider:      cfg.Provider,
		allowInsecure: cfg.AllowInsecureDevTokens,
		logger:        logger,
		observer:      cfg.Observer,
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", shared.ErrMissingCredential
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", shared.ErrMissingCredential
	}
	return token, nil
}

// Authenticate verifies the Authorization header value and returns a principal
// with the default user role.
func (g *Gate) Authenticate(ctx context.Context, header string) (*Principal, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	if g.provider == nil {
		if !g.allowInsecure {
			return nil, shared.ErrProviderUnavailable
		}
		return InsecureDevPrincipal(token)
	}

	verified, err := g.provider.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, classifyVerifyError(err)
	}
	if verified.UID == "" {
		return nil, fmt.Errorf("%w: token has no subject", shared.ErrInvalidCredential)
	}
	return &Principal{
		UID:    verified.UID,
		Email:  verified.Email,
		Name:   verified.Name,
		Role:   RoleUser,
		Source: SourceVerified,
	}, nil
}

// Middleware attaches the authenticated principal to the request or
// short-circuits with the matching failure envelope.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			g.reject(w, r, err)
			return
		}
		if principal.Source == SourceInsecureDev {
			g.logger.Warn("request admitted with unverified dev token",
				slog.String("uid", principal.UID),
				slog.String("path", r.URL.Path),
			)
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, err error) {
	c := httpx.Classify(err)
	if g.observer != nil {
		g.observer.ObserveAuthFailure(c.Code)
	}
	if c.Status >= http.StatusInternalServerError {
		g.logger.Error("authenticate request", slog.Any("error", err), slog.String("path", r.URL.Path))
	} else {
		g.logger.Debug("rejected credential", slog.String("reason", c.Code), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, r, err)
}

func classifyVerifyError(err error) error {
	switch {
	case errors.Is(err, identity.ErrTokenExpired):
		return fmt.Errorf("%w: %v", shared.ErrExpiredCredential, err)
	case errors.Is(err, identity.ErrTokenInvalid):
		return fmt.Errorf("%w: %v", shared.ErrInvalidCredential, err)
	default:
		return fmt.Errorf("%w: %v", shared.ErrVerificationFailed, err)
	}
}
