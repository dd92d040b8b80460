package httpx

import (
	"errors"
	"net/http"

	"github.com/neighbora/neighbora-api/internal/shared"
)

// Error codes carried in the envelope's error field.
const (
	CodeCredentialMissing            = "credential_missing"
	CodeCredentialInvalid            = "credential_invalid"
	CodeCredentialExpired            = "credential_expired"
	CodeCredentialVerificationFailed = "credential_verification_failed"
	CodeUnauthenticated              = "unauthenticated"
	CodeForbidden                    = "forbidden"
	CodeNotFound                     = "not_found"
	CodeConflict                     = "conflict"
	CodeValidation                   = "validation_failed"
	CodeProviderUnavailable          = "provider_unavailable"
	CodeInternal                     = "internal_error"
)

// Classification is the HTTP rendering of a domain error.
type Classification struct {
	Status  int
	Code    string
	Message string
}

// Classify maps err onto the error taxonomy.
func Classify(err error) Classification {
	switch {
	case errors.Is(err, shared.ErrMissingCredential):
		return Classification{http.StatusUnauthorized, CodeCredentialMissing, "No token provided"}
	case errors.Is(err, shared.ErrExpiredCredential):
		return Classification{http.StatusUnauthorized, CodeCredentialExpired, "Token expired"}
	case errors.Is(err, shared.ErrInvalidCredential):
		return Classification{http.StatusUnauthorized, CodeCredentialInvalid, "Invalid token"}
	case errors.Is(err, shared.ErrVerificationFailed):
		return Classification{http.StatusUnauthorized, CodeCredentialVerificationFailed, "Token verification failed"}
	case errors.Is(err, shared.ErrUnauthenticated):
		return Classification{http.StatusUnauthorized, CodeUnauthenticated, "Authentication required"}
	case errors.Is(err, shared.ErrForbidden):
		return Classification{http.StatusForbidden, CodeForbidden, "Admin permissions required"}
	case errors.Is(err, shared.ErrNotFound):
		return Classification{http.StatusNotFound, CodeNotFound, err.Error()}
	case errors.Is(err, shared.ErrConflict):
		return Classification{http.StatusConflict, CodeConflict, err.Error()}
	case errors.Is(err, shared.ErrValidation):
		return Classification{http.StatusBadRequest, CodeValidation, err.Error()}
	case errors.Is(err, shared.ErrProviderUnavailable):
		return Classification{http.StatusServiceUnavailable, CodeProviderUnavailable, "Identity provider unavailable"}
	default:
		return Classification{http.StatusInternalServerError, CodeInternal, "Internal server error"}
	}
}

// RespondError renders err as a failure envelope. Unexpected errors only carry
// their detail when the request context has debug enabled.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	c := Classify(err)
	env := Envelope{Success: false, Error: c.Code, Message: c.Message}
	if c.Status == http.StatusInternalServerError && r != nil && DebugFromContext(r.Context()) {
		env.Details = err.Error()
	}
	JSON(w, c.Status, env)
}
