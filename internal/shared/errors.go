package shared

import "errors"

// Credential failures raised by the auth gate.
var (
	// ErrMissingCredential indicates no bearer token was presented.
	ErrMissingCredential = errors.New("no bearer token provided")
	// ErrInvalidCredential indicates a malformed or rejected token.
	ErrInvalidCredential = errors.New("invalid token")
	// ErrExpiredCredential indicates the token is past its expiry.
	ErrExpiredCredential = errors.New("token expired")
	// ErrVerificationFailed indicates the identity provider could not verify the token.
	ErrVerificationFailed = errors.New("token verification failed")
)

var (
	// ErrUnauthenticated is returned when an operation requires a principal and none is present.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the principal lacks the required grant.
	ErrForbidden = errors.New("admin permissions required")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or concurrency conflict.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrProviderUnavailable indicates the identity provider is not configured or reachable.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)
