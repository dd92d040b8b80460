package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neighbora/neighbora-api/internal/shared"
)

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestRespondErrorTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{shared.ErrMissingCredential, http.StatusUnauthorized, CodeCredentialMissing},
		{shared.ErrInvalidCredential, http.StatusUnauthorized, CodeCredentialInvalid},
		{fmt.Errorf("%w: jwt exp", shared.ErrExpiredCredential), http.StatusUnauthorized, CodeCredentialExpired},
		{shared.ErrVerificationFailed, http.StatusUnauthorized, CodeCredentialVerificationFailed},
		{shared.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated},
		{shared.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{fmt.Errorf("common expense %w", shared.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{fmt.Errorf("%w: duplicate period", shared.ErrConflict), http.StatusConflict, CodeConflict},
		{fmt.Errorf("%w: name is required", shared.ErrValidation), http.StatusBadRequest, CodeValidation},
		{shared.ErrProviderUnavailable, http.StatusServiceUnavailable, CodeProviderUnavailable},
		{errors.New("socket closed"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		RespondError(rr, req, tc.err)

		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
		env := decodeEnvelope(t, rr)
		assert.False(t, env.Success)
		assert.Equal(t, tc.code, env.Error)
		assert.Empty(t, env.Details)
	}
}

func TestRespondErrorDebugDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithDebug(req.Context()))

	RespondError(rr, req, errors.New("mongo: connection refused"))

	env := decodeEnvelope(t, rr)
	require.Equal(t, "mongo: connection refused", env.Details)
	require.Equal(t, "Internal server error", env.Message)
}

func TestDebugMiddleware(t *testing.T) {
	var seen bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = DebugFromContext(r.Context())
	})

	DebugMiddleware(true)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, seen)

	DebugMiddleware(false)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, seen)
}

func TestDecodeAndValidate(t *testing.T) {
	type body struct {
		Name     string `json:"name" validate:"required"`
		Category string `json:"category" validate:"omitempty,oneof=notice event"`
	}
	v := validator.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"category":"party"}`))
	var b body
	err := DecodeAndValidate(req, v, &b)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "Name is required")
	require.Contains(t, err.Error(), "Category must be one of [notice event]")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	var malformed body
	require.ErrorIs(t, DecodeAndValidate(req, v, &malformed), shared.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Torre A"}`))
	var valid body
	require.NoError(t, DecodeAndValidate(req, v, &valid))
	require.Equal(t, "Torre A", valid.Name)
}

func TestOKEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	OK(rr, http.StatusCreated, map[string]string{"id": "1"}, "created")

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	env := decodeEnvelope(t, rr)
	require.True(t, env.Success)
	require.Equal(t, "created", env.Message)
}
