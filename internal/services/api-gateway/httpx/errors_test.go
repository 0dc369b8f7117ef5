package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NordCoder/enotary/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrAccountDisabled, http.StatusForbidden},
		{domain.ErrAccountLocked, http.StatusLocked},
		{domain.ErrCredentialsExpired, http.StatusUnauthorized},
		{domain.ErrInvalidToken, http.StatusUnauthorized},
		{domain.ErrExpiredToken, http.StatusUnauthorized},
		{domain.ErrSessionExpiredOrRevoked, http.StatusUnauthorized},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", domain.ErrBadRequest), http.StatusBadRequest},
		{errors.New("db is on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			status, msg := Classify(tc.err)
			assert.Equal(t, tc.status, status)
			assert.NotEmpty(t, msg)
		})
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteError_InternalHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	WriteError(rec, req, zap.NewNop(), errors.New("pq: password authentication failed"))

	body := decodeBody(t, rec)
	assert.Equal(t, http.StatusInternalServerError, body.Status)
	assert.Equal(t, "Internal server error.", body.Message)
	assert.NotContains(t, rec.Body.String(), "pq:")
}

func TestWriteError_ValidationFields(t *testing.T) {
	var ve *domain.ValidationError
	ve = ve.Add("email", "must not be blank").Add("password", "too short")

	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodPost, "/api/users", nil), zap.NewNop(), ve.Err())

	body := decodeBody(t, rec)
	assert.Equal(t, http.StatusBadRequest, body.Status)
	assert.Equal(t, map[string]string{"email": "must not be blank", "password": "too short"}, body.Errors)
}

func TestWriteError_DetailMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodPost, "/", nil), zap.NewNop(),
		domain.Detail(domain.ErrConflict, "Email already registered."))

	body := decodeBody(t, rec)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already registered.", body.Message)
}

func TestLockedUsesItsOwnMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodPost, "/", nil), nil, domain.ErrAccountLocked)
	body := decodeBody(t, rec)
	assert.Equal(t, 423, body.Status)
	assert.Equal(t, msgAccountLocked, body.Message)
}
