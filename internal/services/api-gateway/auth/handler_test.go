package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NordCoder/enotary/internal/domain/user"
	"github.com/NordCoder/enotary/internal/services/api-gateway/httpx"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMux(t *testing.T, f *fixture, limiter *httpx.IPLimiter) http.Handler {
	t.Helper()
	mux := runtime.NewServeMux(runtime.WithRoutingErrorHandler(httpx.RoutingErrorHandler))
	require.NoError(t, NewHandler(f.uc, limiter, zap.NewNop()).Register(mux))
	return mux
}

func postJSON(h http.Handler, path string, body any, bearer string) *httptest.ResponseRecorder {
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_LoginRefreshLogout(t *testing.T) {
	f := newFixture(t, Config{})
	f.addUser(t, "nia@example.com", user.RoleClient)
	mux := newTestMux(t, f, nil)

	rec := postJSON(mux, "/api/auth/login", map[string]string{"email": "nia@example.com", "password": testPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, user.RoleClient, login.Role)

	rec = postJSON(mux, "/api/auth/refresh", map[string]string{"refreshToken": login.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed RefreshResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))

	rec = postJSON(mux, "/api/auth/refresh", map[string]string{"refreshToken": login.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(mux, "/api/auth/logout", map[string]string{"refreshToken": refreshed.RefreshToken}, refreshed.AccessToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := f.uc.Authenticate(context.Background(), refreshed.AccessToken)
	assert.Error(t, err)
}

func TestHandler_LoginErrors(t *testing.T) {
	f := newFixture(t, Config{})
	f.addUser(t, "ola@example.com", user.RoleClient, func(u *user.User) { u.Disabled = true })
	mux := newTestMux(t, f, nil)

	rec := postJSON(mux, "/api/auth/login", map[string]string{"email": "ola@example.com", "password": "bad"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password.")

	rec = postJSON(mux, "/api/auth/login", map[string]string{"email": "ola@example.com", "password": testPassword}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postJSON(mux, "/api/auth/login", map[string]string{"email": ""}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "email")
	assert.Contains(t, body.Errors, "password")
}

func TestHandler_LogoutWithoutAnything(t *testing.T) {
	f := newFixture(t, Config{})
	mux := newTestMux(t, f, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_LoginRateLimited(t *testing.T) {
	f := newFixture(t, Config{})
	mux := newTestMux(t, f, httpx.NewIPLimiter(0.001, 2))

	body := map[string]string{"email": "x@example.com", "password": "whatever"}
	assert.Equal(t, http.StatusUnauthorized, postJSON(mux, "/api/auth/login", body, "").Code)
	assert.Equal(t, http.StatusUnauthorized, postJSON(mux, "/api/auth/login", body, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, postJSON(mux, "/api/auth/login", body, "").Code)
}

func TestHandler_UnknownRouteJSON(t *testing.T) {
	f := newFixture(t, Config{})
	mux := newTestMux(t, f, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":404`)
}
