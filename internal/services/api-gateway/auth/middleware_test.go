package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NordCoder/enotary/internal/authz"
	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/domain/user"
	"github.com/NordCoder/enotary/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serveWithMiddleware(t *testing.T, f *fixture, header string) *authz.Principal {
	t.Helper()
	var got *authz.Principal
	h := Middleware(f.uc, zap.NewNop())(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = authz.PrincipalFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestMiddleware(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	u := f.addUser(t, "mia@example.com", user.RoleNotary)

	login, err := f.uc.Login(ctx, "mia@example.com", testPassword)
	require.NoError(t, err)

	p := serveWithMiddleware(t, f, "Bearer "+login.AccessToken)
	require.NotNil(t, p)
	assert.Equal(t, u.ID, p.UserID)
	assert.Equal(t, user.RoleNotary, p.Role)

	assert.Nil(t, serveWithMiddleware(t, f, ""))
	assert.Nil(t, serveWithMiddleware(t, f, "Bearer junk"))
	assert.Nil(t, serveWithMiddleware(t, f, "Bearer "+login.RefreshToken))

	require.NoError(t, f.uc.Logout(ctx, login.AccessToken, ""))
	assert.Nil(t, serveWithMiddleware(t, f, "Bearer "+login.AccessToken))
}

func TestMiddleware_DeletedSubject(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.addUser(t, "gone@example.com", user.RoleClient)
	login, err := f.uc.Login(ctx, "gone@example.com", testPassword)
	require.NoError(t, err)

	f.uc = NewUseCase(Deps{
		Codec:   f.codec,
		Users:   memory.NewUserRepo(),
		Refresh: f.refresh,
		Revoked: f.revoked,
		Tx:      memory.Transactor{},
	}, Config{Now: f.clock.Now})

	_, err = f.uc.Authenticate(ctx, login.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Nil(t, serveWithMiddleware(t, f, "Bearer "+login.AccessToken))
}
