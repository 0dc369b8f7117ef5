package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/NordCoder/enotary/internal/authz"
	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/obs"
	"github.com/NordCoder/enotary/internal/services/api-gateway/httpx"
	"go.uber.org/zap"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*authz.Principal, error)
}

// Middleware attaches the caller's principal to the request context when a
// valid bearer token is present. It never rejects a request; handlers decide.
func Middleware(a Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	log = log.With(zap.String("component", "auth.middleware"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := httpx.BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			p, err := a.Authenticate(r.Context(), token)
			if err != nil {
				if !isTokenRejection(err) {
					obs.WithTrace(r.Context(), log).Error("authenticate", zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(authz.ContextWithPrincipal(r.Context(), *p)))
		})
	}
}

func isTokenRejection(err error) bool {
	return errors.Is(err, domain.ErrInvalidToken) ||
		errors.Is(err, domain.ErrExpiredToken) ||
		errors.Is(err, domain.ErrUnauthenticated)
}
