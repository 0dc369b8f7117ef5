package main

import (
	"net/http"
	"time"

	config "github.com/NordCoder/enotary/internal/config/api-gateway"
	"github.com/NordCoder/enotary/internal/obs"
	"github.com/NordCoder/enotary/internal/services/api-gateway/auth"
	"github.com/NordCoder/enotary/internal/services/api-gateway/httpx"
	"github.com/NordCoder/enotary/internal/services/api-gateway/request"
	"github.com/NordCoder/enotary/internal/services/api-gateway/user"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type usecases struct {
	auth    *auth.Usecase
	users   *user.Usecase
	request *request.Usecase
}

type registrar interface {
	Register(mux *runtime.ServeMux) error
}

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, uc usecases) (*http.Server, error) {
	mux := runtime.NewServeMux(runtime.WithRoutingErrorHandler(httpx.RoutingErrorHandler))

	limiter := httpx.NewIPLimiter(cfg.Auth.LoginRPS, cfg.Auth.LoginBurst)
	for _, h := range []registrar{
		auth.NewHandler(uc.auth, limiter, logger),
		user.NewHandler(uc.users, logger),
		request.NewHandler(uc.request, logger),
	} {
		if err := h.Register(mux); err != nil {
			return nil, err
		}
	}

	handler := httpx.Chain(mux,
		httpx.RequestID,
		obs.HTTPAccess(logger),
		httpx.MaxBody(cfg.Storage.MaxUploadBytes),
		auth.Middleware(uc.auth, logger),
	)

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           otelhttp.NewHandler(handler, "api-gateway"),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}, nil
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}
