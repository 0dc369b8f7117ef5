package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	jwtauth "github.com/NordCoder/enotary/internal/auth"
	config "github.com/NordCoder/enotary/internal/config/api-gateway"
	"github.com/NordCoder/enotary/internal/obs"
	"github.com/NordCoder/enotary/internal/services/api-gateway/auth"
	"github.com/NordCoder/enotary/internal/services/api-gateway/request"
	"github.com/NordCoder/enotary/internal/services/api-gateway/user"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file; env vars override it")
	pflag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting api-gateway",
		zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version), zap.String("storage", cfg.Storage.Driver))

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	st, err := initStores(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("storage init", zap.Error(err))
	}
	defer st.close()

	codec, err := jwtauth.NewCodec(jwtauth.Config{
		Secret:     []byte(cfg.Auth.JWTSecret),
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
		Issuer:     cfg.Auth.Issuer,
	})
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}

	uc := usecases{
		auth: auth.NewUseCase(auth.Deps{
			Codec:   codec,
			Users:   st.users,
			Refresh: st.refresh,
			Revoked: st.revoked,
			Tx:      st.tx,
			Events:  st.events,
			Log:     logger,
		}, auth.Config{RevokeAllOnReuse: cfg.Auth.RevokeAllOnReuse}),
		users:   user.NewUseCase(st.users, st.tx, cfg.Auth.BcryptCost, logger),
		request: request.NewUseCase(st.requests, st.docs, st.files, st.users, st.tx, logger),
	}

	if err := uc.users.EnsureDefaultAdmin(rootCtx, user.AdminSeed{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Phone:    cfg.Admin.Phone,
	}); err != nil {
		logger.Fatal("admin bootstrap", zap.Error(err))
	}

	relayCtx, stopRelay := context.WithCancel(rootCtx)
	relayDone := make(chan struct{})
	if st.relay != nil {
		go func() {
			defer close(relayDone)
			st.relay.Run(relayCtx)
		}()
	} else {
		close(relayDone)
	}

	metricsSrv := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, st.health, logger)

	grpcServer, hs, grpcLn, err := buildGRPCServer(cfg)
	if err != nil {
		logger.Fatal("build grpc", zap.Error(err))
	}
	grpcErrCh := make(chan error, 1)
	go func() { grpcErrCh <- serveGRPC(grpcServer, grpcLn, cfg, logger) }()

	httpSrv, err := buildHTTPServer(cfg, logger, uc)
	if err != nil {
		logger.Fatal("build http", zap.Error(err))
	}
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-grpcErrCh:
		if err != nil {
			logger.Error("grpc serve", zap.Error(err))
		}
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	gracefulStopGRPC(grpcServer, hs)
	stopRelay()
	<-relayDone
	_ = metricsSrv.Shutdown(shCtx)

	logger.Info("bye")
}
