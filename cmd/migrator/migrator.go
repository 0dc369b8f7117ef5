package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/NordCoder/enotary/internal/obs"
	"github.com/NordCoder/enotary/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	dsn := pflag.String("dsn", os.Getenv("DB_DSN"), "postgres DSN (defaults to $DB_DSN)")
	down := pflag.Bool("down", false, "roll back the latest migration instead of applying")
	pflag.Parse()

	logger, err := obs.NewLogger(obs.LogConfig{Level: "info", App: "enotary/migrator", Env: os.Getenv("APP_ENV")})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if *dsn == "" {
		logger.Fatal("DB_DSN is empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(zap.NewStdLog(logger))
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatal("set dialect", zap.Error(err))
	}
	db, err := goose.OpenDBWithDriver("pgx", *dsn)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	if *down {
		if err := goose.DownContext(ctx, db, "."); err != nil {
			logger.Fatal("migrate down", zap.Error(err))
		}
		logger.Info("migrations: down OK")
		return
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}
	logger.Info("migrations: up OK")
}
