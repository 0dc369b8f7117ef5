package main

import (
	"context"

	config "github.com/NordCoder/enotary/internal/config/api-gateway"
	"github.com/NordCoder/enotary/internal/obs"
)

func initOTel(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	o, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	return o.Shutdown, nil
}
