package main

import (
	"context"
	"os"
	"strings"
	"time"

	config "github.com/NordCoder/enotary/internal/config/api-gateway"
	"github.com/NordCoder/enotary/internal/obs"
	kafkarepo "github.com/NordCoder/enotary/internal/repository/kafka"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// kafka-init provisions the security events topic ahead of the api-gateway,
// using the same config file and env overrides.
func main() {
	configPath := pflag.String("config", "", "path to a YAML config file; env vars override it")
	extra := pflag.StringSlice("topic", nil, "additional topics to create")
	timeout := pflag.Duration("timeout", 60*time.Second, "overall deadline")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logger, err := obs.NewLogger(obs.LogConfig{
		Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, App: "enotary/kafka-init", Env: cfg.App.Env, Ver: cfg.App.Version,
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	topics := append([]string{cfg.Kafka.SecurityTopic}, *extra...)
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		err := kafkarepo.EnsureTopic(ctx, cfg.Kafka.Brokers, kafkarepo.TopicSpec{
			Name:              t,
			NumPartitions:     cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
			MaxWait:           *timeout,
		}, logger)
		if err != nil {
			logger.Error("ensure topic", zap.String("topic", t), zap.Error(err))
			os.Exit(1)
		}
		logger.Info("topic ready", zap.String("topic", t))
	}
	logger.Info("kafka-init ok")
}
