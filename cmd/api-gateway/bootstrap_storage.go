package main

import (
	"context"
	"fmt"
	"time"

	config "github.com/NordCoder/enotary/internal/config/api-gateway"
	"github.com/NordCoder/enotary/internal/domain"
	domainauth "github.com/NordCoder/enotary/internal/domain/auth"
	domainkafka "github.com/NordCoder/enotary/internal/domain/kafka"
	"github.com/NordCoder/enotary/internal/domain/request"
	"github.com/NordCoder/enotary/internal/domain/user"
	"github.com/NordCoder/enotary/internal/obs/retry"
	"github.com/NordCoder/enotary/internal/outbox"
	"github.com/NordCoder/enotary/internal/repository/filestore"
	kafkarepo "github.com/NordCoder/enotary/internal/repository/kafka"
	"github.com/NordCoder/enotary/internal/repository/memory"
	pg "github.com/NordCoder/enotary/internal/repository/postgres"
	rds "github.com/NordCoder/enotary/internal/repository/redis"
	"go.uber.org/zap"
)

// stores is everything the use cases persist through.
type stores struct {
	users    user.Repo
	refresh  domainauth.RefreshTokenRepo
	revoked  domainauth.RevokedTokenRepo
	requests request.Repo
	docs     request.DocumentRepo
	files    request.FileStore
	tx       domain.Transactor
	events   domainauth.EventSink

	health  func(context.Context) error
	relay   *outbox.Runner
	closers []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func initStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	files, err := filestore.New(cfg.Storage.UploadDir)
	if err != nil {
		return nil, err
	}

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("memory storage driver: data is lost on restart")
		if cfg.Kafka.Enable {
			logger.Warn("kafka is ignored by the memory driver")
		}
		return &stores{
			users:    memory.NewUserRepo(),
			refresh:  memory.NewRefreshTokenRepo(),
			revoked:  memory.NewRevokedTokenRepo(),
			requests: memory.NewRequestRepo(),
			docs:     memory.NewDocumentRepo(),
			files:    files,
			tx:       memory.Transactor{},
			events:   memory.NewLogSink(logger),
		}, nil
	case config.StorageDriverPostgres:
		return initPostgres(ctx, cfg, logger, files)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func initPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger, files request.FileStore) (*stores, error) {
	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	s := &stores{
		users:    pg.NewUserRepo(db),
		refresh:  pg.NewRefreshTokenRepo(db),
		revoked:  pg.NewRevokedTokenRepo(db),
		requests: pg.NewRequestRepo(db),
		docs:     pg.NewDocumentRepo(db),
		files:    files,
		tx:       pg.NewTransactor(db, logger),
		health:   db.Ping,
		closers:  []func(){db.Close},
	}

	if cfg.Redis.Enable {
		client, err := rds.NewClient(ctx, cfg.Redis)
		if err != nil {
			s.close()
			return nil, err
		}
		s.revoked = rds.NewRevokedTokenCache(client, s.revoked, logger)
		s.closers = append(s.closers, func() { _ = client.Close() })
		logger.Info("denylist cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	outboxRepo := pg.NewOutboxRepo(db)
	s.events = outbox.NewEventSink(outboxRepo)

	pub, err := initPublisher(ctx, cfg, logger, s)
	if err != nil {
		s.close()
		return nil, err
	}
	dispatch := outbox.MakeGlobalOutboxHandler(pub, retry.DefaultKafkaPolicy(logger))
	s.relay = outbox.NewOutboxRunner(logger, outboxRepo, dispatch, cfg.Outbox)
	return s, nil
}

func initPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger, s *stores) (domainkafka.SecurityEvents, error) {
	if !cfg.Kafka.Enable {
		logger.Info("kafka disabled, security events go to the log")
		return outbox.NewLogPublisher(logger), nil
	}
	err := kafkarepo.EnsureTopic(ctx, cfg.Kafka.Brokers, kafkarepo.TopicSpec{
		Name:              cfg.Kafka.SecurityTopic,
		NumPartitions:     cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.ReplicationFactor,
		MaxWait:           30 * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("kafka topic: %w", err)
	}
	producer := kafkarepo.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SecurityTopic, logger)
	s.closers = append(s.closers, func() { _ = producer.Close() })
	return kafkarepo.NewSecurityEventsKafka(producer), nil
}
