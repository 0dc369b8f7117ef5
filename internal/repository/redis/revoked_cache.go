package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/enotary/internal/domain/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	revokedAccessPrefix = "revoked:access:"

	// backfillTTL bounds entries copied from the store; their real expiry is
	// not known here.
	backfillTTL = 5 * time.Minute
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "revoked_cache_lookups_total",
	Help: "Denylist lookups by result (hit, miss, error).",
}, []string{"result"})

type Config struct {
	Enable   bool   `mapstructure:"enable"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

var _ auth.RevokedTokenRepo = (*RevokedTokenCache)(nil)

// RevokedTokenCache fronts the persistent denylist. Postgres stays the source
// of truth; Redis only answers positive lookups faster.
type RevokedTokenCache struct {
	client *redis.Client
	next   auth.RevokedTokenRepo
	now    func() time.Time
	log    *zap.Logger
}

func NewRevokedTokenCache(client *redis.Client, next auth.RevokedTokenRepo, log *zap.Logger) *RevokedTokenCache {
	return &RevokedTokenCache{
		client: client,
		next:   next,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log.With(zap.String("component", "redis.revoked_cache")),
	}
}

func (c *RevokedTokenCache) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := c.next.Add(ctx, jti, expiresAt); err != nil {
		return err
	}
	ttl := expiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, revokedAccessPrefix+jti, "1", ttl).Err(); err != nil {
		c.log.Warn("cache revoked jti", zap.String("jti", jti), zap.Error(err))
	}
	return nil
}

func (c *RevokedTokenCache) Exists(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, revokedAccessPrefix+jti).Result()
	switch {
	case err == nil && n > 0:
		cacheLookups.WithLabelValues("hit").Inc()
		return true, nil
	case err == nil:
		cacheLookups.WithLabelValues("miss").Inc()
	case errors.Is(err, context.Canceled):
		return false, err
	default:
		cacheLookups.WithLabelValues("error").Inc()
		c.log.Warn("redis exists, falling back", zap.Error(err))
		return c.next.Exists(ctx, jti)
	}

	ok, err := c.next.Exists(ctx, jti)
	if err != nil || !ok {
		return ok, err
	}
	if err := c.client.Set(ctx, revokedAccessPrefix+jti, "1", backfillTTL).Err(); err != nil {
		c.log.Warn("backfill revoked jti", zap.String("jti", jti), zap.Error(err))
	}
	return true, nil
}
