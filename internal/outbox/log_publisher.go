package outbox

import (
	"context"

	"github.com/NordCoder/enotary/internal/domain/auth"
	domainkafka "github.com/NordCoder/enotary/internal/domain/kafka"
	"go.uber.org/zap"
)

var _ domainkafka.SecurityEvents = (*LogPublisher)(nil)

// LogPublisher drains the outbox into the log when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.With(zap.String("component", "outbox.log_publisher"))}
}

func (p *LogPublisher) PublishSecurityEvent(_ context.Context, ev auth.Event) error {
	p.log.Info("security event",
		zap.String("id", ev.ID.String()),
		zap.String("type", string(ev.Type)),
		zap.String("email", ev.Email),
		zap.String("jti", ev.JTI),
		zap.String("reason", ev.Reason),
		zap.Int("count", ev.Count),
		zap.Time("at", ev.At),
	)
	return nil
}
