package memory

import (
	"context"

	"github.com/NordCoder/enotary/internal/domain/auth"
	"go.uber.org/zap"
)

var _ auth.EventSink = (*LogSink)(nil)

// LogSink writes security events straight to the log.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.With(zap.String("component", "security.events"))}
}

func (s *LogSink) Record(_ context.Context, ev auth.Event) error {
	s.log.Info("security event",
		zap.String("type", string(ev.Type)),
		zap.String("email", ev.Email),
		zap.String("jti", ev.JTI),
		zap.String("reason", ev.Reason),
		zap.Int("count", ev.Count),
		zap.Time("at", ev.At),
	)
	return nil
}
