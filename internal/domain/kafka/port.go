package kafka

import (
	"context"

	"github.com/NordCoder/enotary/internal/domain/auth"
)

type SecurityEvents interface {
	PublishSecurityEvent(ctx context.Context, ev auth.Event) error
}
