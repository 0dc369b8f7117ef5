package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NordCoder/enotary/internal/domain/auth"
	"github.com/NordCoder/enotary/internal/domain/outbox"
)

var _ auth.EventSink = (*EventSink)(nil)

// EventSink stores security events as outbox rows keyed by event id.
type EventSink struct {
	repo outbox.Repository
}

func NewEventSink(repo outbox.Repository) *EventSink { return &EventSink{repo: repo} }

func (s *EventSink) Record(ctx context.Context, ev auth.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal security event: %w", err)
	}
	return s.repo.Enqueue(ctx, ev.ID.String(), outbox.KindSecurityEvent, data)
}
