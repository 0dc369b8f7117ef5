package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/enotary/internal/domain/auth"
	domainkafka "github.com/NordCoder/enotary/internal/domain/kafka"
	"google.golang.org/protobuf/types/known/structpb"
)

type SecurityEventsKafka struct {
	p *Producer
}

func NewSecurityEventsKafka(p *Producer) *SecurityEventsKafka { return &SecurityEventsKafka{p: p} }

var _ domainkafka.SecurityEvents = (*SecurityEventsKafka)(nil)

// PublishSecurityEvent keys by email so one account's events stay ordered.
func (e *SecurityEventsKafka) PublishSecurityEvent(ctx context.Context, ev auth.Event) error {
	msg, err := EventToStruct(ev)
	if err != nil {
		return err
	}
	return e.p.PublishProto(ctx, []byte(ev.Email), msg)
}

func EventToStruct(ev auth.Event) (*structpb.Struct, error) {
	fields := map[string]any{
		"id":    ev.ID.String(),
		"type":  string(ev.Type),
		"email": ev.Email,
		"at":    ev.At.UTC().Format(time.RFC3339Nano),
	}
	if ev.JTI != "" {
		fields["jti"] = ev.JTI
	}
	if ev.Reason != "" {
		fields["reason"] = ev.Reason
	}
	if ev.Count > 0 {
		fields["count"] = float64(ev.Count)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("security event to struct: %w", err)
	}
	return s, nil
}
