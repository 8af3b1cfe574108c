package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure EventPublisher implements the interface.
var _ driven.EventPublisher = (*EventPublisher)(nil)

// EventPublisher writes landed events as JSON onto an outbound queue.
type EventPublisher struct {
	queue driven.MessageQueue
}

// NewEventPublisher creates a publisher over queue.
func NewEventPublisher(queue driven.MessageQueue) *EventPublisher {
	return &EventPublisher{queue: queue}
}

// Publish enqueues one landed event.
func (p *EventPublisher) Publish(ctx context.Context, event domain.LandedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.queue.Publish(ctx, payload)
}
