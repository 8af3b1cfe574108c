package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// Delivery is one message received from a MessageQueue.
type Delivery struct {
	ID      string
	Payload []byte

	// Attempts is how many times the message has been delivered, including this one.
	Attempts int
}

// MessageQueue is an at-least-once queue of opaque payloads.
type MessageQueue interface {
	// Publish enqueues payload.
	Publish(ctx context.Context, payload []byte) error

	// Receive blocks until a message is available or ctx is done.
	// A received message is invisible to other receivers until acked,
	// nacked, or its visibility timeout lapses.
	Receive(ctx context.Context) (*Delivery, error)

	// Ack removes the message.
	Ack(ctx context.Context, id string) error

	// Nack makes the message visible again after delay.
	Nack(ctx context.Context, id string, delay time.Duration) error

	Close() error
}

// TriggerCodec converts between queue payloads and triggers.
// Decode validates the payload and returns ErrInvalidInput when it is malformed.
type TriggerCodec interface {
	Encode(trigger domain.Trigger) ([]byte, error)
	Decode(payload []byte) (domain.Trigger, error)
}

// EventPublisher delivers landed events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LandedEvent) error
}
