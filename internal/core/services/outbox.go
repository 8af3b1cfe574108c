package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure OutboxRelay implements the interface.
var _ driving.Relay = (*OutboxRelay)(nil)

const (
	defaultRelayBatch    = 100
	defaultRelayInterval = 5 * time.Second
)

// OutboxRelay publishes landed events committed to the outbox.
// Delivery is at-least-once: an event is removed only after it is published.
type OutboxRelay struct {
	outbox    driven.OutboxStore
	publisher driven.EventPublisher
	clock     clockwork.Clock
	batch     int
	interval  time.Duration
	wake      chan struct{}
}

// NewOutboxRelay creates a relay. A zero interval uses the default poll interval.
func NewOutboxRelay(outbox driven.OutboxStore, publisher driven.EventPublisher, clock clockwork.Clock, interval time.Duration) *OutboxRelay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = defaultRelayInterval
	}
	return &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		clock:     clock,
		batch:     defaultRelayBatch,
		interval:  interval,
		wake:      make(chan struct{}, 1),
	}
}

// Notify wakes the relay. It never blocks.
func (r *OutboxRelay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Flush publishes pending events until the outbox is empty or publishing fails.
func (r *OutboxRelay) Flush(ctx context.Context) (int, error) {
	total := 0
	for {
		entries, err := r.outbox.Pending(ctx, r.batch)
		if err != nil {
			return total, fmt.Errorf("read outbox: %w", err)
		}
		if len(entries) == 0 {
			return total, nil
		}

		sent := make([]string, 0, len(entries))
		var pubErr error
		for _, entry := range entries {
			if pubErr = r.publisher.Publish(ctx, entry.Event); pubErr != nil {
				break
			}
			sent = append(sent, entry.ID)
		}

		if len(sent) > 0 {
			if err := r.outbox.Remove(ctx, sent); err != nil {
				return total, fmt.Errorf("remove relayed events: %w", err)
			}
			total += len(sent)
		}
		if pubErr != nil {
			return total, fmt.Errorf("publish event: %w", pubErr)
		}
		if len(entries) < r.batch {
			return total, nil
		}
	}
}

// Serve flushes on every notification and poll tick until ctx is cancelled.
func (r *OutboxRelay) Serve(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if n, err := r.Flush(ctx); err != nil {
			logger.Warn("outbox: %v", err)
		} else if n > 0 {
			logger.Debug("outbox: relayed %d events", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
		case <-ticker.Chan():
		}
	}
}
