package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure Dispatcher implements the interface.
var _ driving.Dispatcher = (*Dispatcher)(nil)

// receiveBackoff is the pause after a failed queue receive.
const receiveBackoff = time.Second

// Dispatcher consumes triggers with a fixed pool of workers. Each worker
// handles one trigger at a time.
type Dispatcher struct {
	queue      driven.MessageQueue
	codec      driven.TriggerCodec
	orch       driving.SyncOrchestrator
	connectors driving.ConnectorService
	workers    int
	nackDelay  time.Duration
	clock      clockwork.Clock
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(
	queue driven.MessageQueue,
	codec driven.TriggerCodec,
	orch driving.SyncOrchestrator,
	connectors driving.ConnectorService,
	settings domain.SyncSettings,
	clock clockwork.Clock,
) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	workers := settings.Workers
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		queue:      queue,
		codec:      codec,
		orch:       orch,
		connectors: connectors,
		workers:    workers,
		nackDelay:  settings.NackDelay,
		clock:      clock,
	}
}

// Serve runs the workers until ctx is cancelled.
func (d *Dispatcher) Serve(ctx context.Context) error {
	logger.Info("Dispatcher started with %d workers", d.workers)

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		delivery, err := d.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("dispatcher: receive failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-d.clock.After(receiveBackoff):
			}
			continue
		}
		d.Handle(ctx, delivery)
	}
}

// Handle processes one delivery and settles it. Malformed triggers and
// terminal failures are acked; retryable run failures are nacked so the
// trigger is redelivered after the nack delay.
func (d *Dispatcher) Handle(ctx context.Context, delivery *driven.Delivery) {
	trigger, err := d.codec.Decode(delivery.Payload)
	if err != nil {
		logger.WithFields(logger.Fields{"message": delivery.ID}).WithError(err).Warn("Dropping malformed trigger")
		d.ack(ctx, delivery)
		return
	}

	log := logger.WithFields(logger.Fields{
		"connector":   trigger.ConnectorID,
		"correlation": trigger.CorrelationID,
		"attempt":     delivery.Attempts,
	})

	if err := d.ensureConnector(ctx, trigger); err != nil {
		log.WithError(err).Warn("Cannot register connector")
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrUnsupportedType) {
			d.ack(ctx, delivery)
		} else {
			d.nack(ctx, delivery)
		}
		return
	}

	if _, err := d.orch.Trigger(ctx, trigger.ConnectorID); err != nil {
		log.WithError(err).Warn("Trigger failed")
		d.nack(ctx, delivery)
		return
	}

	result, err := d.orch.Run(ctx, trigger.ConnectorID)
	switch {
	case err == nil && result.Skipped:
		log.Debug("Connector already pending or syncing; trigger is a no-op")
		d.ack(ctx, delivery)
	case err == nil:
		d.ack(ctx, delivery)
	case ctx.Err() != nil:
		// Shutting down: leave the message for redelivery.
		d.nack(context.WithoutCancel(ctx), delivery)
	case IsRetryableRun(err):
		log.WithError(err).Info("Run failed; trigger will be redelivered")
		d.nack(ctx, delivery)
	default:
		d.ack(ctx, delivery)
	}
}

// ensureConnector registers connectors the record store has not seen yet.
func (d *Dispatcher) ensureConnector(ctx context.Context, trigger domain.Trigger) error {
	_, err := d.connectors.Get(ctx, trigger.ConnectorID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	err = d.connectors.Register(ctx, trigger.Connector(d.clock.Now().UTC()))
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil
	}
	return err
}

func (d *Dispatcher) ack(ctx context.Context, delivery *driven.Delivery) {
	if err := d.queue.Ack(ctx, delivery.ID); err != nil {
		logger.Warn("dispatcher: ack %s: %v", delivery.ID, err)
	}
}

func (d *Dispatcher) nack(ctx context.Context, delivery *driven.Delivery) {
	if err := d.queue.Nack(ctx, delivery.ID, d.nackDelay); err != nil {
		logger.Warn("dispatcher: nack %s: %v", delivery.ID, err)
	}
}
