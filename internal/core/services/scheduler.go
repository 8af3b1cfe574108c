package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler periodically triggers due connectors, recovers connectors whose
// worker lease lapsed, and removes stale partial objects.
type Scheduler struct {
	config     domain.SchedulerConfig
	connectors driven.ConnectorStore
	objects    driven.ObjectStore
	syncOrch   driving.SyncOrchestrator
	queue      driven.MessageQueue
	codec      driven.TriggerCodec
	clock      clockwork.Clock

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	connectors driven.ConnectorStore,
	objects driven.ObjectStore,
	syncOrch driving.SyncOrchestrator,
	queue driven.MessageQueue,
	codec driven.TriggerCodec,
	clock clockwork.Clock,
) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		config:     config,
		connectors: connectors,
		objects:    objects,
		syncOrch:   syncOrch,
		queue:      queue,
		codec:      codec,
		clock:      clock,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running || !s.config.Enabled {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	close(s.stopCh)
	return nil
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh chan struct{}) error {
	// Check for due work immediately on startup
	s.Tick(ctx)

	ticker := s.clock.NewTicker(s.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.Chan():
			s.Tick(ctx)
		}
	}
}

// Tick performs one scheduling pass.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock.Now()

	recovered, err := s.connectors.RecoverExpiredLeases(ctx, now)
	if err != nil {
		logger.Warn("scheduler: recover leases: %v", err)
	}
	for _, id := range recovered {
		logger.WithFields(logger.Fields{"connector": id}).Warn("Recovered connector with expired lease")
		s.enqueue(ctx, id)
	}

	connectors, err := s.connectors.List(ctx)
	if err != nil {
		logger.Warn("scheduler: list connectors: %v", err)
		return
	}
	for i := range connectors {
		c := &connectors[i]
		if !c.DueAt(now) {
			continue
		}
		moved, err := s.syncOrch.Trigger(ctx, c.ID)
		if err != nil {
			logger.Warn("scheduler: trigger %s: %v", c.ID, err)
			continue
		}
		if moved {
			s.enqueue(ctx, c.ID)
		}
	}

	if s.objects != nil && s.config.PartialObjectMaxAge > 0 {
		removed, err := s.objects.CleanupPartial(ctx, s.config.PartialObjectMaxAge)
		if err != nil {
			logger.Warn("scheduler: cleanup partial objects: %v", err)
		} else if removed > 0 {
			logger.Info("scheduler: removed %d stale partial objects", removed)
		}
	}
}

// enqueue publishes a trigger so a dispatcher worker runs the connector.
func (s *Scheduler) enqueue(ctx context.Context, connectorID string) {
	if err := s.publish(ctx, connectorID); err != nil {
		logger.Warn("scheduler: enqueue %s: %v", connectorID, err)
	}
}

func (s *Scheduler) publish(ctx context.Context, connectorID string) error {
	c, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return err
	}
	payload, err := s.codec.Encode(domain.NewTrigger(*c, uuid.NewString()))
	if err != nil {
		return fmt.Errorf("encode trigger: %w", err)
	}
	return s.queue.Publish(ctx, payload)
}
