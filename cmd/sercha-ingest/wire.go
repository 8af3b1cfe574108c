package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/objectstore"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/queue"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-ingest/internal/connectors"
	"github.com/custodia-labs/sercha-ingest/internal/connectors/upload"
	"github.com/custodia-labs/sercha-ingest/internal/core/services"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// wire builds the production services from configuration.
func wire(cfg *file.Config) (*cli.Services, error) {
	clock := clockwork.NewRealClock()
	settings := cfg.SyncSettings()
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	store, err := sqlite.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	closers = append(closers, store.Close)
	logger.Debug("record store: %s", store.Path())

	objects, err := objectstore.NewStore(afero.NewOsFs(), cfg.Objects.Root, clock)
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("open object store: %w", err)
	}

	visibility := time.Duration(cfg.Queue.Visibility)
	triggers, err := queue.BuildFromDSN(cfg.Queue.TriggersDSN, queue.Options{Name: "triggers", Visibility: visibility, Clock: clock})
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("trigger queue: %w", err)
	}
	closers = append(closers, triggers.Close)
	events, err := queue.BuildFromDSN(cfg.Queue.EventsDSN, queue.Options{Name: "events", Visibility: visibility, Clock: clock})
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("event queue: %w", err)
	}
	closers = append(closers, events.Close)

	codec, err := queue.NewTriggerCodec()
	if err != nil {
		_ = closeAll()
		return nil, err
	}

	factory := connectors.NewDefaultFactory(auth.NewResolver(afero.NewOsFs()))
	relay := services.NewOutboxRelay(store.Outbox(), queue.NewEventPublisher(events), clock, 0)
	orch := services.NewSyncOrchestrator(store, factory, objects, settings,
		services.WithClock(clock), services.WithLandedNotifier(relay.Notify))
	connectorSvc := services.NewConnectorService(store.Connectors(), factory, clock)

	svc := &cli.Services{
		Connectors: connectorSvc,
		Sync:       orch,
		Dispatcher: services.NewDispatcher(triggers, codec, orch, connectorSvc, settings, clock),
		Relay:      relay,
		Scheduler:  services.NewScheduler(cfg.SchedulerSettings(), store.Connectors(), objects, orch, triggers, codec, clock),
		Triggers:   triggers,
		Codec:      codec,
		Close:      closeAll,
	}

	if cfg.Upload.Watch {
		w, err := upload.NewWatcher(time.Duration(cfg.Upload.Debounce), cli.UploadTrigger(context.Background(), svc))
		if err != nil {
			logger.Warn("upload watcher disabled: %v", err)
		} else {
			svc.Watcher = w
			closers = append(closers, w.Stop)
		}
	}
	return svc, nil
}
