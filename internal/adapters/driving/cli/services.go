package cli

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// UploadWatcher reports changes in upload directories.
type UploadWatcher interface {
	Add(connectorID, dir string) error
	Remove(connectorID string)
	Start(ctx context.Context)
	Stop() error
}

// Services are the collaborators the commands drive.
type Services struct {
	Connectors driving.ConnectorService
	Sync       driving.SyncOrchestrator
	Dispatcher driving.Dispatcher
	Relay      driving.Relay
	Scheduler  driving.Scheduler

	// Triggers is the inbound trigger queue; Codec encodes its payloads.
	Triggers driven.MessageQueue
	Codec    driven.TriggerCodec

	// Watcher is nil when upload watching is disabled.
	Watcher UploadWatcher

	// Close releases stores and queues.
	Close func() error
}
