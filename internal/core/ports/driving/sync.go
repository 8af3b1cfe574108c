package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// SyncOrchestrator drives checkpointed synchronisation of connectors.
type SyncOrchestrator interface {
	// Trigger moves an active or errored connector to pending.
	// It reports false when the connector is in any other status.
	Trigger(ctx context.Context, connectorID string) (bool, error)

	// Run acquires a pending connector and syncs it to completion or failure.
	// A connector that is not pending yields a skipped result.
	Run(ctx context.Context, connectorID string) (*domain.RunResult, error)

	// Sync triggers then runs a connector.
	Sync(ctx context.Context, connectorID string) (*domain.RunResult, error)

	// Cancel requests cooperative cancellation of an in-flight run.
	// The run stops at the next unit-of-work boundary.
	Cancel(connectorID string) bool

	// Status returns the live status of a connector.
	Status(ctx context.Context, connectorID string) (*SyncStatus, error)
}

// SyncStatus represents the current state of a connector's sync.
type SyncStatus struct {
	// ConnectorID identifies the connector.
	ConnectorID string

	// Status is the persisted connector status.
	Status domain.ConnectorStatus

	// Running indicates a run is in progress in this process.
	Running bool

	// Stage is the checkpoint stage.
	Stage domain.Stage

	// DocumentsProcessed is the count of items handled by the current run.
	DocumentsProcessed int

	// ErrorCount is the number of item failures in the current run.
	ErrorCount int

	// LastSyncAt is the start time of the last successful run.
	LastSyncAt *time.Time

	// LastError is the last run failure message.
	LastError string
}

// ConnectorService manages connector registration.
type ConnectorService interface {
	// Register validates and stores a new connector.
	Register(ctx context.Context, connector domain.Connector) error

	// Get returns a connector by ID.
	Get(ctx context.Context, id string) (*domain.Connector, error)

	// List returns all connectors.
	List(ctx context.Context) ([]domain.Connector, error)

	// Retire soft-retires a connector.
	Retire(ctx context.Context, id string) error
}
