package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// ConnectorStore persists connector rows.
type ConnectorStore interface {
	// Get retrieves a connector by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Connector, error)

	// List returns all connectors, including retired ones.
	List(ctx context.Context) ([]domain.Connector, error)

	// Save creates or replaces a connector.
	Save(ctx context.Context, connector domain.Connector) error

	// TransitionStatus applies change only if the stored status is one of
	// change.From. It reports whether the row was updated.
	TransitionStatus(ctx context.Context, id string, change domain.StatusChange) (bool, error)

	// RenewLease extends the lease held by holder. Returns ErrStatusConflict
	// if the connector is no longer syncing under that holder.
	RenewLease(ctx context.Context, id, holder string, until time.Time) error

	// RecoverExpiredLeases moves syncing connectors whose lease expired
	// before now back to pending and returns their ids.
	RecoverExpiredLeases(ctx context.Context, now time.Time) ([]string, error)

	// Retire soft-retires a connector and disables it.
	Retire(ctx context.Context, id string, at time.Time) error
}

// DocumentStore persists landed document records.
type DocumentStore interface {
	// GetByRemoteID returns the document for a remote item, tombstoned or not.
	// Returns ErrNotFound if the item was never landed.
	GetByRemoteID(ctx context.Context, connectorID, remoteID string) (*domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns all documents for a connector.
	List(ctx context.Context, connectorID string) ([]domain.Document, error)

	// Save upserts a document keyed by (ConnectorID, RemoteID).
	Save(ctx context.Context, doc domain.Document) error

	// Tombstone marks the document deleted at the given time.
	Tombstone(ctx context.Context, connectorID, remoteID string, at time.Time) error
}

// CheckpointStore reads and replaces a connector's checkpoint.
// Saves replace the whole record; partial updates are never observable.
type CheckpointStore interface {
	// Load decodes the stored checkpoint. A connector with no checkpoint
	// yields a new checkpoint at START. Returns ErrNotFound for unknown
	// connectors and ErrCheckpointCorrupt for undecodable blobs.
	Load(ctx context.Context, connectorID string) (*domain.Checkpoint, error)

	// Save encodes and replaces the stored checkpoint.
	Save(ctx context.Context, connectorID string, checkpoint *domain.Checkpoint) error
}

// OutboxEntry is a pending landed event.
type OutboxEntry struct {
	ID        string
	Event     domain.LandedEvent
	CreatedAt time.Time
}

// OutboxStore holds events committed with their checkpoint until relayed.
type OutboxStore interface {
	Append(ctx context.Context, event domain.LandedEvent) error
	Pending(ctx context.Context, limit int) ([]OutboxEntry, error)
	Remove(ctx context.Context, ids []string) error
}

// Tx is a unit of work spanning every record store.
type Tx interface {
	Connectors() ConnectorStore
	Documents() DocumentStore
	Checkpoints() CheckpointStore
	Outbox() OutboxStore
}

// Transactor runs fn in a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// RecordStore is the relational store backing the engine.
// Its non-transactional views run each call in its own transaction.
type RecordStore interface {
	Tx
	Transactor
	Close() error
}
