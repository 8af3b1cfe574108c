package driven

import (
	"context"
	"io"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// SourceAdapter enumerates and fetches items from one provider.
// Each provider type (google-drive, dropbox, etc.) implements this interface.
//
// Adapters report failures with the domain sentinel errors (ErrAuthExpired,
// ErrRateLimited, ErrTransient, ErrExportTooLarge, ErrCursorInvalid and so on)
// and never classify them: retry decisions belong to the orchestrator.
type SourceAdapter interface {
	// Provider returns the provider type this adapter serves.
	Provider() domain.ProviderType

	// Stages returns the crawl stages the provider supports, in order.
	// Unsupported stages are skipped by the orchestrator.
	Stages() []domain.Stage

	// EnumeratePrincipals fetches the rarely-changing lookups (account
	// identities, shared collection ids) used by the crawl stages.
	EnumeratePrincipals(ctx context.Context) (domain.Lookups, error)

	// EnumerateChanges returns one page of items for a stage.
	// Items modified at or after LowWaterMark must be included.
	// A page with Done=true is the last page for the stage.
	EnumerateChanges(ctx context.Context, req EnumerateRequest) (*ChangePage, error)

	// FetchContent opens the item's bytes. Native items are exported.
	// The caller closes the returned body.
	FetchContent(ctx context.Context, item domain.RemoteItem) (*Content, error)

	// FetchPermissions returns the raw access snapshot for an item.
	FetchPermissions(ctx context.Context, item domain.RemoteItem) (domain.ExternalAccess, error)

	// Close releases resources.
	Close() error
}

// EnumerateRequest selects one page of changes.
type EnumerateRequest struct {
	// Stage is the crawl stage being worked.
	Stage domain.Stage

	// Cursor is the adapter's opaque pagination cursor. Empty for the first page.
	Cursor string

	// LowWaterMark is the stage's completed-until time. Zero means full crawl.
	LowWaterMark time.Time

	// SyncToken is the token the stage's last completed pass returned.
	SyncToken string

	// Lookups are the values returned by EnumeratePrincipals for this run.
	Lookups domain.Lookups

	// PageSize is a hint; adapters may return fewer items.
	PageSize int
}

// ChangePage is one page of enumerated items.
type ChangePage struct {
	Items      []domain.RemoteItem
	NextCursor string
	Done       bool

	// SyncToken, on the last page, replaces the stage's stored sync token.
	// Empty leaves it unchanged.
	SyncToken string
}

// Content is an open stream of item bytes.
type Content struct {
	Body      io.ReadCloser
	MediaType string

	// Size is the expected length, or -1 when unknown.
	Size int64
}

// AdapterBuilder creates a SourceAdapter for a connector.
// TokenProvider is never nil; connectors without credentials get a null provider.
type AdapterBuilder func(ctx context.Context, connector *domain.Connector, tokens TokenProvider) (SourceAdapter, error)

// AdapterFactory creates source adapters from connector configuration.
// It maintains a registry of provider types and their builders.
type AdapterFactory interface {
	// Create returns a SourceAdapter for the connector.
	// Returns ErrUnsupportedType if the provider is unknown.
	Create(ctx context.Context, connector *domain.Connector) (SourceAdapter, error)

	// Register adds an adapter builder for the given provider.
	Register(provider domain.ProviderType, builder AdapterBuilder)

	// SupportedTypes returns all registered provider types.
	SupportedTypes() []domain.ProviderType
}
