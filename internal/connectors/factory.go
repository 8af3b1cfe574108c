package connectors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/connectors/dropbox"
	"github.com/custodia-labs/sercha-ingest/internal/connectors/google/drive"
	"github.com/custodia-labs/sercha-ingest/internal/connectors/upload"
	"github.com/custodia-labs/sercha-ingest/internal/connectors/web"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.AdapterFactory = (*Factory)(nil)

// Factory creates source adapters from connector configuration.
type Factory struct {
	credentials driven.CredentialResolver

	mu       sync.RWMutex
	builders map[domain.ProviderType]driven.AdapterBuilder
}

// NewFactory creates an empty factory. Credential handles are resolved
// through credentials.
func NewFactory(credentials driven.CredentialResolver) *Factory {
	return &Factory{
		credentials: credentials,
		builders:    make(map[domain.ProviderType]driven.AdapterBuilder),
	}
}

// NewDefaultFactory creates a factory with every built-in provider registered.
func NewDefaultFactory(credentials driven.CredentialResolver) *Factory {
	f := NewFactory(credentials)
	RegisterBuiltins(f)
	return f
}

// RegisterBuiltins registers the built-in provider adapters.
func RegisterBuiltins(f driven.AdapterFactory) {
	f.Register(domain.ProviderGoogleDrive, drive.Builder)
	f.Register(domain.ProviderDropbox, dropbox.Builder)
	f.Register(domain.ProviderManualUpload, upload.Builder)
	f.Register(domain.ProviderWebScrape, web.Builder)
}

// Register adds an adapter builder for the given provider, replacing any
// previous one.
func (f *Factory) Register(provider domain.ProviderType, builder driven.AdapterBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[provider] = builder
}

// SupportedTypes returns all registered provider types, sorted.
func (f *Factory) SupportedTypes() []domain.ProviderType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]domain.ProviderType, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Create returns a SourceAdapter for the connector.
func (f *Factory) Create(ctx context.Context, connector *domain.Connector) (driven.SourceAdapter, error) {
	f.mu.RLock()
	builder, ok := f.builders[connector.Provider]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, connector.Provider)
	}

	tokens, err := f.credentials.Resolve(ctx, connector.CredentialID)
	if err != nil {
		return nil, fmt.Errorf("resolve credential for connector %s: %w", connector.ID, err)
	}
	adapter, err := builder(ctx, connector, tokens)
	if err != nil {
		return nil, fmt.Errorf("build %s adapter for connector %s: %w", connector.Provider, connector.ID, err)
	}
	return adapter, nil
}
