package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Ensure ConnectorService implements the interface.
var _ driving.ConnectorService = (*ConnectorService)(nil)

// ConnectorService manages connector registration and retirement.
type ConnectorService struct {
	store    driven.ConnectorStore
	adapters driven.AdapterFactory
	clock    clockwork.Clock
}

// NewConnectorService creates a connector service.
func NewConnectorService(store driven.ConnectorStore, adapters driven.AdapterFactory, clock clockwork.Clock) *ConnectorService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectorService{store: store, adapters: adapters, clock: clock}
}

// Register validates and stores a new connector in the active state.
func (s *ConnectorService) Register(ctx context.Context, connector domain.Connector) error {
	if err := connector.Validate(); err != nil {
		return err
	}
	if !s.supports(connector.Provider) {
		return fmt.Errorf("%w: no adapter for %s", domain.ErrUnsupportedType, connector.Provider)
	}

	_, err := s.store.Get(ctx, connector.ID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: connector %s", domain.ErrAlreadyExists, connector.ID)
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("get connector: %w", err)
	}

	now := s.clock.Now().UTC()
	connector.Status = domain.StatusActive
	connector.Checkpoint = nil
	connector.LastError = ""
	connector.LeaseExpiresAt = nil
	connector.RetiredAt = nil
	if connector.Name == "" {
		connector.Name = connector.ID
	}
	connector.CreatedAt = now
	connector.UpdatedAt = now

	if err := s.store.Save(ctx, connector); err != nil {
		return fmt.Errorf("save connector: %w", err)
	}
	return nil
}

// Get returns a connector by ID.
func (s *ConnectorService) Get(ctx context.Context, id string) (*domain.Connector, error) {
	return s.store.Get(ctx, id)
}

// List returns all connectors.
func (s *ConnectorService) List(ctx context.Context) ([]domain.Connector, error) {
	return s.store.List(ctx)
}

// Retire soft-retires a connector. Its documents are kept.
func (s *ConnectorService) Retire(ctx context.Context, id string) error {
	if err := s.store.Retire(ctx, id, s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("retire connector: %w", err)
	}
	return nil
}

func (s *ConnectorService) supports(p domain.ProviderType) bool {
	if s.adapters == nil {
		return true
	}
	for _, t := range s.adapters.SupportedTypes() {
		if t == p {
			return true
		}
	}
	return false
}
