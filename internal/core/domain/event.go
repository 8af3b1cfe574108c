package domain

import (
	"fmt"
	"strings"
	"time"
)

// Trigger is the inbound request to synchronise one connector.
// Delivered at least once.
type Trigger struct {
	ConnectorID   string            `json:"connector_id"`
	Provider      ProviderType      `json:"provider"`
	OwnerID       string            `json:"owner_id"`
	Visibility    Visibility        `json:"visibility"`
	Config        map[string]string `json:"config,omitempty"`
	CredentialID  string            `json:"credential_id,omitempty"`
	CorrelationID string            `json:"correlation_id"`
}

// Validate checks the fields the dispatcher relies on.
func (t Trigger) Validate() error {
	if strings.TrimSpace(t.ConnectorID) == "" {
		return fmt.Errorf("%w: trigger has no connector id", ErrInvalidInput)
	}
	if !t.Provider.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, t.Provider)
	}
	return t.Visibility.Validate()
}

// Connector builds the connector a trigger describes, for registration of
// connectors the record store has not seen yet.
func (t Trigger) Connector(now time.Time) Connector {
	return Connector{
		ID:           t.ConnectorID,
		Provider:     t.Provider,
		Name:         t.ConnectorID,
		OwnerID:      t.OwnerID,
		Visibility:   t.Visibility,
		Status:       StatusActive,
		Config:       t.Config,
		CredentialID: t.CredentialID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// LandedEvent is emitted once per successfully landed item.
// Consumers must be idempotent on (DocumentID, ContentHash).
type LandedEvent struct {
	ID             string     `json:"id"`
	DocumentID     string     `json:"document_id"`
	ConnectorID    string     `json:"connector_id"`
	OwnerID        string     `json:"owner_id"`
	Visibility     Visibility `json:"visibility"`
	StorageLocator string     `json:"storage_locator"`
	ContentHash    string     `json:"content_hash"`
	SessionID      string     `json:"session_id"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewTrigger builds the trigger that re-drives an existing connector.
func NewTrigger(c Connector, correlationID string) Trigger {
	return Trigger{
		ConnectorID:   c.ID,
		Provider:      c.Provider,
		OwnerID:       c.OwnerID,
		Visibility:    c.Visibility,
		Config:        c.Config,
		CredentialID:  c.CredentialID,
		CorrelationID: correlationID,
	}
}
