package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProviderType identifies the remote system a connector synchronises from.
type ProviderType string

const (
	// ProviderGoogleDrive is drive-style cloud storage A.
	ProviderGoogleDrive ProviderType = "google-drive"
	// ProviderDropbox is drive-style cloud storage B.
	ProviderDropbox ProviderType = "dropbox"
	// ProviderManualUpload is a directory of manually uploaded files.
	ProviderManualUpload ProviderType = "manual-upload"
	// ProviderWebScrape is a configured list of web pages.
	ProviderWebScrape ProviderType = "web-scrape"
)

// IsValid reports whether p is a known provider type.
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderGoogleDrive, ProviderDropbox, ProviderManualUpload, ProviderWebScrape:
		return true
	default:
		return false
	}
}

// VisibilityScope controls who may retrieve documents landed by a connector.
type VisibilityScope string

const (
	// VisibilityPrivate restricts documents to the owning principal.
	VisibilityPrivate VisibilityScope = "private"
	// VisibilityTeam shares documents with one team.
	VisibilityTeam VisibilityScope = "team"
	// VisibilityOrganization shares documents with the whole organisation.
	VisibilityOrganization VisibilityScope = "organization"
)

// Visibility is a scope plus the optional identifier of the shared-with group.
type Visibility struct {
	Scope   VisibilityScope `json:"scope"`
	ScopeID string          `json:"scope_id,omitempty"`
}

// Validate checks the scope is known. Private visibility carries no scope id.
func (v Visibility) Validate() error {
	switch v.Scope {
	case VisibilityPrivate:
		if v.ScopeID != "" {
			return fmt.Errorf("%w: private visibility cannot carry a scope id", ErrInvalidInput)
		}
		return nil
	case VisibilityTeam, VisibilityOrganization:
		return nil
	default:
		return fmt.Errorf("%w: unknown visibility scope %q", ErrInvalidInput, v.Scope)
	}
}

// ConnectorStatus is the connector-level lifecycle state.
type ConnectorStatus string

const (
	StatusActive   ConnectorStatus = "active"
	StatusPending  ConnectorStatus = "pending"
	StatusSyncing  ConnectorStatus = "syncing"
	StatusError    ConnectorStatus = "error"
	StatusDisabled ConnectorStatus = "disabled"
)

// AcceptsTrigger reports whether a trigger may move the connector to pending.
func (s ConnectorStatus) AcceptsTrigger() bool {
	return s == StatusActive || s == StatusError
}

// MaxLastErrorLength bounds the user-visible last error message.
const MaxLastErrorLength = 512

// TruncateError shortens msg to MaxLastErrorLength bytes without splitting a rune.
func TruncateError(msg string) string {
	if len(msg) <= MaxLastErrorLength {
		return msg
	}
	cut := MaxLastErrorLength - len("...")
	for cut > 0 && !isRuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Connector is a configured synchronisation target.
type Connector struct {
	// ID is the unique identifier for the connector.
	ID string

	// Provider identifies which source adapter syncs this connector.
	Provider ProviderType

	// Name is the human-readable name.
	Name string

	// OwnerID is the owning principal.
	OwnerID string

	// Visibility controls who may retrieve landed documents.
	Visibility Visibility

	// Status is mutated only by the orchestrator during a run.
	Status ConnectorStatus

	// RefreshInterval is nil for manual-trigger-only connectors.
	RefreshInterval *time.Duration

	// LastSyncAt is the start time of the last successful run.
	LastSyncAt *time.Time

	// Config contains provider-specific configuration (folder selectors, etc.).
	Config map[string]string

	// CredentialID references the credential handle presented per call.
	// Empty for connectors that need no authentication.
	CredentialID string

	// Checkpoint is the opaque serialised Checkpoint blob.
	Checkpoint []byte

	// LastError is the truncated message of the last failed run.
	LastError string

	// LeaseExpiresAt bounds how long a syncing worker may hold the connector
	// without renewing. Nil unless the connector is syncing.
	LeaseExpiresAt *time.Time

	// LeaseHolder is the token of the run holding the lease. Empty unless
	// the connector is syncing.
	LeaseHolder string

	// RetiredAt is set when the connector is soft-retired.
	RetiredAt *time.Time

	// CreatedAt is when the connector was registered.
	CreatedAt time.Time

	// UpdatedAt is when the connector row last changed.
	UpdatedAt time.Time
}

// Validate checks the fields required to register a connector.
func (c *Connector) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: connector id is required", ErrInvalidInput)
	}
	if !c.Provider.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, c.Provider)
	}
	if strings.TrimSpace(c.OwnerID) == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if c.RefreshInterval != nil && *c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh interval must be positive", ErrInvalidInput)
	}
	return c.Visibility.Validate()
}

// IsRetired reports whether the connector has been soft-retired.
func (c *Connector) IsRetired() bool {
	return c.RetiredAt != nil
}

// DueAt reports whether a scheduled run is due at now.
// Manual-only, retired and non-triggerable connectors are never due.
func (c *Connector) DueAt(now time.Time) bool {
	if c.RefreshInterval == nil || c.IsRetired() || !c.Status.AcceptsTrigger() {
		return false
	}
	if c.LastSyncAt == nil {
		return true
	}
	return !now.Before(c.LastSyncAt.Add(*c.RefreshInterval))
}

// LeaseExpired reports whether a syncing connector's lease has lapsed.
func (c *Connector) LeaseExpired(now time.Time) bool {
	return c.Status == StatusSyncing && c.LeaseExpiresAt != nil && now.After(*c.LeaseExpiresAt)
}

// StatusChange describes an optimistic, status-gated connector update.
// The update applies only if the stored status is one of From.
type StatusChange struct {
	From []ConnectorStatus
	To   ConnectorStatus

	// LastError replaces the stored last error. Empty clears it.
	LastError string

	// LastSyncAt is written when non-nil.
	LastSyncAt *time.Time

	// LeaseUntil and LeaseHolder set the lease when LeaseUntil is non-nil;
	// otherwise the lease is cleared.
	LeaseUntil  *time.Time
	LeaseHolder string

	// HeldBy, when set, additionally requires the stored lease holder to match.
	HeldBy string
}

// Allows reports whether the change may be applied to a connector in status s.
func (c StatusChange) Allows(s ConnectorStatus) bool {
	for _, from := range c.From {
		if from == s {
			return true
		}
	}
	return false
}

// Permits reports whether the change may be applied to c.
func (c StatusChange) Permits(conn *Connector) bool {
	if !c.Allows(conn.Status) {
		return false
	}
	return c.HeldBy == "" || c.HeldBy == conn.LeaseHolder
}
