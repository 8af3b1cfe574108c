package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestConnectorStatus_AcceptsTrigger(t *testing.T) {
	tests := []struct {
		status ConnectorStatus
		want   bool
	}{
		{StatusActive, true},
		{StatusError, true},
		{StatusPending, false},
		{StatusSyncing, false},
		{StatusDisabled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.AcceptsTrigger())
		})
	}
}

func TestConnector_Validate(t *testing.T) {
	valid := func() Connector {
		return Connector{
			ID:         "c-1",
			Provider:   ProviderGoogleDrive,
			OwnerID:    "user-1",
			Visibility: Visibility{Scope: VisibilityPrivate},
		}
	}
	zero := time.Duration(0)

	tests := []struct {
		name    string
		mutate  func(c *Connector)
		wantErr error
	}{
		{"valid", func(*Connector) {}, nil},
		{"missing id", func(c *Connector) { c.ID = " " }, ErrInvalidInput},
		{"unknown provider", func(c *Connector) { c.Provider = "ftp" }, ErrUnsupportedType},
		{"missing owner", func(c *Connector) { c.OwnerID = "" }, ErrInvalidInput},
		{"zero interval", func(c *Connector) { c.RefreshInterval = &zero }, ErrInvalidInput},
		{"private with scope id", func(c *Connector) { c.Visibility.ScopeID = "team-1" }, ErrInvalidInput},
		{"team with scope id", func(c *Connector) { c.Visibility = Visibility{Scope: VisibilityTeam, ScopeID: "t"} }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestConnector_DueAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	hour := time.Hour
	recent := now.Add(-30 * time.Minute)
	old := now.Add(-2 * time.Hour)
	retired := now

	tests := []struct {
		name string
		c    Connector
		want bool
	}{
		{"manual only", Connector{Status: StatusActive}, false},
		{"never synced", Connector{Status: StatusActive, RefreshInterval: &hour}, true},
		{"synced recently", Connector{Status: StatusActive, RefreshInterval: &hour, LastSyncAt: &recent}, false},
		{"interval elapsed", Connector{Status: StatusActive, RefreshInterval: &hour, LastSyncAt: &old}, true},
		{"error is retried", Connector{Status: StatusError, RefreshInterval: &hour, LastSyncAt: &old}, true},
		{"syncing is not due", Connector{Status: StatusSyncing, RefreshInterval: &hour, LastSyncAt: &old}, false},
		{"disabled is not due", Connector{Status: StatusDisabled, RefreshInterval: &hour}, false},
		{"retired is not due", Connector{Status: StatusActive, RefreshInterval: &hour, RetiredAt: &retired}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.DueAt(now))
		})
	}
}

func TestConnector_LeaseExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Connector{Status: StatusSyncing, LeaseExpiresAt: &past}).LeaseExpired(now))
	assert.False(t, (&Connector{Status: StatusSyncing, LeaseExpiresAt: &future}).LeaseExpired(now))
	assert.False(t, (&Connector{Status: StatusActive, LeaseExpiresAt: &past}).LeaseExpired(now))
}

func TestTruncateError(t *testing.T) {
	assert.Equal(t, "short", TruncateError("short"))

	long := strings.Repeat("é", MaxLastErrorLength)
	got := TruncateError(long)
	assert.LessOrEqual(t, len(got), MaxLastErrorLength)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestStatusChange_Allows(t *testing.T) {
	change := StatusChange{From: []ConnectorStatus{StatusActive, StatusError}, To: StatusPending}
	assert.True(t, change.Allows(StatusActive))
	assert.True(t, change.Allows(StatusError))
	assert.False(t, change.Allows(StatusSyncing))
}

func TestStatusChange_PermitsRequiresHolder(t *testing.T) {
	change := StatusChange{From: []ConnectorStatus{StatusSyncing}, To: StatusActive, HeldBy: "run-1"}
	assert.True(t, change.Permits(&Connector{Status: StatusSyncing, LeaseHolder: "run-1"}))
	assert.False(t, change.Permits(&Connector{Status: StatusSyncing, LeaseHolder: "run-2"}))
	assert.False(t, change.Permits(&Connector{Status: StatusPending, LeaseHolder: "run-1"}))

	change.HeldBy = ""
	assert.True(t, change.Permits(&Connector{Status: StatusSyncing, LeaseHolder: "run-2"}))
}

func TestErrorClass_String(t *testing.T) {
	assert.Equal(t, "transient", ClassTransient.String())
	assert.Equal(t, "item-terminal", ClassItemTerminal.String())
	assert.Equal(t, "run-terminal", ClassRunTerminal.String())
}
