package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

func seedConnector(t *testing.T, s *Store, id string, status domain.ConnectorStatus) {
	t.Helper()
	require.NoError(t, s.Connectors().Save(context.Background(), domain.Connector{
		ID:         id,
		Provider:   domain.ProviderDropbox,
		OwnerID:    "owner",
		Visibility: domain.Visibility{Scope: domain.VisibilityPrivate},
		Status:     status,
	}))
}

func TestStore_TransitionStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedConnector(t, s, "c1", domain.StatusActive)

	moved, err := s.Connectors().TransitionStatus(ctx, "c1", domain.StatusChange{
		From: []domain.ConnectorStatus{domain.StatusActive, domain.StatusError},
		To:   domain.StatusPending,
	})
	require.NoError(t, err)
	assert.True(t, moved)

	// A second trigger finds the connector pending and is a no-op.
	moved, err = s.Connectors().TransitionStatus(ctx, "c1", domain.StatusChange{
		From: []domain.ConnectorStatus{domain.StatusActive, domain.StatusError},
		To:   domain.StatusPending,
	})
	require.NoError(t, err)
	assert.False(t, moved)

	_, err = s.Connectors().TransitionStatus(ctx, "missing", domain.StatusChange{To: domain.StatusPending})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_LeaseLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedConnector(t, s, "c1", domain.StatusPending)

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	lease := start.Add(time.Minute)
	moved, err := s.Connectors().TransitionStatus(ctx, "c1", domain.StatusChange{
		From:        []domain.ConnectorStatus{domain.StatusPending},
		To:          domain.StatusSyncing,
		LeaseUntil:  &lease,
		LeaseHolder: "run-1",
	})
	require.NoError(t, err)
	require.True(t, moved)

	require.NoError(t, s.Connectors().RenewLease(ctx, "c1", "run-1", lease))
	assert.ErrorIs(t, s.Connectors().RenewLease(ctx, "c1", "run-2", lease), domain.ErrStatusConflict)

	ids, err := s.Connectors().RecoverExpiredLeases(ctx, start.Add(30*time.Second))
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.Connectors().RecoverExpiredLeases(ctx, start.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)

	c, err := s.Connectors().Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, c.Status)
	assert.Nil(t, c.LeaseExpiresAt)
	assert.Empty(t, c.LeaseHolder)

	assert.ErrorIs(t, s.Connectors().RenewLease(ctx, "c1", "run-1", start), domain.ErrStatusConflict)
}

func TestStore_StaleHolderCannotRelease(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedConnector(t, s, "c1", domain.StatusPending)

	lease := time.Now().Add(time.Minute)
	moved, err := s.Connectors().TransitionStatus(ctx, "c1", domain.StatusChange{
		From:        []domain.ConnectorStatus{domain.StatusPending},
		To:          domain.StatusSyncing,
		LeaseUntil:  &lease,
		LeaseHolder: "run-2",
	})
	require.NoError(t, err)
	require.True(t, moved)

	moved, err = s.Connectors().TransitionStatus(ctx, "c1", domain.StatusChange{
		From:   []domain.ConnectorStatus{domain.StatusSyncing},
		To:     domain.StatusActive,
		HeldBy: "run-1",
	})
	require.NoError(t, err)
	assert.False(t, moved)

	c, err := s.Connectors().Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSyncing, c.Status)
	assert.Equal(t, "run-2", c.LeaseHolder)
}

func TestStore_Retire(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedConnector(t, s, "c1", domain.StatusActive)

	require.NoError(t, s.Connectors().Retire(ctx, "c1", time.Now()))

	c, err := s.Connectors().Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDisabled, c.Status)
	assert.True(t, c.IsRetired())
}

func TestStore_WithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedConnector(t, s, "c1", domain.StatusSyncing)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx driven.Tx) error {
		require.NoError(t, tx.Documents().Save(ctx, domain.Document{ConnectorID: "c1", RemoteID: "a"}))
		require.NoError(t, tx.Outbox().Append(ctx, domain.LandedEvent{ConnectorID: "c1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Documents().GetByRemoteID(ctx, "c1", "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	pending, err := s.Outbox().Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStore_CommitHookAbortsTransaction(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedConnector(t, s, "c1", domain.StatusSyncing)

	crash := errors.New("crash")
	s.SetCommitHook(func() error { return crash })

	cp := domain.NewCheckpoint()
	cp.Begin("run-1", time.Now())
	err := s.WithinTx(ctx, func(ctx context.Context, tx driven.Tx) error {
		return tx.Checkpoints().Save(ctx, "c1", cp)
	})
	assert.ErrorIs(t, err, crash)

	loaded, err := s.Checkpoints().Load(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, loaded.RunID)
}

func TestStore_Documents(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	doc := domain.Document{ID: "d1", ConnectorID: "c1", RemoteID: "a", Fingerprint: "f1"}
	require.NoError(t, s.Documents().Save(ctx, doc))

	// Upsert keeps the original id.
	doc.ID = "ignored"
	doc.Fingerprint = "f2"
	require.NoError(t, s.Documents().Save(ctx, doc))

	got, err := s.Documents().GetByRemoteID(ctx, "c1", "a")
	require.NoError(t, err)
	assert.Equal(t, "d1", got.ID)
	assert.Equal(t, "f2", got.Fingerprint)

	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Documents().Tombstone(ctx, "c1", "a", at))
	got, err = s.Documents().Get(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, got.IsTombstoned())

	assert.ErrorIs(t, s.Documents().Tombstone(ctx, "c1", "zzz", at), domain.ErrNotFound)
}

func TestStore_Outbox(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for _, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, s.Outbox().Append(ctx, domain.LandedEvent{ID: id}))
	}

	pending, err := s.Outbox().Pending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "e1", pending[0].ID)

	require.NoError(t, s.Outbox().Remove(ctx, []string{"e1", "e2"}))
	pending, err = s.Outbox().Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "e3", pending[0].Event.ID)
}
