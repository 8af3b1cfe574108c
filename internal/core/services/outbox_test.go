package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func appendEvents(t *testing.T, store *memory.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, store.Outbox().Append(context.Background(), domain.LandedEvent{ID: id, ConnectorID: "c1"}))
	}
}

func TestOutboxRelay_Flush(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	appendEvents(t, store, "e1", "e2", "e3")
	publisher := &mockPublisher{}
	relay := NewOutboxRelay(store.Outbox(), publisher, clockwork.NewFakeClock(), 0)
	relay.batch = 2

	n, err := relay.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	published := publisher.published()
	require.Len(t, published, 3)
	assert.Equal(t, "e1", published[0].ID)
	assert.Equal(t, "e3", published[2].ID)

	pending, err := store.Outbox().Pending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxRelay_FlushKeepsUnpublishedEvents(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	appendEvents(t, store, "e1", "e2", "e3")
	publisher := &mockPublisher{failAt: 1, failErr: errors.New("broker down")}
	relay := NewOutboxRelay(store.Outbox(), publisher, clockwork.NewFakeClock(), 0)

	n, err := relay.Flush(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, n)

	pending, err := store.Outbox().Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "e2", pending[0].ID)

	publisher.failErr = nil
	n, err = relay.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOutboxRelay_ServeWakesOnNotify(t *testing.T) {
	store := memory.NewStore()
	publisher := &mockPublisher{}
	relay := NewOutboxRelay(store.Outbox(), publisher, clockwork.NewFakeClock(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Serve(ctx) }()

	appendEvents(t, store, "e1")
	relay.Notify()
	relay.Notify()

	assert.Eventually(t, func() bool { return len(publisher.published()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
