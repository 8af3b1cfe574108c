package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want domain.ErrorClass
	}{
		{domain.ErrCursorInvalid, domain.ClassRunTerminal},
		{domain.ErrCheckpointStore, domain.ClassRunTerminal},
		{domain.ErrAuthRequired, domain.ClassRunTerminal},
		{domain.ErrCancelled, domain.ClassRunTerminal},
		{context.Canceled, domain.ClassRunTerminal},
		{domain.ErrExportTooLarge, domain.ClassItemTerminal},
		{domain.ErrMalformedItem, domain.ClassItemTerminal},
		{domain.ErrNotFound, domain.ClassItemTerminal},
		{domain.ErrAuthExpired, domain.ClassTransient},
		{domain.ErrRateLimited, domain.ClassTransient},
		{context.DeadlineExceeded, domain.ClassTransient},
		{errors.New("unexpected EOF"), domain.ClassTransient},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestEscalate(t *testing.T) {
	assert.Equal(t, domain.ClassRunTerminal, escalate(domain.ErrAuthExpired))
	assert.Equal(t, domain.ClassItemTerminal, escalate(domain.ErrRateLimited))
}

func TestIsRetryableRun(t *testing.T) {
	assert.True(t, IsRetryableRun(fmt.Errorf("item a: %w", domain.ErrAuthExpired)))
	assert.True(t, IsRetryableRun(domain.ErrCheckpointStore))
	assert.False(t, IsRetryableRun(domain.ErrCursorInvalid))
	assert.False(t, IsRetryableRun(domain.ErrCancelled))
}

func TestRetrier_StopsOnNonTransient(t *testing.T) {
	r := newRetrier(clockwork.NewFakeClock(), domain.SyncSettings{RetryAttempts: 5})

	calls := 0
	err := r.do(context.Background(), func(context.Context) error {
		calls++
		return domain.ErrMalformedItem
	})
	assert.ErrorIs(t, err, domain.ErrMalformedItem)
	assert.Equal(t, 1, calls)
}

func TestRetrier_BackoffUsesClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newRetrier(clock, domain.SyncSettings{
		RetryAttempts:  3,
		RetryBaseDelay: time.Second,
		RetryMaxDelay:  90 * time.Second,
	})

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- r.do(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return domain.ErrTransient
			}
			return nil
		})
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	clock.BlockUntil(1)
	clock.Advance(2 * time.Second)

	require.NoError(t, <-done)
	assert.Equal(t, 3, calls)
}

func TestRetrier_Delay(t *testing.T) {
	r := &retrier{base: time.Second, max: 5 * time.Second}
	assert.Equal(t, time.Second, r.delay(1))
	assert.Equal(t, 2*time.Second, r.delay(2))
	assert.Equal(t, 4*time.Second, r.delay(3))
	assert.Equal(t, 5*time.Second, r.delay(4))
	assert.Equal(t, 5*time.Second, r.delay(40))

	zero := &retrier{}
	assert.Zero(t, zero.delay(3))
}

func TestRetrier_ContextCancelledDuringWait(t *testing.T) {
	r := newRetrier(clockwork.NewFakeClock(), domain.SyncSettings{RetryAttempts: 3, RetryBaseDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	err := r.do(ctx, func(context.Context) error {
		cancel()
		return domain.ErrTransient
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPermissionSynchronizer(t *testing.T) {
	adapter := newMockAdapter()
	adapter.access["a"] = domain.ExternalAccess{Users: []string{" B@x.com", "a@x.com", "a@x.com"}, Groups: []string{"Eng"}}
	adapter.permissionsErr["b"] = domain.ErrTransient
	p := NewPermissionSynchronizer()

	access, err := p.Sync(context.Background(), adapter, domain.RemoteItem{ID: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, access.Users)
	assert.Equal(t, []string{"eng"}, access.Groups)

	access, err = p.Sync(context.Background(), adapter, domain.RemoteItem{ID: "b"})
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.True(t, access.IsRestricted())
}
