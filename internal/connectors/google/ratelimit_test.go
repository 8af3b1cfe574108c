package google

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestRateLimiter_BackoffAfterRateLimit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRateLimiterWithConfig(RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 10}, clock)

	err := &googleapi.Error{Code: 429}
	assert.Equal(t, error(err), r.Observe(err))

	done := make(chan error, 1)
	go func() { done <- r.Wait(context.Background()) }()

	clock.BlockUntil(1)
	select {
	case <-done:
		t.Fatal("wait returned during backoff")
	default:
	}

	clock.Advance(defaultBackoff)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return after backoff")
	}
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRateLimiterWithConfig(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}, clock)
	r.RecordRateLimitError(30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.Canceled)
}

func TestRateLimiter_ObserveIgnoresOtherErrors(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRateLimiterWithConfig(RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 10}, clock)
	r.Observe(&googleapi.Error{Code: 500})
	r.Observe(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, r.Wait(ctx), "no backoff was recorded")
}
