package services

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// Classify maps a component error to its retry class. It is only used at
// the orchestrator boundary; adapters and stores return sentinels and leave
// the decision here.
func Classify(err error) domain.ErrorClass {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, domain.ErrCancelled),
		errors.Is(err, domain.ErrCursorInvalid),
		errors.Is(err, domain.ErrCheckpointStore),
		errors.Is(err, domain.ErrCheckpointCorrupt),
		errors.Is(err, domain.ErrStatusConflict),
		errors.Is(err, domain.ErrConnectorDisabled),
		errors.Is(err, domain.ErrAuthRequired),
		errors.Is(err, domain.ErrAuthInvalid),
		errors.Is(err, domain.ErrUnsupportedType):
		return domain.ClassRunTerminal
	case errors.Is(err, domain.ErrExportTooLarge),
		errors.Is(err, domain.ErrMalformedItem),
		errors.Is(err, domain.ErrObjectTooLarge),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidInput):
		return domain.ClassItemTerminal
	default:
		// Timeouts, rate limits, credential rejection and unknown failures
		// are retried.
		return domain.ClassTransient
	}
}

// escalate returns the class a transient failure takes once its retries are
// exhausted. Repeated credential rejection aborts the run; anything else
// costs only the failing item.
func escalate(err error) domain.ErrorClass {
	if errors.Is(err, domain.ErrAuthExpired) {
		return domain.ClassRunTerminal
	}
	return domain.ClassItemTerminal
}

// IsRetryableRun reports whether a failed run should be re-driven later
// rather than left for an operator.
func IsRetryableRun(err error) bool {
	return errors.Is(err, domain.ErrAuthExpired) ||
		errors.Is(err, domain.ErrTransient) ||
		errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, domain.ErrCheckpointStore) ||
		errors.Is(err, context.DeadlineExceeded)
}

// retrier retries transient failures with capped exponential backoff.
type retrier struct {
	clock    clockwork.Clock
	attempts int
	base     time.Duration
	max      time.Duration
}

func newRetrier(clock clockwork.Clock, s domain.SyncSettings) *retrier {
	attempts := s.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &retrier{clock: clock, attempts: attempts, base: s.RetryBaseDelay, max: s.RetryMaxDelay}
}

// do calls fn until it succeeds, fails non-transiently, or attempts run out.
// The last error is returned unchanged.
func (r *retrier) do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			if waitErr := r.wait(ctx, r.delay(attempt)); waitErr != nil {
				return waitErr
			}
		}
		err = fn(ctx)
		if err == nil || Classify(err) != domain.ClassTransient {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func (r *retrier) delay(attempt int) time.Duration {
	if r.base <= 0 {
		return 0
	}
	d := r.base
	for i := 1; i < attempt; i++ {
		if r.max > 0 && d >= r.max {
			break
		}
		d *= 2
	}
	if r.max > 0 && d > r.max {
		d = r.max
	}
	return d
}

func (r *retrier) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.clock.After(d):
		return nil
	}
}
