package domain

import (
	"fmt"
	"time"
)

// SyncSettings tunes the orchestrator and dispatcher.
type SyncSettings struct {
	// Workers is the number of connectors synchronised concurrently.
	Workers int

	// ItemConcurrency bounds parallel transfers within one page.
	ItemConcurrency int

	// PageSize is the page size requested from source adapters.
	PageSize int

	// ChunkSize is the streaming transfer buffer size in bytes.
	ChunkSize int

	// MaxObjectSize rejects payloads larger than this many bytes. Zero disables the limit.
	MaxObjectSize int64

	// RetryAttempts is how many times a transient unit-of-work failure is attempted.
	RetryAttempts int

	// RetryBaseDelay is the first backoff delay; later delays double up to RetryMaxDelay.
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps the backoff delay.
	RetryMaxDelay time.Duration

	// AdapterTimeout bounds every source adapter call.
	AdapterTimeout time.Duration

	// LeaseDuration is how long a syncing connector stays claimed without renewal.
	LeaseDuration time.Duration

	// NackDelay is how long a trigger is hidden after a transient run failure.
	NackDelay time.Duration
}

// DefaultSyncSettings returns the defaults used when no configuration is given.
func DefaultSyncSettings() SyncSettings {
	return SyncSettings{
		Workers:         4,
		ItemConcurrency: 4,
		PageSize:        100,
		ChunkSize:       256 * 1024,
		RetryAttempts:   4,
		RetryBaseDelay:  500 * time.Millisecond,
		RetryMaxDelay:   30 * time.Second,
		AdapterTimeout:  60 * time.Second,
		LeaseDuration:   10 * time.Minute,
		NackDelay:       time.Minute,
	}
}

// Validate checks the settings are usable.
func (s SyncSettings) Validate() error {
	switch {
	case s.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidInput)
	case s.ItemConcurrency <= 0:
		return fmt.Errorf("%w: item concurrency must be positive", ErrInvalidInput)
	case s.PageSize <= 0:
		return fmt.Errorf("%w: page size must be positive", ErrInvalidInput)
	case s.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidInput)
	case s.MaxObjectSize < 0:
		return fmt.Errorf("%w: max object size cannot be negative", ErrInvalidInput)
	case s.RetryAttempts <= 0:
		return fmt.Errorf("%w: retry attempts must be positive", ErrInvalidInput)
	case s.AdapterTimeout <= 0:
		return fmt.Errorf("%w: adapter timeout must be positive", ErrInvalidInput)
	case s.LeaseDuration <= 0:
		return fmt.Errorf("%w: lease duration must be positive", ErrInvalidInput)
	}
	return nil
}
