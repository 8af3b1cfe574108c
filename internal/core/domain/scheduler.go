package domain

import "time"

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// Tick is how often due connectors, expired leases and orphaned objects are checked.
	Tick time.Duration

	// PartialObjectMaxAge is how old a partial object must be before cleanup removes it.
	PartialObjectMaxAge time.Duration
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:             true,
		Tick:                time.Minute,
		PartialObjectMaxAge: 24 * time.Hour,
	}
}
