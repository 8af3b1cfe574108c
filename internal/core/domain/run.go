package domain

import "time"

// RunResult summarises one orchestrator run of one connector.
type RunResult struct {
	ConnectorID string
	RunID       string

	// Skipped is true when the run was not acquired (connector not pending).
	Skipped bool

	// Resumed is true when the run continued a previously persisted checkpoint.
	Resumed bool

	// Completed is true when all stages reached DONE.
	Completed bool

	Created            int
	Updated            int
	Deleted            int
	Unchanged          int
	Failed             int
	PermissionWarnings int
	BytesLanded        int64

	StartedAt time.Time
	EndedAt   time.Time
}

// Landed returns the number of items that generated an event.
func (r *RunResult) Landed() int {
	return r.Created + r.Updated
}
