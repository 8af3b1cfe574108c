package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stage is one phase of a provider's multi-phase crawl.
type Stage string

const (
	StageStart               Stage = "START"
	StageEnumeratePrincipals Stage = "ENUMERATE_PRINCIPALS"
	StagePrimaryCollection   Stage = "PRIMARY_COLLECTION"
	StageSharedCollections   Stage = "SHARED_COLLECTIONS"
	StageConfiguredFolders   Stage = "CONFIGURED_FOLDERS"
	StageDone                Stage = "DONE"
)

var stageOrder = []Stage{
	StageStart,
	StageEnumeratePrincipals,
	StagePrimaryCollection,
	StageSharedCollections,
	StageConfiguredFolders,
	StageDone,
}

// Index returns the position of s in the crawl order, or -1 if unknown.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsCrawl reports whether the stage enumerates items (as opposed to setup or terminal stages).
func (s Stage) IsCrawl() bool {
	return s == StagePrimaryCollection || s == StageSharedCollections || s == StageConfiguredFolders
}

// NextStage returns the first stage after current that the provider crawls.
// Stages not listed in supported are skipped. DONE follows the last supported stage.
func NextStage(supported []Stage, current Stage) Stage {
	cur := current.Index()
	next := StageDone
	for _, st := range supported {
		idx := st.Index()
		if idx > cur && idx < next.Index() {
			next = st
		}
	}
	return next
}

// CheckpointVersion is the current checkpoint format version.
const CheckpointVersion = 1

// StageProgress is the per-stage completion record.
type StageProgress struct {
	// CompletedUntil is the low-water-mark: every change before it is synced.
	// Enumeration for the stage starts from here.
	CompletedUntil time.Time `json:"completed_until,omitempty"`

	// HighWater is the newest item modification time landed in the current pass.
	// It is promoted into CompletedUntil when the stage completes.
	HighWater time.Time `json:"high_water,omitempty"`

	// Cursor is the pagination cursor for the in-flight page.
	Cursor string `json:"cursor,omitempty"`

	// SyncToken is the provider's change token from the last completed pass.
	// Like CompletedUntil it persists across runs.
	SyncToken string `json:"sync_token,omitempty"`

	// Landed holds item ids already processed in the current pass.
	Landed map[string]bool `json:"landed,omitempty"`
}

// HasLanded reports whether id was already processed in this pass.
func (p *StageProgress) HasLanded(id string) bool {
	return p.Landed[id]
}

// MarkLanded records id as processed in this pass.
func (p *StageProgress) MarkLanded(id string) {
	if p.Landed == nil {
		p.Landed = make(map[string]bool)
	}
	p.Landed[id] = true
}

// Advance moves the high-water mark forward to t. Older times are ignored.
func (p *StageProgress) Advance(t time.Time) {
	if t.After(p.HighWater) {
		p.HighWater = t.UTC()
	}
}

// Complete promotes the high-water mark, then clears per-pass state.
func (p *StageProgress) Complete() {
	if p.HighWater.After(p.CompletedUntil) {
		p.CompletedUntil = p.HighWater
	}
	p.HighWater = time.Time{}
	p.Cursor = ""
	p.Landed = nil
}

// Lookups caches rarely-changing enumerations fetched once per run.
type Lookups struct {
	// Principals are identities visible to the credential (e.g. account emails).
	Principals []string `json:"principals,omitempty"`

	// CollectionIDs are shared collections (shared drives, team folders).
	CollectionIDs []string `json:"collection_ids,omitempty"`

	// FetchedAt is when the lookups were enumerated.
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// Checkpoint is the resumable progress state for one connector.
type Checkpoint struct {
	Version int `json:"v"`

	// Stage is the stage currently being worked.
	Stage Stage `json:"stage"`

	// RunID identifies the run; events emitted by one run share it as session id.
	RunID string `json:"run_id,omitempty"`

	// RunStartedAt becomes the connector's last-sync time when the run completes.
	RunStartedAt time.Time `json:"run_started_at,omitempty"`

	// Stages holds per-stage progress. Low-water-marks persist across runs.
	Stages map[Stage]*StageProgress `json:"stages,omitempty"`

	// Lookups are cached for the duration of one run.
	Lookups Lookups `json:"lookups"`

	// MoreWork is true while the run has stages left to process.
	MoreWork bool `json:"more_work"`
}

// NewCheckpoint returns an empty checkpoint at START.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{
		Version: CheckpointVersion,
		Stage:   StageStart,
		Stages:  make(map[Stage]*StageProgress),
	}
}

// Progress returns the progress record for stage, creating it if absent.
func (c *Checkpoint) Progress(stage Stage) *StageProgress {
	if c.Stages == nil {
		c.Stages = make(map[Stage]*StageProgress)
	}
	p, ok := c.Stages[stage]
	if !ok {
		p = &StageProgress{}
		c.Stages[stage] = p
	}
	return p
}

// Begin starts a new run at START if the checkpoint is not mid-run.
// It reports whether a new run was started (false means resume).
func (c *Checkpoint) Begin(runID string, startedAt time.Time) bool {
	if c.Stage != StageStart && c.Stage != StageDone && c.RunID != "" {
		return false
	}
	c.Stage = StageStart
	c.RunID = runID
	c.RunStartedAt = startedAt.UTC()
	c.Lookups = Lookups{}
	c.MoreWork = true
	return true
}

// AdvanceTo moves the checkpoint forward to stage. Backward moves are rejected.
func (c *Checkpoint) AdvanceTo(stage Stage) error {
	if stage.Index() < 0 {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, stage)
	}
	if stage.Index() <= c.Stage.Index() {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidInput, c.Stage, stage)
	}
	c.Stage = stage
	c.MoreWork = stage != StageDone
	return nil
}

// Reset prepares the checkpoint for the next scheduled run. Stage markers,
// cursors, landed-sets and lookups are per-run scaffolding and are dropped;
// each stage keeps only its low-water-mark and sync token.
func (c *Checkpoint) Reset() {
	for stage, p := range c.Stages {
		p.Complete()
		if p.CompletedUntil.IsZero() && p.SyncToken == "" {
			delete(c.Stages, stage)
		}
	}
	c.Stage = StageStart
	c.RunID = ""
	c.RunStartedAt = time.Time{}
	c.Lookups = Lookups{}
	c.MoreWork = false
}

// Clone returns a deep copy.
func (c *Checkpoint) Clone() *Checkpoint {
	out := *c
	out.Stages = make(map[Stage]*StageProgress, len(c.Stages))
	for stage, p := range c.Stages {
		cp := *p
		if p.Landed != nil {
			cp.Landed = make(map[string]bool, len(p.Landed))
			for id := range p.Landed {
				cp.Landed[id] = true
			}
		}
		out.Stages[stage] = &cp
	}
	out.Lookups.Principals = append([]string(nil), c.Lookups.Principals...)
	out.Lookups.CollectionIDs = append([]string(nil), c.Lookups.CollectionIDs...)
	return &out
}

// Encode serialises the checkpoint for storage in the connector row.
func (c *Checkpoint) Encode() ([]byte, error) {
	if c.Version == 0 {
		c.Version = CheckpointVersion
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return data, nil
}

// DecodeCheckpoint deserialises a checkpoint blob. An empty blob yields a new checkpoint.
func DecodeCheckpoint(data []byte) (*Checkpoint, error) {
	if len(data) == 0 {
		return NewCheckpoint(), nil
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckpointCorrupt, err)
	}
	if cp.Version > CheckpointVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCheckpointCorrupt, cp.Version)
	}
	if cp.Stage == "" {
		cp.Stage = StageStart
	}
	if cp.Stage.Index() < 0 {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrCheckpointCorrupt, cp.Stage)
	}
	if cp.Stages == nil {
		cp.Stages = make(map[Stage]*StageProgress)
	}
	return &cp, nil
}
