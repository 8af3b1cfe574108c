package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncOrchestrator drives each connector through its crawl stages,
// persisting a checkpoint after every unit of work.
type SyncOrchestrator struct {
	store    driven.RecordStore
	adapters driven.AdapterFactory
	objects  driven.ObjectStore
	detector *ChangeDetector
	transfer *Transfer
	perms    *PermissionSynchronizer
	retry    *retrier
	settings domain.SyncSettings
	clock    clockwork.Clock
	notify   func()

	// Status tracking
	mu   sync.RWMutex
	runs map[string]*activeRun
}

type activeRun struct {
	connectorID string
	holder      string
	cancelled   atomic.Bool
	status      driving.SyncStatus
}

// OrchestratorOption configures a SyncOrchestrator.
type OrchestratorOption func(*SyncOrchestrator)

// WithClock replaces the wall clock. Tests pass a fake clock.
func WithClock(clock clockwork.Clock) OrchestratorOption {
	return func(o *SyncOrchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLandedNotifier registers fn to be called after landed events commit.
func WithLandedNotifier(fn func()) OrchestratorOption {
	return func(o *SyncOrchestrator) {
		o.notify = fn
	}
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(
	store driven.RecordStore,
	adapters driven.AdapterFactory,
	objects driven.ObjectStore,
	settings domain.SyncSettings,
	opts ...OrchestratorOption,
) *SyncOrchestrator {
	o := &SyncOrchestrator{
		store:    store,
		adapters: adapters,
		objects:  objects,
		detector: NewChangeDetector(),
		transfer: NewTransfer(objects, settings.ChunkSize, settings.MaxObjectSize),
		perms:    NewPermissionSynchronizer(),
		settings: settings,
		clock:    clockwork.NewRealClock(),
		notify:   func() {},
		runs:     make(map[string]*activeRun),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.retry = newRetrier(o.clock, settings)
	return o
}

// Trigger moves an active or errored connector to pending.
func (o *SyncOrchestrator) Trigger(ctx context.Context, connectorID string) (bool, error) {
	c, err := o.store.Connectors().Get(ctx, connectorID)
	if err != nil {
		return false, fmt.Errorf("get connector: %w", err)
	}
	if c.IsRetired() {
		return false, nil
	}

	moved, err := o.store.Connectors().TransitionStatus(ctx, connectorID, domain.StatusChange{
		From:      []domain.ConnectorStatus{domain.StatusActive, domain.StatusError},
		To:        domain.StatusPending,
		LastError: c.LastError,
	})
	if err != nil {
		return false, fmt.Errorf("trigger connector: %w", err)
	}
	if moved {
		logger.WithFields(logger.Fields{"connector": connectorID}).Debug("Connector triggered")
	}
	return moved, nil
}

// Sync triggers then runs a connector.
func (o *SyncOrchestrator) Sync(ctx context.Context, connectorID string) (*domain.RunResult, error) {
	if _, err := o.Trigger(ctx, connectorID); err != nil {
		return nil, err
	}
	return o.Run(ctx, connectorID)
}

// Run acquires a pending connector and syncs it until DONE or failure.
func (o *SyncOrchestrator) Run(ctx context.Context, connectorID string) (*domain.RunResult, error) {
	c, err := o.store.Connectors().Get(ctx, connectorID)
	if err != nil {
		return nil, fmt.Errorf("get connector: %w", err)
	}

	result := &domain.RunResult{ConnectorID: connectorID, StartedAt: o.clock.Now()}

	holder := uuid.NewString()
	lease := o.clock.Now().Add(o.settings.LeaseDuration)
	acquired, err := o.store.Connectors().TransitionStatus(ctx, connectorID, domain.StatusChange{
		From:        []domain.ConnectorStatus{domain.StatusPending},
		To:          domain.StatusSyncing,
		LastError:   c.LastError,
		LeaseUntil:  &lease,
		LeaseHolder: holder,
	})
	if err != nil {
		return nil, fmt.Errorf("acquire connector: %w", err)
	}
	if !acquired {
		result.Skipped = true
		result.EndedAt = o.clock.Now()
		return result, nil
	}

	run := o.register(connectorID, holder)
	defer o.unregister(connectorID, run)

	log := logger.WithFields(logger.Fields{"connector": connectorID, "provider": string(c.Provider)})
	log.Info("Starting sync")

	cp, runErr := o.execute(ctx, c, run, result)
	result.EndedAt = o.clock.Now()

	// The run context may already be cancelled; the final transition must still land.
	finishCtx := context.WithoutCancel(ctx)
	if runErr == nil {
		if err := o.finish(finishCtx, run, cp); err != nil {
			runErr = err
		} else {
			result.Completed = true
			log.Info("Sync complete: %d created, %d updated, %d deleted, %d unchanged, %d failed",
				result.Created, result.Updated, result.Deleted, result.Unchanged, result.Failed)
			return result, nil
		}
	}

	o.fail(finishCtx, run, cp, runErr)
	log.WithError(runErr).Error("Sync failed")
	return result, runErr
}

// Cancel requests cooperative cancellation of an in-flight run.
func (o *SyncOrchestrator) Cancel(connectorID string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	run, ok := o.runs[connectorID]
	if !ok {
		return false
	}
	run.cancelled.Store(true)
	return true
}

// Status returns the persisted status merged with live run counters.
func (o *SyncOrchestrator) Status(ctx context.Context, connectorID string) (*driving.SyncStatus, error) {
	c, err := o.store.Connectors().Get(ctx, connectorID)
	if err != nil {
		return nil, fmt.Errorf("get connector: %w", err)
	}

	status := &driving.SyncStatus{
		ConnectorID: connectorID,
		Status:      c.Status,
		LastSyncAt:  c.LastSyncAt,
		LastError:   c.LastError,
	}
	if cp, err := o.store.Checkpoints().Load(ctx, connectorID); err == nil {
		status.Stage = cp.Stage
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if run, ok := o.runs[connectorID]; ok {
		status.Running = true
		status.DocumentsProcessed = run.status.DocumentsProcessed
		status.ErrorCount = run.status.ErrorCount
	}
	return status, nil
}

// execute runs the stage machine from the persisted checkpoint. It returns
// the last committed checkpoint alongside any run-terminal error.
func (o *SyncOrchestrator) execute(
	ctx context.Context,
	c *domain.Connector,
	run *activeRun,
	result *domain.RunResult,
) (*domain.Checkpoint, error) {
	cp, err := o.store.Checkpoints().Load(ctx, c.ID)
	if err != nil {
		if errors.Is(err, domain.ErrCheckpointCorrupt) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load: %w", domain.ErrCheckpointStore, err)
	}

	adapter, err := o.adapters.Create(ctx, c)
	if err != nil {
		return cp, fmt.Errorf("create adapter: %w", err)
	}
	defer adapter.Close()

	next := cp.Clone()
	if next.Begin(uuid.NewString(), o.clock.Now()) {
		if err := o.commit(ctx, run, next, nil); err != nil {
			return cp, err
		}
		cp = next
	} else {
		result.Resumed = true
		logger.WithFields(logger.Fields{"connector": c.ID, "stage": string(cp.Stage)}).Info("Resuming sync")
	}
	result.RunID = cp.RunID

	stages := adapter.Stages()
	for cp.Stage != domain.StageDone {
		if run.cancelled.Load() {
			return cp, domain.ErrCancelled
		}
		if err := ctx.Err(); err != nil {
			return cp, err
		}

		var next *domain.Checkpoint
		switch {
		case cp.Stage == domain.StageStart:
			next, err = o.advance(cp, stages)
		case cp.Stage == domain.StageEnumeratePrincipals:
			next, err = o.enumeratePrincipals(ctx, adapter, cp, stages)
		case cp.Stage.IsCrawl():
			next, err = o.crawlPage(ctx, c, adapter, run, cp, stages, result)
		default:
			err = fmt.Errorf("%w: unexpected stage %s", domain.ErrCheckpointCorrupt, cp.Stage)
		}
		if err != nil {
			return cp, err
		}
		if next == nil {
			continue
		}
		if err := o.commit(ctx, run, next, nil); err != nil {
			return cp, err
		}
		cp = next
	}
	return cp, nil
}

func (o *SyncOrchestrator) advance(cp *domain.Checkpoint, stages []domain.Stage) (*domain.Checkpoint, error) {
	next := cp.Clone()
	if err := next.AdvanceTo(domain.NextStage(stages, cp.Stage)); err != nil {
		return nil, err
	}
	return next, nil
}

func (o *SyncOrchestrator) enumeratePrincipals(
	ctx context.Context,
	adapter driven.SourceAdapter,
	cp *domain.Checkpoint,
	stages []domain.Stage,
) (*domain.Checkpoint, error) {
	var lookups domain.Lookups
	err := o.retry.do(ctx, func(ctx context.Context) error {
		callCtx, cancel := o.callContext(ctx)
		defer cancel()
		var err error
		lookups, err = adapter.EnumeratePrincipals(callCtx)
		return asTransient(ctx, err)
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate principals: %w", err)
	}
	if lookups.FetchedAt.IsZero() {
		lookups.FetchedAt = o.clock.Now().UTC()
	}

	next, err := o.advance(cp, stages)
	if err != nil {
		return nil, err
	}
	next.Lookups = lookups
	return next, nil
}

// unit is the prepared outcome of one remote item within a page.
type unit struct {
	item    domain.RemoteItem
	done    chan struct{}
	started bool
	replay  bool

	change  domain.ChangeRecord
	changed bool
	prev    *domain.Document

	landed   *TransferResult
	media    string
	access   domain.ExternalAccess
	permWarn error

	err error
}

// crawlPage processes one enumeration page of a crawl stage. Items are
// prepared concurrently; each is committed, in adapter order, as soon as it
// and every item before it are ready.
func (o *SyncOrchestrator) crawlPage(
	ctx context.Context,
	c *domain.Connector,
	adapter driven.SourceAdapter,
	run *activeRun,
	cp *domain.Checkpoint,
	stages []domain.Stage,
	result *domain.RunResult,
) (*domain.Checkpoint, error) {
	stage := cp.Stage
	progress := cp.Progress(stage)
	req := driven.EnumerateRequest{
		Stage:        stage,
		Cursor:       progress.Cursor,
		LowWaterMark: progress.CompletedUntil,
		SyncToken:    progress.SyncToken,
		Lookups:      cp.Lookups,
		PageSize:     o.settings.PageSize,
	}

	var page *driven.ChangePage
	err := o.retry.do(ctx, func(ctx context.Context) error {
		callCtx, cancel := o.callContext(ctx)
		defer cancel()
		var err error
		page, err = adapter.EnumerateChanges(callCtx, req)
		return asTransient(ctx, err)
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", stage, err)
	}

	prepCtx, stop := context.WithCancel(ctx)
	defer stop()
	units, wait := o.prepare(prepCtx, c, adapter, run, progress, page.Items)
	abort := func(from int) {
		stop()
		wait()
		o.discard(ctx, units[from:])
	}

	next := cp.Clone()
	np := next.Progress(stage)
	log := logger.WithFields(logger.Fields{"connector": c.ID, "stage": string(stage), "run": cp.RunID})

	for i := range units {
		u := &units[i]
		<-u.done
		if u.replay {
			continue
		}
		if !u.started {
			abort(i)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, domain.ErrCancelled
		}

		itemLog := log.WithFields(logger.Fields{"item": u.item.ID, "name": u.item.Name})

		if u.err != nil {
			class := Classify(u.err)
			if class == domain.ClassTransient {
				class = escalate(u.err)
			}
			if class == domain.ClassRunTerminal {
				abort(i)
				return nil, fmt.Errorf("item %s: %w", u.item.ID, u.err)
			}
			itemLog.WithError(u.err).Warn("Skipping item (%s)", class)
			np.MarkLanded(u.item.ID)
			if err := o.commit(ctx, run, next, nil); err != nil {
				abort(i)
				return nil, err
			}
			result.Failed++
			o.updateStatus(run, func(s *driving.SyncStatus) { s.ErrorCount++ })
			continue
		}

		np.MarkLanded(u.item.ID)
		np.Advance(u.item.ModifiedAt)

		if !u.changed {
			result.Unchanged++
			continue
		}

		if u.permWarn != nil {
			itemLog.WithError(u.permWarn).Warn("Permission fetch failed; stored most restrictive access")
			result.PermissionWarnings++
		}

		apply, doc := o.applyChange(c, next, u)
		if err := o.commit(ctx, run, next, apply); err != nil {
			abort(i)
			return nil, err
		}

		switch u.change.Action {
		case domain.ChangeCreate:
			result.Created++
		case domain.ChangeUpdate:
			result.Updated++
		case domain.ChangeDelete:
			result.Deleted++
		}
		if u.landed != nil {
			result.BytesLanded += u.landed.Size
			o.notify()
			itemLog.Debug("Landed %s (%d bytes)", doc.StorageLocator, u.landed.Size)
		}
		o.dropSuperseded(ctx, u, doc)
		o.updateStatus(run, func(s *driving.SyncStatus) { s.DocumentsProcessed++ })
	}
	wait()

	np.Cursor = page.NextCursor
	if page.Done {
		np.Complete()
		if page.SyncToken != "" {
			np.SyncToken = page.SyncToken
		}
		if err := next.AdvanceTo(domain.NextStage(stages, stage)); err != nil {
			return nil, err
		}
		log.Debug("Stage complete")
	}
	return next, nil
}

// prepare starts detection, transfer and permission fetch for each item with
// bounded concurrency and returns immediately. Each unit's done channel is
// closed once it is ready; wait blocks until every unit is. Failures are
// recorded on the unit, never returned, so one bad item cannot stop its
// neighbours.
func (o *SyncOrchestrator) prepare(
	ctx context.Context,
	c *domain.Connector,
	adapter driven.SourceAdapter,
	run *activeRun,
	progress *domain.StageProgress,
	items []domain.RemoteItem,
) (units []unit, wait func()) {
	units = make([]unit, len(items))
	for i := range items {
		units[i].item = items[i]
		units[i].done = make(chan struct{})
		units[i].replay = progress.HasLanded(items[i].ID)
	}

	limit := o.settings.ItemConcurrency
	if limit < 1 {
		limit = 1
	}
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		var g errgroup.Group
		g.SetLimit(limit)
		for i := range units {
			u := &units[i]
			if u.replay {
				close(u.done)
				continue
			}
			g.Go(func() error {
				defer close(u.done)
				if run.cancelled.Load() || ctx.Err() != nil {
					return nil
				}
				u.started = true
				u.err = o.prepareUnit(ctx, c, adapter, u)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return units, func() { <-finished }
}

func (o *SyncOrchestrator) prepareUnit(ctx context.Context, c *domain.Connector, adapter driven.SourceAdapter, u *unit) error {
	if u.item.ID == "" {
		return fmt.Errorf("%w: item without id", domain.ErrMalformedItem)
	}

	prev, err := o.store.Documents().GetByRemoteID(ctx, c.ID, u.item.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: lookup document: %w", domain.ErrCheckpointStore, err)
	}
	u.prev = prev

	u.change, u.changed = o.detector.Detect(u.item, prev)
	if !u.changed || !u.change.Lands() {
		return nil
	}

	err = o.retry.do(ctx, func(ctx context.Context) error {
		callCtx, cancel := o.callContext(ctx)
		defer cancel()

		content, err := adapter.FetchContent(callCtx, u.item)
		if err != nil {
			return asTransient(ctx, err)
		}
		defer content.Body.Close()

		landed, err := o.transfer.Copy(callCtx, content.Body, objectLocator(c.ID, u.item.ID))
		if err != nil {
			return asTransient(ctx, err)
		}
		u.landed = landed
		u.media = content.MediaType
		return nil
	})
	if err != nil {
		return err
	}

	callCtx, cancel := o.callContext(ctx)
	defer cancel()
	u.access, u.permWarn = o.perms.Sync(callCtx, adapter, u.item)
	return nil
}

// applyChange builds the record-store mutation for a prepared unit.
func (o *SyncOrchestrator) applyChange(
	c *domain.Connector,
	cp *domain.Checkpoint,
	u *unit,
) (func(ctx context.Context, tx driven.Tx) error, *domain.Document) {
	now := o.clock.Now().UTC()

	if u.change.Action == domain.ChangeDelete {
		return func(ctx context.Context, tx driven.Tx) error {
			return tx.Documents().Tombstone(ctx, c.ID, u.item.ID, now)
		}, u.prev
	}

	doc := domain.Document{
		ID:             uuid.NewString(),
		ConnectorID:    c.ID,
		RemoteID:       u.item.ID,
		Name:           u.item.Name,
		StorageLocator: u.landed.Locator,
		Fingerprint:    u.change.Fingerprint,
		ContentHash:    u.landed.ContentHash,
		MediaType:      firstNonEmpty(u.media, u.item.MediaType),
		Size:           u.landed.Size,
		Access:         u.access,
		Status:         domain.DocumentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if u.prev != nil {
		doc.ID = u.prev.ID
		doc.CreatedAt = u.prev.CreatedAt
	}

	event := domain.LandedEvent{
		ID:             uuid.NewString(),
		DocumentID:     doc.ID,
		ConnectorID:    c.ID,
		OwnerID:        c.OwnerID,
		Visibility:     c.Visibility,
		StorageLocator: doc.StorageLocator,
		ContentHash:    doc.ContentHash,
		SessionID:      cp.RunID,
		CreatedAt:      now,
	}

	return func(ctx context.Context, tx driven.Tx) error {
		if err := tx.Documents().Save(ctx, doc); err != nil {
			return err
		}
		return tx.Outbox().Append(ctx, event)
	}, &doc
}

// commit persists cp, plus any document mutation, in one transaction and
// renews the run's lease. A run that no longer holds the lease commits
// nothing.
func (o *SyncOrchestrator) commit(
	ctx context.Context,
	run *activeRun,
	cp *domain.Checkpoint,
	apply func(ctx context.Context, tx driven.Tx) error,
) error {
	lease := o.clock.Now().Add(o.settings.LeaseDuration)
	err := o.store.WithinTx(ctx, func(ctx context.Context, tx driven.Tx) error {
		if err := tx.Connectors().RenewLease(ctx, run.connectorID, run.holder, lease); err != nil {
			return err
		}
		if apply != nil {
			if err := apply(ctx, tx); err != nil {
				return err
			}
		}
		return tx.Checkpoints().Save(ctx, run.connectorID, cp)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrStatusConflict) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrCheckpointStore, err)
}

// finish resets the checkpoint for the next run and returns the connector to active.
func (o *SyncOrchestrator) finish(ctx context.Context, run *activeRun, cp *domain.Checkpoint) error {
	lastSync := cp.RunStartedAt
	next := cp.Clone()
	next.Reset()

	return o.store.WithinTx(ctx, func(ctx context.Context, tx driven.Tx) error {
		moved, err := tx.Connectors().TransitionStatus(ctx, run.connectorID, domain.StatusChange{
			From:       []domain.ConnectorStatus{domain.StatusSyncing},
			To:         domain.StatusActive,
			LastSyncAt: &lastSync,
			HeldBy:     run.holder,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrCheckpointStore, err)
		}
		if !moved {
			return domain.ErrStatusConflict
		}
		if err := tx.Checkpoints().Save(ctx, run.connectorID, next); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrCheckpointStore, err)
		}
		return nil
	})
}

// fail moves the connector to error. The checkpoint stays as last committed,
// except that an invalid cursor is dropped so the next run restarts the
// stage from its low-water-mark.
func (o *SyncOrchestrator) fail(ctx context.Context, run *activeRun, cp *domain.Checkpoint, runErr error) {
	log := logger.WithFields(logger.Fields{"connector": run.connectorID})
	if errors.Is(runErr, domain.ErrStatusConflict) {
		log.Warn("Connector lease lost; leaving status to its new holder")
		return
	}

	err := o.store.WithinTx(ctx, func(ctx context.Context, tx driven.Tx) error {
		moved, err := tx.Connectors().TransitionStatus(ctx, run.connectorID, domain.StatusChange{
			From:      []domain.ConnectorStatus{domain.StatusSyncing},
			To:        domain.StatusError,
			LastError: domain.TruncateError(runErr.Error()),
			HeldBy:    run.holder,
		})
		if err != nil || !moved {
			return err
		}
		if cp != nil && errors.Is(runErr, domain.ErrCursorInvalid) && cp.Stage.IsCrawl() {
			next := cp.Clone()
			np := next.Progress(cp.Stage)
			np.Cursor = ""
			np.SyncToken = ""
			return tx.Checkpoints().Save(ctx, run.connectorID, next)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to record sync failure")
	}
}

// discard removes objects landed for units that will not be committed.
func (o *SyncOrchestrator) discard(ctx context.Context, units []unit) {
	for i := range units {
		if units[i].landed == nil {
			continue
		}
		if err := o.objects.Delete(context.WithoutCancel(ctx), units[i].landed.Locator); err != nil {
			logger.Debug("Failed to discard object %s: %v", units[i].landed.Locator, err)
		}
	}
}

// dropSuperseded deletes the object an update replaced. Best effort: an
// orphaned object is harmless.
func (o *SyncOrchestrator) dropSuperseded(ctx context.Context, u *unit, doc *domain.Document) {
	if u.change.Action != domain.ChangeUpdate || u.prev == nil || u.prev.StorageLocator == "" {
		return
	}
	if doc != nil && doc.StorageLocator == u.prev.StorageLocator {
		return
	}
	if err := o.objects.Delete(ctx, u.prev.StorageLocator); err != nil {
		logger.Debug("Failed to delete superseded object %s: %v", u.prev.StorageLocator, err)
	}
}

func (o *SyncOrchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.settings.AdapterTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.settings.AdapterTimeout)
}

func (o *SyncOrchestrator) register(connectorID, holder string) *activeRun {
	o.mu.Lock()
	defer o.mu.Unlock()
	run := &activeRun{
		connectorID: connectorID,
		holder:      holder,
		status:      driving.SyncStatus{ConnectorID: connectorID, Running: true},
	}
	o.runs[connectorID] = run
	return run
}

func (o *SyncOrchestrator) unregister(connectorID string, run *activeRun) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runs[connectorID] == run {
		delete(o.runs, connectorID)
	}
}

func (o *SyncOrchestrator) updateStatus(run *activeRun, fn func(s *driving.SyncStatus)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&run.status)
}

// asTransient marks an adapter call timeout as transient. A deadline on the
// parent context is left alone so the run stops.
func asTransient(parent context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Errorf("%w: call timed out: %w", domain.ErrTransient, err)
	}
	return err
}

// objectLocator returns a fresh write-once locator for an item.
func objectLocator(connectorID, remoteID string) string {
	sum := sha256.Sum256([]byte(remoteID))
	return fmt.Sprintf("%s/%s/%s", connectorID, hex.EncodeToString(sum[:8]), uuid.NewString())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
