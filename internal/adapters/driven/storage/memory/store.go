// Package memory provides an in-memory record store.
// It is used by tests and by single-process runs that need no persistence.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RecordStore = (*Store)(nil)

// CommitHook runs after a transaction's work and before it is made visible.
// Returning an error rolls the transaction back.
type CommitHook func() error

// Store is an in-memory implementation of driven.RecordStore.
// Transactions are serialised and run against a copy of the data that
// replaces the live data on commit.
type Store struct {
	mu   sync.Mutex
	data *state
	hook CommitHook
}

type state struct {
	connectors map[string]domain.Connector
	documents  map[docKey]domain.Document
	outbox     []driven.OutboxEntry
}

type docKey struct {
	connectorID string
	remoteID    string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: newState()}
}

func newState() *state {
	return &state{
		connectors: make(map[string]domain.Connector),
		documents:  make(map[docKey]domain.Document),
	}
}

func (s *state) clone() *state {
	out := &state{
		connectors: make(map[string]domain.Connector, len(s.connectors)),
		documents:  make(map[docKey]domain.Document, len(s.documents)),
		outbox:     append([]driven.OutboxEntry(nil), s.outbox...),
	}
	for k, v := range s.connectors {
		out.connectors[k] = v
	}
	for k, v := range s.documents {
		out.documents[k] = v
	}
	return out
}

// SetCommitHook installs a hook called before every transaction commits.
// Tests use it to simulate a crash between units of work.
func (s *Store) SetCommitHook(hook CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// WithinTx runs fn against a snapshot and publishes it if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx driven.Tx) error) error {
	return s.within(ctx, true, fn)
}

func (s *Store) within(ctx context.Context, hooked bool, fn func(ctx context.Context, tx driven.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, &txView{st: snapshot}); err != nil {
		return err
	}
	if hooked && s.hook != nil {
		if err := s.hook(); err != nil {
			return err
		}
	}
	s.data = snapshot
	return nil
}

// Connectors returns a ConnectorStore where each call is its own transaction.
func (s *Store) Connectors() driven.ConnectorStore { return &connectorView{s: s} }

// Documents returns a DocumentStore where each call is its own transaction.
func (s *Store) Documents() driven.DocumentStore { return &documentView{s: s} }

// Checkpoints returns a CheckpointStore where each call is its own transaction.
func (s *Store) Checkpoints() driven.CheckpointStore { return &checkpointView{s: s} }

// Outbox returns an OutboxStore where each call is its own transaction.
func (s *Store) Outbox() driven.OutboxStore { return &outboxView{s: s} }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// do runs fn as a single-operation transaction that skips the commit hook.
func (s *Store) do(ctx context.Context, fn func(tx *txView) error) error {
	return s.within(ctx, false, func(_ context.Context, tx driven.Tx) error {
		return fn(tx.(*txView))
	})
}

// txView exposes one snapshot through the store interfaces.
type txView struct {
	st *state
}

func (t *txView) Connectors() driven.ConnectorStore   { return connectorOps{st: t.st} }
func (t *txView) Documents() driven.DocumentStore     { return documentOps{st: t.st} }
func (t *txView) Checkpoints() driven.CheckpointStore { return checkpointOps{st: t.st} }
func (t *txView) Outbox() driven.OutboxStore          { return outboxOps{st: t.st} }

func now() time.Time {
	return time.Now().UTC()
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// ==================== Connectors ====================

type connectorOps struct {
	st *state
}

func copyConnector(c domain.Connector) *domain.Connector {
	if c.Config != nil {
		cfg := make(map[string]string, len(c.Config))
		for k, v := range c.Config {
			cfg[k] = v
		}
		c.Config = cfg
	}
	c.Checkpoint = append([]byte(nil), c.Checkpoint...)
	return &c
}

func (o connectorOps) Get(_ context.Context, id string) (*domain.Connector, error) {
	c, ok := o.st.connectors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyConnector(c), nil
}

func (o connectorOps) List(_ context.Context) ([]domain.Connector, error) {
	out := make([]domain.Connector, 0, len(o.st.connectors))
	for _, c := range o.st.connectors {
		out = append(out, *copyConnector(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (o connectorOps) Save(_ context.Context, c domain.Connector) error {
	ts := now()
	if existing, ok := o.st.connectors[c.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = ts
	}
	c.UpdatedAt = ts
	o.st.connectors[c.ID] = *copyConnector(c)
	return nil
}

func (o connectorOps) TransitionStatus(_ context.Context, id string, change domain.StatusChange) (bool, error) {
	c, ok := o.st.connectors[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !change.Permits(&c) {
		return false, nil
	}
	c.Status = change.To
	c.LastError = change.LastError
	if change.LastSyncAt != nil {
		c.LastSyncAt = timePtr(change.LastSyncAt.UTC())
	}
	c.LeaseExpiresAt, c.LeaseHolder = nil, ""
	if change.LeaseUntil != nil {
		c.LeaseExpiresAt = timePtr(change.LeaseUntil.UTC())
		c.LeaseHolder = change.LeaseHolder
	}
	c.UpdatedAt = now()
	o.st.connectors[id] = c
	return true, nil
}

func (o connectorOps) RenewLease(_ context.Context, id, holder string, until time.Time) error {
	c, ok := o.st.connectors[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Status != domain.StatusSyncing || c.LeaseHolder != holder {
		return domain.ErrStatusConflict
	}
	c.LeaseExpiresAt = timePtr(until.UTC())
	o.st.connectors[id] = c
	return nil
}

func (o connectorOps) RecoverExpiredLeases(_ context.Context, at time.Time) ([]string, error) {
	var ids []string
	for id, c := range o.st.connectors {
		if !c.LeaseExpired(at) {
			continue
		}
		c.Status = domain.StatusPending
		c.LeaseExpiresAt, c.LeaseHolder = nil, ""
		c.UpdatedAt = now()
		o.st.connectors[id] = c
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (o connectorOps) Retire(_ context.Context, id string, at time.Time) error {
	c, ok := o.st.connectors[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = domain.StatusDisabled
	c.RetiredAt = timePtr(at.UTC())
	c.LeaseExpiresAt, c.LeaseHolder = nil, ""
	c.UpdatedAt = now()
	o.st.connectors[id] = c
	return nil
}

type connectorView struct {
	s *Store
}

func (v *connectorView) Get(ctx context.Context, id string) (c *domain.Connector, err error) {
	err = v.s.do(ctx, func(tx *txView) error {
		c, err = tx.Connectors().Get(ctx, id)
		return err
	})
	return c, err
}

func (v *connectorView) List(ctx context.Context) (cs []domain.Connector, err error) {
	err = v.s.do(ctx, func(tx *txView) error {
		cs, err = tx.Connectors().List(ctx)
		return err
	})
	return cs, err
}

func (v *connectorView) Save(ctx context.Context, c domain.Connector) error {
	return v.s.do(ctx, func(tx *txView) error {
		return tx.Connectors().Save(ctx, c)
	})
}

func (v *connectorView) TransitionStatus(ctx context.Context, id string, change domain.StatusChange) (moved bool, err error) {
	err = v.s.do(ctx, func(tx *txView) error {
		moved, err = tx.Connectors().TransitionStatus(ctx, id, change)
		return err
	})
	return moved, err
}

func (v *connectorView) RenewLease(ctx context.Context, id, holder string, until time.Time) error {
	return v.s.do(ctx, func(tx *txView) error {
		return tx.Connectors().RenewLease(ctx, id, holder, until)
	})
}

func (v *connectorView) RecoverExpiredLeases(ctx context.Context, at time.Time) (ids []string, err error) {
	err = v.s.do(ctx, func(tx *txView) error {
		ids, err = tx.Connectors().RecoverExpiredLeases(ctx, at)
		return err
	})
	return ids, err
}

func (v *connectorView) Retire(ctx context.Context, id string, at time.Time) error {
	return v.s.do(ctx, func(tx *txView) error {
		return tx.Connectors().Retire(ctx, id, at)
	})
}

// ==================== Documents ====================

type documentOps struct {
	st *state
}

func copyDocument(d domain.Document) *domain.Document {
	d.Access = domain.ExternalAccess{
		Users:    append([]string{}, d.Access.Users...),
		Groups:   append([]string{}, d.Access.Groups...),
		IsPublic: d.Access.IsPublic,
	}
	return &d
}

func (o documentOps) GetByRemoteID(_ context.Context, connectorID, remoteID string) (*domain.Document, error) {
	d, ok := o.st.documents[docKey{connectorID, remoteID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyDocument(d), nil
}

func (o documentOps) Get(_ context.Context, id string) (*domain.Document, error) {
	for _, d := range o.st.documents {
		if d.ID == id {
			return copyDocument(d), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (o documentOps) List(_ context.Context, connectorID string) ([]domain.Document, error) {
	var out []domain.Document
	for k, d := range o.st.documents {
		if k.connectorID == connectorID {
			out = append(out, *copyDocument(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemoteID < out[j].RemoteID })
	return out, nil
}

func (o documentOps) Save(_ context.Context, doc domain.Document) error {
	key := docKey{doc.ConnectorID, doc.RemoteID}
	if existing, ok := o.st.documents[key]; ok {
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	o.st.documents[key] = *copyDocument(doc)
	return nil
}

func (o documentOps) Tombstone(_ context.Context, connectorID, remoteID string, at time.Time) error {
	key := docKey{connectorID, remoteID}
	d, ok := o.st.documents[key]
	if !ok {
		return domain.ErrNotFound
	}
	d.DeletedAt = timePtr(at.UTC())
	d.UpdatedAt = at.UTC()
	o.st.documents[key] = d
	return nil
}

type documentView struct {
	s *Store
}

func (v *documentView) GetByRemoteID(ctx context.Context, connectorID, remoteID string) (d *domain.Document, err error) {
	err = v.s.do(ctx, func(tx *txView) error {
		d, err = tx.Documents().GetByRemoteID(ctx, connectorID, remoteID)
		return err
	})
	return d, err
}

func (v *documentView) Get(ctx context.Context, id string) (d *domain.Document, err error) {
	err = v.s.do(ctx, func(tx *txView) error {
		d, err = tx.Documents().Get(ctx, id)
		return err
	})
	return d, err
}

func (v *documentView) List(ctx context.Context, connectorID string) (ds []domain.Document, err error) {
	err = v.s.do(ctx, func(tx *txView) error {
		ds, err = tx.Documents().List(ctx, connectorID)
		return err
	})
	return ds, err
}

func (v *documentView) Save(ctx context.Context, doc domain.Document) error {
	return v.s.do(ctx, func(tx *txView) error {
		return tx.Documents().Save(ctx, doc)
	})
}

func (v *documentView) Tombstone(ctx context.Context, connectorID, remoteID string, at time.Time) error {
	return v.s.do(ctx, func(tx *txView) error {
		return tx.Documents().Tombstone(ctx, connectorID, remoteID, at)
	})
}

// ==================== Checkpoints ====================

type checkpointOps struct {
	st *state
}

func (o checkpointOps) Load(_ context.Context, connectorID string) (*domain.Checkpoint, error) {
	c, ok := o.st.connectors[connectorID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return domain.DecodeCheckpoint(c.Checkpoint)
}

func (o checkpointOps) Save(_ context.Context, connectorID string, cp *domain.Checkpoint) error {
	c, ok := o.st.connectors[connectorID]
	if !ok {
		return domain.ErrNotFound
	}
	data, err := cp.Encode()
	if err != nil {
		return err
	}
	c.Checkpoint = data
	c.UpdatedAt = now()
	o.st.connectors[connectorID] = c
	return nil
}

type checkpointView struct {
	s *Store
}

func (v *checkpointView) Load(ctx context.Context, connectorID string) (cp *domain.Checkpoint, err error) {
	err = v.s.do(ctx, func(tx *txView) error {
		cp, err = tx.Checkpoints().Load(ctx, connectorID)
		return err
	})
	return cp, err
}

func (v *checkpointView) Save(ctx context.Context, connectorID string, cp *domain.Checkpoint) error {
	return v.s.do(ctx, func(tx *txView) error {
		return tx.Checkpoints().Save(ctx, connectorID, cp)
	})
}

// ==================== Outbox ====================

type outboxOps struct {
	st *state
}

func (o outboxOps) Append(_ context.Context, event domain.LandedEvent) error {
	id := event.ID
	if id == "" {
		id = uuid.NewString()
		event.ID = id
	}
	o.st.outbox = append(o.st.outbox, driven.OutboxEntry{ID: id, Event: event, CreatedAt: now()})
	return nil
}

func (o outboxOps) Pending(_ context.Context, limit int) ([]driven.OutboxEntry, error) {
	n := len(o.st.outbox)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]driven.OutboxEntry(nil), o.st.outbox[:n]...), nil
}

func (o outboxOps) Remove(_ context.Context, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := o.st.outbox[:0:0]
	for _, e := range o.st.outbox {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	o.st.outbox = kept
	return nil
}

type outboxView struct {
	s *Store
}

func (v *outboxView) Append(ctx context.Context, event domain.LandedEvent) error {
	return v.s.do(ctx, func(tx *txView) error {
		return tx.Outbox().Append(ctx, event)
	})
}

func (v *outboxView) Pending(ctx context.Context, limit int) (es []driven.OutboxEntry, err error) {
	err = v.s.do(ctx, func(tx *txView) error {
		es, err = tx.Outbox().Pending(ctx, limit)
		return err
	})
	return es, err
}

func (v *outboxView) Remove(ctx context.Context, ids []string) error {
	return v.s.do(ctx, func(tx *txView) error {
		return tx.Outbox().Remove(ctx, ids)
	})
}
