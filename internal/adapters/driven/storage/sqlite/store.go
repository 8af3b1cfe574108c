package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RecordStore = (*Store)(nil)

// Store is a SQLite-based record store that provides access to
// all record store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-ingest/data/ingest.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-ingest", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ingest.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Connectors returns a ConnectorStore backed by this store.
func (s *Store) Connectors() driven.ConnectorStore {
	return &connectorStore{q: s.db}
}

// Documents returns a DocumentStore backed by this store.
func (s *Store) Documents() driven.DocumentStore {
	return &documentStore{q: s.db}
}

// Checkpoints returns a CheckpointStore backed by this store.
func (s *Store) Checkpoints() driven.CheckpointStore {
	return &checkpointStore{q: s.db}
}

// Outbox returns an OutboxStore backed by this store.
func (s *Store) Outbox() driven.OutboxStore {
	return &outboxStore{q: s.db}
}

// WithinTx runs fn in a database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx driven.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, &txStores{q: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStores exposes one transaction through the store interfaces.
type txStores struct {
	q querier
}

func (t *txStores) Connectors() driven.ConnectorStore   { return &connectorStore{q: t.q} }
func (t *txStores) Documents() driven.DocumentStore     { return &documentStore{q: t.q} }
func (t *txStores) Checkpoints() driven.CheckpointStore { return &checkpointStore{q: t.q} }
func (t *txStores) Outbox() driven.OutboxStore          { return &outboxStore{q: t.q} }

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Connector Store ====================

// connectorStore implements driven.ConnectorStore.
type connectorStore struct {
	q querier
}

var _ driven.ConnectorStore = (*connectorStore)(nil)

const connectorColumns = `id, provider, name, owner_id, visibility_scope, visibility_scope_id, status,
	refresh_interval_ns, last_sync_at, config, credential_id, checkpoint, last_error,
	lease_expires_at, lease_holder, retired_at, created_at, updated_at`

// Get retrieves a connector by ID.
func (s *connectorStore) Get(ctx context.Context, id string) (*domain.Connector, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+connectorColumns+` FROM connectors WHERE id = ?`, id)
	c, err := scanConnector(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning connector: %w", err)
	}
	return c, nil
}

// List returns all connectors ordered by ID.
func (s *connectorStore) List(ctx context.Context) ([]domain.Connector, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+connectorColumns+` FROM connectors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying connectors: %w", err)
	}
	defer rows.Close()

	var connectors []domain.Connector //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanConnector(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connector: %w", err)
		}
		connectors = append(connectors, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connectors: %w", err)
	}
	return connectors, nil
}

// Save stores or replaces a connector.
func (s *connectorStore) Save(ctx context.Context, c domain.Connector) error {
	configJSON, err := json.Marshal(c.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	var interval any
	if c.RefreshInterval != nil {
		interval = int64(*c.RefreshInterval)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO connectors (`+connectorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			name = excluded.name,
			owner_id = excluded.owner_id,
			visibility_scope = excluded.visibility_scope,
			visibility_scope_id = excluded.visibility_scope_id,
			status = excluded.status,
			refresh_interval_ns = excluded.refresh_interval_ns,
			last_sync_at = excluded.last_sync_at,
			config = excluded.config,
			credential_id = excluded.credential_id,
			checkpoint = excluded.checkpoint,
			last_error = excluded.last_error,
			lease_expires_at = excluded.lease_expires_at,
			lease_holder = excluded.lease_holder,
			retired_at = excluded.retired_at,
			updated_at = excluded.updated_at
	`, c.ID, string(c.Provider), c.Name, c.OwnerID, string(c.Visibility.Scope), nullString(c.Visibility.ScopeID),
		string(c.Status), interval, nullTime(c.LastSyncAt), string(configJSON), nullString(c.CredentialID),
		c.Checkpoint, c.LastError, nullTime(c.LeaseExpiresAt), c.LeaseHolder, nullTime(c.RetiredAt),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving connector: %w", err)
	}
	return nil
}

// TransitionStatus applies change only if the stored status is one of change.From.
func (s *connectorStore) TransitionStatus(ctx context.Context, id string, change domain.StatusChange) (bool, error) {
	if len(change.From) == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}

	holder := ""
	if change.LeaseUntil != nil {
		holder = change.LeaseHolder
	}
	placeholders := make([]string, len(change.From))
	args := []any{
		string(change.To),
		change.LastError,
		nullTime(change.LastSyncAt),
		nullTime(change.LeaseUntil),
		holder,
		formatTime(time.Now().UTC()),
		id,
	}
	for i, from := range change.From {
		placeholders[i] = "?"
		args = append(args, string(from))
	}
	where := `id = ? AND status IN (` + strings.Join(placeholders, ", ") + `)`
	if change.HeldBy != "" {
		where += ` AND lease_holder = ?`
		args = append(args, change.HeldBy)
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE connectors SET
			status = ?,
			last_error = ?,
			last_sync_at = COALESCE(?, last_sync_at),
			lease_expires_at = ?,
			lease_holder = ?,
			updated_at = ?
		WHERE `+where, args...)
	if err != nil {
		return false, fmt.Errorf("updating connector status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	// Distinguish a status mismatch from a missing connector.
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// RenewLease extends the lease held by holder.
func (s *connectorStore) RenewLease(ctx context.Context, id, holder string, until time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE connectors SET lease_expires_at = ? WHERE id = ? AND status = ? AND lease_holder = ?
	`, formatTime(until), id, string(domain.StatusSyncing), holder)
	if err != nil {
		return fmt.Errorf("renewing lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return domain.ErrStatusConflict
	}
	return nil
}

// RecoverExpiredLeases moves syncing connectors with a lapsed lease back to pending.
func (s *connectorStore) RecoverExpiredLeases(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+connectorColumns+` FROM connectors WHERE status = ?`,
		string(domain.StatusSyncing))
	if err != nil {
		return nil, fmt.Errorf("querying syncing connectors: %w", err)
	}

	var expired []domain.Connector
	for rows.Next() {
		c, err := scanConnector(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning connector: %w", err)
		}
		if c.LeaseExpired(now) {
			expired = append(expired, *c)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating connectors: %w", err)
	}
	rows.Close()

	var ids []string
	for i := range expired {
		c := &expired[i]
		// Gate on the lease we saw so a renewal in between wins.
		res, err := s.q.ExecContext(ctx, `
			UPDATE connectors SET status = ?, lease_expires_at = NULL, lease_holder = '', updated_at = ?
			WHERE id = ? AND status = ? AND lease_expires_at = ?
		`, string(domain.StatusPending), formatTime(time.Now().UTC()), c.ID,
			string(domain.StatusSyncing), formatTime(*c.LeaseExpiresAt))
		if err != nil {
			return ids, fmt.Errorf("recovering connector %s: %w", c.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

// Retire soft-retires a connector.
func (s *connectorStore) Retire(ctx context.Context, id string, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE connectors SET status = ?, retired_at = ?, lease_expires_at = NULL, lease_holder = '', updated_at = ?
		WHERE id = ?
	`, string(domain.StatusDisabled), formatTime(at), formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("retiring connector: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConnector(row scanner) (*domain.Connector, error) {
	var c domain.Connector
	var provider, scope, status, configJSON string
	var scopeID, credentialID, lastSync, lease, retired sql.NullString
	var createdAt, updatedAt string
	var interval sql.NullInt64
	var checkpoint []byte

	if err := row.Scan(&c.ID, &provider, &c.Name, &c.OwnerID, &scope, &scopeID, &status,
		&interval, &lastSync, &configJSON, &credentialID, &checkpoint, &c.LastError,
		&lease, &c.LeaseHolder, &retired, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	c.Provider = domain.ProviderType(provider)
	c.Visibility = domain.Visibility{Scope: domain.VisibilityScope(scope), ScopeID: scopeID.String}
	c.Status = domain.ConnectorStatus(status)
	c.CredentialID = credentialID.String
	c.Checkpoint = checkpoint
	if interval.Valid {
		d := time.Duration(interval.Int64)
		c.RefreshInterval = &d
	}
	if err := json.Unmarshal([]byte(configJSON), &c.Config); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	var err error
	if c.LastSyncAt, err = parseNullTime(lastSync); err != nil {
		return nil, err
	}
	if c.LeaseExpiresAt, err = parseNullTime(lease); err != nil {
		return nil, err
	}
	if c.RetiredAt, err = parseNullTime(retired); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	q querier
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, connector_id, remote_id, name, storage_locator, fingerprint, content_hash,
	media_type, size, access, status, deleted_at, created_at, updated_at`

// GetByRemoteID returns the document for a remote item.
func (s *documentStore) GetByRemoteID(ctx context.Context, connectorID, remoteID string) (*domain.Document, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE connector_id = ? AND remote_id = ?`, connectorID, remoteID)
	return oneDocument(row)
}

// Get retrieves a document by ID.
func (s *documentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return oneDocument(row)
}

// List returns all documents for a connector ordered by remote ID.
func (s *documentStore) List(ctx context.Context, connectorID string) ([]domain.Document, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE connector_id = ? ORDER BY remote_id`, connectorID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Save upserts a document keyed by connector and remote ID. An existing
// row keeps its ID and creation time.
func (s *documentStore) Save(ctx context.Context, doc domain.Document) error {
	accessJSON, err := json.Marshal(doc.Access)
	if err != nil {
		return fmt.Errorf("marshalling access: %w", err)
	}

	now := time.Now().UTC()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(connector_id, remote_id) DO UPDATE SET
			name = excluded.name,
			storage_locator = excluded.storage_locator,
			fingerprint = excluded.fingerprint,
			content_hash = excluded.content_hash,
			media_type = excluded.media_type,
			size = excluded.size,
			access = excluded.access,
			status = excluded.status,
			deleted_at = excluded.deleted_at,
			updated_at = excluded.updated_at
	`, doc.ID, doc.ConnectorID, doc.RemoteID, doc.Name, doc.StorageLocator, doc.Fingerprint,
		doc.ContentHash, doc.MediaType, doc.Size, string(accessJSON), string(doc.Status),
		nullTime(doc.DeletedAt), formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Tombstone marks a document deleted.
func (s *documentStore) Tombstone(ctx context.Context, connectorID, remoteID string, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE documents SET deleted_at = ?, updated_at = ?
		WHERE connector_id = ? AND remote_id = ?
	`, formatTime(at), formatTime(at), connectorID, remoteID)
	if err != nil {
		return fmt.Errorf("tombstoning document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func oneDocument(row *sql.Row) (*domain.Document, error) {
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return d, nil
}

func scanDocument(row scanner) (*domain.Document, error) {
	var d domain.Document
	var accessJSON, status, createdAt, updatedAt string
	var deletedAt sql.NullString

	if err := row.Scan(&d.ID, &d.ConnectorID, &d.RemoteID, &d.Name, &d.StorageLocator, &d.Fingerprint,
		&d.ContentHash, &d.MediaType, &d.Size, &accessJSON, &status, &deletedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(accessJSON), &d.Access); err != nil {
		return nil, fmt.Errorf("unmarshalling access: %w", err)
	}
	d.Status = domain.DocumentStatus(status)

	var err error
	if d.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// ==================== Checkpoint Store ====================

// checkpointStore implements driven.CheckpointStore over the connector row.
type checkpointStore struct {
	q querier
}

var _ driven.CheckpointStore = (*checkpointStore)(nil)

// Load decodes the connector's checkpoint.
func (s *checkpointStore) Load(ctx context.Context, connectorID string) (*domain.Checkpoint, error) {
	var blob []byte
	err := s.q.QueryRowContext(ctx, `SELECT checkpoint FROM connectors WHERE id = ?`, connectorID).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	return domain.DecodeCheckpoint(blob)
}

// Save replaces the connector's checkpoint.
func (s *checkpointStore) Save(ctx context.Context, connectorID string, cp *domain.Checkpoint) error {
	blob, err := cp.Encode()
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `UPDATE connectors SET checkpoint = ?, updated_at = ? WHERE id = ?`,
		blob, formatTime(time.Now().UTC()), connectorID)
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Outbox Store ====================

// outboxStore implements driven.OutboxStore.
type outboxStore struct {
	q querier
}

var _ driven.OutboxStore = (*outboxStore)(nil)

// Append adds an event to the outbox.
func (s *outboxStore) Append(ctx context.Context, event domain.LandedEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `INSERT INTO outbox (id, payload, created_at) VALUES (?, ?, ?)`,
		event.ID, string(payload), formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("appending to outbox: %w", err)
	}
	return nil
}

// Pending returns the oldest unrelayed events.
func (s *outboxStore) Pending(ctx context.Context, limit int) ([]driven.OutboxEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.q.QueryContext(ctx, `SELECT id, payload, created_at FROM outbox ORDER BY seq LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying outbox: %w", err)
	}
	defer rows.Close()

	var entries []driven.OutboxEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry driven.OutboxEntry
		var payload, createdAt string
		if err := rows.Scan(&entry.ID, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning outbox entry: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &entry.Event); err != nil {
			return nil, fmt.Errorf("unmarshalling event: %w", err)
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outbox: %w", err)
	}
	return entries, nil
}

// Remove deletes relayed events.
func (s *outboxStore) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	_, err := s.q.ExecContext(ctx, `DELETE FROM outbox WHERE id IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return fmt.Errorf("removing outbox entries: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// nullString converts empty strings to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// formatTime renders times in a fixed-width UTC layout so stored values compare correctly.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
