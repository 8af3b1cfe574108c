package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq" // Postgres driver

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure PostgresQueue implements the interface.
var _ driven.MessageQueue = (*PostgresQueue)(nil)

const (
	postgresTriggerTableName  = "ingest_queue"
	postgresOperationTimeout  = 5 * time.Second
	postgresQueuePollInterval = 250 * time.Millisecond
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// PostgresQueue is a queue table shared by every worker process. Receivers
// claim rows with FOR UPDATE SKIP LOCKED and hide them by pushing visible_at
// forward, so a worker that dies mid-run releases its message on timeout.
type PostgresQueue struct {
	dsn          string
	tableName    string
	queueKey     string
	visibility   time.Duration
	pollInterval time.Duration
	openDB       sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

// NewPostgresQueue creates a queue on the named logical queue. The table is
// created on first use.
func NewPostgresQueue(dsn, queueKey string, visibility time.Duration) (*PostgresQueue, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty postgres dsn", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(queueKey) == "" {
		return nil, fmt.Errorf("%w: empty queue name", domain.ErrInvalidInput)
	}
	if visibility <= 0 {
		visibility = defaultVisibilityTimeout
	}
	return &PostgresQueue{
		dsn:          dsn,
		tableName:    postgresTriggerTableName,
		queueKey:     queueKey,
		visibility:   visibility,
		pollInterval: postgresQueuePollInterval,
		openDB:       sql.Open,
	}, nil
}

func (q *PostgresQueue) ensureReady() error {
	q.initOnce.Do(func() {
		db, err := q.openDB("postgres", q.dsn)
		if err != nil {
			q.initErr = err
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
		defer cancel()

		createTableQuery := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				queue_key TEXT NOT NULL,
				payload TEXT NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0,
				visible_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, quoteIdentifier(q.tableName))
		if _, err := db.ExecContext(ctx, createTableQuery); err != nil {
			_ = db.Close()
			q.initErr = err
			return
		}
		createIndexQuery := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s (queue_key, visible_at, id)",
			quoteIdentifier(q.tableName+"_visible_idx"),
			quoteIdentifier(q.tableName),
		)
		if _, err := db.ExecContext(ctx, createIndexQuery); err != nil {
			_ = db.Close()
			q.initErr = err
			return
		}
		q.db = db
	})
	return q.initErr
}

// Publish inserts payload as a visible message.
func (q *PostgresQueue) Publish(ctx context.Context, payload []byte) error {
	if err := q.ensureReady(); err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT INTO %s (queue_key, payload) VALUES ($1, $2)", quoteIdentifier(q.tableName))
	if _, err := q.db.ExecContext(ctx, query, q.queueKey, string(payload)); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Receive polls until a visible message can be claimed or ctx is done.
func (q *PostgresQueue) Receive(ctx context.Context) (*driven.Delivery, error) {
	if err := q.ensureReady(); err != nil {
		return nil, err
	}
	for {
		d, err := q.tryReceive(ctx)
		if err != nil || d != nil {
			return d, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.pollInterval):
		}
	}
}

func (q *PostgresQueue) tryReceive(ctx context.Context) (*driven.Delivery, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	query := fmt.Sprintf(`
		SELECT id, payload, attempts
		FROM %s
		WHERE queue_key = $1 AND visible_at <= NOW()
		ORDER BY id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, quoteIdentifier(q.tableName))
	var id int64
	var payload string
	var attempts int
	err = tx.QueryRowContext(ctx, query, q.queueKey).Scan(&id, &payload, &attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}

	claimQuery := fmt.Sprintf(
		"UPDATE %s SET attempts = attempts + 1, visible_at = NOW() + $2 * INTERVAL '1 millisecond' WHERE id = $1",
		quoteIdentifier(q.tableName))
	if _, err := tx.ExecContext(ctx, claimQuery, id, q.visibility.Milliseconds()); err != nil {
		return nil, fmt.Errorf("claim message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim message: %w", err)
	}
	committed = true

	return &driven.Delivery{
		ID:       strconv.FormatInt(id, 10),
		Payload:  []byte(payload),
		Attempts: attempts + 1,
	}, nil
}

// Ack deletes the message.
func (q *PostgresQueue) Ack(ctx context.Context, id string) error {
	if err := q.ensureReady(); err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", quoteIdentifier(q.tableName))
	return q.execOne(ctx, query, id)
}

// Nack hides the message for delay.
func (q *PostgresQueue) Nack(ctx context.Context, id string, delay time.Duration) error {
	if err := q.ensureReady(); err != nil {
		return err
	}
	query := fmt.Sprintf(
		"UPDATE %s SET visible_at = NOW() + $2 * INTERVAL '1 millisecond' WHERE id = $1",
		quoteIdentifier(q.tableName))
	return q.execOne(ctx, query, id, delay.Milliseconds())
}

func (q *PostgresQueue) execOne(ctx context.Context, query, id string, args ...any) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: message id %q", domain.ErrInvalidInput, id)
	}
	res, err := q.db.ExecContext(ctx, query, append([]any{n}, args...)...)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Close closes the database handle.
func (q *PostgresQueue) Close() error {
	if q.db == nil {
		return nil
	}
	return q.db.Close()
}

func quoteIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return `""`
	}
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
