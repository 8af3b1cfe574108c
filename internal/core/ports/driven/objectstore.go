package driven

import (
	"context"
	"io"
	"time"
)

// ObjectStore holds landed bytes. Locators are write-once: a new version of
// an item is written to a fresh locator, never over an existing one.
type ObjectStore interface {
	// Create opens a writer for locator. Bytes are not visible at the
	// locator until Commit.
	Create(ctx context.Context, locator string) (ObjectWriter, error)

	// Open reads committed bytes at locator.
	Open(ctx context.Context, locator string) (io.ReadCloser, error)

	// Delete removes committed bytes. Missing objects are not an error.
	Delete(ctx context.Context, locator string) error

	// CleanupPartial removes uncommitted objects older than maxAge and
	// returns how many were removed.
	CleanupPartial(ctx context.Context, maxAge time.Duration) (int, error)
}

// ObjectWriter is an in-progress object. Exactly one of Commit or Abort
// must be called.
type ObjectWriter interface {
	io.Writer
	Commit() error
	Abort() error
}
