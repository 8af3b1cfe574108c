// Package objectstore provides a filesystem-backed object store for landed bytes.
//
// Objects are written to "<locator>.partial" and renamed into place on
// commit, so a reader never observes a half-written object. The filesystem
// is an afero.Fs, which lets tests run against an in-memory filesystem.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ObjectStore = (*Store)(nil)

const partialSuffix = ".partial"

// Store keeps objects as files under a root directory.
type Store struct {
	fs    afero.Fs
	root  string
	clock clockwork.Clock
}

// NewStore creates an object store rooted at root on fs.
// If root is empty, defaults to ~/.sercha-ingest/objects.
func NewStore(fs afero.Fs, root string, clock clockwork.Clock) (*Store, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		root = filepath.Join(home, ".sercha-ingest", "objects")
	}
	if err := fs.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("creating object directory: %w", err)
	}
	return &Store{fs: fs, root: root, clock: clock}, nil
}

// Root returns the directory objects are stored under.
func (s *Store) Root() string {
	return s.root
}

// Create opens a writer for locator. Locators are write-once.
func (s *Store) Create(_ context.Context, locator string) (driven.ObjectWriter, error) {
	final, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	if _, err := s.fs.Stat(final); err == nil {
		return nil, fmt.Errorf("%w: object %s", domain.ErrAlreadyExists, locator)
	}
	if err := s.fs.MkdirAll(filepath.Dir(final), 0700); err != nil {
		return nil, fmt.Errorf("creating object directory: %w", err)
	}

	partial := final + partialSuffix
	f, err := s.fs.OpenFile(partial, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating partial object: %w", err)
	}
	return &writer{fs: s.fs, file: f, partial: partial, final: final}, nil
}

// Open reads a committed object.
func (s *Store) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	final, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(final)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, locator)
		}
		return nil, fmt.Errorf("opening object: %w", err)
	}
	return f, nil
}

// Delete removes a committed object. Missing objects are ignored.
func (s *Store) Delete(_ context.Context, locator string) error {
	final, err := s.resolve(locator)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(final); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}

// CleanupPartial removes partial objects last written more than maxAge ago.
func (s *Store) CleanupPartial(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.clock.Now().Add(-maxAge)
	removed := 0

	err := afero.Walk(s.fs, s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() || !strings.HasSuffix(p, partialSuffix) {
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("cleaning partial objects: %w", err)
	}
	return removed, nil
}

// resolve maps a locator to a path under root. Locators are relative,
// slash-separated and may not escape the root.
func (s *Store) resolve(locator string) (string, error) {
	if locator == "" || strings.HasPrefix(locator, "/") || strings.HasSuffix(locator, partialSuffix) {
		return "", fmt.Errorf("%w: bad locator %q", domain.ErrInvalidInput, locator)
	}
	clean := path.Clean(locator)
	if clean != locator || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: bad locator %q", domain.ErrInvalidInput, locator)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// writer is an in-progress object.
type writer struct {
	fs      afero.Fs
	file    afero.File
	partial string
	final   string
	done    bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.done {
		return 0, os.ErrClosed
	}
	return w.file.Write(p)
}

// Commit flushes the object to stable storage and makes it visible at
// its locator.
func (w *writer) Commit() error {
	if w.done {
		return os.ErrClosed
	}
	w.done = true
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		_ = w.fs.Remove(w.partial)
		return fmt.Errorf("syncing object: %w", err)
	}
	if err := w.file.Close(); err != nil {
		_ = w.fs.Remove(w.partial)
		return fmt.Errorf("closing object: %w", err)
	}
	if err := w.fs.Rename(w.partial, w.final); err != nil {
		_ = w.fs.Remove(w.partial)
		return fmt.Errorf("committing object: %w", err)
	}
	return nil
}

// Abort discards the partial object.
func (w *writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	closeErr := w.file.Close()
	if err := w.fs.Remove(w.partial); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing partial object: %w", err)
	}
	return closeErr
}
