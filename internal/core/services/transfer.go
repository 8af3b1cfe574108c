package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// TransferResult describes bytes landed at a locator.
type TransferResult struct {
	Locator     string
	ContentHash string
	Size        int64
}

// Transfer streams content into object storage with bounded memory.
type Transfer struct {
	objects   driven.ObjectStore
	chunkSize int
	maxSize   int64
}

// NewTransfer creates a transfer over objects. chunkSize bounds the copy
// buffer; maxSize of zero means unlimited.
func NewTransfer(objects driven.ObjectStore, chunkSize int, maxSize int64) *Transfer {
	if chunkSize <= 0 {
		chunkSize = domain.DefaultSyncSettings().ChunkSize
	}
	return &Transfer{objects: objects, chunkSize: chunkSize, maxSize: maxSize}
}

// Copy streams src to locator, hashing the bytes as they pass.
// On any failure the partially written object is aborted and nothing is
// visible at locator.
func (t *Transfer) Copy(ctx context.Context, src io.Reader, locator string) (*TransferResult, error) {
	w, err := t.objects.Create(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("%w: create object: %w", domain.ErrTransient, err)
	}

	hash := sha256.New()
	reader := &contextReader{ctx: ctx, r: src}
	var in io.Reader = reader
	if t.maxSize > 0 {
		// One extra byte distinguishes "exactly max" from "over max".
		in = io.LimitReader(reader, t.maxSize+1)
	}

	buf := make([]byte, t.chunkSize)
	n, err := io.CopyBuffer(io.MultiWriter(w, hash), onlyReader{in}, buf)
	if err == nil && t.maxSize > 0 && n > t.maxSize {
		err = fmt.Errorf("%w: more than %d bytes", domain.ErrObjectTooLarge, t.maxSize)
	}
	if err != nil {
		if abortErr := w.Abort(); abortErr != nil {
			logger.Warn("abort object %s: %v", locator, abortErr)
		}
		return nil, classifyCopyError(err)
	}

	if err := w.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit object: %w", domain.ErrTransient, err)
	}

	return &TransferResult{
		Locator:     locator,
		ContentHash: "sha256:" + hex.EncodeToString(hash.Sum(nil)),
		Size:        n,
	}, nil
}

func classifyCopyError(err error) error {
	switch {
	case errors.Is(err, domain.ErrObjectTooLarge),
		errors.Is(err, context.Canceled),
		errors.Is(err, domain.ErrAuthExpired),
		errors.Is(err, domain.ErrTransient):
		return err
	default:
		return fmt.Errorf("%w: copy: %w", domain.ErrTransient, err)
	}
}

// onlyReader hides WriterTo/ReaderFrom so io.CopyBuffer always uses buf.
type onlyReader struct {
	io.Reader
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
