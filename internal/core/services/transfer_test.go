package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

type failingReader struct {
	data string
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	return copy(p, r.data), nil
}

// patternReader generates n bytes without holding them in memory.
type patternReader struct {
	remaining int64
	pos       int64
}

func (r *patternReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	for i := range p {
		p[i] = byte('a' + (r.pos+int64(i))%26)
	}
	r.pos += int64(len(p))
	r.remaining -= int64(len(p))
	return len(p), nil
}

// countingObjects discards every byte written, recording totals only.
type countingObjects struct {
	mu      sync.Mutex
	written int64
	largest int
}

func (c *countingObjects) Create(context.Context, string) (driven.ObjectWriter, error) {
	return &countingWriter{objects: c}, nil
}

func (c *countingObjects) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, domain.ErrNotFound
}

func (c *countingObjects) Delete(context.Context, string) error { return nil }

func (c *countingObjects) CleanupPartial(context.Context, time.Duration) (int, error) { return 0, nil }

type countingWriter struct {
	objects *countingObjects
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.objects.mu.Lock()
	defer w.objects.mu.Unlock()
	w.objects.written += int64(len(p))
	if len(p) > w.objects.largest {
		w.objects.largest = len(p)
	}
	return len(p), nil
}

func (w *countingWriter) Commit() error { return nil }
func (w *countingWriter) Abort() error  { return nil }

func TestTransfer_LargeObjectUsesBoundedMemory(t *testing.T) {
	const (
		size      = 64 << 20
		chunkSize = 256 << 10
	)
	want := sha256.New()
	_, err := io.Copy(want, &patternReader{remaining: size})
	require.NoError(t, err)

	objects := &countingObjects{}
	tr := NewTransfer(objects, chunkSize, 0)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	res, err := tr.Copy(context.Background(), &patternReader{remaining: size}, "c1/big/1")

	runtime.ReadMemStats(&after)
	require.NoError(t, err)

	assert.Equal(t, int64(size), res.Size)
	assert.Equal(t, int64(size), objects.written)
	assert.LessOrEqual(t, objects.largest, chunkSize)
	assert.Equal(t, "sha256:"+hex.EncodeToString(want.Sum(nil)), res.ContentHash)

	allocated := after.TotalAlloc - before.TotalAlloc
	assert.Less(t, allocated, uint64(4<<20), "allocated %d bytes to stream %d", allocated, size)
}

func TestTransfer_Copy(t *testing.T) {
	objects := newMockObjects()
	tr := NewTransfer(objects, 8, 0)
	body := strings.Repeat("0123456789", 10)

	res, err := tr.Copy(context.Background(), strings.NewReader(body), "c1/x/1")
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(body))
	assert.Equal(t, "sha256:"+hex.EncodeToString(sum[:]), res.ContentHash)
	assert.Equal(t, int64(len(body)), res.Size)
	assert.Equal(t, "c1/x/1", res.Locator)
	assert.LessOrEqual(t, objects.largest, 8)

	got, ok := objects.get("c1/x/1")
	require.True(t, ok)
	assert.Equal(t, body, got)
}

func TestTransfer_MaxSize(t *testing.T) {
	objects := newMockObjects()
	tr := NewTransfer(objects, 4, 10)

	_, err := tr.Copy(context.Background(), strings.NewReader(strings.Repeat("x", 10)), "exact")
	require.NoError(t, err)

	_, err = tr.Copy(context.Background(), strings.NewReader(strings.Repeat("x", 11)), "over")
	assert.ErrorIs(t, err, domain.ErrObjectTooLarge)
	assert.Equal(t, domain.ClassItemTerminal, Classify(err))

	_, ok := objects.get("over")
	assert.False(t, ok)
	assert.Equal(t, 1, objects.aborted)
}

func TestTransfer_ReadFailureAborts(t *testing.T) {
	objects := newMockObjects()
	tr := NewTransfer(objects, 4, 0)

	_, err := tr.Copy(context.Background(), &failingReader{data: "abc", err: errors.New("connection reset")}, "loc")
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, 1, objects.aborted)
	assert.Zero(t, objects.count())
}

func TestTransfer_CancelledContext(t *testing.T) {
	objects := newMockObjects()
	tr := NewTransfer(objects, 4, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Copy(ctx, strings.NewReader("data"), "loc")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, objects.aborted)
}

func TestTransfer_CreateFailureIsTransient(t *testing.T) {
	objects := newMockObjects()
	objects.createErr = errors.New("bucket unavailable")
	tr := NewTransfer(objects, 4, 0)

	_, err := tr.Copy(context.Background(), strings.NewReader("data"), "loc")
	assert.ErrorIs(t, err, domain.ErrTransient)
}
