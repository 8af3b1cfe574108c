package upload

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newTestWatcher(t *testing.T) (*Watcher, *recorder, string) {
	t.Helper()
	rec := &recorder{}
	w, err := NewWatcher(20*time.Millisecond, rec.record)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	dir := t.TempDir()
	require.NoError(t, w.Add("c1", dir))
	return w, rec, dir
}

func TestWatcher_HandleEvent(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		op    fsnotify.Op
		fires bool
	}{
		{"create", "a.txt", fsnotify.Create, true},
		{"write", "a.txt", fsnotify.Write, true},
		{"remove", "a.txt", fsnotify.Remove, true},
		{"rename", "a.txt", fsnotify.Rename, true},
		{"chmod only", "a.txt", fsnotify.Chmod, false},
		{"hidden file", ".a.txt.swp", fsnotify.Write, false},
		{"state dir", ".ingest/manifest.json", fsnotify.Write, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, rec, dir := newTestWatcher(t)
			w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, tt.path), Op: tt.op})

			if tt.fires {
				assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
				assert.Equal(t, []string{"c1"}, rec.snapshot())
			} else {
				time.Sleep(60 * time.Millisecond)
				assert.Empty(t, rec.snapshot())
			}
		})
	}
}

func TestWatcher_IgnoresUnknownPaths(t *testing.T) {
	w, rec, _ := newTestWatcher(t)
	w.handleEvent(fsnotify.Event{Name: "/somewhere/else.txt", Op: fsnotify.Create})
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	w, rec, dir := newTestWatcher(t)
	for i := 0; i < 5; i++ {
		w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "a.txt"), Op: fsnotify.Write})
	}
	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestWatcher_EndToEnd(t *testing.T) {
	w, rec, dir := newTestWatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.Eventually(t, func() bool { return len(rec.snapshot()) >= 1 }, 2*time.Second, 10*time.Millisecond)

	// New subdirectories are watched too.
	before := len(rec.snapshot())
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "doc.txt"), []byte("hi"), 0o644))
	assert.Eventually(t, func() bool { return len(rec.snapshot()) > before }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_RemoveAndStop(t *testing.T) {
	w, rec, dir := newTestWatcher(t)
	w.Remove("c1")
	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "a.txt"), Op: fsnotify.Create})

	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop(), "stop is idempotent")
	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}
