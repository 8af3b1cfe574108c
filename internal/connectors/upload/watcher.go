package upload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 2 * time.Second

// Watcher observes upload directories and calls onChange, debounced per
// connector, when files are created, written, removed or renamed.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange func(connectorID string)

	mu     sync.Mutex
	roots  map[string]string // dir -> connector id
	timers map[string]*time.Timer

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher. A non-positive debounce uses DefaultDebounce.
func NewWatcher(debounce time.Duration, onChange func(connectorID string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		onChange: onChange,
		roots:    make(map[string]string),
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}, nil
}

// Add watches dir and its non-hidden subdirectories for a connector.
func (w *Watcher) Add(connectorID, dir string) error {
	dir = filepath.Clean(dir)
	w.mu.Lock()
	w.roots[dir] = connectorID
	w.mu.Unlock()
	return w.addTree(dir)
}

// Remove stops reporting changes for a connector.
func (w *Watcher) Remove(connectorID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for dir, id := range w.roots {
		if id != connectorID {
			continue
		}
		delete(w.roots, dir)
		_ = w.fsw.Remove(dir)
	}
	if t, ok := w.timers[connectorID]; ok {
		t.Stop()
		delete(w.timers, connectorID)
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// Start processes events until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("upload watcher: %v", err)
			}
		}
	}()
}

// Stop halts event processing and pending callbacks.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()

		w.mu.Lock()
		for id, t := range w.timers {
			t.Stop()
			delete(w.timers, id)
		}
		w.mu.Unlock()
	})
	return err
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	connectorID, rel, ok := w.resolve(event.Name)
	if !ok || isHidden(rel) {
		return
	}

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logger.Warn("upload watcher: watch %s: %v", event.Name, err)
			}
		}
	}

	logger.Debug("upload watcher: %s %s", event.Op, event.Name)
	w.schedule(connectorID)
}

// resolve finds the connector whose root contains name.
func (w *Watcher) resolve(name string) (string, string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	best := ""
	for dir := range w.roots {
		if (name == dir || strings.HasPrefix(name, dir+string(filepath.Separator))) && len(dir) > len(best) {
			best = dir
		}
	}
	if best == "" {
		return "", "", false
	}
	rel, err := filepath.Rel(best, name)
	if err != nil || rel == "." {
		return "", "", false
	}
	return w.roots[best], rel, true
}

func (w *Watcher) schedule(connectorID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[connectorID]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[connectorID] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, connectorID)
		w.mu.Unlock()
		select {
		case <-w.done:
			return
		default:
		}
		w.onChange(connectorID)
	})
}
