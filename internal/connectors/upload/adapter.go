package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

const defaultPageSize = 200

// Adapter serves files from a local upload directory.
type Adapter struct {
	connectorID string
	ownerID     string
	config      *Config
	fs          afero.Fs
	clock       clockwork.Clock

	mu     sync.Mutex
	closed bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithFs replaces the filesystem the adapter reads.
func WithFs(fsys afero.Fs) Option {
	return func(a *Adapter) { a.fs = fsys }
}

// WithClock replaces the clock used to stamp the manifest.
func WithClock(clock clockwork.Clock) Option {
	return func(a *Adapter) { a.clock = clock }
}

// New creates an upload adapter. Upload connectors need no credential.
func New(connector *domain.Connector, opts ...Option) (*Adapter, error) {
	cfg, err := ParseConfig(connector)
	if err != nil {
		return nil, err
	}
	a := &Adapter{
		connectorID: connector.ID,
		ownerID:     connector.OwnerID,
		config:      cfg,
		fs:          afero.NewOsFs(),
		clock:       clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(a)
	}

	info, err := a.fs.Stat(cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: upload dir %s", domain.ErrNotFound, cfg.Dir)
		}
		return nil, fmt.Errorf("%w: stat upload dir: %w", domain.ErrTransient, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, cfg.Dir)
	}
	return a, nil
}

// Builder is the AdapterBuilder for manual-upload connectors.
func Builder(_ context.Context, connector *domain.Connector, _ driven.TokenProvider) (driven.SourceAdapter, error) {
	return New(connector)
}

// Provider returns the provider type.
func (a *Adapter) Provider() domain.ProviderType {
	return domain.ProviderManualUpload
}

// Stages returns the crawl stages.
func (a *Adapter) Stages() []domain.Stage {
	return []domain.Stage{domain.StagePrimaryCollection}
}

// EnumeratePrincipals has nothing to look up.
func (a *Adapter) EnumeratePrincipals(_ context.Context) (domain.Lookups, error) {
	if err := a.checkOpen(); err != nil {
		return domain.Lookups{}, err
	}
	return domain.Lookups{}, nil
}

// entry is one candidate in the sorted listing.
type entry struct {
	id      string
	info    os.FileInfo
	deleted bool
}

// EnumerateChanges returns files in id order after the cursor's position.
// The first page of a pass refreshes the manifest; ids missing from the
// directory are reported as deletions on every pass until they age out.
func (a *Adapter) EnumerateChanges(ctx context.Context, req driven.EnumerateRequest) (*driven.ChangePage, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	if req.Stage != domain.StagePrimaryCollection {
		return &driven.ChangePage{Done: true}, nil
	}

	cursor, err := DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	live, err := a.walk(ctx)
	if err != nil {
		return nil, err
	}

	m, err := loadManifest(a.fs, a.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	current := make(map[string]bool, len(live))
	for id := range live {
		current[id] = true
	}
	var deleted []string
	if cursor.After == "" {
		deleted = m.reconcile(current, a.clock.Now(), a.config.DeletionRetention)
		if err := m.save(a.fs, a.config.Dir); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrTransient, err)
		}
	} else {
		for id := range m.LastSeen {
			if !current[id] {
				deleted = append(deleted, id)
			}
		}
	}

	entries := make([]entry, 0, len(live)+len(deleted))
	for id, info := range live {
		// Copied files can carry an mtime older than the low-water mark, so
		// first-seen time also qualifies a file.
		if !req.LowWaterMark.IsZero() && info.ModTime().Before(req.LowWaterMark) &&
			m.FirstSeen[id].Before(req.LowWaterMark) {
			continue
		}
		entries = append(entries, entry{id: id, info: info})
	}
	for _, id := range deleted {
		entries = append(entries, entry{id: id, deleted: true})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	start := sort.Search(len(entries), func(i int) bool { return entries[i].id > cursor.After })
	limit := req.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}

	page := &driven.ChangePage{}
	end := start
	for ; end < len(entries) && len(page.Items) < limit; end++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := entries[end]
		if e.deleted {
			page.Items = append(page.Items, domain.RemoteItem{ID: e.id, Path: e.id, Deleted: true})
			continue
		}
		item, err := a.toRemoteItem(e.id, e.info)
		if err != nil {
			if os.IsNotExist(err) {
				// Removed since the walk; the next pass reports the deletion.
				continue
			}
			return nil, err
		}
		page.Items = append(page.Items, item)
	}

	if end >= len(entries) {
		page.Done = true
		return page, nil
	}
	page.NextCursor = (&Cursor{Version: CursorVersion, After: entries[end-1].id}).Encode()
	return page, nil
}

// walk lists regular, non-hidden files keyed by relative slash path.
func (a *Adapter) walk(ctx context.Context) (map[string]os.FileInfo, error) {
	live := make(map[string]os.FileInfo)
	err := afero.Walk(a.fs, a.config.Dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, relErr := filepath.Rel(a.config.Dir, p)
		if relErr != nil || rel == "." {
			return relErr
		}
		if isHidden(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() {
			live[filepath.ToSlash(rel)] = info
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: walk upload dir: %w", domain.ErrTransient, err)
	}
	return live, nil
}

func (a *Adapter) toRemoteItem(id string, info os.FileInfo) (domain.RemoteItem, error) {
	sum, err := a.hash(id)
	if err != nil {
		return domain.RemoteItem{}, err
	}
	return domain.RemoteItem{
		ID:          id,
		Name:        path.Base(id),
		MediaType:   mediaType(id),
		ModifiedAt:  info.ModTime().UTC(),
		Fingerprint: "sha256:" + sum,
		Size:        info.Size(),
		Path:        id,
	}, nil
}

func (a *Adapter) hash(id string) (string, error) {
	f, err := a.fs.Open(a.abs(id))
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: hash %s: %w", domain.ErrTransient, id, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FetchContent opens the uploaded file.
func (a *Adapter) FetchContent(_ context.Context, item domain.RemoteItem) (*driven.Content, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	if !fs.ValidPath(item.ID) || isHidden(item.ID) {
		return nil, fmt.Errorf("%w: upload id %q", domain.ErrMalformedItem, item.ID)
	}

	f, err := a.fs.Open(a.abs(item.ID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, item.ID)
		}
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrTransient, item.ID, err)
	}
	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return &driven.Content{Body: f, MediaType: mediaType(item.ID), Size: size}, nil
}

// FetchPermissions grants access to the connector's owner only.
func (a *Adapter) FetchPermissions(_ context.Context, _ domain.RemoteItem) (domain.ExternalAccess, error) {
	if err := a.checkOpen(); err != nil {
		return domain.ExternalAccess{}, err
	}
	return domain.ExternalAccess{Users: []string{a.ownerID}, Groups: []string{}}, nil
}

// Close releases resources.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *Adapter) checkOpen() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return domain.ErrConnectorClosed
	}
	return nil
}

func (a *Adapter) abs(id string) string {
	return filepath.Join(a.config.Dir, filepath.FromSlash(id))
}

func mediaType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}
