package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// --- Source adapter ---

// mockAdapter serves scripted pages. The cursor is the index of the next page.
type mockAdapter struct {
	mu sync.Mutex

	stages  []domain.Stage
	lookups domain.Lookups
	pages   map[domain.Stage][][]domain.RemoteItem
	content map[string]string
	access  map[string]domain.ExternalAccess

	enumerateErr   func(req driven.EnumerateRequest) error
	principalsErr  error
	fetchErr       func(item domain.RemoteItem, attempt int) error
	permissionsErr map[string]error
	onFetch        func(item domain.RemoteItem)
	syncToken      string

	requests []driven.EnumerateRequest
	fetches  map[string]int
	closed   bool
}

func newMockAdapter(stages ...domain.Stage) *mockAdapter {
	if len(stages) == 0 {
		stages = []domain.Stage{domain.StagePrimaryCollection}
	}
	return &mockAdapter{
		stages:         stages,
		pages:          make(map[domain.Stage][][]domain.RemoteItem),
		content:        make(map[string]string),
		access:         make(map[string]domain.ExternalAccess),
		permissionsErr: make(map[string]error),
		fetches:        make(map[string]int),
	}
}

// addPage appends a page of items for stage. Items get default content.
func (m *mockAdapter) addPage(stage domain.Stage, items ...domain.RemoteItem) {
	m.pages[stage] = append(m.pages[stage], items)
	for _, it := range items {
		if _, ok := m.content[it.ID]; !ok {
			m.content[it.ID] = "content of " + it.ID
		}
	}
}

func (m *mockAdapter) Provider() domain.ProviderType { return domain.ProviderGoogleDrive }
func (m *mockAdapter) Stages() []domain.Stage        { return m.stages }

func (m *mockAdapter) EnumeratePrincipals(_ context.Context) (domain.Lookups, error) {
	if m.principalsErr != nil {
		return domain.Lookups{}, m.principalsErr
	}
	return m.lookups, nil
}

func (m *mockAdapter) EnumerateChanges(_ context.Context, req driven.EnumerateRequest) (*driven.ChangePage, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.enumerateErr != nil {
		if err := m.enumerateErr(req); err != nil {
			return nil, err
		}
	}

	pages := m.pages[req.Stage]
	idx := 0
	if req.Cursor != "" {
		var err error
		if idx, err = strconv.Atoi(req.Cursor); err != nil || idx > len(pages) {
			return nil, domain.ErrCursorInvalid
		}
	}
	if idx >= len(pages) {
		return &driven.ChangePage{Done: true, SyncToken: m.syncToken}, nil
	}
	page := &driven.ChangePage{Items: pages[idx], Done: idx == len(pages)-1}
	if page.Done {
		page.SyncToken = m.syncToken
	} else {
		page.NextCursor = strconv.Itoa(idx + 1)
	}
	return page, nil
}

func (m *mockAdapter) FetchContent(_ context.Context, item domain.RemoteItem) (*driven.Content, error) {
	m.mu.Lock()
	m.fetches[item.ID]++
	attempt := m.fetches[item.ID]
	m.mu.Unlock()

	if m.onFetch != nil {
		m.onFetch(item)
	}
	if m.fetchErr != nil {
		if err := m.fetchErr(item, attempt); err != nil {
			return nil, err
		}
	}
	body := m.content[item.ID]
	return &driven.Content{
		Body:      io.NopCloser(bytes.NewBufferString(body)),
		MediaType: "text/plain",
		Size:      int64(len(body)),
	}, nil
}

func (m *mockAdapter) FetchPermissions(_ context.Context, item domain.RemoteItem) (domain.ExternalAccess, error) {
	if err := m.permissionsErr[item.ID]; err != nil {
		return domain.ExternalAccess{}, err
	}
	if a, ok := m.access[item.ID]; ok {
		return a, nil
	}
	return domain.ExternalAccess{Users: []string{"Owner@Example.com"}}, nil
}

func (m *mockAdapter) Close() error {
	m.closed = true
	return nil
}

func (m *mockAdapter) fetchCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[id]
}

func (m *mockAdapter) lastRequest() driven.EnumerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

// mockFactory returns the same adapter for every connector.
type mockFactory struct {
	adapter   driven.SourceAdapter
	createErr error
	types     []domain.ProviderType
}

func (f *mockFactory) Create(_ context.Context, _ *domain.Connector) (driven.SourceAdapter, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.adapter, nil
}

func (f *mockFactory) Register(_ domain.ProviderType, _ driven.AdapterBuilder) {}

func (f *mockFactory) SupportedTypes() []domain.ProviderType {
	if f.types != nil {
		return f.types
	}
	return []domain.ProviderType{domain.ProviderGoogleDrive, domain.ProviderDropbox}
}

// --- Object store ---

type mockObjects struct {
	mu        sync.Mutex
	committed map[string][]byte
	largest   int
	aborted   int
	deleted   []string
	createErr error
	partials  int
}

func newMockObjects() *mockObjects {
	return &mockObjects{committed: make(map[string][]byte)}
}

func (m *mockObjects) Create(_ context.Context, locator string) (driven.ObjectWriter, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &mockWriter{objects: m, locator: locator}, nil
}

func (m *mockObjects) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.committed[locator]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockObjects) Delete(_ context.Context, locator string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.committed, locator)
	m.deleted = append(m.deleted, locator)
	return nil
}

func (m *mockObjects) CleanupPartial(_ context.Context, _ time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partials++
	return 0, nil
}

func (m *mockObjects) get(locator string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.committed[locator]
	return string(data), ok
}

func (m *mockObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.committed)
}

type mockWriter struct {
	objects *mockObjects
	locator string
	buf     bytes.Buffer
}

func (w *mockWriter) Write(p []byte) (int, error) {
	w.objects.mu.Lock()
	if len(p) > w.objects.largest {
		w.objects.largest = len(p)
	}
	w.objects.mu.Unlock()
	return w.buf.Write(p)
}

func (w *mockWriter) Commit() error {
	w.objects.mu.Lock()
	defer w.objects.mu.Unlock()
	w.objects.committed[w.locator] = w.buf.Bytes()
	return nil
}

func (w *mockWriter) Abort() error {
	w.objects.mu.Lock()
	defer w.objects.mu.Unlock()
	w.objects.aborted++
	return nil
}

// --- Queue, codec and publisher ---

type mockQueue struct {
	mu        sync.Mutex
	published [][]byte
	acked     []string
	nacked    []string
	incoming  chan *driven.Delivery
}

func newMockQueue() *mockQueue {
	return &mockQueue{incoming: make(chan *driven.Delivery, 16)}
}

func (q *mockQueue) Publish(_ context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, payload)
	return nil
}

func (q *mockQueue) Receive(ctx context.Context) (*driven.Delivery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d := <-q.incoming:
		return d, nil
	}
}

func (q *mockQueue) Ack(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, id)
	return nil
}

func (q *mockQueue) Nack(_ context.Context, id string, _ time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nacked = append(q.nacked, id)
	return nil
}

func (q *mockQueue) Close() error { return nil }

func (q *mockQueue) settled() (acked, nacked []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...), append([]string(nil), q.nacked...)
}

type jsonCodec struct{}

func (jsonCodec) Encode(t domain.Trigger) ([]byte, error) { return json.Marshal(t) }

func (jsonCodec) Decode(payload []byte) (domain.Trigger, error) {
	var t domain.Trigger
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, errors.Join(domain.ErrInvalidInput, err)
	}
	return t, t.Validate()
}

type mockPublisher struct {
	mu      sync.Mutex
	events  []domain.LandedEvent
	failAt  int
	failErr error
}

func (p *mockPublisher) Publish(_ context.Context, e domain.LandedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil && len(p.events) == p.failAt {
		return p.failErr
	}
	p.events = append(p.events, e)
	return nil
}

func (p *mockPublisher) published() []domain.LandedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.LandedEvent(nil), p.events...)
}
