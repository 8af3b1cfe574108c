package web

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Adapter fetches a fixed list of web pages.
type Adapter struct {
	connectorID string
	ownerID     string
	config      *Config
	client      *http.Client
	limiter     *rate.Limiter
	token       string

	mu     sync.Mutex
	closed bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// New creates a web adapter. A credential, when present, is sent as a
// bearer token.
func New(ctx context.Context, connector *domain.Connector, tokens driven.TokenProvider, opts ...Option) (*Adapter, error) {
	cfg, err := ParseConfig(connector)
	if err != nil {
		return nil, err
	}
	token, err := tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		connectorID: connector.ID,
		ownerID:     connector.OwnerID,
		config:      cfg,
		client:      &http.Client{Timeout: time.Minute},
		limiter:     rate.NewLimiter(rate.Limit(cfg.Rate), 1),
		token:       token,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Builder is the AdapterBuilder for web-scrape connectors.
func Builder(ctx context.Context, connector *domain.Connector, tokens driven.TokenProvider) (driven.SourceAdapter, error) {
	return New(ctx, connector, tokens)
}

// Provider returns the provider type.
func (a *Adapter) Provider() domain.ProviderType {
	return domain.ProviderWebScrape
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

// EnumerateChanges checks one page of configured URLs. Pages carry no
// trustworthy modification time, so the low-water mark is not applied and
// unchanged pages are filtered by fingerprint downstream. A 404 or 410
// reports the page as deleted; a forbidden or unusable page is skipped.
func (a *Adapter) EnumerateChanges(ctx context.Context, req driven.EnumerateRequest) (*driven.ChangePage, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	if req.Stage != domain.StagePrimaryCollection {
		return &driven.ChangePage{Done: true}, nil
	}

	start := 0
	if req.Cursor != "" {
		n, err := strconv.Atoi(req.Cursor)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: web cursor %q", domain.ErrCursorInvalid, req.Cursor)
		}
		start = n
	}
	if start >= len(a.config.URLs) {
		return &driven.ChangePage{Done: true}, nil
	}

	end := start + pageLimit(req.PageSize)
	if end > len(a.config.URLs) {
		end = len(a.config.URLs)
	}

	page := &driven.ChangePage{}
	for _, u := range a.config.URLs[start:end] {
		item, err := a.inspect(ctx, u)
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrMalformedItem) {
			logger.Warn("web: skipping %s: %v", u, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, item)
	}

	if end >= len(a.config.URLs) {
		page.Done = true
	} else {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

// inspect builds a RemoteItem for u. A strong ETag from HEAD is used as the
// fingerprint; otherwise the body is fetched and hashed.
func (a *Adapter) inspect(ctx context.Context, u string) (domain.RemoteItem, error) {
	item := domain.RemoteItem{ID: u, Name: pageName(u), Path: u, WebURL: u, Size: -1}

	resp, err := a.do(ctx, http.MethodHead, u)
	if err != nil {
		return domain.RemoteItem{}, err
	}
	resp.Body.Close()
	if isGone(resp.StatusCode) {
		item.Deleted = true
		return item, nil
	}

	headOK := resp.StatusCode >= 200 && resp.StatusCode < 300
	if headOK {
		applyHeaders(&item, resp)
		if etag := resp.Header.Get("ETag"); isStrongETag(etag) {
			item.Fingerprint = "etag:" + strings.Trim(etag, `"`)
			return item, nil
		}
	}

	resp, err = a.do(ctx, http.MethodGet, u)
	if err != nil {
		return domain.RemoteItem{}, err
	}
	defer resp.Body.Close()
	if isGone(resp.StatusCode) {
		item.Deleted = true
		return item, nil
	}
	if err := statusError(resp); err != nil {
		return domain.RemoteItem{}, fmt.Errorf("get %s: %w", u, err)
	}
	applyHeaders(&item, resp)

	h := sha256.New()
	n, err := io.Copy(h, resp.Body)
	if err != nil {
		return domain.RemoteItem{}, wrapTransport(err)
	}
	item.Size = n
	item.Fingerprint = "sha256:" + hex.EncodeToString(h.Sum(nil))
	return item, nil
}

// FetchContent downloads the page.
func (a *Adapter) FetchContent(ctx context.Context, item domain.RemoteItem) (*driven.Content, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	resp, err := a.do(ctx, http.MethodGet, item.ID)
	if err != nil {
		return nil, err
	}
	if err := statusError(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: %w", item.ID, err)
	}
	mediaType := resp.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = item.MediaType
	}
	return &driven.Content{Body: resp.Body, MediaType: mediaType, Size: resp.ContentLength}, nil
}

// FetchPermissions returns public access for public connectors and a
// restricted snapshot otherwise.
func (a *Adapter) FetchPermissions(_ context.Context, _ domain.RemoteItem) (domain.ExternalAccess, error) {
	if err := a.checkOpen(); err != nil {
		return domain.ExternalAccess{}, err
	}
	access := domain.RestrictedAccess()
	access.IsPublic = a.config.Public
	return access, nil
}

// Close releases resources.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.client.CloseIdleConnections()
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

func (a *Adapter) do(ctx context.Context, method, u string) (*http.Response, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedItem, err)
	}
	req.Header.Set("User-Agent", a.config.UserAgent)
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, wrapTransport(err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode >= 500 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: %w", method, u, statusError(resp))
	}
	return resp, nil
}

func applyHeaders(item *domain.RemoteItem, resp *http.Response) {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		item.MediaType = ct
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		item.ModifiedAt = lm.UTC()
	}
	if resp.ContentLength >= 0 {
		item.Size = resp.ContentLength
	}
}

// isStrongETag rejects empty and weak (W/) validators.
func isStrongETag(etag string) bool {
	return etag != "" && !strings.HasPrefix(etag, "W/")
}

func pageName(u string) string {
	trimmed := strings.TrimRight(u, "/")
	if i := strings.Index(trimmed, "://"); i >= 0 && !strings.Contains(trimmed[i+3:], "/") {
		return trimmed[i+3:]
	}
	return path.Base(trimmed)
}

func pageLimit(hint int) int {
	if hint <= 0 {
		return defaultPageSize
	}
	if hint > maxPageSize {
		return maxPageSize
	}
	return hint
}
