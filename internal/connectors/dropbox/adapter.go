package dropbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

const (
	defaultPageSize = 500
	maxPageSize     = 2000
)

// Adapter enumerates and fetches files from Dropbox.
type Adapter struct {
	connectorID string
	config      *Config
	client      apiClient

	mu     sync.Mutex
	closed bool
}

// New creates a Dropbox adapter authenticated with the connector's token.
func New(ctx context.Context, connector *domain.Connector, tokens driven.TokenProvider) (*Adapter, error) {
	cfg, err := ParseConfig(connector)
	if err != nil {
		return nil, err
	}
	token, err := tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("%w: dropbox connector %s has no credential", domain.ErrAuthRequired, connector.ID)
	}
	return newAdapter(connector.ID, cfg, newSDKClient(token)), nil
}

// Builder is the AdapterBuilder for dropbox connectors.
func Builder(ctx context.Context, connector *domain.Connector, tokens driven.TokenProvider) (driven.SourceAdapter, error) {
	return New(ctx, connector, tokens)
}

func newAdapter(connectorID string, cfg *Config, client apiClient) *Adapter {
	return &Adapter{connectorID: connectorID, config: cfg, client: client}
}

// Provider returns the provider type.
func (a *Adapter) Provider() domain.ProviderType {
	return domain.ProviderDropbox
}

// Stages returns the crawl stages. Mounted shared folders appear in the root
// listing, so there is no shared collections stage.
func (a *Adapter) Stages() []domain.Stage {
	stages := []domain.Stage{domain.StageEnumeratePrincipals}
	if !a.config.SkipRoot {
		stages = append(stages, domain.StagePrimaryCollection)
	}
	if len(a.config.Folders) > 0 {
		stages = append(stages, domain.StageConfiguredFolders)
	}
	return stages
}

// EnumeratePrincipals fetches the account email.
func (a *Adapter) EnumeratePrincipals(ctx context.Context) (domain.Lookups, error) {
	if err := a.checkOpen(); err != nil {
		return domain.Lookups{}, err
	}
	email, err := a.client.CurrentAccountEmail(ctx)
	if err != nil {
		return domain.Lookups{}, fmt.Errorf("get current account: %w", err)
	}
	var lookups domain.Lookups
	if email != "" {
		lookups.Principals = []string{email}
	}
	return lookups, nil
}

// EnumerateChanges returns one list_folder page for a stage.
// Every file is reported regardless of the low-water mark: a move keeps
// server_modified, so the file at its new path may predate the mark.
func (a *Adapter) EnumerateChanges(ctx context.Context, req driven.EnumerateRequest) (*driven.ChangePage, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}

	cursor, err := DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	var roots []string
	switch req.Stage {
	case domain.StagePrimaryCollection:
		roots = []string{""}
	case domain.StageConfiguredFolders:
		roots = a.config.Folders
	default:
		return &driven.ChangePage{Done: true}, nil
	}
	if cursor.Index >= len(roots) {
		return &driven.ChangePage{Done: true}, nil
	}

	var res *files.ListFolderResult
	if cursor.ListCursor == "" {
		res, err = a.client.ListFolder(ctx, roots[cursor.Index], pageLimit(req.PageSize))
	} else {
		res, err = a.client.ListFolderContinue(ctx, cursor.ListCursor)
	}
	if err != nil {
		return nil, fmt.Errorf("list folder: %w", err)
	}

	page := &driven.ChangePage{}
	for _, entry := range res.Entries {
		switch e := entry.(type) {
		case *files.FileMetadata:
			if !ShouldSyncFile(e, a.config) {
				continue
			}
			page.Items = append(page.Items, FileToRemoteItem(e))
		case *files.DeletedMetadata:
			page.Items = append(page.Items, DeletedToRemoteItem(e))
		}
	}

	next := &Cursor{Version: CursorVersion, Index: cursor.Index}
	if res.HasMore {
		next.ListCursor = res.Cursor
	} else {
		next.Index++
		if next.Index >= len(roots) {
			page.Done = true
			return page, nil
		}
	}
	page.NextCursor = next.Encode()
	return page, nil
}

// FetchContent downloads a file, exporting Paper documents to markdown.
func (a *Adapter) FetchContent(ctx context.Context, item domain.RemoteItem) (*driven.Content, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}

	if item.Native {
		body, err := a.client.Export(ctx, item.ID, ExportFormatMarkdown)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", item.Path, err)
		}
		return &driven.Content{Body: body, MediaType: "text/markdown", Size: -1}, nil
	}

	body, err := a.client.Download(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", item.Path, err)
	}
	size := item.Size
	if size <= 0 {
		size = -1
	}
	return &driven.Content{Body: body, MediaType: item.MediaType, Size: size}, nil
}

// FetchPermissions lists the file's members and public links.
func (a *Adapter) FetchPermissions(ctx context.Context, item domain.RemoteItem) (domain.ExternalAccess, error) {
	if err := a.checkOpen(); err != nil {
		return domain.ExternalAccess{}, err
	}

	members, err := a.client.FileMembers(ctx, item.ID)
	if err != nil {
		return domain.ExternalAccess{}, fmt.Errorf("list file members %s: %w", item.Path, err)
	}
	public, err := a.client.HasPublicLink(ctx, item.ID)
	if err != nil {
		return domain.ExternalAccess{}, fmt.Errorf("list shared links %s: %w", item.Path, err)
	}

	access := domain.ExternalAccess{Users: []string{}, Groups: []string{}, IsPublic: public}
	access.Users = append(access.Users, members.Emails...)
	access.Groups = append(access.Groups, members.Groups...)
	return access, nil
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

func pageLimit(hint int) uint32 {
	if hint <= 0 {
		return defaultPageSize
	}
	if hint > maxPageSize {
		return maxPageSize
	}
	return uint32(hint)
}
