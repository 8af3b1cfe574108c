package drive

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/sercha-ingest/internal/connectors/google"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.SourceAdapter = (*Adapter)(nil)

const defaultPageSize = 100

// Adapter enumerates and fetches files from Google Drive.
type Adapter struct {
	connectorID string
	config      *Config
	client      apiClient

	mu     sync.Mutex
	closed bool
}

// New creates a Drive adapter over the Drive API.
func New(ctx context.Context, connector *domain.Connector, tokens driven.TokenProvider, opts ...option.ClientOption) (*Adapter, error) {
	cfg, err := ParseConfig(connector)
	if err != nil {
		return nil, err
	}
	svc, err := google.NewDriveService(ctx, google.NewTokenSource(ctx, tokens), opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	client := newServiceClient(svc, google.NewRateLimiter(google.ServiceDrive))
	return newAdapter(connector.ID, cfg, client), nil
}

// Builder is the AdapterBuilder for google-drive connectors.
func Builder(ctx context.Context, connector *domain.Connector, tokens driven.TokenProvider) (driven.SourceAdapter, error) {
	return New(ctx, connector, tokens)
}

func newAdapter(connectorID string, cfg *Config, client apiClient) *Adapter {
	return &Adapter{connectorID: connectorID, config: cfg, client: client}
}

// Provider returns the provider type.
func (a *Adapter) Provider() domain.ProviderType {
	return domain.ProviderGoogleDrive
}

// Stages returns the crawl stages Drive supports.
func (a *Adapter) Stages() []domain.Stage {
	stages := []domain.Stage{domain.StageEnumeratePrincipals, domain.StagePrimaryCollection}
	if a.config.SharedDrives {
		stages = append(stages, domain.StageSharedCollections)
	}
	if len(a.config.FolderIDs) > 0 {
		stages = append(stages, domain.StageConfiguredFolders)
	}
	return stages
}

// EnumeratePrincipals fetches the account email and the shared drive ids.
func (a *Adapter) EnumeratePrincipals(ctx context.Context) (domain.Lookups, error) {
	if err := a.checkOpen(); err != nil {
		return domain.Lookups{}, err
	}

	var lookups domain.Lookups
	email, err := a.client.AboutEmail(ctx)
	if err != nil {
		return lookups, fmt.Errorf("about: %w", err)
	}
	if email != "" {
		lookups.Principals = []string{email}
	}

	if a.config.SharedDrives {
		ids, err := a.client.SharedDriveIDs(ctx)
		if err != nil {
			return lookups, fmt.Errorf("list shared drives: %w", err)
		}
		lookups.CollectionIDs = ids
	}
	return lookups, nil
}

// EnumerateChanges returns one page of files for a stage.
//
// Each listing target is read from the change token the last pass saved for
// it, so deletions and trashing surface as deletions. A target without a
// token is listed in full after taking a fresh start token, and the stage's
// final page hands back the tokens for the next pass.
func (a *Adapter) EnumerateChanges(ctx context.Context, req driven.EnumerateRequest) (*driven.ChangePage, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}

	cursor, err := DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}
	saved, err := DecodeSyncState(req.SyncToken)
	if err != nil {
		return nil, err
	}

	targets := a.targets(req)
	if cursor.Index >= len(targets) {
		state := SyncState{Version: syncStateVersion, Tokens: cursor.Tokens}
		return &driven.ChangePage{Done: true, SyncToken: state.Encode()}, nil
	}
	target := targets[cursor.Index]

	if cursor.Mode == "" {
		if tok := saved.Tokens[target.key]; tok != "" {
			cursor.Mode, cursor.PageToken = modeChanges, tok
		} else {
			start, err := a.client.StartPageToken(ctx, target.driveID)
			if err != nil {
				return nil, fmt.Errorf("get start page token: %w", err)
			}
			cursor.Mode, cursor.StartPageToken = modeList, start
		}
	}

	page := &driven.ChangePage{}
	var nextToken, resumeToken string
	if cursor.Mode == modeChanges {
		list, err := a.client.ListChanges(ctx, changeQuery{
			DriveID:   target.driveID,
			AllDrives: target.folderID != "",
			PageToken: cursor.PageToken,
			PageSize:  pageSize(req.PageSize),
		})
		if err != nil {
			return nil, fmt.Errorf("list changes: %w", err)
		}
		page.Items = a.changeItems(list.Changes, target.folderID)
		nextToken, resumeToken = list.NextPageToken, list.NewStartPageToken
	} else {
		q := listQuery{
			Query:     buildQuery(),
			DriveID:   target.driveID,
			PageToken: cursor.PageToken,
			PageSize:  pageSize(req.PageSize),
		}
		if target.folderID != "" {
			q.Query = fmt.Sprintf("'%s' in parents and (%s)", escapeQuery(target.folderID), q.Query)
		}
		list, err := a.client.ListFiles(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		for _, file := range list.Files {
			if ShouldSyncFile(file, a.config) {
				page.Items = append(page.Items, FileToRemoteItem(file))
			}
		}
		nextToken, resumeToken = list.NextPageToken, cursor.StartPageToken
	}

	next := &Cursor{
		Version:        CursorVersion,
		Index:          cursor.Index,
		Mode:           cursor.Mode,
		PageToken:      nextToken,
		StartPageToken: cursor.StartPageToken,
		Tokens:         cursor.Tokens,
	}
	if nextToken == "" {
		next = &Cursor{
			Version: CursorVersion,
			Index:   cursor.Index + 1,
			Tokens:  cursor.withToken(target.key, resumeToken),
		}
		if next.Index >= len(targets) {
			state := SyncState{Version: syncStateVersion, Tokens: next.Tokens}
			page.Done = true
			page.SyncToken = state.Encode()
			return page, nil
		}
	}
	page.NextCursor = next.Encode()
	return page, nil
}

// listTarget is one corpus a stage walks.
type listTarget struct {
	// key names the target in the saved sync state.
	key      string
	driveID  string
	folderID string
}

// targets returns the listings a stage walks, in order.
func (a *Adapter) targets(req driven.EnumerateRequest) []listTarget {
	var out []listTarget
	switch req.Stage {
	case domain.StagePrimaryCollection:
		out = append(out, listTarget{key: "user"})
	case domain.StageSharedCollections:
		for _, id := range req.Lookups.CollectionIDs {
			out = append(out, listTarget{key: "drive:" + id, driveID: id})
		}
	case domain.StageConfiguredFolders:
		for _, id := range a.config.FolderIDs {
			out = append(out, listTarget{key: "folder:" + id, folderID: id})
		}
	}
	return out
}

// changeItems maps a changes.list page. Folder targets keep only files
// directly inside the folder; removals are always kept since a removed
// entry carries no parents.
func (a *Adapter) changeItems(changes []*drive.Change, folderID string) []domain.RemoteItem {
	var items []domain.RemoteItem
	for _, change := range changes {
		item, ok := ChangeToRemoteItem(change)
		if !ok {
			continue
		}
		if change.File != nil && !change.Removed {
			if folderID != "" && !hasParent(change.File, folderID) {
				continue
			}
			if !ShouldSyncFile(change.File, a.config) {
				continue
			}
		}
		items = append(items, item)
	}
	return items
}

// FetchContent downloads a blob file or exports a native file to PDF.
func (a *Adapter) FetchContent(ctx context.Context, item domain.RemoteItem) (*driven.Content, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}

	if item.Native {
		if !isExportable(item.MediaType) {
			return nil, fmt.Errorf("%w: %s cannot be exported", domain.ErrMalformedItem, item.MediaType)
		}
		resp, err := a.client.Export(ctx, item.ID, ExportMimePDF)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", item.ID, err)
		}
		return &driven.Content{Body: resp.Body, MediaType: ExportMimePDF, Size: resp.ContentLength}, nil
	}

	resp, err := a.client.Download(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", item.ID, err)
	}
	size := resp.ContentLength
	if size < 0 && item.Size > 0 {
		size = item.Size
	}
	return &driven.Content{Body: resp.Body, MediaType: item.MediaType, Size: size}, nil
}

// FetchPermissions lists the file's permissions.
func (a *Adapter) FetchPermissions(ctx context.Context, item domain.RemoteItem) (domain.ExternalAccess, error) {
	if err := a.checkOpen(); err != nil {
		return domain.ExternalAccess{}, err
	}
	perms, err := a.client.Permissions(ctx, item.ID)
	if err != nil {
		return domain.ExternalAccess{}, fmt.Errorf("list permissions %s: %w", item.ID, err)
	}
	return PermissionsToAccess(perms), nil
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

// buildQuery filters out folders. Trashed files are listed so their
// removal is seen.
func buildQuery() string {
	return fmt.Sprintf("mimeType != '%s'", MimeTypeFolder)
}

func escapeQuery(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

func pageSize(hint int) int64 {
	if hint <= 0 || hint > 1000 {
		return defaultPageSize
	}
	return int64(hint)
}

// PermissionsToAccess maps Drive permissions onto an access snapshot.
// Domain-wide grants become the group "domain:<name>".
func PermissionsToAccess(perms []*drive.Permission) domain.ExternalAccess {
	access := domain.ExternalAccess{Users: []string{}, Groups: []string{}}
	for _, p := range perms {
		switch p.Type {
		case "user":
			access.Users = append(access.Users, p.EmailAddress)
		case "group":
			access.Groups = append(access.Groups, p.EmailAddress)
		case "domain":
			access.Groups = append(access.Groups, "domain:"+p.Domain)
		case "anyone":
			access.IsPublic = true
		}
	}
	return access
}
