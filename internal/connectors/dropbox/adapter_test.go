package dropbox

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

type fakeClient struct {
	email   string
	first   map[string]*files.ListFolderResult
	more    map[string]*files.ListFolderResult
	bodies  map[string]string
	members map[string]*Members
	public  map[string]bool
	listed  []string
	exports []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		first:   make(map[string]*files.ListFolderResult),
		more:    make(map[string]*files.ListFolderResult),
		bodies:  make(map[string]string),
		members: make(map[string]*Members),
		public:  make(map[string]bool),
	}
}

func (f *fakeClient) CurrentAccountEmail(context.Context) (string, error) { return f.email, nil }

func (f *fakeClient) ListFolder(_ context.Context, path string, _ uint32) (*files.ListFolderResult, error) {
	f.listed = append(f.listed, path)
	if res, ok := f.first[path]; ok {
		return res, nil
	}
	return &files.ListFolderResult{}, nil
}

func (f *fakeClient) ListFolderContinue(_ context.Context, cursor string) (*files.ListFolderResult, error) {
	res, ok := f.more[cursor]
	if !ok {
		return nil, domain.ErrCursorInvalid
	}
	return res, nil
}

func (f *fakeClient) Download(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := f.bodies[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeClient) Export(_ context.Context, path, format string) (io.ReadCloser, error) {
	f.exports = append(f.exports, path+":"+format)
	return io.NopCloser(strings.NewReader("# " + path)), nil
}

func (f *fakeClient) FileMembers(_ context.Context, path string) (*Members, error) {
	if m, ok := f.members[path]; ok {
		return m, nil
	}
	return &Members{}, nil
}

func (f *fakeClient) HasPublicLink(_ context.Context, path string) (bool, error) {
	return f.public[path], nil
}

func fileEntry(name string, modified time.Time) *files.FileMetadata {
	fm := &files.FileMetadata{
		Id:             "id:" + name,
		Size:           3,
		ServerModified: modified,
		ContentHash:    "hash-" + name,
		IsDownloadable: true,
	}
	fm.Name = name
	fm.PathDisplay = "/Docs/" + name
	fm.PathLower = strings.ToLower("/docs/" + name)
	return fm
}

func deletedEntry(name string) *files.DeletedMetadata {
	dm := &files.DeletedMetadata{}
	dm.Name = name
	dm.PathDisplay = "/Docs/" + name
	dm.PathLower = strings.ToLower("/docs/" + name)
	return dm
}

var epoch = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

func TestAdapter_Stages(t *testing.T) {
	a := newAdapter("c1", DefaultConfig(), newFakeClient())
	assert.Equal(t, []domain.Stage{domain.StageEnumeratePrincipals, domain.StagePrimaryCollection}, a.Stages())

	a = newAdapter("c1", &Config{Folders: []string{"/team"}, SkipRoot: true}, newFakeClient())
	assert.Equal(t, []domain.Stage{domain.StageEnumeratePrincipals, domain.StageConfiguredFolders}, a.Stages())
}

func TestAdapter_EnumeratePrimaryCollection(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	folder := &files.FolderMetadata{}
	folder.Name = "Docs"
	client.first[""] = &files.ListFolderResult{
		Entries: []files.IsMetadata{folder, fileEntry("Old.txt", epoch.Add(-48*time.Hour)), fileEntry("New.txt", epoch)},
		Cursor:  "dbx-1",
		HasMore: true,
	}
	client.more["dbx-1"] = &files.ListFolderResult{
		Entries: []files.IsMetadata{deletedEntry("Gone.txt")},
	}
	a := newAdapter("c1", DefaultConfig(), client)

	req := driven.EnumerateRequest{Stage: domain.StagePrimaryCollection, LowWaterMark: epoch.Add(-time.Hour)}
	page, err := a.EnumerateChanges(ctx, req)
	require.NoError(t, err)
	assert.False(t, page.Done)
	require.Len(t, page.Items, 2, "folders are skipped")
	assert.Equal(t, "/docs/old.txt", page.Items[0].ID)
	item := page.Items[1]
	assert.Equal(t, "/docs/new.txt", item.ID)
	assert.Equal(t, "hash-New.txt", item.Fingerprint)
	assert.Equal(t, "/Docs/New.txt", item.Path)
	assert.Equal(t, "text/plain", item.MediaType)
	assert.Equal(t, []string{""}, client.listed)

	req.Cursor = page.NextCursor
	page, err = a.EnumerateChanges(ctx, req)
	require.NoError(t, err)
	assert.True(t, page.Done)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].Deleted)
	assert.Equal(t, "/docs/gone.txt", page.Items[0].ID)
}

func TestAdapter_EnumerateReportsMovedFileBeforeLowWaterMark(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	moved := fileEntry("a.txt", epoch.Add(-48*time.Hour))
	moved.PathDisplay = "/Archive/a.txt"
	moved.PathLower = "/archive/a.txt"
	client.first[""] = &files.ListFolderResult{
		Entries: []files.IsMetadata{deletedEntry("a.txt"), moved},
	}
	a := newAdapter("c1", DefaultConfig(), client)

	page, err := a.EnumerateChanges(ctx, driven.EnumerateRequest{
		Stage:        domain.StagePrimaryCollection,
		LowWaterMark: epoch.Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, page.Done)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "/docs/a.txt", page.Items[0].ID)
	assert.True(t, page.Items[0].Deleted)
	assert.Equal(t, "/archive/a.txt", page.Items[1].ID)
	assert.False(t, page.Items[1].Deleted)
	assert.Equal(t, "/Archive/a.txt", page.Items[1].Path)
}

func TestAdapter_EnumerateConfiguredFolders(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.first["/a"] = &files.ListFolderResult{Entries: []files.IsMetadata{fileEntry("A.txt", epoch)}}
	client.first["/b"] = &files.ListFolderResult{Entries: []files.IsMetadata{fileEntry("B.txt", epoch)}}
	a := newAdapter("c1", &Config{Folders: []string{"/a", "/b"}}, client)

	req := driven.EnumerateRequest{Stage: domain.StageConfiguredFolders}
	page, err := a.EnumerateChanges(ctx, req)
	require.NoError(t, err)
	assert.False(t, page.Done)

	req.Cursor = page.NextCursor
	page, err = a.EnumerateChanges(ctx, req)
	require.NoError(t, err)
	assert.True(t, page.Done)
	assert.Equal(t, []string{"/a", "/b"}, client.listed)

	page, err = a.EnumerateChanges(ctx, driven.EnumerateRequest{Stage: domain.StageSharedCollections})
	require.NoError(t, err)
	assert.True(t, page.Done)
}

func TestAdapter_InvalidCursor(t *testing.T) {
	a := newAdapter("c1", DefaultConfig(), newFakeClient())
	_, err := a.EnumerateChanges(context.Background(), driven.EnumerateRequest{
		Stage:  domain.StagePrimaryCollection,
		Cursor: (&Cursor{Version: CursorVersion, ListCursor: "expired"}).Encode(),
	})
	assert.ErrorIs(t, err, domain.ErrCursorInvalid)
}

func TestAdapter_FetchContent(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.bodies["/docs/a.txt"] = "abc"
	a := newAdapter("c1", DefaultConfig(), client)

	content, err := a.FetchContent(ctx, domain.RemoteItem{ID: "/docs/a.txt", MediaType: "text/plain", Size: 3})
	require.NoError(t, err)
	data, err := io.ReadAll(content.Body)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	assert.Equal(t, int64(3), content.Size)

	content, err = a.FetchContent(ctx, domain.RemoteItem{ID: "/docs/plan.paper", Native: true})
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", content.MediaType)
	assert.Equal(t, []string{"/docs/plan.paper:" + ExportFormatMarkdown}, client.exports)

	_, err = a.FetchContent(ctx, domain.RemoteItem{ID: "/docs/missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdapter_FetchPermissions(t *testing.T) {
	client := newFakeClient()
	client.members["/docs/a.txt"] = &Members{Emails: []string{"a@example.com"}, Groups: []string{"g:123"}}
	client.public["/docs/a.txt"] = true
	a := newAdapter("c1", DefaultConfig(), client)

	access, err := a.FetchPermissions(context.Background(), domain.RemoteItem{ID: "/docs/a.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com"}, access.Users)
	assert.Equal(t, []string{"g:123"}, access.Groups)
	assert.True(t, access.IsPublic)
}

func TestAdapter_NewRequiresToken(t *testing.T) {
	_, err := New(context.Background(), &domain.Connector{ID: "c1"}, emptyTokens{})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

type emptyTokens struct{}

func (emptyTokens) GetToken(context.Context) (string, error) { return "", nil }
func (emptyTokens) CredentialID() string                     { return "" }
func (emptyTokens) IsAuthenticated() bool                    { return true }

func TestWrapError(t *testing.T) {
	tests := []struct {
		summary string
		want    error
	}{
		{"reset/...", domain.ErrCursorInvalid},
		{"path/not_found/..", domain.ErrNotFound},
		{"too_many_write_operations/", domain.ErrRateLimited},
		{"non_exportable/", domain.ErrMalformedItem},
		{"something_else/", domain.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			assert.ErrorIs(t, WrapError(errors.New(tt.summary)), tt.want)
		})
	}
	assert.NoError(t, WrapError(nil))
	assert.ErrorIs(t, WrapError(context.Canceled), context.Canceled)
}
