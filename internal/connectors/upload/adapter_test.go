package upload

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

const uploadDir = "/data/uploads/c1"

var epoch = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	fs      afero.Fs
	clock   *clockwork.FakeClock
	adapter *Adapter
}

func newFixture(t *testing.T, config map[string]string) *fixture {
	t.Helper()
	f := &fixture{fs: afero.NewMemMapFs(), clock: clockwork.NewFakeClockAt(epoch)}
	require.NoError(t, f.fs.MkdirAll(uploadDir, 0o755))

	if config == nil {
		config = map[string]string{}
	}
	config["dir"] = uploadDir
	connector := &domain.Connector{ID: "c1", OwnerID: "owner-1", Provider: domain.ProviderManualUpload, Config: config}
	a, err := New(connector, WithFs(f.fs), WithClock(f.clock))
	require.NoError(t, err)
	f.adapter = a
	return f
}

func (f *fixture) write(t *testing.T, rel, body string, mtime time.Time) {
	t.Helper()
	p := uploadDir + "/" + rel
	require.NoError(t, afero.WriteFile(f.fs, p, []byte(body), 0o644))
	require.NoError(t, f.fs.Chtimes(p, mtime, mtime))
}

// crawl drains the primary stage and returns every item.
func (f *fixture) crawl(t *testing.T, lwm time.Time, pageSize int) []domain.RemoteItem {
	t.Helper()
	var items []domain.RemoteItem
	cursor := ""
	for i := 0; i < 100; i++ {
		page, err := f.adapter.EnumerateChanges(context.Background(), driven.EnumerateRequest{
			Stage:        domain.StagePrimaryCollection,
			Cursor:       cursor,
			LowWaterMark: lwm,
			PageSize:     pageSize,
		})
		require.NoError(t, err)
		items = append(items, page.Items...)
		if page.Done {
			return items
		}
		require.NotEmpty(t, page.NextCursor)
		cursor = page.NextCursor
	}
	t.Fatal("crawl did not finish")
	return nil
}

func ids(items []domain.RemoteItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/file", []byte("x"), 0o644))

	tests := []struct {
		name    string
		config  map[string]string
		wantErr error
	}{
		{"missing dir", map[string]string{}, domain.ErrInvalidInput},
		{"relative dir", map[string]string{"dir": "uploads"}, domain.ErrInvalidInput},
		{"dir does not exist", map[string]string{"dir": "/nope"}, domain.ErrNotFound},
		{"dir is a file", map[string]string{"dir": "/file"}, domain.ErrInvalidInput},
		{"bad retention", map[string]string{"dir": "/", "deletion_retention": "soon"}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&domain.Connector{ID: "c1", Config: tt.config}, WithFs(fs))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAdapter_Basics(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, domain.ProviderManualUpload, f.adapter.Provider())
	assert.Equal(t, []domain.Stage{domain.StagePrimaryCollection}, f.adapter.Stages())

	lookups, err := f.adapter.EnumeratePrincipals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lookups.Principals)

	access, err := f.adapter.FetchPermissions(context.Background(), domain.RemoteItem{ID: "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"owner-1"}, access.Users)
	assert.False(t, access.IsPublic)
}

func TestAdapter_EnumerateListsFilesInOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "b.txt", "bee", epoch)
	f.write(t, "a.pdf", "ay", epoch)
	require.NoError(t, f.fs.MkdirAll(uploadDir+"/sub", 0o755))
	f.write(t, "sub/c.md", "sea", epoch)
	f.write(t, ".hidden", "no", epoch)

	items := f.crawl(t, time.Time{}, 2)

	assert.Equal(t, []string{"a.pdf", "b.txt", "sub/c.md"}, ids(items))
	assert.Equal(t, "application/pdf", items[0].MediaType)
	assert.Equal(t, "c.md", items[2].Name)
	assert.Equal(t, int64(3), items[1].Size)
	assert.True(t, strings.HasPrefix(items[1].Fingerprint, "sha256:"))
	assert.Len(t, items[1].Fingerprint, len("sha256:")+64)
}

func TestAdapter_FingerprintTracksContent(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "a.txt", "one", epoch)
	first := f.crawl(t, time.Time{}, 0)

	f.write(t, "a.txt", "one", epoch.Add(time.Hour))
	same := f.crawl(t, time.Time{}, 0)
	assert.Equal(t, first[0].Fingerprint, same[0].Fingerprint, "touching a file keeps its fingerprint")

	f.write(t, "a.txt", "two", epoch.Add(time.Hour))
	changed := f.crawl(t, time.Time{}, 0)
	assert.NotEqual(t, first[0].Fingerprint, changed[0].Fingerprint)
}

func TestAdapter_LowWaterMark(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "old.txt", "old", epoch.Add(-48*time.Hour))
	f.crawl(t, time.Time{}, 0)

	f.clock.Advance(time.Hour)
	f.write(t, "new.txt", "new", epoch.Add(time.Hour))
	items := f.crawl(t, epoch.Add(30*time.Minute), 0)
	assert.Equal(t, []string{"new.txt"}, ids(items))

	// A file copied in with an old mtime is still reported once.
	f.clock.Advance(time.Hour)
	f.write(t, "copied.txt", "copied", epoch.Add(-72*time.Hour))
	items = f.crawl(t, epoch.Add(90*time.Minute), 0)
	assert.Equal(t, []string{"copied.txt"}, ids(items))
}

func TestAdapter_ReportsDeletionsUntilRetention(t *testing.T) {
	f := newFixture(t, map[string]string{"deletion_retention": "24h"})
	f.write(t, "a.txt", "a", epoch)
	f.write(t, "b.txt", "b", epoch)
	f.crawl(t, time.Time{}, 0)

	require.NoError(t, f.fs.Remove(uploadDir+"/a.txt"))
	f.clock.Advance(time.Hour)
	items := f.crawl(t, time.Time{}, 1)
	require.Equal(t, []string{"a.txt", "b.txt"}, ids(items))
	assert.True(t, items[0].Deleted)
	assert.False(t, items[1].Deleted)

	// Still reported on the next pass; the change detector treats it as a no-op.
	f.clock.Advance(time.Hour)
	items = f.crawl(t, epoch.Add(90*time.Minute), 0)
	assert.Equal(t, []string{"a.txt"}, ids(items))
	assert.True(t, items[0].Deleted)

	f.clock.Advance(48 * time.Hour)
	items = f.crawl(t, f.clock.Now().Add(-time.Minute), 0)
	assert.Empty(t, items)
}

func TestAdapter_ReappearingFileIsReported(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "a.txt", "a", epoch.Add(-72*time.Hour))
	f.crawl(t, time.Time{}, 0)

	require.NoError(t, f.fs.Remove(uploadDir+"/a.txt"))
	f.clock.Advance(time.Hour)
	f.crawl(t, time.Time{}, 0)

	f.write(t, "a.txt", "a", epoch.Add(-72*time.Hour))
	f.clock.Advance(time.Hour)
	items := f.crawl(t, epoch.Add(90*time.Minute), 0)
	require.Equal(t, []string{"a.txt"}, ids(items))
	assert.False(t, items[0].Deleted)
}

func TestAdapter_CorruptManifestIsReset(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "a.txt", "a", epoch)
	require.NoError(t, f.fs.MkdirAll(uploadDir+"/.ingest", 0o755))
	require.NoError(t, afero.WriteFile(f.fs, manifestPath(uploadDir), []byte("{nope"), 0o644))

	items := f.crawl(t, time.Time{}, 0)
	assert.Equal(t, []string{"a.txt"}, ids(items))
}

func TestAdapter_InvalidCursor(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.adapter.EnumerateChanges(context.Background(), driven.EnumerateRequest{
		Stage:  domain.StagePrimaryCollection,
		Cursor: "!!not-base64",
	})
	assert.ErrorIs(t, err, domain.ErrCursorInvalid)
}

func TestAdapter_OtherStagesAreEmpty(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "a.txt", "a", epoch)
	page, err := f.adapter.EnumerateChanges(context.Background(), driven.EnumerateRequest{Stage: domain.StageSharedCollections})
	require.NoError(t, err)
	assert.True(t, page.Done)
	assert.Empty(t, page.Items)
}

func TestAdapter_FetchContent(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.fs.MkdirAll(uploadDir+"/sub", 0o755))
	f.write(t, "sub/notes.md", "# notes", epoch)

	content, err := f.adapter.FetchContent(context.Background(), domain.RemoteItem{ID: "sub/notes.md"})
	require.NoError(t, err)
	defer content.Body.Close()
	body, err := io.ReadAll(content.Body)
	require.NoError(t, err)
	assert.Equal(t, "# notes", string(body))
	assert.Equal(t, int64(7), content.Size)

	_, err = f.adapter.FetchContent(context.Background(), domain.RemoteItem{ID: "missing.txt"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.adapter.FetchContent(context.Background(), domain.RemoteItem{ID: "../etc/passwd"})
	assert.ErrorIs(t, err, domain.ErrMalformedItem)
}

func TestAdapter_Closed(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.adapter.Close())

	_, err := f.adapter.EnumerateChanges(context.Background(), driven.EnumerateRequest{Stage: domain.StagePrimaryCollection})
	assert.ErrorIs(t, err, domain.ErrConnectorClosed)
	_, err = f.adapter.FetchContent(context.Background(), domain.RemoteItem{ID: "a.txt"})
	assert.ErrorIs(t, err, domain.ErrConnectorClosed)
}
