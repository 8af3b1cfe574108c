package dropbox

import (
	"testing"
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestGetMIMEType(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"document.txt", "text/plain"},
		{"readme.md", "text/markdown"},
		{"document.pdf", "application/pdf"},
		{"photo.JPG", "image/jpeg"},
		{"plan.paper", "application/vnd.dropbox.paper"},
		{"noextension", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, getMIMEType(tt.filename))
		})
	}
}

func TestShouldSyncFile_MimeFilterPrefix(t *testing.T) {
	cfg := &Config{MimeTypeFilter: []string{"text/", "application/pdf"}}
	tests := []struct {
		filename string
		expected bool
	}{
		{"readme.md", true},
		{"doc.pdf", true},
		{"photo.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldSyncFile(fileEntry(tt.filename, time.Now()), cfg))
		})
	}
	assert.False(t, ShouldSyncFile(nil, cfg))
	assert.True(t, ShouldSyncFile(fileEntry("x.bin", time.Now()), DefaultConfig()))
}

func TestFileToRemoteItem_Paper(t *testing.T) {
	fm := fileEntry("Plan.paper", epoch)
	fm.IsDownloadable = false
	fm.ExportInfo = &files.ExportInfo{ExportAs: "markdown"}
	item := FileToRemoteItem(fm)
	assert.True(t, item.Native)
	assert.Equal(t, "https://www.dropbox.com/home/Docs%2FPlan.paper", item.WebURL)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(&domain.Connector{Config: map[string]string{"folders": "/Team/, /Shared"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/Team", "/Shared"}, cfg.Folders)

	_, err = ParseConfig(&domain.Connector{Config: map[string]string{"folders": "relative"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = ParseConfig(&domain.Connector{Config: map[string]string{"skip_root": "true"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCursorRoundTrip(t *testing.T) {
	c := &Cursor{Version: CursorVersion, Index: 1, ListCursor: "abc"}
	got, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, domain.ErrCursorInvalid)
}
