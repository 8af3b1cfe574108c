package drive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// ContentType identifies what content to sync from Google Drive.
type ContentType string

const (
	// ContentFiles syncs regular (blob) files.
	ContentFiles ContentType = "files"
	// ContentDocs syncs Google Docs (exported to PDF).
	ContentDocs ContentType = "docs"
	// ContentSheets syncs Google Sheets (exported to PDF).
	ContentSheets ContentType = "sheets"
	// ContentSlides syncs Google Slides (exported to PDF).
	ContentSlides ContentType = "slides"
)

// DefaultContentTypes are the content types synced by default.
var DefaultContentTypes = []ContentType{ContentFiles, ContentDocs, ContentSheets, ContentSlides}

// Config holds Google Drive connector configuration.
type Config struct {
	// ContentTypes specifies what types of content to sync.
	ContentTypes []ContentType
	// MimeTypeFilter limits syncing to specific MIME types (optional).
	MimeTypeFilter []string
	// FolderIDs are crawled by the configured-folders stage (optional).
	FolderIDs []string
	// SharedDrives enables the shared collections stage.
	SharedDrives bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ContentTypes: DefaultContentTypes,
		SharedDrives: true,
	}
}

// ParseConfig extracts configuration from a connector.
func ParseConfig(connector *domain.Connector) (*Config, error) {
	cfg := DefaultConfig()

	if val := connector.Config["content_types"]; val != "" {
		cfg.ContentTypes = nil
		for _, t := range splitList(val) {
			ct := ContentType(t)
			if !isValidContentType(ct) {
				return nil, fmt.Errorf("%w: drive content type %q", domain.ErrInvalidInput, t)
			}
			cfg.ContentTypes = append(cfg.ContentTypes, ct)
		}
	}

	cfg.MimeTypeFilter = splitList(connector.Config["mime_types"])
	cfg.FolderIDs = splitList(connector.Config["folder_ids"])

	if val := connector.Config["shared_drives"]; val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return nil, fmt.Errorf("%w: shared_drives: %w", domain.ErrInvalidInput, err)
		}
		cfg.SharedDrives = b
	}

	return cfg, nil
}

// HasContentType checks if a content type is enabled.
func (c *Config) HasContentType(ct ContentType) bool {
	for _, t := range c.ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}

func isValidContentType(ct ContentType) bool {
	switch ct {
	case ContentFiles, ContentDocs, ContentSheets, ContentSlides:
		return true
	default:
		return false
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
