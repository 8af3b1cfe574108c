package dropbox

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// Config holds Dropbox connector configuration.
type Config struct {
	// Folders are crawled by the configured-folders stage (optional).
	Folders []string
	// MimeTypeFilter limits syncing to MIME types; entries ending in "/" match a prefix.
	MimeTypeFilter []string
	// SkipRoot disables the primary (whole account) stage so only Folders are crawled.
	SkipRoot bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{}
}

// ParseConfig extracts configuration from a connector.
func ParseConfig(connector *domain.Connector) (*Config, error) {
	cfg := DefaultConfig()

	for _, folder := range splitList(connector.Config["folders"]) {
		if !strings.HasPrefix(folder, "/") {
			return nil, fmt.Errorf("%w: dropbox folder %q must be absolute", domain.ErrInvalidInput, folder)
		}
		cfg.Folders = append(cfg.Folders, strings.TrimRight(folder, "/"))
	}
	cfg.MimeTypeFilter = splitList(connector.Config["mime_types"])
	cfg.SkipRoot = connector.Config["skip_root"] == "true"

	if cfg.SkipRoot && len(cfg.Folders) == 0 {
		return nil, fmt.Errorf("%w: skip_root requires folders", domain.ErrInvalidInput)
	}
	return cfg, nil
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
