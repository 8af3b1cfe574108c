package upload

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// DefaultDeletionRetention is how long an id absent from the directory keeps
// being reported as deleted.
const DefaultDeletionRetention = 30 * 24 * time.Hour

// Config holds upload connector configuration.
type Config struct {
	// Dir is the absolute upload directory.
	Dir string
	// DeletionRetention bounds how long deleted ids stay in the manifest.
	DeletionRetention time.Duration
}

// ParseConfig extracts configuration from a connector.
func ParseConfig(connector *domain.Connector) (*Config, error) {
	dir := strings.TrimSpace(connector.Config["dir"])
	if dir == "" {
		return nil, fmt.Errorf("%w: upload connector needs dir", domain.ErrInvalidInput)
	}
	if !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("%w: upload dir %q must be absolute", domain.ErrInvalidInput, dir)
	}

	cfg := &Config{Dir: filepath.Clean(dir), DeletionRetention: DefaultDeletionRetention}
	if val := connector.Config["deletion_retention"]; val != "" {
		d, err := time.ParseDuration(val)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: deletion_retention %q", domain.ErrInvalidInput, val)
		}
		cfg.DeletionRetention = d
	}
	return cfg, nil
}

// isHidden reports whether any element of a relative path starts with ".".
func isHidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}
