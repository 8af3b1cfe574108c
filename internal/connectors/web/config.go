package web

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

const (
	defaultRate      = 2.0
	defaultUserAgent = "sercha-ingest/1.0"
)

// Config holds web scrape connector configuration.
type Config struct {
	// URLs are the pages to fetch, in configured order.
	URLs []string
	// Public marks every page as readable by anyone.
	Public bool
	// Rate is the request budget per second.
	Rate float64
	// UserAgent is sent on every request.
	UserAgent string
}

// ParseConfig extracts configuration from a connector.
// urls is a comma or newline separated list of absolute http(s) URLs.
func ParseConfig(connector *domain.Connector) (*Config, error) {
	cfg := &Config{Rate: defaultRate, UserAgent: defaultUserAgent}

	seen := make(map[string]bool)
	for _, raw := range strings.FieldsFunc(connector.Config["urls"], func(r rune) bool {
		return r == ',' || r == '\n'
	}) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: url %q", domain.ErrInvalidInput, raw)
		}
		u.Fragment = ""
		s := u.String()
		if !seen[s] {
			seen[s] = true
			cfg.URLs = append(cfg.URLs, s)
		}
	}
	if len(cfg.URLs) == 0 {
		return nil, fmt.Errorf("%w: web connector needs urls", domain.ErrInvalidInput)
	}

	if val := connector.Config["public"]; val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return nil, fmt.Errorf("%w: public %q", domain.ErrInvalidInput, val)
		}
		cfg.Public = b
	}
	if val := connector.Config["rate"]; val != "" {
		r, err := strconv.ParseFloat(val, 64)
		if err != nil || r <= 0 {
			return nil, fmt.Errorf("%w: rate %q", domain.ErrInvalidInput, val)
		}
		cfg.Rate = r
	}
	if val := strings.TrimSpace(connector.Config["user_agent"]); val != "" {
		cfg.UserAgent = val
	}
	return cfg, nil
}
