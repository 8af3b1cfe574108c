package queue

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Options tune queues built from a DSN.
type Options struct {
	// Name selects the logical queue on shared backends.
	Name string

	// Visibility is how long a received message stays hidden before redelivery.
	Visibility time.Duration

	Clock clockwork.Clock
}

// BuildFromDSN returns the queue backend named by the DSN scheme.
func BuildFromDSN(dsn string, opts Options) (driven.MessageQueue, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "memory://"
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: queue dsn: %w", domain.ErrInvalidInput, err)
	}
	scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme))
	switch scheme {
	case "memory", "mem", "inmem":
		return NewMemoryQueue(opts.Clock, opts.Visibility), nil
	case "postgres", "postgresql":
		name := opts.Name
		if name == "" {
			name = "triggers"
		}
		return NewPostgresQueue(dsn, name, opts.Visibility)
	case "redis", "rediss", "nats", "sqs", "kafka":
		return nil, fmt.Errorf("%w: queue backend %s", domain.ErrNotImplemented, scheme)
	default:
		return nil, fmt.Errorf("%w: queue scheme %q", domain.ErrUnsupportedType, scheme)
	}
}
