package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// statusError maps an HTTP response status to a domain sentinel.
// 2xx returns nil.
func statusError(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, resp.Status)
	case code == http.StatusNotFound, code == http.StatusGone:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, resp.Status)
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrAuthExpired, resp.Status)
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, resp.Status)
	case code == http.StatusRequestTimeout, code >= 500:
		return fmt.Errorf("%w: %s", domain.ErrTransient, resp.Status)
	default:
		return fmt.Errorf("%w: %s", domain.ErrMalformedItem, resp.Status)
	}
}

// wrapTransport maps a client.Do failure.
func wrapTransport(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrTransient, err)
}

// isGone reports whether a page has been removed at the source.
func isGone(code int) bool {
	return code == http.StatusNotFound || code == http.StatusGone
}
