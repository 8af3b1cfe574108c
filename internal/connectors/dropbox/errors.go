package dropbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/auth"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// WrapError maps a Dropbox SDK error onto the domain sentinels.
//
// Endpoint errors (HTTP 409) are matched on their error summary, which
// starts with the error tag path, e.g. "reset/..." or "path/not_found/...".
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var authErr auth.AuthAPIError
	if errors.As(err, &authErr) {
		return fmt.Errorf("%w: %w", domain.ErrAuthExpired, err)
	}
	var rateErr auth.RateLimitAPIError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	var sdkErr dropbox.SDKInternalError
	if errors.As(err, &sdkErr) {
		switch {
		case sdkErr.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: %w", domain.ErrAuthExpired, err)
		case sdkErr.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		case sdkErr.StatusCode == http.StatusBadRequest:
			return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		default:
			return fmt.Errorf("%w: %w", domain.ErrTransient, err)
		}
	}

	summary := err.Error()
	switch {
	case strings.HasPrefix(summary, "reset"):
		return fmt.Errorf("%w: %w", domain.ErrCursorInvalid, err)
	case strings.Contains(summary, "not_found"):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case strings.Contains(summary, "too_many_write_operations"), strings.Contains(summary, "too_many_requests"):
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	case strings.Contains(summary, "non_exportable"), strings.Contains(summary, "unsupported_file"):
		return fmt.Errorf("%w: %w", domain.ErrMalformedItem, err)
	case strings.Contains(summary, "restricted_content"), strings.Contains(summary, "no_permission"):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
}
