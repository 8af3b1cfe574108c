package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// Google API error reasons that change how a 403 is classified.
const (
	ReasonRateLimitExceeded     = "rateLimitExceeded"
	ReasonUserRateLimitExceeded = "userRateLimitExceeded"
	ReasonExportSizeLimit       = "exportSizeLimitExceeded"
	ReasonCannotExport          = "cannotExportFile"
	ReasonInvalid               = "invalid"
)

// IsRateLimited returns true if the error indicates rate limiting.
// Google reports per-user limits as 403 with a rate limit reason.
func IsRateLimited(err error) bool {
	switch statusCode(err) {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return hasReason(err, ReasonRateLimitExceeded) || hasReason(err, ReasonUserRateLimitExceeded)
	}
	return false
}

// IsExportTooLarge returns true if a files.export call exceeded the export limit.
func IsExportTooLarge(err error) bool {
	return statusCode(err) == http.StatusForbidden && hasReason(err, ReasonExportSizeLimit)
}

// IsSyncTokenExpired returns true if a changes.list token was rejected.
// Expired tokens answer 410 GONE; tokens the API no longer recognises
// answer 400 with reason "invalid". Only meaningful for token-driven calls.
func IsSyncTokenExpired(err error) bool {
	switch statusCode(err) {
	case http.StatusGone:
		return true
	case http.StatusBadRequest:
		return hasReason(err, ReasonInvalid)
	}
	return false
}

// RetryAfter returns the Retry-After header in seconds, or 0.
func RetryAfter(err error) int {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, err := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}

// WrapError maps a Google API error onto the domain sentinels.
// The original error stays in the chain for logging.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		// Transport failures never reached the API.
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", domain.ErrAuthExpired, err)
	case IsRateLimited(err):
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	case IsExportTooLarge(err):
		return fmt.Errorf("%w: %w", domain.ErrExportTooLarge, err)
	case gerr.Code == http.StatusForbidden && hasReason(err, ReasonCannotExport):
		return fmt.Errorf("%w: %w", domain.ErrMalformedItem, err)
	case gerr.Code == http.StatusForbidden, gerr.Code == http.StatusNotFound:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case gerr.Code == http.StatusGone:
		return fmt.Errorf("%w: %w", domain.ErrCursorInvalid, err)
	case gerr.Code == http.StatusBadRequest:
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
}

func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

func hasReason(err error, reason string) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	for _, item := range gerr.Errors {
		if item.Reason == reason {
			return true
		}
	}
	return false
}
