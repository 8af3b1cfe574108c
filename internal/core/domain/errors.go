package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrConnectorDisabled indicates the connector is disabled or retired.
	ErrConnectorDisabled = errors.New("connector disabled")

	// ErrConnectorClosed indicates the source adapter has been closed.
	ErrConnectorClosed = errors.New("connector closed")

	// ErrCancelled indicates a run was cancelled between units of work.
	ErrCancelled = errors.New("sync cancelled")

	// Authentication Errors.

	// ErrAuthRequired indicates the connector requires a credential but none is configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the credential was rejected as expired or revoked.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrAuthInvalid indicates the credential is invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// Source Errors.

	// ErrTransient indicates a temporary failure (timeout, 5xx, storage hiccup).
	ErrTransient = errors.New("transient failure")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrExportTooLarge indicates a server-side export exceeded the provider maximum.
	ErrExportTooLarge = errors.New("export size limit exceeded")

	// ErrMalformedItem indicates the provider returned unusable metadata for an item.
	ErrMalformedItem = errors.New("malformed item metadata")

	// ErrObjectTooLarge indicates a payload exceeded the configured maximum object size.
	ErrObjectTooLarge = errors.New("object exceeds maximum size")

	// ErrCursorInvalid indicates the enumeration cursor is invalid or expired.
	ErrCursorInvalid = errors.New("enumeration cursor invalid")

	// Storage Errors.

	// ErrCheckpointStore indicates the checkpoint could not be loaded or saved.
	ErrCheckpointStore = errors.New("checkpoint store failure")

	// ErrCheckpointCorrupt indicates a persisted checkpoint could not be decoded.
	ErrCheckpointCorrupt = errors.New("checkpoint corrupt")

	// ErrStatusConflict indicates a status-gated update found an unexpected status.
	ErrStatusConflict = errors.New("connector status conflict")
)

// ErrorClass is the retry category the orchestrator assigns to a failure.
type ErrorClass int

const (
	// ClassTransient failures are retried with backoff at unit-of-work granularity.
	ClassTransient ErrorClass = iota

	// ClassItemTerminal failures skip the single item; the run continues.
	ClassItemTerminal

	// ClassRunTerminal failures abort the run and move the connector to error.
	ClassRunTerminal
)

// String returns the class name used in logs.
func (c ErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassItemTerminal:
		return "item-terminal"
	case ClassRunTerminal:
		return "run-terminal"
	default:
		return "unknown"
	}
}
