package domain

import "time"

// DocumentStatus tracks a landed document through the downstream pipeline.
type DocumentStatus string

const (
	DocumentUploading  DocumentStatus = "uploading"
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentError      DocumentStatus = "error"
)

// Document is the landed record for one synchronised item.
// The engine populates it; downstream services advance its status.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// ConnectorID links to the connector that landed the document.
	ConnectorID string

	// RemoteID is the provider's identifier for the item.
	RemoteID string

	// Name is the item's display name at the time it was landed.
	Name string

	// StorageLocator addresses the landed bytes in object storage.
	StorageLocator string

	// Fingerprint is the remote content tag used for change detection.
	Fingerprint string

	// ContentHash is the hash of the bytes as landed ("sha256:<hex>").
	ContentHash string

	// MediaType is the content type of the landed bytes.
	MediaType string

	// Size is the number of bytes landed.
	Size int64

	// Access is the permission snapshot written by the permission synchroniser.
	Access ExternalAccess

	// Status is the pipeline status.
	Status DocumentStatus

	// DeletedAt marks the document for downstream tombstoning.
	DeletedAt *time.Time

	// CreatedAt is when the document was first landed.
	CreatedAt time.Time

	// UpdatedAt is when the document was last landed or tombstoned.
	UpdatedAt time.Time
}

// IsTombstoned reports whether the source reported the item deleted.
func (d *Document) IsTombstoned() bool {
	return d.DeletedAt != nil
}
