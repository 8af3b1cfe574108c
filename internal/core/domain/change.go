package domain

import "time"

// RemoteItem is adapter-reported metadata for one item at the source.
type RemoteItem struct {
	// ID is the provider's stable item identifier.
	ID string

	// Name is the display name.
	Name string

	// MediaType is the provider-reported content type.
	MediaType string

	// ModifiedAt is the provider's last modification time.
	ModifiedAt time.Time

	// Fingerprint is a provider-native content tag or content hash.
	// Empty when the provider cannot tell.
	Fingerprint string

	// Deleted marks a removal reported by the source.
	Deleted bool

	// Size is the provider-reported size in bytes, if known.
	Size int64

	// Path is the item's location within the source, if the source has one.
	Path string

	// WebURL links to the item in the provider's UI.
	WebURL string

	// Native marks items that must be exported server-side before download.
	Native bool

	// Collection identifies the shared collection the item was listed from, if any.
	Collection string
}

// ChangeAction is the classification of one remote item in one pass.
type ChangeAction string

const (
	// ChangeCreate indicates an item with no stored document.
	ChangeCreate ChangeAction = "create"

	// ChangeUpdate indicates an item whose content fingerprint changed.
	ChangeUpdate ChangeAction = "update"

	// ChangeDelete indicates an item removed at the source.
	ChangeDelete ChangeAction = "delete"
)

// ChangeRecord is produced by the change detector for one remote item.
// A delete carries no fingerprint.
type ChangeRecord struct {
	RemoteID    string
	Action      ChangeAction
	Fingerprint string
	Item        RemoteItem
}

// Lands reports whether the change transfers content.
func (c ChangeRecord) Lands() bool {
	return c.Action == ChangeCreate || c.Action == ChangeUpdate
}
