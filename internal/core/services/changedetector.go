package services

import "github.com/custodia-labs/sercha-ingest/internal/core/domain"

// ChangeDetector classifies remote items against stored documents.
// It holds no state and performs no I/O.
type ChangeDetector struct{}

// NewChangeDetector creates a change detector.
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// Detect returns the change for item given the previously landed document,
// or false when the item needs no work.
//
// An empty remote fingerprint means the provider cannot tell whether the
// content changed, so the item is treated as updated.
func (d *ChangeDetector) Detect(item domain.RemoteItem, prev *domain.Document) (domain.ChangeRecord, bool) {
	live := prev != nil && !prev.IsTombstoned()

	if item.Deleted {
		if !live {
			return domain.ChangeRecord{}, false
		}
		return domain.ChangeRecord{RemoteID: item.ID, Action: domain.ChangeDelete, Item: item}, true
	}

	if !live {
		return domain.ChangeRecord{
			RemoteID:    item.ID,
			Action:      domain.ChangeCreate,
			Fingerprint: item.Fingerprint,
			Item:        item,
		}, true
	}

	if item.Fingerprint != "" && item.Fingerprint == prev.Fingerprint {
		return domain.ChangeRecord{}, false
	}

	return domain.ChangeRecord{
		RemoteID:    item.ID,
		Action:      domain.ChangeUpdate,
		Fingerprint: item.Fingerprint,
		Item:        item,
	}, true
}
