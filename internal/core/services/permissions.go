package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// PermissionSynchronizer produces the access snapshot written to documents.
type PermissionSynchronizer struct{}

// NewPermissionSynchronizer creates a permission synchronizer.
func NewPermissionSynchronizer() *PermissionSynchronizer {
	return &PermissionSynchronizer{}
}

// Sync fetches and normalises the item's permissions. When the adapter
// fails, the most restrictive snapshot is returned along with a warning;
// the item is never dropped for a permission failure.
func (p *PermissionSynchronizer) Sync(
	ctx context.Context,
	adapter driven.SourceAdapter,
	item domain.RemoteItem,
) (domain.ExternalAccess, error) {
	access, err := adapter.FetchPermissions(ctx, item)
	if err != nil {
		return domain.RestrictedAccess(), fmt.Errorf("fetch permissions for %s: %w", item.ID, err)
	}
	return access.Normalize(), nil
}
