package domain

import (
	"sort"
	"strings"
)

// ExternalAccess is the normalised permission snapshot for one synchronised item.
// It is replaced wholesale on every successful sync of the item.
type ExternalAccess struct {
	// Users are individually granted principals (email-like identifiers).
	Users []string `json:"users"`

	// Groups are group identifiers with access.
	Groups []string `json:"groups"`

	// IsPublic grants access to anyone.
	IsPublic bool `json:"is_public"`
}

// RestrictedAccess is the most restrictive snapshot: no grants, not public.
func RestrictedAccess() ExternalAccess {
	return ExternalAccess{Users: []string{}, Groups: []string{}}
}

// IsRestricted reports whether the snapshot grants nothing.
func (a ExternalAccess) IsRestricted() bool {
	return len(a.Users) == 0 && len(a.Groups) == 0 && !a.IsPublic
}

// Normalize lower-cases, trims, de-duplicates and sorts the grant sets.
func (a ExternalAccess) Normalize() ExternalAccess {
	return ExternalAccess{
		Users:    normalizeGrants(a.Users),
		Groups:   normalizeGrants(a.Groups),
		IsPublic: a.IsPublic,
	}
}

func normalizeGrants(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, g := range in {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
