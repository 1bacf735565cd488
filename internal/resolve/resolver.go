// Package resolve selects the applicable version of a unific root out of
// all its stored versions, using the publishing-status fallback order.
package resolve

import (
	"github.com/vrk-kpa/ptv-registry/internal/cache"
	"github.com/vrk-kpa/ptv-registry/internal/domain"
)

// fallbackOrder is the fixed status priority used to pick one current
// version when several exist. Earlier entries win.
var fallbackOrder = []string{
	domain.StatusPublished,
	domain.StatusDraft,
	domain.StatusModified,
	domain.StatusOldPublished,
}

// Resolver picks the applicable version of an entity by publishing-status
// fallback. It holds the type cache needed to translate status ids to
// codes and is safe for concurrent use.
type Resolver struct {
	types *cache.TypeCache
}

// NewResolver returns a Resolver backed by the given type cache.
func NewResolver(tc *cache.TypeCache) *Resolver {
	return &Resolver{types: tc}
}

// Resolve returns the single applicable version from versions, or nil
// when none of them carries an accepted status. A nil or empty input
// resolves to nil; callers treat that as "entity not resolvable", never
// as an error.
//
// Selection: the version whose status appears earliest in the fallback
// order wins. If two versions tie on priority (the unique-status
// invariant should prevent this) the most recently modified one is
// chosen.
func (r *Resolver) Resolve(versions []domain.EntityVersion) *domain.EntityVersion {
	var (
		best     *domain.EntityVersion
		bestRank = len(fallbackOrder)
	)
	for i := range versions {
		v := &versions[i]
		rank := statusRank(r.types.PublishingStatusCode(v.PublishingStatusID))
		if rank == len(fallbackOrder) {
			continue
		}
		switch {
		case best == nil, rank < bestRank:
			best, bestRank = v, rank
		case rank == bestRank && v.Modified.After(best.Modified):
			best = v
		}
	}
	return best
}

// Accepted reports whether a status code counts as live for relation
// listings: everything except Deleted and OldPublished.
func (r *Resolver) Accepted(statusCode string) bool {
	return statusCode != domain.StatusDeleted && statusCode != domain.StatusOldPublished
}

// AcceptedVersion reports whether the resolved version v is live per
// Accepted. A nil version is never accepted.
func (r *Resolver) AcceptedVersion(v *domain.EntityVersion) bool {
	if v == nil {
		return false
	}
	return r.Accepted(r.types.PublishingStatusCode(v.PublishingStatusID))
}

// statusRank returns the index of code in the fallback order, or
// len(fallbackOrder) when the code is not an accepted fallback status.
func statusRank(code string) int {
	for i, c := range fallbackOrder {
		if c == code {
			return i
		}
	}
	return len(fallbackOrder)
}
