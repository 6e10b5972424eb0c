package kingdom

import (
	"sort"

	"github.com/google/uuid"

	"github.com/mezhov/kingdoms/internal/claims"
	"github.com/mezhov/kingdoms/internal/event"
)

// ChunkSideBlocks is the side length of one chunk in block coordinates.
const ChunkSideBlocks = 16

// Border is one settlement entry in a border broadcast.
type Border struct {
	RegionID     uuid.UUID
	Name         string
	World        string
	CenterX      int32
	CenterZ      int32
	RadiusBlocks int32
	IsCapital    bool
	ColorID      int32
	KingdomName  string
	Bounds       claims.ChunkBounds
}

// AllowedClaims returns how many settlements a kingdom of the given size
// may keep on the map.
func AllowedClaims(memberCount int) int {
	switch {
	case memberCount <= 2:
		return 1
	case memberCount <= 4:
		return 2
	case memberCount <= 7:
		return 3
	default:
		return 4
	}
}

// Borders builds the full border broadcast: every kingdom's settlements,
// trimmed to its claim allowance, with overlapping regions dropped in
// favor of whoever was placed first. The first settlement of each kingdom
// is its capital. Returned warnings describe trims and drops; the caller
// decides whether to publish them.
func (r *Registry) Borders() ([]Border, []event.Event) {
	r.mu.RLock()
	owners := make([]*Kingdom, 0, len(r.kingdoms))
	for _, k := range r.kingdoms {
		owners = append(owners, k)
	}
	svc := r.claims
	r.mu.RUnlock()

	if svc == nil {
		return nil, nil
	}
	// Deterministic order so overlap resolution is stable across calls.
	sort.Slice(owners, func(i, j int) bool { return owners[i].Name() < owners[j].Name() })

	var (
		out      []Border
		warnings []event.Event
		taken    []Border // accepted so far, for overlap checks
	)
	for _, k := range owners {
		if k.PartyID() == uuid.Nil {
			continue
		}
		snaps, count, err := svc.SnapshotsFor(k.PartyID())
		if err != nil {
			r.log.Warn("border snapshot failed", "kingdom", k.Name(), "error", err)
			continue
		}
		k.SetClaimCount(count)
		sort.Slice(snaps, func(i, j int) bool {
			if snaps[i].Name != snaps[j].Name {
				return snaps[i].Name < snaps[j].Name
			}
			return snaps[i].RegionID.String() < snaps[j].RegionID.String()
		})

		allowed := AllowedClaims(k.MemberCount())
		if len(snaps) > allowed {
			warnings = append(warnings, event.ClaimLimitExceeded{
				Owner:      k.Owner(),
				Allowed:    allowed,
				Attempted:  len(snaps),
				Recipients: k.Members(),
			})
			snaps = snaps[:allowed]
		}

		capital := true
		for _, s := range snaps {
			if overlapping := overlapsAny(taken, s); overlapping {
				warnings = append(warnings, event.ClaimOverlap{
					Owner:      k.Owner(),
					World:      s.World,
					Recipients: k.Members(),
				})
				continue
			}
			b := Border{
				RegionID:     s.RegionID,
				Name:         s.Name,
				World:        s.World,
				CenterX:      s.CenterX,
				CenterZ:      s.CenterZ,
				RadiusBlocks: radiusBlocks(s.Bounds),
				IsCapital:    capital,
				ColorID:      k.Color().ID(),
				KingdomName:  k.Name(),
				Bounds:       s.Bounds,
			}
			capital = false
			taken = append(taken, b)
			out = append(out, b)
		}
	}
	return out, warnings
}

func overlapsAny(taken []Border, s claims.Snapshot) bool {
	for _, b := range taken {
		if b.World == s.World && b.Bounds.Overlaps(s.Bounds) {
			return true
		}
	}
	return false
}

func radiusBlocks(b claims.ChunkBounds) int32 {
	side := b.Width()
	if d := b.Depth(); d > side {
		side = d
	}
	return side * ChunkSideBlocks / 2
}
