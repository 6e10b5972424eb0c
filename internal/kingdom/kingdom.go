package kingdom

import (
	"sync"

	"github.com/google/uuid"
)

// Kingdom name constraints.
const (
	MinNameLength = 3
	MaxNameLength = 32
)

// MinClaimCount is the claimed-chunk threshold below which a group exists
// but is not yet a kingdom: не участвует в войнах и не попадает в списки.
const MinClaimCount = 9

// Kingdom is a named, owned group of member identities with roles and a
// banner design. Thread-safe: all mutable fields protected by mu.
type Kingdom struct {
	mu sync.RWMutex

	owner  uuid.UUID // founding member, immutable
	name   string
	color  Color
	design Design

	members map[uuid.UUID]struct{}
	roles   map[uuid.UUID]Role

	// Party handle in the external claims system. uuid.Nil when unresolved.
	partyID uuid.UUID

	// Cached number of claimed chunks, refreshed from the claims provider.
	claimCount int
}

// New creates a kingdom with the owner as its sole member and leader.
func New(owner uuid.UUID, name string, color Color) *Kingdom {
	k := &Kingdom{
		owner:   owner,
		name:    name,
		color:   color,
		design:  DefaultDesign(),
		members: make(map[uuid.UUID]struct{}, 8),
		roles:   make(map[uuid.UUID]Role, 8),
	}
	k.members[owner] = struct{}{}
	k.roles[owner] = RoleLeader
	return k
}

// Owner returns the founding member's identity.
func (k *Kingdom) Owner() uuid.UUID { return k.owner } // immutable, no lock needed

// Name returns the kingdom name.
func (k *Kingdom) Name() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.name
}

// SetName sets the kingdom name. Uniqueness is the registry's concern.
func (k *Kingdom) SetName(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.name = name
}

// Color returns the kingdom's palette color.
func (k *Kingdom) Color() Color {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.color
}

// SetColor sets the kingdom's palette color.
func (k *Kingdom) SetColor(c Color) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.color = c
}

// Design returns a copy of the banner design.
func (k *Kingdom) Design() Design {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.design.Clone()
}

// SetDesign replaces the banner design.
func (k *Kingdom) SetDesign(d Design) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.design = d.Normalize()
}

// PartyID returns the external party handle, or uuid.Nil if unresolved.
func (k *Kingdom) PartyID() uuid.UUID {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.partyID
}

// SetPartyID stores the external party handle.
func (k *Kingdom) SetPartyID(id uuid.UUID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.partyID = id
}

// ClaimCount returns the cached claimed-chunk count.
func (k *Kingdom) ClaimCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.claimCount
}

// SetClaimCount updates the cached claimed-chunk count.
func (k *Kingdom) SetClaimCount(n int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.claimCount = n
}

// IsKingdom reports whether the group has claimed enough territory to be a
// war-eligible kingdom.
func (k *Kingdom) IsKingdom() bool {
	return k.ClaimCount() >= MinClaimCount
}

// MemberCount returns the current number of members.
func (k *Kingdom) MemberCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.members)
}

// HasMember reports whether the identity belongs to the kingdom.
func (k *Kingdom) HasMember(id uuid.UUID) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.members[id]
	return ok
}

// AddMember adds a member with the given role. Adding an existing member
// only updates the role.
func (k *Kingdom) AddMember(id uuid.UUID, role Role) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.members[id] = struct{}{}
	k.roles[id] = role
}

// RemoveMember removes a member and their role. The owner can only be
// removed as part of disbanding; callers enforce that.
func (k *Kingdom) RemoveMember(id uuid.UUID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.members, id)
	delete(k.roles, id)
}

// Members returns a snapshot slice of all member identities.
func (k *Kingdom) Members() []uuid.UUID {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(k.members))
	for id := range k.members {
		out = append(out, id)
	}
	return out
}

// RoleOf returns the member's role, or RoleCitizen for unknown identities.
func (k *Kingdom) RoleOf(id uuid.UUID) Role {
	k.mu.RLock()
	defer k.mu.RUnlock()
	role, ok := k.roles[id]
	if !ok {
		return RoleCitizen
	}
	return role
}

// SetRole assigns a role to an existing member. The owner is always pinned
// to RoleLeader regardless of the requested role.
func (k *Kingdom) SetRole(id uuid.UUID, role Role) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if id == k.owner {
		k.roles[id] = RoleLeader
		return
	}
	k.roles[id] = role
}

// Roles returns a snapshot copy of the role map.
func (k *Kingdom) Roles() map[uuid.UUID]Role {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make(map[uuid.UUID]Role, len(k.roles))
	for id, role := range k.roles {
		out[id] = role
	}
	return out
}
