package kingdom

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mezhov/kingdoms/internal/claims"
	"github.com/mezhov/kingdoms/internal/event"
)

// Registry owns every kingdom plus the global membership and invite
// indexes. All mutations go through it; invariants (name uniqueness, one
// kingdom per member) rely on its lock for atomic check-then-mutate.
type Registry struct {
	mu sync.RWMutex

	// keyed by owner identity
	kingdoms map[uuid.UUID]*Kingdom
	// lowercase name -> owner
	names map[string]uuid.UUID
	// member identity -> owner of their kingdom
	members map[uuid.UUID]uuid.UUID
	// invitee -> set of inviting kingdom owners
	invites map[uuid.UUID]map[uuid.UUID]struct{}

	claims claims.Service
	bus    event.Sink
	log    *slog.Logger
}

// NewRegistry creates an empty registry over the given claims provider.
func NewRegistry(svc claims.Service, bus event.Sink, log *slog.Logger) *Registry {
	if bus == nil {
		bus = event.Nop
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		kingdoms: make(map[uuid.UUID]*Kingdom),
		names:    make(map[string]uuid.UUID),
		members:  make(map[uuid.UUID]uuid.UUID),
		invites:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
		claims:   svc,
		bus:      bus,
		log:      log.With("component", "registry"),
	}
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ' ', r == '.', r == ',', r == '\'', r == '-':
		return true
	}
	return false
}

// ValidateName checks length and charset after trimming surrounding space.
// Returns the sanitized name.
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len(name) < MinNameLength || len(name) > MaxNameLength {
		return "", ErrNameInvalid
	}
	for _, r := range name {
		if !isNameRune(r) {
			return "", ErrNameInvalid
		}
	}
	return name, nil
}

// Create founds a new kingdom with the requester as sole member and leader.
func (r *Registry) Create(requester uuid.UUID, rawName string, color Color) (*Kingdom, error) {
	name, err := ValidateName(rawName)
	if err != nil {
		return nil, err
	}
	if !color.Valid() {
		return nil, ErrUnknownColor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[requester]; ok {
		return nil, ErrAlreadyMember
	}
	key := strings.ToLower(name)
	if _, ok := r.names[key]; ok {
		return nil, ErrNameTaken
	}

	k := New(requester, name, color)
	if r.claims != nil {
		partyID, err := r.claims.EnsureParty(requester)
		if err != nil {
			r.log.Warn("party link failed", "owner", requester, "error", err)
		} else {
			k.SetPartyID(partyID)
		}
	}

	r.kingdoms[requester] = k
	r.names[key] = requester
	r.members[requester] = requester
	delete(r.invites, requester)

	r.bus.Publish(event.KingdomFounded{
		Owner:       requester,
		KingdomName: name,
		ColorID:     color.ID(),
	})
	r.log.Info("kingdom founded", "name", name, "owner", requester)
	return k, nil
}

// Rename changes a kingdom's name. Only the owner may rename.
func (r *Registry) Rename(requester uuid.UUID, rawName string) error {
	name, err := ValidateName(rawName)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.kingdoms[requester]
	if !ok {
		return ErrNoPermission
	}
	old := k.Name()
	if strings.EqualFold(old, name) {
		return ErrNoChange
	}
	key := strings.ToLower(name)
	if _, ok := r.names[key]; ok {
		return ErrNameTaken
	}

	delete(r.names, strings.ToLower(old))
	r.names[key] = requester
	k.SetName(name)

	r.bus.Publish(event.KingdomRenamed{Owner: requester, OldName: old, NewName: name})
	return nil
}

// SetColor changes the banner color. Requires command rank.
func (r *Registry) SetColor(requester uuid.UUID, color Color) error {
	if !color.Valid() {
		return ErrUnknownColor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.kingdomOfLocked(requester)
	if !ok {
		return ErrNotMember
	}
	if !k.RoleOf(requester).IsCommandRank() {
		return ErrNoPermission
	}
	if k.Color() == color {
		return ErrNoChange
	}
	k.SetColor(color)

	r.bus.Publish(event.KingdomRecolored{Owner: k.Owner(), ColorID: color.ID()})
	return nil
}

// AssignRole sets a member's role. Executor needs command rank; the
// LEADER role is reserved for the owner.
func (r *Registry) AssignRole(executor, target uuid.UUID, role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.kingdomOfLocked(executor)
	if !ok {
		return ErrNotMember
	}
	if !k.RoleOf(executor).IsCommandRank() {
		return ErrNoPermission
	}
	if !k.HasMember(target) {
		return ErrMemberUnknown
	}
	if role == RoleLeader && target != k.Owner() {
		return ErrLeaderTransfer
	}
	k.SetRole(target, role)

	r.bus.Publish(event.RoleAssigned{Owner: k.Owner(), Member: target, RoleID: int32(role)})
	return nil
}

// Invite records a pending invite for target into the executor's kingdom.
func (r *Registry) Invite(executor, target uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.kingdomOfLocked(executor)
	if !ok {
		return ErrNotMember
	}
	if !k.RoleOf(executor).CanInvite() {
		return ErrNoPermission
	}
	if executor == target {
		return ErrInviteSelf
	}
	if _, ok := r.members[target]; ok {
		return ErrAlreadyMember
	}
	owner := k.Owner()
	set, ok := r.invites[target]
	if !ok {
		set = make(map[uuid.UUID]struct{}, 1)
		r.invites[target] = set
	}
	if _, dup := set[owner]; dup {
		return ErrInviteExists
	}
	set[owner] = struct{}{}

	r.bus.Publish(event.InviteSent{Owner: owner, KingdomName: k.Name(), Invitee: target})
	return nil
}

// Join consumes a pending invite and adds the requester as a citizen.
func (r *Registry) Join(requester uuid.UUID, kingdomName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[requester]; ok {
		return ErrAlreadyMember
	}
	owner, ok := r.names[strings.ToLower(strings.TrimSpace(kingdomName))]
	if !ok {
		return ErrUnknownKingdom
	}
	set := r.invites[requester]
	if _, ok := set[owner]; !ok {
		return ErrNoInvite
	}
	k := r.kingdoms[owner]

	delete(set, owner)
	if len(set) == 0 {
		delete(r.invites, requester)
	}
	k.AddMember(requester, RoleCitizen)
	r.members[requester] = owner
	r.syncPartyLocked(k)

	r.bus.Publish(event.MemberJoined{
		Owner:       owner,
		KingdomName: k.Name(),
		Member:      requester,
		Recipients:  k.Members(),
	})
	return nil
}

// Leave removes the requester from their kingdom. An owner may only leave
// once every other member is gone, which disbands the kingdom.
func (r *Registry) Leave(requester uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.members[requester]
	if !ok {
		return ErrNotMember
	}
	k := r.kingdoms[owner]
	if requester == owner {
		if k.MemberCount() > 1 {
			return ErrLeaderHasMembers
		}
		r.disbandLocked(k)
		return nil
	}
	k.RemoveMember(requester)
	delete(r.members, requester)
	r.syncPartyLocked(k)

	r.bus.Publish(event.MemberLeft{Owner: owner, Member: requester})
	return nil
}

// ForceAssign moves target into the named kingdom, bypassing invites.
// Kingdom owners cannot be moved; their kingdom would lose its identity.
func (r *Registry) ForceAssign(target uuid.UUID, kingdomName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	newOwner, ok := r.names[strings.ToLower(strings.TrimSpace(kingdomName))]
	if !ok {
		return ErrUnknownKingdom
	}
	if oldOwner, ok := r.members[target]; ok && oldOwner == newOwner {
		// already there, nothing to move
		return nil
	}
	if _, owns := r.kingdoms[target]; owns {
		return ErrOwnerCannotMove
	}
	dst := r.kingdoms[newOwner]

	if oldOwner, ok := r.members[target]; ok {
		src := r.kingdoms[oldOwner]
		src.RemoveMember(target)
		r.syncPartyLocked(src)
		r.bus.Publish(event.MemberLeft{Owner: oldOwner, Member: target})
	}

	dst.AddMember(target, RoleCitizen)
	r.members[target] = newOwner
	delete(r.invites, target)
	r.syncPartyLocked(dst)

	r.bus.Publish(event.MemberJoined{
		Owner:       newOwner,
		KingdomName: dst.Name(),
		Member:      target,
		Recipients:  dst.Members(),
	})
	return nil
}

// UpdateDesign applies a transform to the banner design. Requires command
// rank.
func (r *Registry) UpdateDesign(requester uuid.UUID, transform func(Design) Design) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.kingdomOfLocked(requester)
	if !ok {
		return ErrNotMember
	}
	if !k.RoleOf(requester).IsCommandRank() {
		return ErrNoPermission
	}
	k.SetDesign(transform(k.Design()))

	r.bus.Publish(event.DesignChanged{Owner: k.Owner(), Recipients: k.Members()})
	return nil
}

// Absorb merges the loser's members and territory into the winner and
// deletes the loser. Called by the war engine on decisive resolutions.
func (r *Registry) Absorb(winner, loser uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.kingdoms[winner]
	if !ok {
		return ErrUnknownKingdom
	}
	l, ok := r.kingdoms[loser]
	if !ok {
		return ErrUnknownKingdom
	}

	// the loser's hierarchy does not survive: everyone arrives a citizen
	moved := l.Members()
	for _, id := range moved {
		w.AddMember(id, RoleCitizen)
		r.members[id] = winner
	}
	if r.claims != nil && w.PartyID() != uuid.Nil && l.PartyID() != uuid.Nil {
		if err := r.claims.TransferAllTerritory(l.PartyID(), w.PartyID()); err != nil {
			r.log.Warn("territory transfer failed", "loser", loser, "error", err)
		}
	}

	delete(r.kingdoms, loser)
	delete(r.names, strings.ToLower(l.Name()))
	r.dropInvitesLocked(loser)
	r.syncPartyLocked(w)
	r.refreshClaimsLocked(w)

	r.bus.Publish(event.KingdomAbsorbed{
		Winner:       winner,
		Loser:        loser,
		WinnerName:   w.Name(),
		LoserName:    l.Name(),
		MovedMembers: moved,
	})
	r.log.Info("kingdom absorbed", "winner", w.Name(), "loser", l.Name(), "moved", len(moved))
	return nil
}

// RefreshClaims re-reads claim counts from the claims provider for every
// kingdom. Called at startup and whenever the provider reports changes.
func (r *Registry) RefreshClaims() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.kingdoms {
		r.refreshClaimsLocked(k)
	}
}

func (r *Registry) refreshClaimsLocked(k *Kingdom) {
	if r.claims == nil || k.PartyID() == uuid.Nil {
		return
	}
	_, count, err := r.claims.SnapshotsFor(k.PartyID())
	if err != nil {
		r.log.Warn("claim refresh failed", "kingdom", k.Name(), "error", err)
		return
	}
	k.SetClaimCount(count)
}

func (r *Registry) disbandLocked(k *Kingdom) {
	owner := k.Owner()
	name := k.Name()
	delete(r.kingdoms, owner)
	delete(r.names, strings.ToLower(name))
	delete(r.members, owner)
	r.dropInvitesLocked(owner)

	r.bus.Publish(event.KingdomDisbanded{Owner: owner, KingdomName: name})
	r.log.Info("kingdom disbanded", "name", name)
}

// dropInvitesLocked removes every pending invite issued by the kingdom.
func (r *Registry) dropInvitesLocked(owner uuid.UUID) {
	for invitee, set := range r.invites {
		delete(set, owner)
		if len(set) == 0 {
			delete(r.invites, invitee)
		}
	}
}

// syncPartyLocked mirrors the kingdom's member set into the claims party.
func (r *Registry) syncPartyLocked(k *Kingdom) {
	if r.claims == nil || k.PartyID() == uuid.Nil {
		return
	}
	if err := r.claims.SyncMembers(k.PartyID(), k.Members()); err != nil {
		r.log.Warn("party sync failed", "kingdom", k.Name(), "error", err)
	}
}

func (r *Registry) kingdomOfLocked(member uuid.UUID) (*Kingdom, bool) {
	owner, ok := r.members[member]
	if !ok {
		return nil, false
	}
	k, ok := r.kingdoms[owner]
	return k, ok
}

// --- Queries ---

// ByOwner returns the kingdom owned by the identity.
func (r *Registry) ByOwner(owner uuid.UUID) (*Kingdom, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kingdoms[owner]
	return k, ok
}

// ByMember returns the kingdom the identity belongs to.
func (r *Registry) ByMember(member uuid.UUID) (*Kingdom, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.kingdomOfLocked(member)
}

// ByName resolves a kingdom by case-insensitive name.
func (r *Registry) ByName(name string) (*Kingdom, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.names[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return r.kingdoms[owner], true
}

// All returns every kingdom, war-eligible or not.
func (r *Registry) All() []*Kingdom {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Kingdom, 0, len(r.kingdoms))
	for _, k := range r.kingdoms {
		out = append(out, k)
	}
	return out
}

// Names returns the sorted names of all war-eligible kingdoms.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kingdoms))
	for _, k := range r.kingdoms {
		if k.IsKingdom() {
			out = append(out, k.Name())
		}
	}
	sort.Strings(out)
	return out
}

// HasInvite reports whether invitee holds a pending invite from owner.
func (r *Registry) HasInvite(invitee, owner uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.invites[invitee][owner]
	return ok
}

// InvitesFor returns the kingdom names the invitee may currently join.
func (r *Registry) InvitesFor(invitee uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.invites[invitee]
	out := make([]string, 0, len(set))
	for owner := range set {
		if k, ok := r.kingdoms[owner]; ok {
			out = append(out, k.Name())
		}
	}
	sort.Strings(out)
	return out
}
