package kingdom

import (
	"strings"

	"github.com/google/uuid"
)

// LayerState is the durable form of one banner layer.
type LayerState struct {
	PatternID string `json:"pattern_id"`
	Color     int32  `json:"color"`
}

// DesignState is the durable form of a banner design.
type DesignState struct {
	Primary int32        `json:"primary"`
	Accent  int32        `json:"accent"`
	Layers  []LayerState `json:"layers,omitempty"`
}

// KingdomState is the durable form of one kingdom.
type KingdomState struct {
	Owner      uuid.UUID           `json:"owner"`
	Name       string              `json:"name"`
	Color      int32               `json:"color"`
	Design     DesignState         `json:"design"`
	Members    []uuid.UUID         `json:"members"`
	Roles      map[uuid.UUID]int32 `json:"roles,omitempty"`
	PartyID    uuid.UUID           `json:"party_id,omitempty"`
	ClaimCount int                 `json:"claim_count,omitempty"`
}

// InviteState is the durable form of one pending invite.
type InviteState struct {
	Invitee  uuid.UUID   `json:"invitee"`
	Kingdoms []uuid.UUID `json:"kingdoms"`
}

// RegistryState is the durable form of the whole registry.
type RegistryState struct {
	Kingdoms []KingdomState `json:"kingdoms,omitempty"`
	Invites  []InviteState  `json:"invites,omitempty"`
}

// Snapshot captures a point-in-time copy of all registry state.
func (r *Registry) Snapshot() RegistryState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := RegistryState{Kingdoms: make([]KingdomState, 0, len(r.kingdoms))}
	for _, k := range r.kingdoms {
		design := k.Design()
		ks := KingdomState{
			Owner:      k.Owner(),
			Name:       k.Name(),
			Color:      int32(k.Color()),
			Design:     designToState(design),
			Members:    k.Members(),
			Roles:      make(map[uuid.UUID]int32),
			PartyID:    k.PartyID(),
			ClaimCount: k.ClaimCount(),
		}
		for id, role := range k.Roles() {
			ks.Roles[id] = int32(role)
		}
		st.Kingdoms = append(st.Kingdoms, ks)
	}
	for invitee, set := range r.invites {
		is := InviteState{Invitee: invitee, Kingdoms: make([]uuid.UUID, 0, len(set))}
		for owner := range set {
			is.Kingdoms = append(is.Kingdoms, owner)
		}
		st.Invites = append(st.Invites, is)
	}
	return st
}

// Restore replaces all registry state with the decoded snapshot. Missing
// fields get defaults; unknown roles fall back to citizen.
func (r *Registry) Restore(st RegistryState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.kingdoms = make(map[uuid.UUID]*Kingdom, len(st.Kingdoms))
	r.names = make(map[string]uuid.UUID, len(st.Kingdoms))
	r.members = make(map[uuid.UUID]uuid.UUID)
	r.invites = make(map[uuid.UUID]map[uuid.UUID]struct{}, len(st.Invites))

	for _, ks := range st.Kingdoms {
		color := Color(ks.Color)
		if !color.Valid() {
			color = ColorWhite
		}
		k := New(ks.Owner, ks.Name, color)
		k.SetDesign(designFromState(ks.Design))
		k.SetPartyID(ks.PartyID)
		k.SetClaimCount(ks.ClaimCount)
		for _, id := range ks.Members {
			role := RoleCitizen
			if raw, ok := ks.Roles[id]; ok && Role(raw) >= RoleLeader && Role(raw) <= RoleCitizen {
				role = Role(raw)
			}
			k.AddMember(id, role)
			r.members[id] = ks.Owner
		}
		k.SetRole(ks.Owner, RoleLeader)
		r.members[ks.Owner] = ks.Owner
		r.kingdoms[ks.Owner] = k
		r.names[strings.ToLower(ks.Name)] = ks.Owner
	}
	for _, is := range st.Invites {
		// invites are only valid while the invitee is kingdom-less and
		// the inviting kingdom still exists
		if _, ok := r.members[is.Invitee]; ok {
			continue
		}
		set := make(map[uuid.UUID]struct{}, len(is.Kingdoms))
		for _, owner := range is.Kingdoms {
			if _, ok := r.kingdoms[owner]; ok {
				set[owner] = struct{}{}
			}
		}
		if len(set) > 0 {
			r.invites[is.Invitee] = set
		}
	}
}

func designToState(d Design) DesignState {
	st := DesignState{Primary: int32(d.Primary), Accent: int32(d.Accent)}
	for _, l := range d.Layers {
		st.Layers = append(st.Layers, LayerState{PatternID: l.PatternID, Color: int32(l.Color)})
	}
	return st
}

func designFromState(st DesignState) Design {
	d := Design{Primary: Color(st.Primary), Accent: Color(st.Accent)}
	for _, l := range st.Layers {
		d.Layers = append(d.Layers, BannerLayer{PatternID: l.PatternID, Color: Color(l.Color)})
	}
	return d.Normalize()
}
