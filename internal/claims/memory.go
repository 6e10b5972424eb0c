package claims

import (
	"sync"

	"github.com/google/uuid"
)

// InMemory is a self-contained Service used by tests and by servers running
// without an external territory plugin.
type InMemory struct {
	mu      sync.RWMutex
	parties map[uuid.UUID]*party
	// member identity -> party handle
	index map[uuid.UUID]uuid.UUID
}

type party struct {
	owner   uuid.UUID
	members map[uuid.UUID]struct{}
	regions map[uuid.UUID]Snapshot
	chunks  int
}

func NewInMemory() *InMemory {
	return &InMemory{
		parties: make(map[uuid.UUID]*party),
		index:   make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *InMemory) SnapshotsFor(partyID uuid.UUID) ([]Snapshot, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.parties[partyID]
	if !ok {
		return nil, 0, ErrUnknownParty
	}
	out := make([]Snapshot, 0, len(p.regions))
	for _, s := range p.regions {
		out = append(out, s)
	}
	return out, p.chunks, nil
}

func (m *InMemory) TransferTerritory(from, to, regionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.parties[from]
	if !ok {
		return ErrUnknownParty
	}
	dst, ok := m.parties[to]
	if !ok {
		return ErrUnknownParty
	}
	snap, ok := src.regions[regionID]
	if !ok {
		return ErrUnknownRegion
	}
	area := int(snap.Bounds.Width() * snap.Bounds.Depth())
	delete(src.regions, regionID)
	src.chunks -= area
	dst.regions[regionID] = snap
	dst.chunks += area
	return nil
}

func (m *InMemory) TransferAllTerritory(from, to uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.parties[from]
	if !ok {
		return ErrUnknownParty
	}
	dst, ok := m.parties[to]
	if !ok {
		return ErrUnknownParty
	}
	for id, snap := range src.regions {
		dst.regions[id] = snap
	}
	dst.chunks += src.chunks
	src.regions = make(map[uuid.UUID]Snapshot)
	src.chunks = 0
	return nil
}

func (m *InMemory) ResolveParty(member uuid.UUID) (uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index[member], nil
}

func (m *InMemory) EnsureParty(owner uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.index[owner]; ok {
		return id, nil
	}
	id := uuid.New()
	m.parties[id] = &party{
		owner:   owner,
		members: map[uuid.UUID]struct{}{owner: {}},
		regions: make(map[uuid.UUID]Snapshot),
	}
	m.index[owner] = id
	return id, nil
}

func (m *InMemory) AddMember(partyID, member uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[partyID]
	if !ok {
		return ErrUnknownParty
	}
	p.members[member] = struct{}{}
	m.index[member] = partyID
	return nil
}

func (m *InMemory) RemoveMember(partyID, member uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[partyID]
	if !ok {
		return ErrUnknownParty
	}
	delete(p.members, member)
	delete(m.index, member)
	return nil
}

func (m *InMemory) SyncMembers(partyID uuid.UUID, members []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[partyID]
	if !ok {
		return ErrUnknownParty
	}
	for id := range p.members {
		delete(m.index, id)
	}
	p.members = make(map[uuid.UUID]struct{}, len(members))
	for _, id := range members {
		p.members[id] = struct{}{}
		m.index[id] = partyID
	}
	return nil
}

// PutRegion installs or replaces a region snapshot, used by tests and by
// adapters feeding external claim data in.
func (m *InMemory) PutRegion(partyID uuid.UUID, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[partyID]
	if !ok {
		return ErrUnknownParty
	}
	if old, ok := p.regions[snap.RegionID]; ok {
		p.chunks -= int(old.Bounds.Width() * old.Bounds.Depth())
	}
	p.regions[snap.RegionID] = snap
	p.chunks += int(snap.Bounds.Width() * snap.Bounds.Depth())
	return nil
}
