// Package claims abstracts the external territory system: chunk ownership,
// settlement snapshots, and the party model that mirrors kingdom membership.
package claims

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUnknownParty  = errors.New("claims: unknown party")
	ErrUnknownRegion = errors.New("claims: unknown region")
)

// ChunkBounds is an inclusive chunk-coordinate bounding box.
type ChunkBounds struct {
	MinX int32 `json:"min_x"`
	MinZ int32 `json:"min_z"`
	MaxX int32 `json:"max_x"`
	MaxZ int32 `json:"max_z"`
}

// Width returns the box width in chunks.
func (b ChunkBounds) Width() int32 { return b.MaxX - b.MinX + 1 }

// Depth returns the box depth in chunks.
func (b ChunkBounds) Depth() int32 { return b.MaxZ - b.MinZ + 1 }

// Overlaps reports whether two boxes share at least one chunk.
func (b ChunkBounds) Overlaps(o ChunkBounds) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX && b.MinZ <= o.MaxZ && b.MaxZ >= o.MinZ
}

// Snapshot is a point-in-time view of one claimed settlement region.
type Snapshot struct {
	RegionID uuid.UUID
	Name     string
	World    string
	// Center in block coordinates.
	CenterX int32
	CenterZ int32
	Bounds  ChunkBounds
}

// Service is the territory system consumed by the registry and war engine.
// Implementations are external; InMemory below serves tests and standalone
// runs. Mutating calls are best-effort from the caller's point of view:
// a failure here never rolls back kingdom state.
type Service interface {
	// SnapshotsFor returns the party's settlement snapshots and its total
	// claimed chunk count.
	SnapshotsFor(partyID uuid.UUID) ([]Snapshot, int, error)

	// TransferTerritory moves a single region between parties.
	TransferTerritory(from, to, regionID uuid.UUID) error

	// TransferAllTerritory moves every region from one party to another.
	TransferAllTerritory(from, to uuid.UUID) error

	// ResolveParty returns the party an identity belongs to, or uuid.Nil.
	ResolveParty(member uuid.UUID) (uuid.UUID, error)

	// EnsureParty creates a party for the owner if none exists and returns
	// its handle.
	EnsureParty(owner uuid.UUID) (uuid.UUID, error)

	AddMember(partyID, member uuid.UUID) error
	RemoveMember(partyID, member uuid.UUID) error

	// SyncMembers replaces the party's member set wholesale.
	SyncMembers(partyID uuid.UUID, members []uuid.UUID) error
}
