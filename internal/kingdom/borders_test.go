package kingdom

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezhov/kingdoms/internal/claims"
	"github.com/mezhov/kingdoms/internal/event"
)

func TestAllowedClaims(t *testing.T) {
	tests := []struct {
		members int
		want    int
	}{
		{1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {7, 3}, {8, 4}, {20, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AllowedClaims(tt.members), "members=%d", tt.members)
	}
}

func putRegion(t *testing.T, svc *claims.InMemory, partyID uuid.UUID, name string, b claims.ChunkBounds) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, svc.PutRegion(partyID, claims.Snapshot{
		RegionID: id,
		Name:     name,
		World:    "overworld",
		CenterX:  (b.MinX + b.MaxX + 1) * ChunkSideBlocks / 2,
		CenterZ:  (b.MinZ + b.MaxZ + 1) * ChunkSideBlocks / 2,
		Bounds:   b,
	}))
	return id
}

func TestRegistry_Borders(t *testing.T) {
	r, svc := newTestRegistry(t)
	_, kA := founded(t, r, "Avalon", ColorRed)
	ownerB, kB := founded(t, r, "Camelot", ColorBlue)
	for range 2 { // трое участников => лимит в два поселения
		p := uuid.New()
		require.NoError(t, r.Invite(ownerB, p))
		require.NoError(t, r.Join(p, "Camelot"))
	}

	putRegion(t, svc, kA.PartyID(), "Avalon Keep", claims.ChunkBounds{MinX: 0, MinZ: 0, MaxX: 3, MaxZ: 3})
	// пересекается с территорией Avalon -- должен выпасть из рассылки
	putRegion(t, svc, kB.PartyID(), "Camelot Keep", claims.ChunkBounds{MinX: 2, MinZ: 2, MaxX: 5, MaxZ: 5})
	putRegion(t, svc, kB.PartyID(), "Camelot Port", claims.ChunkBounds{MinX: 50, MinZ: 50, MaxX: 52, MaxZ: 52})

	borders, warnings := r.Borders()

	require.Len(t, borders, 2)
	assert.Equal(t, "Avalon Keep", borders[0].Name)
	assert.Equal(t, "Avalon", borders[0].KingdomName)
	assert.True(t, borders[0].IsCapital)
	assert.Equal(t, ColorRed.ID(), borders[0].ColorID)
	assert.Equal(t, int32(2*ChunkSideBlocks), borders[0].RadiusBlocks)

	assert.Equal(t, "Camelot Port", borders[1].Name)
	assert.True(t, borders[1].IsCapital, "first surviving settlement is the capital")

	require.Len(t, warnings, 1)
	overlap, ok := warnings[0].(event.ClaimOverlap)
	require.True(t, ok, "warning must be a ClaimOverlap, got %T", warnings[0])
	assert.Equal(t, kB.Owner(), overlap.Owner)
}

func TestRegistry_BordersAllowanceTrim(t *testing.T) {
	r, svc := newTestRegistry(t)
	_, k := founded(t, r, "Avalon", ColorRed) // один участник => одно поселение

	putRegion(t, svc, k.PartyID(), "First", claims.ChunkBounds{MinX: 0, MinZ: 0, MaxX: 2, MaxZ: 2})
	putRegion(t, svc, k.PartyID(), "Second", claims.ChunkBounds{MinX: 10, MinZ: 10, MaxX: 12, MaxZ: 12})

	borders, warnings := r.Borders()

	assert.Len(t, borders, 1)
	require.Len(t, warnings, 1)
	limit, ok := warnings[0].(event.ClaimLimitExceeded)
	require.True(t, ok, "warning must be a ClaimLimitExceeded, got %T", warnings[0])
	assert.Equal(t, 1, limit.Allowed)
	assert.Equal(t, 2, limit.Attempted)
}

func TestRegistry_BordersRefreshesClaimCount(t *testing.T) {
	r, svc := newTestRegistry(t)
	_, k := founded(t, r, "Avalon", ColorRed)
	assert.False(t, k.IsKingdom())

	// 3x3 region crosses the nine-chunk threshold
	putRegion(t, svc, k.PartyID(), "Keep", claims.ChunkBounds{MinX: 0, MinZ: 0, MaxX: 2, MaxZ: 2})
	r.Borders()

	assert.Equal(t, 9, k.ClaimCount())
	assert.True(t, k.IsKingdom())
}
