package netsync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezhov/kingdoms/internal/claims"
	"github.com/mezhov/kingdoms/internal/event"
	"github.com/mezhov/kingdoms/internal/kingdom"
	"github.com/mezhov/kingdoms/internal/netsync/packet"
	"github.com/mezhov/kingdoms/internal/war"
)

type hubFixture struct {
	hub      *Hub
	registry *kingdom.Registry
	engine   *war.Engine
	claims   *claims.InMemory
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	svc := claims.NewInMemory()
	reg := kingdom.NewRegistry(svc, event.Nop, nil)
	f := &hubFixture{registry: reg, claims: svc}
	f.hub = NewHub(reg, nil, nil)
	f.engine = war.NewEngine(war.DefaultConfig(), reg, svc, f.hub, event.Nop, nil)
	f.hub.SetEngine(f.engine)
	return f
}

// хелпер: королевство с территорией, пригодное для войны
func (f *hubFixture) foundKingdom(t *testing.T, name string, origin int32) uuid.UUID {
	t.Helper()
	owner := uuid.New()
	k, err := f.registry.Create(owner, name, kingdom.ColorRed)
	require.NoError(t, err)
	require.NoError(t, f.claims.PutRegion(k.PartyID(), claims.Snapshot{
		RegionID: uuid.New(),
		Name:     name + " Keep",
		World:    "overworld",
		CenterX:  origin*16 + 24,
		CenterZ:  24,
		Bounds:   claims.ChunkBounds{MinX: origin, MinZ: 0, MaxX: origin + 2, MaxZ: 2},
	}))
	f.registry.RefreshClaims()
	return owner
}

// drain собирает всё, что уже лежит в очереди наблюдателя.
func drain(o *Observer) [][]byte {
	var out [][]byte
	for {
		select {
		case payload := <-o.Outbound():
			out = append(out, payload)
		default:
			return out
		}
	}
}

func opcodeOf(t *testing.T, payload []byte) byte {
	t.Helper()
	r := packet.NewReader(payload)
	op, err := r.ReadByte()
	require.NoError(t, err)
	return op
}

func TestHub_AttachDetach(t *testing.T) {
	f := newHubFixture(t)
	player := uuid.New()

	first := f.hub.Attach(player, "arthur")
	assert.Len(t, f.hub.Observers(), 1)

	// reconnect вытесняет старую сессию
	second := f.hub.Attach(player, "arthur")
	_, open := <-first.Outbound()
	assert.False(t, open, "replaced session's queue is closed")

	f.hub.Detach(first)
	assert.Len(t, f.hub.Observers(), 1, "stale detach must not drop the live session")

	f.hub.Detach(second)
	assert.Empty(t, f.hub.Observers())
}

func TestHub_SendAfterReplaceIsDropped(t *testing.T) {
	f := newHubFixture(t)
	player := uuid.New()

	first := f.hub.Attach(player, "arthur")
	second := f.hub.Attach(player, "arthur")

	// старое соединение ещё может дослать ответ на команду
	assert.NotPanics(t, func() {
		first.Send(Notice("late reply"))
	})
	assert.Empty(t, drain(second), "late send must not leak into the new session")

	f.hub.Detach(second)
	assert.NotPanics(t, func() {
		second.Send(Notice("after detach"))
	})
}

func TestHub_Positions(t *testing.T) {
	f := newHubFixture(t)
	a := f.hub.Attach(uuid.New(), "arthur")
	b := f.hub.Attach(uuid.New(), "lancelot")

	a.SetPosition("overworld", 100, -40)
	// b ещё не прислал позицию

	positions := f.hub.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, a.Player, positions[0].Player)
	assert.Equal(t, "overworld", positions[0].World)
	assert.Equal(t, 100.0, positions[0].X)
	assert.Equal(t, -40.0, positions[0].Z)

	b.SetPosition("nether", 0, 0)
	assert.Len(t, f.hub.Positions(), 2)
}

func TestHub_SendQueueDropsWhenFull(t *testing.T) {
	f := newHubFixture(t)
	o := f.hub.Attach(uuid.New(), "arthur")

	for i := 0; i < sendQueueSize+10; i++ {
		o.Send(Notice("tick"))
	}
	assert.Len(t, drain(o), sendQueueSize, "overflow is dropped, not blocking")
}

func TestHub_FlushRendersEvents(t *testing.T) {
	f := newHubFixture(t)
	member := uuid.New()
	stranger := f.hub.Attach(uuid.New(), "stranger")
	obs := f.hub.Attach(member, "arthur")

	f.hub.Publish(event.KingdomFounded{KingdomName: "Avalon"})
	f.hub.Publish(event.MemberJoined{KingdomName: "Avalon", Recipients: []uuid.UUID{member}})

	assert.Empty(t, drain(obs), "publish only enqueues; nothing is sent before a flush")

	dirty := f.hub.Flush()
	assert.True(t, dirty, "membership changes invalidate suggestions")

	got := drain(obs)
	require.Len(t, got, 2, "broadcast plus targeted notice")
	assert.Equal(t, byte(OpcodeNotice), opcodeOf(t, got[0]))

	assert.Len(t, drain(stranger), 1, "stranger sees only the broadcast")

	assert.False(t, f.hub.Flush(), "queue is drained")
}

func TestHub_FlushWarResult(t *testing.T) {
	f := newHubFixture(t)
	member := uuid.New()
	obs := f.hub.Attach(member, "arthur")

	f.hub.Publish(event.WarResolved{
		AttackerName: "Avalon",
		DefenderName: "Camelot",
		WinnerSideID: 1,
		Recipients:   []uuid.UUID{member},
	})
	require.True(t, f.hub.Flush())

	got := drain(obs)
	require.Len(t, got, 1)
	assert.Equal(t, byte(OpcodeWarResult), opcodeOf(t, got[0]))
}

func TestHub_SuggestionsFor(t *testing.T) {
	f := newHubFixture(t)
	attackerOwner := f.foundKingdom(t, "Avalon", 0)
	f.foundKingdom(t, "Camelot", 100)
	f.foundKingdom(t, "Eldoria", 200)

	f.hub.Attach(attackerOwner, "arthur")
	f.hub.Attach(uuid.New(), "wanderer")

	s := f.hub.SuggestionsFor(attackerOwner)
	assert.ElementsMatch(t, []string{"Avalon", "Camelot", "Eldoria"}, s.KingdomNames)
	assert.ElementsMatch(t, []string{"Camelot", "Eldoria"}, s.WarTargets, "own kingdom excluded")
	assert.ElementsMatch(t, []string{"wanderer"}, s.InviteTargets, "only kingdom-less players")
	assert.Empty(t, s.WarRequestTargets, "no wars yet")

	require.NoError(t, f.engine.Declare(attackerOwner, "Camelot"))
	s = f.hub.SuggestionsFor(attackerOwner)
	assert.ElementsMatch(t, []string{"Eldoria"}, s.WarTargets, "belligerents are not targets")
	assert.ElementsMatch(t, []string{"Avalon", "Camelot"}, s.WarRequestTargets)
}

func TestHub_SyncBorders(t *testing.T) {
	f := newHubFixture(t)
	f.foundKingdom(t, "Avalon", 0)
	o := f.hub.Attach(uuid.New(), "arthur")

	f.hub.SyncBorders(o)
	got := drain(o)
	require.Len(t, got, 1)
	assert.Equal(t, byte(OpcodeBorderSync), opcodeOf(t, got[0]))
}

func TestHub_ResolveName(t *testing.T) {
	f := newHubFixture(t)
	player := uuid.New()
	f.hub.Attach(player, "arthur")

	id, ok := f.hub.ResolveName("arthur")
	require.True(t, ok)
	assert.Equal(t, player, id)

	_, ok = f.hub.ResolveName("mordred")
	assert.False(t, ok)

	name, ok := f.hub.NameOf(player)
	require.True(t, ok)
	assert.Equal(t, "arthur", name)

	_, ok = f.hub.NameOf(uuid.New())
	assert.False(t, ok)
}
