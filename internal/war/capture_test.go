package war

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezhov/kingdoms/internal/event"
	"github.com/mezhov/kingdoms/internal/kingdom"
)

// captureFixture -- война Avalon→Camelot, подтверждённая на тике 1.
// Город обороняющихся стоит вокруг (1624, 24) в мире overworld.
type captureFixture struct {
	*warFixture
	attacker uuid.UUID
	defender uuid.UUID
	war      *War
}

func newCaptureFixture(t *testing.T) *captureFixture {
	t.Helper()
	f := newWarFixture(t)
	a, _ := f.foundKingdom(t, "Avalon", kingdom.ColorRed, 0)
	b, _ := f.foundKingdom(t, "Camelot", kingdom.ColorBlue, 100)
	w := f.declareWar(t, a, "Camelot")
	return &captureFixture{warFixture: f, attacker: a, defender: b, war: w}
}

func (f *captureFixture) defenderCity(t *testing.T) *City {
	t.Helper()
	for _, c := range f.war.cities {
		if c.OriginalSide == SideDefender {
			return c
		}
	}
	t.Fatal("no defender city in fixture")
	return nil
}

// standAt ставит игрока в точку мира.
func (f *captureFixture) standAt(player uuid.UUID, x, z float64) {
	f.presence.positions = append(f.presence.positions, PlayerPosition{
		Player: player,
		World:  "overworld",
		X:      x,
		Z:      z,
	})
}

func (f *captureFixture) clearPresence() { f.presence.positions = nil }

// захватные интервалы идут на тиках 1+10k; активная фаза с тика 101
func (f *captureFixture) captureTick(n int) int64 {
	return 1 + testConfig().PrepTicks + int64(n)*testConfig().CaptureIntervalTicks
}

func TestCapture_NoContentionDuringPrep(t *testing.T) {
	f := newCaptureFixture(t)
	city := f.defenderCity(t)
	f.standAt(f.attacker, float64(city.CenterX), float64(city.CenterZ))

	f.engine.Advance(11) // интервал внутри подготовки

	assert.Equal(t, SideNone, city.CapturingSide)
	assert.Zero(t, city.Progress)
}

func TestCapture_UncontestedProgress(t *testing.T) {
	f := newCaptureFixture(t)
	city := f.defenderCity(t)
	f.standAt(f.attacker, float64(city.CenterX)+30, float64(city.CenterZ)-30)

	f.engine.Advance(f.captureTick(1))
	assert.Equal(t, SideAttacker, city.CapturingSide, "attacker in defender city starts a contest")
	assert.InDelta(t, 0.25, city.Progress, 1e-9)

	f.engine.Advance(f.captureTick(2))
	assert.InDelta(t, 0.5, city.Progress, 1e-9)

	for n := 3; n <= 4; n++ {
		f.engine.Advance(f.captureTick(n))
	}
	assert.Equal(t, SideAttacker, city.CapturedBy, "four uncontested intervals complete the capture")
	assert.Equal(t, SideNone, city.CapturingSide)
	assert.Equal(t, testConfig().CityCaptureBonus, f.war.attackerScore)
	assert.Equal(t, 1, f.sink.countOf("city_captured"))
}

func TestCapture_OutOfZoneIgnored(t *testing.T) {
	f := newCaptureFixture(t)
	city := f.defenderCity(t)
	f.standAt(f.attacker, float64(city.CenterX)+100, float64(city.CenterZ)) // за радиусом
	stranger := uuid.New()
	f.standAt(stranger, float64(city.CenterX), float64(city.CenterZ)) // не в войне

	f.engine.Advance(f.captureTick(1))

	assert.Equal(t, SideNone, city.CapturingSide)
}

func TestCapture_StandoffFreezes(t *testing.T) {
	f := newCaptureFixture(t)
	city := f.defenderCity(t)

	f.standAt(f.attacker, float64(city.CenterX), float64(city.CenterZ))
	f.engine.Advance(f.captureTick(1))
	f.engine.Advance(f.captureTick(2))
	require.InDelta(t, 0.5, city.Progress, 1e-9)

	// обороняющийся входит в зону -- прогресс замирает
	f.standAt(f.defender, float64(city.CenterX)-10, float64(city.CenterZ))
	f.engine.Advance(f.captureTick(3))
	assert.InDelta(t, 0.5, city.Progress, 1e-9)
	assert.Equal(t, SideAttacker, city.CapturingSide, "standoff keeps the contest alive")
}

func TestCapture_AbandonmentDecaysAndResets(t *testing.T) {
	f := newCaptureFixture(t)
	city := f.defenderCity(t)

	f.standAt(f.attacker, float64(city.CenterX), float64(city.CenterZ))
	f.engine.Advance(f.captureTick(1))
	f.engine.Advance(f.captureTick(2))
	require.InDelta(t, 0.5, city.Progress, 1e-9)

	f.clearPresence()
	f.engine.Advance(f.captureTick(3))
	assert.InDelta(t, 0.25, city.Progress, 1e-9)
	assert.Equal(t, SideAttacker, city.CapturingSide)

	f.engine.Advance(f.captureTick(4))
	assert.Zero(t, city.Progress)
	assert.Equal(t, SideNone, city.CapturingSide, "contest resets when progress hits zero")
}

func TestCapture_SingleContestAcrossWar(t *testing.T) {
	f := newCaptureFixture(t)
	city := f.defenderCity(t)
	var attackerCity *City
	for _, c := range f.war.cities {
		if c.OriginalSide == SideAttacker {
			attackerCity = c
		}
	}
	require.NotNil(t, attackerCity)

	// по бойцу в каждом вражеском городе
	f.standAt(f.attacker, float64(city.CenterX), float64(city.CenterZ))
	f.standAt(f.defender, float64(attackerCity.CenterX), float64(attackerCity.CenterZ))

	f.engine.Advance(f.captureTick(1))

	contested := 0
	for _, c := range f.war.cities {
		if c.Contested() {
			contested++
		}
	}
	assert.Equal(t, 1, contested, "at most one contest per war")
	assert.Equal(t, SideAttacker, city.CapturingSide, "defender-original cities take priority")
	assert.Equal(t, SideNone, attackerCity.CapturingSide)
}

func TestCapture_CapturedZoneDoesNotShadowNeighbor(t *testing.T) {
	f := newCaptureFixture(t)
	city := f.defenderCity(t)

	// соседний город обороны, зона которого перекрывает первую
	neighbor := &City{
		RegionID:      uuid.New(),
		Name:          "Camelot Port",
		World:         "overworld",
		CenterX:       city.CenterX + 48,
		CenterZ:       city.CenterZ,
		OriginalSide:  SideDefender,
		OriginalOwner: f.defender,
	}
	f.war.cities = append(f.war.cities, neighbor)

	// точка внутри обеих зон
	f.standAt(f.attacker, float64(city.CenterX)+20, float64(city.CenterZ))

	for n := 1; n <= 4; n++ {
		f.engine.Advance(f.captureTick(n))
	}
	require.Equal(t, SideAttacker, city.CapturedBy)
	require.Equal(t, 1, f.engine.Count(), "war continues while a defender city stands")

	f.engine.Advance(f.captureTick(5))

	assert.Equal(t, SideAttacker, neighbor.CapturingSide,
		"occupant of a captured zone still counts for the live neighbor")
	assert.InDelta(t, 0.25, neighbor.Progress, 1e-9)
}

func TestCapture_MonotonicOwnership(t *testing.T) {
	f := newCaptureFixture(t)
	city := f.defenderCity(t)
	f.standAt(f.attacker, float64(city.CenterX), float64(city.CenterZ))

	n := 1
	for city.CapturedBy == SideNone {
		require.Less(t, n, 20, "capture must complete")
		f.engine.Advance(f.captureTick(n))
		n++
	}

	// обороняющийся стоит в своём захваченном городе -- возврата нет
	f.clearPresence()
	f.standAt(f.defender, float64(city.CenterX), float64(city.CenterZ))
	for ; n < 10; n++ {
		f.engine.Advance(f.captureTick(n))
	}
	assert.Equal(t, SideAttacker, city.CapturedBy)
	assert.Equal(t, testConfig().CityCaptureBonus, f.war.attackerScore, "bonus is paid exactly once")
	assert.Equal(t, 1, f.sink.countOf("city_captured"))
}

func TestCapture_TerritoryTransferOnce(t *testing.T) {
	f := newCaptureFixture(t)
	city := f.defenderCity(t)
	f.standAt(f.attacker, float64(city.CenterX), float64(city.CenterZ))

	for n := 1; n <= 6 && city.CapturedBy == SideNone; n++ {
		f.engine.Advance(f.captureTick(n))
	}
	require.Equal(t, SideAttacker, city.CapturedBy)

	winner, ok := f.registry.ByName("Avalon")
	require.True(t, ok)
	snaps, _, err := f.claims.SnapshotsFor(winner.PartyID())
	require.NoError(t, err)
	assert.Len(t, snaps, 2, "captured settlement moved to the attacker")
}

func TestCapture_AutoWinAbsorbs(t *testing.T) {
	f := newCaptureFixture(t)
	city := f.defenderCity(t)
	f.standAt(f.attacker, float64(city.CenterX), float64(city.CenterZ))

	// единственный город обороны захвачен -- автопобеда с поглощением
	for n := 1; n <= 8 && f.engine.Count() > 0; n++ {
		f.engine.Advance(f.captureTick(n))
	}

	assert.Equal(t, 0, f.engine.Count())
	_, exists := f.registry.ByName("Camelot")
	assert.False(t, exists)
	require.Equal(t, 1, f.sink.countOf("war_resolved"))
	for _, e := range f.sink.events {
		if res, ok := e.(event.WarResolved); ok {
			assert.True(t, res.Absorbed, "auto-win is decisive")
			assert.Equal(t, int32(SideAttacker), res.WinnerSideID)
			assert.Equal(t, 1, res.AttackerCities)
		}
	}
}

func TestCapture_ZoneEdgeInclusive(t *testing.T) {
	// зона 4 чанка = 64 блока от центра
	f := newCaptureFixture(t)
	city := f.defenderCity(t)

	f.standAt(f.attacker, float64(city.CenterX)+64, float64(city.CenterZ)-64)
	f.engine.Advance(f.captureTick(1))
	assert.Equal(t, SideAttacker, city.CapturingSide, "zone edge is inclusive")
}
