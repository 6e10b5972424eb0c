package war

import (
	"github.com/google/uuid"

	"github.com/mezhov/kingdoms/internal/event"
)

// Advance moves every active war forward to the given tick: stamps fresh
// wars, runs capture contention on the capture interval, and resolves wars
// that ended by auto-win or timeout. Resolutions are collected during the
// scan and applied after it, so the war set is never mutated mid-iteration.
func (e *Engine) Advance(tick int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tick = tick

	type resolution struct {
		w        *War
		winner   Side
		decisive bool
	}
	var done []resolution

	for _, w := range e.wars {
		if w.startTick == 0 {
			w.startTick = tick
			e.bus.Publish(event.WarStarted{Attacker: w.attacker, Defender: w.defender})
			continue
		}
		if e.cfg.CaptureIntervalTicks > 0 && (tick-w.startTick)%e.cfg.CaptureIntervalTicks == 0 {
			e.contendLocked(w, tick)
		}
		if side := w.autoWinner(); side != SideNone {
			done = append(done, resolution{w: w, winner: side, decisive: true})
			continue
		}
		if tick-w.startTick >= e.cfg.TotalTicks() {
			done = append(done, resolution{w: w, winner: w.scoreWinner()})
		}
	}

	for _, r := range done {
		e.removeWarLocked(r.w)
		e.resolveLocked(r.w, r.winner, r.decisive)
	}
}

// scoreWinner picks the side with the higher score, SideNone on a tie.
func (w *War) scoreWinner() Side {
	switch {
	case w.attackerScore > w.defenderScore:
		return SideAttacker
	case w.defenderScore > w.attackerScore:
		return SideDefender
	}
	return SideNone
}

// contendLocked runs one capture-contention step for the war.
func (e *Engine) contendLocked(w *War, tick int64) {
	if w.phase(tick, e.cfg) == PhasePrep {
		// no contention before the active phase
		for _, c := range w.cities {
			c.Progress = 0
			c.CapturingSide = SideNone
		}
		return
	}

	occupants := e.occupancyLocked(w)

	active := w.activeContest()
	if active == nil {
		active = e.selectContestLocked(w, occupants)
		if active == nil {
			return
		}
	}

	side := active.CapturingSide
	occ := occupants[active]
	switch {
	case occ[side] > 0 && occ[side.Opposite()] == 0:
		// uncontested presence advances capture
		active.Progress += e.cfg.CaptureRate
		if active.Progress >= 1 {
			e.completeCaptureLocked(w, active)
		}
	case occ[side] > 0:
		// standoff freezes progress
	default:
		// abandonment decays it
		active.Progress -= e.cfg.CaptureDecay
		if active.Progress <= 0 {
			active.Progress = 0
			active.CapturingSide = SideNone
		}
	}
}

// occupancyLocked partitions connected players by war side and by the
// first city zone containing them.
func (e *Engine) occupancyLocked(w *War) map[*City]map[Side]int {
	out := make(map[*City]map[Side]int)
	if e.presence == nil {
		return out
	}
	radius := float64(e.cfg.CaptureRadiusChunks) * 16
	for _, pos := range e.presence.Positions() {
		k, ok := e.registry.ByMember(pos.Player)
		if !ok {
			continue
		}
		side := w.sideOf(k.Owner())
		if side == SideNone {
			continue
		}
		for _, c := range w.cities {
			// captured zones are inert; occupants there count for the
			// next overlapping contest instead
			if c.CapturedBy != SideNone || c.World != pos.World {
				continue
			}
			if abs(pos.X-float64(c.CenterX)) > radius || abs(pos.Z-float64(c.CenterZ)) > radius {
				continue
			}
			if out[c] == nil {
				out[c] = make(map[Side]int, 2)
			}
			out[c][side]++
			break // a player counts for one city only
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// selectContestLocked picks at most one new city to contest: an invader
// standing in an uncaptured enemy city, defender-original cities first.
func (e *Engine) selectContestLocked(w *War, occupants map[*City]map[Side]int) *City {
	for _, originalSide := range []Side{SideDefender, SideAttacker} {
		invader := originalSide.Opposite()
		for _, c := range w.cities {
			if c.OriginalSide != originalSide || c.CapturedBy != SideNone {
				continue
			}
			if occupants[c][invader] > 0 {
				c.CapturingSide = invader
				return c
			}
		}
	}
	return nil
}

// completeCaptureLocked finishes a capture: terminal ownership, score
// bonus, notification, and territory transfer to the capturing side's
// primary kingdom.
func (e *Engine) completeCaptureLocked(w *War, c *City) {
	side := c.CapturingSide
	c.Progress = 1
	c.CapturedBy = side
	c.CapturingSide = SideNone
	w.addScore(side, e.cfg.CityCaptureBonus)

	winnerOwner := w.primaryOf(side)
	winnerName := ""
	var recipients []uuid.UUID
	if k, ok := e.registry.ByOwner(winnerOwner); ok {
		winnerName = k.Name()
		recipients = k.Members()
	}
	if k, ok := e.registry.ByOwner(w.primaryOf(side.Opposite())); ok {
		recipients = append(recipients, k.Members()...)
	}

	e.transferCityLocked(w, c, winnerOwner)

	e.bus.Publish(event.CityCaptured{
		Attacker:   w.attacker,
		Defender:   w.defender,
		CityID:     c.RegionID,
		CityName:   c.Name,
		WinnerName: winnerName,
		SideID:     int32(side),
		Recipients: recipients,
	})
	e.log.Info("city captured", "city", c.Name, "side", side.String())
}

func (e *Engine) transferCityLocked(w *War, c *City, winnerOwner uuid.UUID) {
	if e.claims == nil {
		return
	}
	loser, ok := e.registry.ByOwner(c.OriginalOwner)
	if !ok {
		return
	}
	winner, ok := e.registry.ByOwner(winnerOwner)
	if !ok {
		return
	}
	if loser.PartyID() == uuid.Nil || winner.PartyID() == uuid.Nil {
		return
	}
	if err := e.claims.TransferTerritory(loser.PartyID(), winner.PartyID(), c.RegionID); err != nil {
		e.log.Warn("territory transfer failed", "city", c.Name, "error", err)
	}
}
