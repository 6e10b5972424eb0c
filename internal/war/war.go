// Package war implements the war lifecycle: declaration, ally join
// requests, kill scoring, periodic city-capture contention, and
// resolution with territory and membership absorption.
package war

import (
	"github.com/google/uuid"

	"github.com/mezhov/kingdoms/internal/claims"
)

// Side identifies a war party.
type Side int32

const (
	SideNone Side = iota
	SideAttacker
	SideDefender
)

// Opposite returns the other fighting side; SideNone maps to itself.
func (s Side) Opposite() Side {
	switch s {
	case SideAttacker:
		return SideDefender
	case SideDefender:
		return SideAttacker
	}
	return SideNone
}

func (s Side) String() string {
	switch s {
	case SideAttacker:
		return "attacker"
	case SideDefender:
		return "defender"
	}
	return "none"
}

// Phase is a war's lifecycle stage, derived from elapsed ticks.
type Phase int

const (
	PhasePrep Phase = iota
	PhaseActive
	PhaseExpired
)

// City is a settlement snapshotted into a war as a capturable objective.
// Once CapturedBy is set it never reverts.
type City struct {
	RegionID     uuid.UUID
	Name         string
	World        string
	CenterX      int32
	CenterZ      int32
	Bounds       claims.ChunkBounds
	OriginalSide Side
	// OriginalOwner is the kingdom owner whose settlement this was at
	// declaration time, for territory transfer on capture.
	OriginalOwner uuid.UUID

	CapturedBy    Side
	CapturingSide Side
	Progress      float64
}

// Contested reports whether the city is under an active capture attempt.
func (c *City) Contested() bool {
	return c.CapturingSide != SideNone && c.CapturedBy == SideNone
}

// War is a time-boxed conflict between two primary kingdoms, identified by
// their owners, plus allied kingdoms on each side. The engine's lock
// guards all fields; Wars never leak outside it except as copies.
type War struct {
	attacker uuid.UUID
	defender uuid.UUID

	attackerAllies map[uuid.UUID]struct{}
	defenderAllies map[uuid.UUID]struct{}

	attackerKills int
	defenderKills int
	attackerScore int
	defenderScore int

	// startTick is 0 until the first tick stamps it.
	startTick int64

	cities []*City
}

func newWar(attacker, defender uuid.UUID, cities []*City) *War {
	return &War{
		attacker:       attacker,
		defender:       defender,
		attackerAllies: make(map[uuid.UUID]struct{}),
		defenderAllies: make(map[uuid.UUID]struct{}),
		cities:         cities,
	}
}

// sideOf returns which side the kingdom owner fights on, or SideNone.
func (w *War) sideOf(owner uuid.UUID) Side {
	switch owner {
	case w.attacker:
		return SideAttacker
	case w.defender:
		return SideDefender
	}
	if _, ok := w.attackerAllies[owner]; ok {
		return SideAttacker
	}
	if _, ok := w.defenderAllies[owner]; ok {
		return SideDefender
	}
	return SideNone
}

// primaryOf returns the primary kingdom owner of the side.
func (w *War) primaryOf(s Side) uuid.UUID {
	if s == SideAttacker {
		return w.attacker
	}
	return w.defender
}

func (w *War) addAlly(owner uuid.UUID, s Side) {
	if s == SideAttacker {
		w.attackerAllies[owner] = struct{}{}
	} else {
		w.defenderAllies[owner] = struct{}{}
	}
}

// participants returns every kingdom owner involved: primaries then allies.
func (w *War) participants() []uuid.UUID {
	out := make([]uuid.UUID, 0, 2+len(w.attackerAllies)+len(w.defenderAllies))
	out = append(out, w.attacker, w.defender)
	for id := range w.attackerAllies {
		out = append(out, id)
	}
	for id := range w.defenderAllies {
		out = append(out, id)
	}
	return out
}

// phase derives the lifecycle stage at the given tick. An unstamped war is
// always in prep.
func (w *War) phase(tick int64, cfg Config) Phase {
	if w.startTick == 0 {
		return PhasePrep
	}
	elapsed := tick - w.startTick
	switch {
	case elapsed < cfg.PrepTicks:
		return PhasePrep
	case elapsed < cfg.TotalTicks():
		return PhaseActive
	default:
		return PhaseExpired
	}
}

// activeElapsed returns how many ticks of the active phase have passed,
// negative while still in prep.
func (w *War) activeElapsed(tick int64, cfg Config) int64 {
	if w.startTick == 0 {
		return -cfg.PrepTicks
	}
	return tick - w.startTick - cfg.PrepTicks
}

func (w *War) addScore(s Side, points int) {
	if s == SideAttacker {
		w.attackerScore += points
	} else {
		w.defenderScore += points
	}
}

func (w *War) addKill(s Side) {
	if s == SideAttacker {
		w.attackerKills++
	} else {
		w.defenderKills++
	}
}

// capturedCount returns how many cities the side has captured.
func (w *War) capturedCount(s Side) int {
	n := 0
	for _, c := range w.cities {
		if c.CapturedBy == s {
			n++
		}
	}
	return n
}

// autoWinner returns the side that has captured every city the opposing
// side brought into the war, or SideNone. Only the snapshot taken at
// declaration counts; cities gained afterwards are not re-evaluated.
func (w *War) autoWinner() Side {
	for _, s := range []Side{SideAttacker, SideDefender} {
		enemy := s.Opposite()
		total, taken := 0, 0
		for _, c := range w.cities {
			if c.OriginalSide != enemy {
				continue
			}
			total++
			if c.CapturedBy == s {
				taken++
			}
		}
		if total > 0 && taken == total {
			return s
		}
	}
	return SideNone
}

// activeContest returns the city currently being captured, or nil.
func (w *War) activeContest() *City {
	for _, c := range w.cities {
		if c.Contested() {
			return c
		}
	}
	return nil
}

// JoinRequest is a pending request by a kingdom to enter an existing war
// as an ally on the given side.
type JoinRequest struct {
	Requester uuid.UUID // owner of the requesting kingdom
	Attacker  uuid.UUID // the war's primaries
	Defender  uuid.UUID
	Side      Side // side the requester wants to join
}

// target returns the primary kingdom that must approve the request.
func (r JoinRequest) target() uuid.UUID {
	if r.Side == SideAttacker {
		return r.Attacker
	}
	return r.Defender
}
