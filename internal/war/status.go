package war

import (
	"github.com/google/uuid"
)

// TicksPerSecond is the server tick rate.
const TicksPerSecond = 20

// Status is a point-in-time view of one war for HUD display.
type Status struct {
	AttackerName    string
	DefenderName    string
	AttackerColorID int32
	DefenderColorID int32
	AttackerKills   int
	DefenderKills   int
	AttackerScore   int
	DefenderScore   int
	// PrepSecondsRemaining counts down the preparation phase; zero once
	// the war is active.
	PrepSecondsRemaining int64
	// SecondsRemaining counts down the active phase.
	SecondsRemaining int64
	// ActiveCityName is the settlement under contention, empty if none.
	ActiveCityName  string
	CaptureProgress float64
}

// StatusFor builds the HUD snapshot for the war the player's kingdom is
// fighting. Returns false if the player is not in any active war.
func (e *Engine) StatusFor(player uuid.UUID) (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	k, ok := e.registry.ByMember(player)
	if !ok {
		return Status{}, false
	}
	w, ok := e.index[k.Owner()]
	if !ok {
		return Status{}, false
	}
	return e.statusLocked(w), true
}

func (e *Engine) statusLocked(w *War) Status {
	st := Status{
		AttackerKills: w.attackerKills,
		DefenderKills: w.defenderKills,
		AttackerScore: w.attackerScore,
		DefenderScore: w.defenderScore,
	}
	if k, ok := e.registry.ByOwner(w.attacker); ok {
		st.AttackerName = k.Name()
		st.AttackerColorID = k.Color().ID()
	}
	if k, ok := e.registry.ByOwner(w.defender); ok {
		st.DefenderName = k.Name()
		st.DefenderColorID = k.Color().ID()
	}

	prepLeft := e.cfg.PrepTicks
	activeLeft := e.cfg.ActiveTicks
	if w.startTick != 0 {
		elapsed := e.tick - w.startTick
		prepLeft = max(e.cfg.PrepTicks-elapsed, 0)
		activeLeft = min(max(e.cfg.TotalTicks()-elapsed, 0), e.cfg.ActiveTicks)
	}
	st.PrepSecondsRemaining = prepLeft / TicksPerSecond
	st.SecondsRemaining = activeLeft / TicksPerSecond

	if c := w.activeContest(); c != nil {
		st.ActiveCityName = c.Name
		st.CaptureProgress = c.Progress
	}
	return st
}

// Count returns the number of active wars.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.wars)
}

// Belligerents returns the names of kingdoms currently at war, for
// completion lists.
func (e *Engine) Belligerents() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for owner := range e.index {
		if k, ok := e.registry.ByOwner(owner); ok {
			out = append(out, k.Name())
		}
	}
	return out
}
