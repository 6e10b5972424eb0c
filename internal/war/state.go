package war

import "github.com/google/uuid"

// WarState is the durable form of one war. City snapshots are not
// persisted: they are rebuilt from current claims when the war is
// restored, and the start tick is re-stamped because tick counts do not
// survive a server restart.
type WarState struct {
	Attacker       uuid.UUID   `json:"attacker"`
	Defender       uuid.UUID   `json:"defender"`
	AttackerAllies []uuid.UUID `json:"attacker_allies,omitempty"`
	DefenderAllies []uuid.UUID `json:"defender_allies,omitempty"`
	AttackerKills  int         `json:"attacker_kills,omitempty"`
	DefenderKills  int         `json:"defender_kills,omitempty"`
	AttackerScore  int         `json:"attacker_score,omitempty"`
	DefenderScore  int         `json:"defender_score,omitempty"`
	StartTick      int64       `json:"start_tick,omitempty"`
}

// RequestState is the durable form of one pending join request.
type RequestState struct {
	Requester uuid.UUID `json:"requester"`
	Attacker  uuid.UUID `json:"attacker"`
	Defender  uuid.UUID `json:"defender"`
	Side      int32     `json:"side"`
}

// EngineState is the durable form of the whole war engine.
type EngineState struct {
	Wars     []WarState     `json:"wars,omitempty"`
	Requests []RequestState `json:"requests,omitempty"`
}

// Snapshot captures a point-in-time copy of all war state.
func (e *Engine) Snapshot() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := EngineState{Wars: make([]WarState, 0, len(e.wars))}
	for _, w := range e.wars {
		ws := WarState{
			Attacker:      w.attacker,
			Defender:      w.defender,
			AttackerKills: w.attackerKills,
			DefenderKills: w.defenderKills,
			AttackerScore: w.attackerScore,
			DefenderScore: w.defenderScore,
			StartTick:     w.startTick,
		}
		for id := range w.attackerAllies {
			ws.AttackerAllies = append(ws.AttackerAllies, id)
		}
		for id := range w.defenderAllies {
			ws.DefenderAllies = append(ws.DefenderAllies, id)
		}
		st.Wars = append(st.Wars, ws)
	}
	for _, r := range e.requests {
		st.Requests = append(st.Requests, RequestState{
			Requester: r.Requester,
			Attacker:  r.Attacker,
			Defender:  r.Defender,
			Side:      int32(r.Side),
		})
	}
	return st
}

// Restore replaces all engine state with the decoded snapshot. Wars whose
// primary kingdoms no longer exist are dropped; surviving wars get fresh
// city snapshots and an unstamped start tick, so the next scheduler tick
// restarts their clock.
func (e *Engine) Restore(st EngineState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.wars = nil
	e.index = make(map[uuid.UUID]*War)
	e.requests = nil

	for _, ws := range st.Wars {
		attacker, ok := e.registry.ByOwner(ws.Attacker)
		if !ok {
			e.log.Warn("dropping restored war, attacker gone", "attacker", ws.Attacker)
			continue
		}
		defender, ok := e.registry.ByOwner(ws.Defender)
		if !ok {
			e.log.Warn("dropping restored war, defender gone", "defender", ws.Defender)
			continue
		}
		cities := append(
			e.snapshotCities(attacker, SideAttacker),
			e.snapshotCities(defender, SideDefender)...,
		)
		w := newWar(ws.Attacker, ws.Defender, cities)
		w.attackerKills = ws.AttackerKills
		w.defenderKills = ws.DefenderKills
		w.attackerScore = ws.AttackerScore
		w.defenderScore = ws.DefenderScore

		e.wars = append(e.wars, w)
		e.index[w.attacker] = w
		e.index[w.defender] = w
		for _, id := range ws.AttackerAllies {
			if _, ok := e.registry.ByOwner(id); !ok {
				continue
			}
			w.addAlly(id, SideAttacker)
			e.index[id] = w
		}
		for _, id := range ws.DefenderAllies {
			if _, ok := e.registry.ByOwner(id); !ok {
				continue
			}
			w.addAlly(id, SideDefender)
			e.index[id] = w
		}
	}

	for _, rs := range st.Requests {
		side := Side(rs.Side)
		if side != SideAttacker && side != SideDefender {
			continue
		}
		if _, ok := e.registry.ByOwner(rs.Requester); !ok {
			continue
		}
		if _, busy := e.index[rs.Requester]; busy {
			continue
		}
		w, ok := e.index[rs.Attacker]
		if !ok || w.attacker != rs.Attacker || w.defender != rs.Defender {
			continue
		}
		e.requests = append(e.requests, JoinRequest{
			Requester: rs.Requester,
			Attacker:  rs.Attacker,
			Defender:  rs.Defender,
			Side:      side,
		})
	}

	if len(e.wars) > 0 {
		e.log.Info("wars restored", "count", len(e.wars), "requests", len(e.requests))
	}
}
