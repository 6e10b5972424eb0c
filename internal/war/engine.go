package war

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mezhov/kingdoms/internal/claims"
	"github.com/mezhov/kingdoms/internal/event"
	"github.com/mezhov/kingdoms/internal/kingdom"
)

// PlayerPosition is a connected player's location, fed by the presence
// provider for capture contention.
type PlayerPosition struct {
	Player uuid.UUID
	World  string
	X      float64
	Z      float64
}

// Presence supplies the positions of currently connected players.
type Presence interface {
	Positions() []PlayerPosition
}

// Engine owns all active wars and pending join requests. Its mutex is the
// outer lock of the system: engine methods may call into the registry, but
// never the other way around.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	registry *kingdom.Registry
	claims   claims.Service
	presence Presence
	bus      event.Sink
	log      *slog.Logger

	tick     int64
	wars     []*War
	index    map[uuid.UUID]*War // participant owner -> war
	requests []JoinRequest
}

// NewEngine creates an engine over the registry and claims provider.
// presence may be nil; capture contention then sees an empty world.
func NewEngine(cfg Config, reg *kingdom.Registry, svc claims.Service, pres Presence, bus event.Sink, log *slog.Logger) *Engine {
	if bus == nil {
		bus = event.Nop
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		registry: reg,
		claims:   svc,
		presence: pres,
		bus:      bus,
		log:      log.With("component", "war"),
		index:    make(map[uuid.UUID]*War),
	}
}

// Declare starts a war between the requester's kingdom and the named
// defender. The requester must own their kingdom and both sides must be
// war-eligible and war-free. Cities are snapshotted immediately; the
// start tick is stamped on the next scheduler tick.
func (e *Engine) Declare(requester uuid.UUID, defenderName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	attacker, ok := e.registry.ByOwner(requester)
	if !ok {
		return ErrNoPermission
	}
	defender, ok := e.registry.ByName(defenderName)
	if !ok {
		return ErrUnknownKingdom
	}
	if attacker.Owner() == defender.Owner() {
		return ErrSelfTarget
	}
	if !attacker.IsKingdom() {
		return ErrNotAKingdom
	}
	if !defender.IsKingdom() {
		return ErrNotAKingdom
	}
	if _, busy := e.index[attacker.Owner()]; busy {
		return ErrAlreadyAtWar
	}
	if _, busy := e.index[defender.Owner()]; busy {
		return ErrTargetBusy
	}

	cities := append(
		e.snapshotCities(attacker, SideAttacker),
		e.snapshotCities(defender, SideDefender)...,
	)
	w := newWar(attacker.Owner(), defender.Owner(), cities)
	// before the first scheduler tick e.tick is 0 and the war stays
	// unstamped until Advance confirms it
	w.startTick = e.tick
	e.wars = append(e.wars, w)
	e.index[w.attacker] = w
	e.index[w.defender] = w

	e.bus.Publish(event.WarDeclared{
		Attacker:     w.attacker,
		Defender:     w.defender,
		AttackerName: attacker.Name(),
		DefenderName: defender.Name(),
		Recipients:   append(attacker.Members(), defender.Members()...),
	})
	e.log.Info("war declared",
		"attacker", attacker.Name(),
		"defender", defender.Name(),
		"cities", len(cities))
	return nil
}

// snapshotCities freezes a kingdom's current settlements into war cities.
func (e *Engine) snapshotCities(k *kingdom.Kingdom, side Side) []*City {
	if e.claims == nil || k.PartyID() == uuid.Nil {
		return nil
	}
	snaps, _, err := e.claims.SnapshotsFor(k.PartyID())
	if err != nil {
		e.log.Warn("city snapshot failed", "kingdom", k.Name(), "error", err)
		return nil
	}
	cities := make([]*City, 0, len(snaps))
	for _, s := range snaps {
		cities = append(cities, &City{
			RegionID:      s.RegionID,
			Name:          s.Name,
			World:         s.World,
			CenterX:       s.CenterX,
			CenterZ:       s.CenterZ,
			Bounds:        s.Bounds,
			OriginalSide:  side,
			OriginalOwner: k.Owner(),
		})
	}
	return cities
}

// RequestAssistance asks to join the war the named kingdom is fighting,
// on that kingdom's side. Any member may ask; the requester's kingdom must
// be war-free.
func (e *Engine) RequestAssistance(requester uuid.UUID, allyName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rk, ok := e.registry.ByMember(requester)
	if !ok {
		return ErrNotMember
	}
	if !rk.IsKingdom() {
		return ErrNotAKingdom
	}
	if _, busy := e.index[rk.Owner()]; busy {
		return ErrAlreadyAtWar
	}
	ally, ok := e.registry.ByName(allyName)
	if !ok {
		return ErrUnknownKingdom
	}
	if ally.Owner() == rk.Owner() {
		return ErrSelfTarget
	}
	w, ok := e.index[ally.Owner()]
	if !ok {
		return ErrNotAtWar
	}
	side := w.sideOf(ally.Owner())
	for _, req := range e.requests {
		if req.Requester == rk.Owner() && req.Attacker == w.attacker && req.Defender == w.defender {
			return ErrRequestPending
		}
	}

	e.requests = append(e.requests, JoinRequest{
		Requester: rk.Owner(),
		Attacker:  w.attacker,
		Defender:  w.defender,
		Side:      side,
	})

	target := w.primaryOf(side)
	tk, _ := e.registry.ByOwner(target)
	recipients := rk.Members()
	targetName := allyName
	if tk != nil {
		recipients = append(recipients, tk.Members()...)
		targetName = tk.Name()
	}
	e.bus.Publish(event.WarAssistRequested{
		Requester:     rk.Owner(),
		RequesterName: rk.Name(),
		Target:        target,
		TargetName:    targetName,
		Recipients:    recipients,
	})
	return nil
}

// Respond approves or denies a pending assistance request addressed to the
// responder's kingdom. Approval re-checks that the requester is still
// war-free before adding them as an ally.
func (e *Engine) Respond(responder uuid.UUID, requesterName string, approve bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rk, ok := e.registry.ByMember(responder)
	if !ok {
		return ErrNotMember
	}
	if !rk.RoleOf(responder).IsCommandRank() {
		return ErrNoPermission
	}
	req, ok := e.registry.ByName(requesterName)
	if !ok {
		return ErrUnknownKingdom
	}

	idx := -1
	for i, r := range e.requests {
		if r.Requester == req.Owner() && r.target() == rk.Owner() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNoRequest
	}
	r := e.requests[idx]

	if approve {
		// re-validate before touching anything
		if _, busy := e.index[r.Requester]; busy {
			return ErrAlreadyAtWar
		}
		w, ok := e.index[r.target()]
		if !ok || w.attacker != r.Attacker || w.defender != r.Defender {
			return ErrNoRequest
		}
		w.addAlly(r.Requester, r.Side)
		e.index[r.Requester] = w
	}
	e.requests = append(e.requests[:idx], e.requests[idx+1:]...)

	opponentName := ""
	if w, ok := e.index[rk.Owner()]; ok {
		if opp, ok := e.registry.ByOwner(w.primaryOf(w.sideOf(rk.Owner()).Opposite())); ok {
			opponentName = opp.Name()
		}
	}
	e.bus.Publish(event.WarAssistResolved{
		Requester:     req.Owner(),
		RequesterName: req.Name(),
		Responder:     rk.Owner(),
		ResponderName: rk.Name(),
		OpponentName:  opponentName,
		Approved:      approve,
		Recipients:    append(rk.Members(), req.Members()...),
	})
	return nil
}

// RecordKill scores a combat kill. Silently ignored unless killer and
// victim fight the same war on opposite sides, the war is active, and the
// victim outranks a citizen.
func (e *Engine) RecordKill(killer, victim uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	kk, ok := e.registry.ByMember(killer)
	if !ok {
		return
	}
	vk, ok := e.registry.ByMember(victim)
	if !ok {
		return
	}
	w, ok := e.index[kk.Owner()]
	if !ok {
		return
	}
	killerSide := w.sideOf(kk.Owner())
	victimSide := w.sideOf(vk.Owner())
	if victimSide == SideNone || victimSide == killerSide {
		return
	}
	if w.phase(e.tick, e.cfg) != PhaseActive {
		return
	}
	role := vk.RoleOf(victim)
	if role == kingdom.RoleCitizen {
		return
	}

	points := role.KillPoints()
	w.addScore(killerSide, points)
	w.addKill(killerSide)

	e.bus.Publish(event.KillRecorded{
		Attacker: w.attacker,
		Defender: w.defender,
		Killer:   killer,
		Points:   points,
	})
}

// Surrender concedes the requester's war. Only the owner of a primary may
// concede, and only once the minimum stretch of the active phase has run.
// The opposing side wins and absorbs the loser.
func (e *Engine) Surrender(requester uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	k, ok := e.registry.ByOwner(requester)
	if !ok {
		return ErrNoPermission
	}
	w, ok := e.index[k.Owner()]
	if !ok || (w.attacker != k.Owner() && w.defender != k.Owner()) {
		return ErrNotAtWar
	}
	if w.activeElapsed(e.tick, e.cfg) < e.cfg.SurrenderAfterTicks {
		return ErrSurrenderEarly
	}

	winner := w.sideOf(k.Owner()).Opposite()
	e.removeWarLocked(w)
	e.resolveLocked(w, winner, true)
	return nil
}

// removeWarLocked drops the war from the active set and clears every index
// entry and pending request touching it.
func (e *Engine) removeWarLocked(w *War) {
	for i, other := range e.wars {
		if other == w {
			e.wars = append(e.wars[:i], e.wars[i+1:]...)
			break
		}
	}
	for _, id := range w.participants() {
		delete(e.index, id)
	}
	kept := e.requests[:0]
	for _, r := range e.requests {
		if r.Attacker != w.attacker || r.Defender != w.defender {
			kept = append(kept, r)
		}
	}
	e.requests = kept
}

// AtWar reports whether the kingdom owner participates in any active war.
func (e *Engine) AtWar(owner uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.index[owner]
	return ok
}
