package netsync

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mezhov/kingdoms/internal/event"
	"github.com/mezhov/kingdoms/internal/kingdom"
	"github.com/mezhov/kingdoms/internal/war"
)

// sendQueueSize bounds the per-observer outbound queue. A slow client
// drops packets instead of stalling broadcasts.
const sendQueueSize = 64

// Observer is one connected player client.
type Observer struct {
	Player uuid.UUID
	Name   string

	mu     sync.Mutex
	world  string
	x, z   float64
	closed bool

	send chan []byte
}

// Send enqueues a payload, dropping it if the observer's queue is full.
// Safe to call after the session was superseded or detached; late sends
// from a still-draining connection goroutine are dropped.
func (o *Observer) Send(payload []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.send <- payload:
	default:
	}
}

// closeSend shuts the outbound queue exactly once, signalling the write
// pump to exit.
func (o *Observer) closeSend() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.send)
	}
}

// Outbound returns the channel the connection's write pump drains.
func (o *Observer) Outbound() <-chan []byte {
	return o.send
}

// SetPosition records the observer's last reported location.
func (o *Observer) SetPosition(world string, x, z float64) {
	o.mu.Lock()
	o.world, o.x, o.z = world, x, z
	o.mu.Unlock()
}

// Hub tracks connected observers and fans realm changes out to them.
// It consumes domain events as a sink: Publish only enqueues, and the
// scheduler drains the queue outside the domain locks, so sinks never
// re-enter the registry or the engine.
type Hub struct {
	registry *kingdom.Registry
	engine   *war.Engine
	log      *slog.Logger

	mu        sync.Mutex
	observers map[uuid.UUID]*Observer
	queue     []event.Event
}

// NewHub creates an empty hub over the realm queried during flushes.
func NewHub(reg *kingdom.Registry, eng *war.Engine, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		registry:  reg,
		engine:    eng,
		log:       log.With("component", "hub"),
		observers: make(map[uuid.UUID]*Observer),
	}
}

// SetEngine late-binds the war engine. The hub is the engine's presence
// source and the engine feeds the hub's suggestion lists, so one side of
// the pair is wired after construction.
func (h *Hub) SetEngine(eng *war.Engine) {
	h.engine = eng
}

// Attach registers a connected player and returns its observer handle.
// A reconnect replaces the previous session.
func (h *Hub) Attach(player uuid.UUID, name string) *Observer {
	o := &Observer{
		Player: player,
		Name:   name,
		send:   make(chan []byte, sendQueueSize),
	}
	h.mu.Lock()
	if old, ok := h.observers[player]; ok {
		old.closeSend()
	}
	h.observers[player] = o
	h.mu.Unlock()

	h.log.Info("observer attached", "player", player, "name", name)
	return o
}

// Detach removes the observer if it is still the player's current session.
func (h *Hub) Detach(o *Observer) {
	h.mu.Lock()
	if cur, ok := h.observers[o.Player]; ok && cur == o {
		delete(h.observers, o.Player)
		o.closeSend()
	}
	h.mu.Unlock()
}

// Observers returns a snapshot of the connected player identities.
func (h *Hub) Observers() []uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]uuid.UUID, 0, len(h.observers))
	for id := range h.observers {
		out = append(out, id)
	}
	return out
}

// Positions implements war.Presence.
func (h *Hub) Positions() []war.PlayerPosition {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]war.PlayerPosition, 0, len(h.observers))
	for _, o := range h.observers {
		o.mu.Lock()
		if o.world != "" {
			out = append(out, war.PlayerPosition{
				Player: o.Player,
				World:  o.world,
				X:      o.x,
				Z:      o.z,
			})
		}
		o.mu.Unlock()
	}
	return out
}

// Broadcast sends the payload to every connected observer.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, o := range h.observers {
		o.Send(payload)
	}
}

// SendTo sends the payload to the listed players, skipping the absent.
func (h *Hub) SendTo(players []uuid.UUID, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range players {
		if o, ok := h.observers[id]; ok {
			o.Send(payload)
		}
	}
}

// Publish implements event.Sink by enqueueing for the next flush.
func (h *Hub) Publish(e event.Event) {
	h.mu.Lock()
	h.queue = append(h.queue, e)
	h.mu.Unlock()
}

// Flush drains queued events, rendering notices and result packets to
// their recipients. Returns whether any event should refresh suggestion
// lists. Called by the scheduler once per tick, outside the domain locks.
func (h *Hub) Flush() (suggestionsDirty bool) {
	h.mu.Lock()
	pending := h.queue
	h.queue = nil
	h.mu.Unlock()

	for _, e := range pending {
		if h.render(e) {
			suggestionsDirty = true
		}
	}
	return suggestionsDirty
}

// render turns one domain event into observer traffic. Returns whether
// the event invalidates suggestion lists.
func (h *Hub) render(e event.Event) bool {
	switch ev := e.(type) {
	case event.KingdomFounded:
		h.Broadcast(Notice(fmt.Sprintf("Kingdom %s has been founded!", ev.KingdomName)))
		return true
	case event.KingdomRenamed:
		h.Broadcast(Notice(fmt.Sprintf("%s is now known as %s", ev.OldName, ev.NewName)))
		return true
	case event.KingdomDisbanded:
		h.Broadcast(Notice(fmt.Sprintf("Kingdom %s has been disbanded", ev.KingdomName)))
		return true
	case event.KingdomAbsorbed:
		h.Broadcast(Notice(fmt.Sprintf("%s has been absorbed into %s", ev.LoserName, ev.WinnerName)))
		return true
	case event.InviteSent:
		h.SendTo([]uuid.UUID{ev.Invitee},
			Notice(fmt.Sprintf("You are invited to join %s", ev.KingdomName)))
		return true
	case event.MemberJoined:
		h.SendTo(ev.Recipients, Notice(fmt.Sprintf("A new member joined %s", ev.KingdomName)))
		return true
	case event.MemberLeft:
		return true
	case event.ClaimLimitExceeded:
		h.SendTo(ev.Recipients, Notice(fmt.Sprintf(
			"Your kingdom shows only %d of %d settlements; recruit more members", ev.Allowed, ev.Attempted)))
	case event.ClaimOverlap:
		h.SendTo(ev.Recipients, Notice(fmt.Sprintf(
			"A settlement in %s overlaps foreign territory and is hidden", ev.World)))
	case event.WarDeclared:
		h.SendTo(ev.Recipients, Notice(fmt.Sprintf(
			"War! %s has declared war on %s", ev.AttackerName, ev.DefenderName)))
		return true
	case event.WarAssistRequested:
		h.SendTo(ev.Recipients, Notice(fmt.Sprintf(
			"%s requests to join the war on the side of %s", ev.RequesterName, ev.TargetName)))
	case event.WarAssistResolved:
		verdict := "denied"
		if ev.Approved {
			verdict = "approved"
		}
		h.SendTo(ev.Recipients, Notice(fmt.Sprintf(
			"%s's request to join the war was %s by %s", ev.RequesterName, verdict, ev.ResponderName)))
		return ev.Approved
	case event.CityCaptured:
		h.SendTo(ev.Recipients, Notice(fmt.Sprintf("%s has captured %s!", ev.WinnerName, ev.CityName)))
	case event.WarResolved:
		h.SendTo(ev.Recipients, WarResult(ev))
		return true
	}
	return false
}

// SuggestionsFor precomputes the completion lists for one observer.
func (h *Hub) SuggestionsFor(player uuid.UUID) Suggestions {
	s := Suggestions{
		KingdomNames:      h.registry.Names(),
		WarRequestTargets: h.engine.Belligerents(),
	}

	h.mu.Lock()
	nameOf := make(map[uuid.UUID]string, len(h.observers))
	for id, o := range h.observers {
		nameOf[id] = o.Name
		s.PlayerNames = append(s.PlayerNames, o.Name)
	}
	h.mu.Unlock()

	// players without a kingdom can still be invited
	for id, name := range nameOf {
		if _, ok := h.registry.ByMember(id); !ok {
			s.InviteTargets = append(s.InviteTargets, name)
		}
	}

	// war targets: eligible kingdoms not at war, excluding the player's own
	var own string
	if k, ok := h.registry.ByMember(player); ok {
		own = k.Name()
	}
	for _, name := range s.KingdomNames {
		if name == own {
			continue
		}
		if k, ok := h.registry.ByName(name); ok && !h.engine.AtWar(k.Owner()) {
			s.WarTargets = append(s.WarTargets, name)
		}
	}
	return s
}

// SyncBorders sends a fresh border snapshot to one observer. Validation
// warnings are dropped here; the scheduler delivers them on its own pass.
func (h *Hub) SyncBorders(o *Observer) {
	borders, _ := h.registry.Borders()
	o.Send(BorderSync(borders))
}

// SyncSuggestions pushes fresh completion lists to every observer.
func (h *Hub) SyncSuggestions() {
	for _, id := range h.Observers() {
		payload := SuggestionSync(h.SuggestionsFor(id))
		h.SendTo([]uuid.UUID{id}, payload)
	}
}

// ResolveName maps a connected player's display name to their identity.
func (h *Hub) ResolveName(name string) (uuid.UUID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, o := range h.observers {
		if o.Name == name {
			return id, true
		}
	}
	return uuid.Nil, false
}

// NameOf maps a connected player's identity back to their display name.
func (h *Hub) NameOf(player uuid.UUID) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if o, ok := h.observers[player]; ok {
		return o.Name, true
	}
	return "", false
}
