// Package scheduler drives the realm's periodic work: autosave, war
// advancement, HUD pushes, and debounced border broadcasts.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mezhov/kingdoms/internal/event"
	"github.com/mezhov/kingdoms/internal/kingdom"
	"github.com/mezhov/kingdoms/internal/netsync"
	"github.com/mezhov/kingdoms/internal/war"
)

// Config holds the scheduler's tick-based intervals.
type Config struct {
	TickDuration        time.Duration
	AutosaveTicks       int64
	HUDIntervalTicks    int64
	BorderDebounceTicks int64
}

// Persist writes a snapshot of the full realm state. Implementations
// snapshot first and hold no domain locks while writing.
type Persist func(ctx context.Context) error

// Scheduler owns the tick counter. It is also an event sink: mutations
// anywhere in the realm mark the save and border state dirty here, and
// the next ticks act on the flags. Publish only flips flags, so it is
// safe to call from inside the domain locks.
type Scheduler struct {
	cfg      Config
	registry *kingdom.Registry
	engine   *war.Engine
	hub      *netsync.Hub
	persist  Persist
	log      *slog.Logger

	mu           sync.Mutex
	tick         int64
	dirty        bool
	lastSaveTick int64
	borderDirty  bool
	borderMarked int64 // tick of the most recent border-affecting change
}

// New creates a scheduler over the realm services.
func New(cfg Config, reg *kingdom.Registry, eng *war.Engine, hub *netsync.Hub, persist Persist, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		registry: reg,
		engine:   eng,
		hub:      hub,
		persist:  persist,
		log:      log.With("component", "scheduler"),
	}
}

// Publish implements event.Sink. Every mutation makes the persisted state
// dirty; border-affecting mutations also restart the border debounce.
func (s *Scheduler) Publish(e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	switch e.(type) {
	case event.KingdomFounded, event.KingdomRenamed, event.KingdomRecolored,
		event.KingdomDisbanded, event.KingdomAbsorbed, event.ClaimsChanged,
		event.CityCaptured, event.WarResolved:
		s.borderDirty = true
		s.borderMarked = s.tick
	}
}

// MarkBordersDirty restarts the border debounce by hand, for collaborator
// callbacks that bypass the event bus.
func (s *Scheduler) MarkBordersDirty() {
	s.Publish(event.ClaimsChanged{})
}

// Run drives the tick loop until the context is cancelled, then makes a
// final save attempt.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finalSave()
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduler step: autosave, war advancement, event flush,
// HUD push, and the debounced border broadcast, in that order.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	s.tick++
	tick := s.tick
	saveDue := s.dirty && tick-s.lastSaveTick >= s.cfg.AutosaveTicks
	if saveDue {
		s.dirty = false
		s.lastSaveTick = tick
	}
	s.mu.Unlock()

	if saveDue {
		if err := s.persist(ctx); err != nil {
			// skip this cycle, try again next interval
			s.log.Error("autosave failed", "error", err)
			s.mu.Lock()
			s.dirty = true
			s.mu.Unlock()
		} else {
			s.log.Debug("autosave complete", "tick", tick)
		}
	}

	s.engine.Advance(tick)

	if s.hub.Flush() {
		s.hub.SyncSuggestions()
	}

	if s.cfg.HUDIntervalTicks > 0 && tick%s.cfg.HUDIntervalTicks == 0 {
		s.pushHUD()
	}

	s.mu.Lock()
	borderDue := s.borderDirty && tick-s.borderMarked >= s.cfg.BorderDebounceTicks
	if borderDue {
		s.borderDirty = false
	}
	s.mu.Unlock()

	if borderDue {
		s.broadcastBorders()
	}
}

// CurrentTick returns the current tick count.
func (s *Scheduler) CurrentTick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// pushHUD sends a war status snapshot to every observer whose kingdom is
// fighting.
func (s *Scheduler) pushHUD() {
	for _, id := range s.hub.Observers() {
		st, ok := s.engine.StatusFor(id)
		if !ok {
			continue
		}
		s.hub.SendTo([]uuid.UUID{id}, netsync.WarStatus(st))
	}
}

// broadcastBorders recomputes the border snapshot, publishes any claim
// warnings, and sends the result to all observers.
func (s *Scheduler) broadcastBorders() {
	borders, warnings := s.registry.Borders()
	for _, w := range warnings {
		s.hub.Publish(w)
	}
	s.hub.Broadcast(netsync.BorderSync(borders))
	s.log.Debug("borders broadcast", "settlements", len(borders))
}

// finalSave persists once more on shutdown regardless of the dirty flag.
func (s *Scheduler) finalSave() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.persist(ctx); err != nil {
		s.log.Error("final save failed", "error", err)
		return
	}
	s.log.Info("final save complete")
}
