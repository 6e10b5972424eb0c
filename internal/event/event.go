// Package event defines the domain events published by the kingdom registry
// and the war engine, and the sink/bus used to fan them out to interested
// parties (persistence dirty-tracking, observer notifications).
package event

import "github.com/google/uuid"

// Event is a domain event. Events carry everything a sink needs so that
// sinks never have to reach back into locked state.
type Event interface {
	// Name returns a stable event name for logging.
	Name() string
}

// Sink receives published events. Publish must be cheap and must not call
// back into the registry or the engine.
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(e Event)

// Publish calls f(e).
func (f SinkFunc) Publish(e Event) { f(e) }

// Bus fans out events to a set of sinks. Sinks are registered during
// wiring, before anything publishes, so Publish needs no locking. The
// zero value is a valid empty bus.
type Bus struct {
	sinks []Sink
}

// NewBus creates a bus over the given sinks.
func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: sinks}
}

// Add registers more sinks. Not safe to call once publishing has begun.
func (b *Bus) Add(sinks ...Sink) {
	b.sinks = append(b.sinks, sinks...)
}

// Publish delivers e to every sink in registration order.
func (b *Bus) Publish(e Event) {
	for _, s := range b.sinks {
		s.Publish(e)
	}
}

// Nop is a sink that discards everything. Useful in tests.
var Nop Sink = SinkFunc(func(Event) {})

// --- Kingdom lifecycle ---

// KingdomFounded fires when a new kingdom is created.
type KingdomFounded struct {
	Owner       uuid.UUID
	KingdomName string
	ColorID     int32
}

func (KingdomFounded) Name() string { return "kingdom_founded" }

// KingdomRenamed fires when a kingdom changes its name.
type KingdomRenamed struct {
	Owner   uuid.UUID
	OldName string
	NewName string
}

func (KingdomRenamed) Name() string { return "kingdom_renamed" }

// KingdomRecolored fires when a kingdom changes its banner color.
type KingdomRecolored struct {
	Owner   uuid.UUID
	ColorID int32
}

func (KingdomRecolored) Name() string { return "kingdom_recolored" }

// DesignChanged fires when a kingdom updates its banner design.
// Recipients are the current members whose equipment must be refreshed.
type DesignChanged struct {
	Owner      uuid.UUID
	Recipients []uuid.UUID
}

func (DesignChanged) Name() string { return "design_changed" }

// RoleAssigned fires when a member's role changes.
type RoleAssigned struct {
	Owner  uuid.UUID
	Member uuid.UUID
	RoleID int32
}

func (RoleAssigned) Name() string { return "role_assigned" }

// InviteSent fires when a player is invited into a kingdom.
type InviteSent struct {
	Owner       uuid.UUID
	KingdomName string
	Invitee     uuid.UUID
}

func (InviteSent) Name() string { return "invite_sent" }

// MemberJoined fires when a player joins a kingdom (invite or force-assign).
type MemberJoined struct {
	Owner       uuid.UUID
	KingdomName string
	Member      uuid.UUID
	Recipients  []uuid.UUID // members to announce to, including the joiner
}

func (MemberJoined) Name() string { return "member_joined" }

// MemberLeft fires when a player leaves or is moved out of a kingdom.
type MemberLeft struct {
	Owner  uuid.UUID
	Member uuid.UUID
}

func (MemberLeft) Name() string { return "member_left" }

// KingdomDisbanded fires when the owner leaves and the kingdom is deleted.
type KingdomDisbanded struct {
	Owner       uuid.UUID
	KingdomName string
}

func (KingdomDisbanded) Name() string { return "kingdom_disbanded" }

// KingdomAbsorbed fires when a defeated kingdom is merged into the victor.
type KingdomAbsorbed struct {
	Winner       uuid.UUID
	Loser        uuid.UUID
	WinnerName   string
	LoserName    string
	MovedMembers []uuid.UUID
}

func (KingdomAbsorbed) Name() string { return "kingdom_absorbed" }

// --- Claims ---

// ClaimsChanged fires when the external claims provider reports any change.
type ClaimsChanged struct{}

func (ClaimsChanged) Name() string { return "claims_changed" }

// ClaimLimitExceeded fires when a kingdom holds more settlements than
// its member count allows; only the allowed prefix is shown on borders.
type ClaimLimitExceeded struct {
	Owner      uuid.UUID
	Allowed    int
	Attempted  int
	Recipients []uuid.UUID
}

func (ClaimLimitExceeded) Name() string { return "claim_limit_exceeded" }

// ClaimOverlap fires when a settlement overlaps another kingdom's territory
// and is dropped from the border broadcast.
type ClaimOverlap struct {
	Owner      uuid.UUID
	World      string
	Recipients []uuid.UUID
}

func (ClaimOverlap) Name() string { return "claim_overlap" }

// --- War lifecycle ---

// WarDeclared fires when a war enters its prep phase.
type WarDeclared struct {
	Attacker     uuid.UUID
	Defender     uuid.UUID
	AttackerName string
	DefenderName string
	Recipients   []uuid.UUID // members of both primaries
}

func (WarDeclared) Name() string { return "war_declared" }

// WarAssistRequested fires when a kingdom asks to join an existing war.
type WarAssistRequested struct {
	Requester     uuid.UUID
	RequesterName string
	Target        uuid.UUID
	TargetName    string
	Recipients    []uuid.UUID // members of both kingdoms
}

func (WarAssistRequested) Name() string { return "war_assist_requested" }

// WarAssistResolved fires when a join request is approved or denied.
type WarAssistResolved struct {
	Requester     uuid.UUID
	RequesterName string
	Responder     uuid.UUID
	ResponderName string
	OpponentName  string
	Approved      bool
	Recipients    []uuid.UUID
}

func (WarAssistResolved) Name() string { return "war_assist_resolved" }

// KillRecorded fires when a war kill changes a side's counters.
type KillRecorded struct {
	Attacker uuid.UUID
	Defender uuid.UUID
	Killer   uuid.UUID
	Points   int
}

func (KillRecorded) Name() string { return "kill_recorded" }

// WarStarted fires when a restored war gets its start tick stamped.
type WarStarted struct {
	Attacker uuid.UUID
	Defender uuid.UUID
}

func (WarStarted) Name() string { return "war_started" }

// CityCaptured fires when a contested settlement's capture completes.
type CityCaptured struct {
	Attacker   uuid.UUID
	Defender   uuid.UUID
	CityID     uuid.UUID
	CityName   string
	WinnerName string
	SideID     int32
	Recipients []uuid.UUID // members of both primaries
}

func (CityCaptured) Name() string { return "city_captured" }

// WarResolved fires when a war leaves the active set.
type WarResolved struct {
	Attacker     uuid.UUID
	Defender     uuid.UUID
	AttackerName string
	DefenderName string
	// WinnerSideID is 0 for a draw, 1 for the attacker, 2 for the defender.
	WinnerSideID   int32
	AttackerScore  int
	DefenderScore  int
	AttackerKills  int
	DefenderKills  int
	AttackerCities int // settlements captured by the attacker side
	DefenderCities int
	Absorbed       bool
	Recipients     []uuid.UUID // members of primaries and all allies
}

func (WarResolved) Name() string { return "war_resolved" }
