// Package command maps the external command surface onto registry and
// engine operations, one command per operation. Parsing stays here; all
// validation lives in the domain layer and comes back as typed errors.
package command

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mezhov/kingdoms/internal/kingdom"
	"github.com/mezhov/kingdoms/internal/war"
)

var (
	ErrUsage         = errors.New("bad command usage")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrNotAdmin      = errors.New("admin privileges required")
)

// PlayerResolver maps between display names and identities of connected
// players. Offline players resolve in neither direction.
type PlayerResolver interface {
	ResolveName(name string) (uuid.UUID, bool)
	NameOf(player uuid.UUID) (string, bool)
}

// Dispatcher executes realm commands on behalf of players.
type Dispatcher struct {
	registry *kingdom.Registry
	engine   *war.Engine
	players  PlayerResolver
	// IsAdmin gates privileged commands; nil means nobody is an admin.
	IsAdmin func(player uuid.UUID) bool

	log *slog.Logger
}

// NewDispatcher wires the command surface to the domain services.
func NewDispatcher(reg *kingdom.Registry, eng *war.Engine, players PlayerResolver, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		registry: reg,
		engine:   eng,
		players:  players,
		log:      log.With("component", "command"),
	}
}

// Execute runs one command line for the player. The string reply is shown
// on success; errors are typed and non-fatal.
func (d *Dispatcher) Execute(player uuid.UUID, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ErrUsage
	}
	op, args := strings.ToLower(fields[0]), fields[1:]

	reply, err := d.dispatch(player, op, args)
	if err != nil {
		d.log.Debug("command rejected", "player", player, "op", op, "error", err)
		return "", err
	}
	return reply, nil
}

func (d *Dispatcher) dispatch(player uuid.UUID, op string, args []string) (string, error) {
	switch op {
	case "create":
		return d.create(player, args)
	case "rename":
		return d.rename(player, args)
	case "color":
		return d.color(player, args)
	case "design":
		return d.design(player, args)
	case "role":
		return d.role(player, args)
	case "invite":
		return d.invite(player, args)
	case "join":
		return d.join(player, args)
	case "leave":
		if err := d.registry.Leave(player); err != nil {
			return "", err
		}
		return "You left your kingdom", nil
	case "forcejoin":
		return d.forceJoin(player, args)
	case "declare":
		return d.declare(player, args)
	case "request":
		return d.request(player, args)
	case "approve":
		return d.respond(player, args, true)
	case "deny":
		return d.respond(player, args, false)
	case "surrender":
		if err := d.engine.Surrender(player); err != nil {
			return "", err
		}
		return "Your kingdom has surrendered", nil
	case "info":
		return d.info(player, args)
	case "help":
		return helpText, nil
	default:
		return "", ErrUsage
	}
}

func (d *Dispatcher) create(player uuid.UUID, args []string) (string, error) {
	if len(args) < 2 {
		return "", ErrUsage
	}
	color, ok := kingdom.ColorByName(args[len(args)-1])
	if !ok {
		return "", kingdom.ErrUnknownColor
	}
	name := strings.Join(args[:len(args)-1], " ")
	k, err := d.registry.Create(player, name, color)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Kingdom %s founded", k.Name()), nil
}

func (d *Dispatcher) rename(player uuid.UUID, args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrUsage
	}
	name := strings.Join(args, " ")
	if err := d.registry.Rename(player, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Kingdom renamed to %s", strings.TrimSpace(name)), nil
}

func (d *Dispatcher) color(player uuid.UUID, args []string) (string, error) {
	if len(args) != 1 {
		return "", ErrUsage
	}
	color, ok := kingdom.ColorByName(args[0])
	if !ok {
		return "", kingdom.ErrUnknownColor
	}
	if err := d.registry.SetColor(player, color); err != nil {
		return "", err
	}
	return fmt.Sprintf("Kingdom color set to %s", color), nil
}

func (d *Dispatcher) design(player uuid.UUID, args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrUsage
	}
	var transform func(kingdom.Design) kingdom.Design
	switch strings.ToLower(args[0]) {
	case "primary", "accent":
		if len(args) != 2 {
			return "", ErrUsage
		}
		color, ok := kingdom.ColorByName(args[1])
		if !ok {
			return "", kingdom.ErrUnknownColor
		}
		field := strings.ToLower(args[0])
		transform = func(dn kingdom.Design) kingdom.Design {
			if field == "primary" {
				dn.Primary = color
			} else {
				dn.Accent = color
			}
			return dn
		}
	case "add":
		if len(args) != 3 {
			return "", ErrUsage
		}
		color, ok := kingdom.ColorByName(args[2])
		if !ok {
			return "", kingdom.ErrUnknownColor
		}
		pattern := args[1]
		transform = func(dn kingdom.Design) kingdom.Design {
			dn.Layers = append(dn.Layers, kingdom.BannerLayer{PatternID: pattern, Color: color})
			return dn
		}
	case "clear":
		transform = func(dn kingdom.Design) kingdom.Design {
			dn.Layers = nil
			return dn
		}
	default:
		return "", ErrUsage
	}
	if err := d.registry.UpdateDesign(player, transform); err != nil {
		return "", err
	}
	return "Banner design updated", nil
}

func (d *Dispatcher) role(player uuid.UUID, args []string) (string, error) {
	if len(args) != 2 {
		return "", ErrUsage
	}
	target, ok := d.players.ResolveName(args[0])
	if !ok {
		return "", ErrUnknownPlayer
	}
	role, ok := kingdom.RoleByName(args[1])
	if !ok {
		return "", ErrUsage
	}
	if err := d.registry.AssignRole(player, target, role); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s is now %s", args[0], role), nil
}

func (d *Dispatcher) invite(player uuid.UUID, args []string) (string, error) {
	if len(args) != 1 {
		return "", ErrUsage
	}
	target, ok := d.players.ResolveName(args[0])
	if !ok {
		return "", ErrUnknownPlayer
	}
	if err := d.registry.Invite(player, target); err != nil {
		return "", err
	}
	return fmt.Sprintf("Invited %s", args[0]), nil
}

func (d *Dispatcher) join(player uuid.UUID, args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrUsage
	}
	name := strings.Join(args, " ")
	if err := d.registry.Join(player, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Welcome to %s", strings.TrimSpace(name)), nil
}

func (d *Dispatcher) forceJoin(player uuid.UUID, args []string) (string, error) {
	if d.IsAdmin == nil || !d.IsAdmin(player) {
		return "", ErrNotAdmin
	}
	if len(args) < 2 {
		return "", ErrUsage
	}
	target, ok := d.players.ResolveName(args[0])
	if !ok {
		return "", ErrUnknownPlayer
	}
	name := strings.Join(args[1:], " ")
	if err := d.registry.ForceAssign(target, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Moved %s into %s", args[0], strings.TrimSpace(name)), nil
}

func (d *Dispatcher) declare(player uuid.UUID, args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrUsage
	}
	name := strings.Join(args, " ")
	if err := d.engine.Declare(player, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("War declared on %s", strings.TrimSpace(name)), nil
}

func (d *Dispatcher) request(player uuid.UUID, args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrUsage
	}
	name := strings.Join(args, " ")
	if err := d.engine.RequestAssistance(player, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Assistance offered to %s", strings.TrimSpace(name)), nil
}

func (d *Dispatcher) respond(player uuid.UUID, args []string, approve bool) (string, error) {
	if len(args) == 0 {
		return "", ErrUsage
	}
	name := strings.Join(args, " ")
	if err := d.engine.Respond(player, name, approve); err != nil {
		return "", err
	}
	if approve {
		return fmt.Sprintf("%s joins your war", strings.TrimSpace(name)), nil
	}
	return fmt.Sprintf("Request from %s denied", strings.TrimSpace(name)), nil
}

func (d *Dispatcher) info(player uuid.UUID, args []string) (string, error) {
	var k *kingdom.Kingdom
	var ok bool
	if len(args) > 0 {
		k, ok = d.registry.ByName(strings.Join(args, " "))
		if !ok {
			return "", kingdom.ErrUnknownKingdom
		}
	} else {
		k, ok = d.registry.ByMember(player)
		if !ok {
			return "", kingdom.ErrNotMember
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s | color %s | members %d | settlements %d",
		k.Name(), k.Color(), k.MemberCount(), k.ClaimCount())
	if !k.IsKingdom() {
		fmt.Fprintf(&sb, " (needs %d claimed chunks to become a kingdom)", kingdom.MinClaimCount)
	}
	if k.HasMember(player) {
		fmt.Fprintf(&sb, " | your role: %s", k.RoleOf(player))
	}
	if online := d.onlineMembers(k); len(online) > 0 {
		fmt.Fprintf(&sb, " | online: %s", strings.Join(online, ", "))
	}
	if st, atWar := d.engine.StatusFor(k.Owner()); atWar {
		fmt.Fprintf(&sb, " | at war: %s vs %s, score %d:%d",
			st.AttackerName, st.DefenderName, st.AttackerScore, st.DefenderScore)
	}
	return sb.String(), nil
}

// onlineMembers lists the connected members' display names, sorted.
func (d *Dispatcher) onlineMembers(k *kingdom.Kingdom) []string {
	var names []string
	for _, id := range k.Members() {
		if name, ok := d.players.NameOf(id); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

const helpText = `create <name> <color> | rename <name> | color <color> | design primary|accent|add|clear
role <player> <role> | invite <player> | join <name> | leave
declare <kingdom> | request <kingdom> | approve <kingdom> | deny <kingdom> | surrender
info [kingdom] | help`
