// Package netsync keeps connected observers eventually consistent with
// the realm: border snapshots, war HUD status, completion suggestions,
// and one-off notices, over a reliable ordered message channel.
package netsync

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mezhov/kingdoms/internal/event"
	"github.com/mezhov/kingdoms/internal/kingdom"
	"github.com/mezhov/kingdoms/internal/netsync/packet"
	"github.com/mezhov/kingdoms/internal/war"
)

// Server-to-client opcodes.
const (
	OpcodeBorderSync    = 0x01
	OpcodeWarStatus     = 0x02
	OpcodeSuggestions   = 0x03
	OpcodeWarResult     = 0x04
	OpcodeNotice        = 0x05
	OpcodeCommandResult = 0x13
)

// Client-to-server opcodes.
const (
	OpcodeHello    = 0x10
	OpcodePosition = 0x11
	OpcodeCommand  = 0x12
)

// BorderSync [0x01] — full border snapshot for all kingdoms.
//
// Format:
//
//	[opcode]
//	[count int16 LE]
//	count times:
//	  [regionId 16 bytes]
//	  [name string]         // uint16 length + UTF-8
//	  [kingdomName string]
//	  [world string]
//	  [centerX int32][centerZ int32]
//	  [radiusBlocks int32]
//	  [colorId int32]
//	  [isCapital bool]
//	  [minX int32][minZ int32][maxX int32][maxZ int32]  // chunk bounds
func BorderSync(borders []kingdom.Border) []byte {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(OpcodeBorderSync)
	w.WriteShort(int16(len(borders)))
	for _, b := range borders {
		w.WriteUUID(b.RegionID)
		w.WriteString(b.Name)
		w.WriteString(b.KingdomName)
		w.WriteString(b.World)
		w.WriteInt(b.CenterX)
		w.WriteInt(b.CenterZ)
		w.WriteInt(b.RadiusBlocks)
		w.WriteInt(b.ColorID)
		w.WriteBool(b.IsCapital)
		w.WriteInt(b.Bounds.MinX)
		w.WriteInt(b.Bounds.MinZ)
		w.WriteInt(b.Bounds.MaxX)
		w.WriteInt(b.Bounds.MaxZ)
	}
	return append([]byte(nil), w.Bytes()...)
}

// WarStatus [0x02] — HUD snapshot of the observer's war.
//
// Format:
//
//	[opcode]
//	[attackerName string][defenderName string]
//	[attackerColorId int32][defenderColorId int32]
//	[attackerKills int32][defenderKills int32]
//	[attackerScore int32][defenderScore int32]
//	[prepSecondsRemaining int64][secondsRemaining int64]
//	[activeCityName string]   // empty if no contest
//	[captureProgress double]  // 0.0-1.0
func WarStatus(st war.Status) []byte {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(OpcodeWarStatus)
	w.WriteString(st.AttackerName)
	w.WriteString(st.DefenderName)
	w.WriteInt(st.AttackerColorID)
	w.WriteInt(st.DefenderColorID)
	w.WriteInt(int32(st.AttackerKills))
	w.WriteInt(int32(st.DefenderKills))
	w.WriteInt(int32(st.AttackerScore))
	w.WriteInt(int32(st.DefenderScore))
	w.WriteLong(st.PrepSecondsRemaining)
	w.WriteLong(st.SecondsRemaining)
	w.WriteString(st.ActiveCityName)
	w.WriteDouble(st.CaptureProgress)
	return append([]byte(nil), w.Bytes()...)
}

// Suggestions holds precomputed completion lists for one observer.
type Suggestions struct {
	KingdomNames      []string
	PlayerNames       []string
	WarTargets        []string
	InviteTargets     []string
	WarRequestTargets []string
}

// SuggestionSync [0x03] — completion lists, five string arrays each with
// an int16 count prefix: kingdoms, players, war targets, invite targets,
// war request targets.
func SuggestionSync(s Suggestions) []byte {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(OpcodeSuggestions)
	for _, list := range [][]string{
		s.KingdomNames, s.PlayerNames, s.WarTargets, s.InviteTargets, s.WarRequestTargets,
	} {
		w.WriteShort(int16(len(list)))
		for _, item := range list {
			w.WriteString(item)
		}
	}
	return append([]byte(nil), w.Bytes()...)
}

// WarResult [0x04] — final outcome of a resolved war.
//
// Format:
//
//	[opcode]
//	[attackerName string][defenderName string]
//	[winnerSideId int32]   // 0 draw, 1 attacker, 2 defender
//	[attackerScore int32][defenderScore int32]
//	[attackerKills int32][defenderKills int32]
//	[attackerCities int32][defenderCities int32]
//	[absorbed bool]
func WarResult(res event.WarResolved) []byte {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(OpcodeWarResult)
	w.WriteString(res.AttackerName)
	w.WriteString(res.DefenderName)
	w.WriteInt(res.WinnerSideID)
	w.WriteInt(int32(res.AttackerScore))
	w.WriteInt(int32(res.DefenderScore))
	w.WriteInt(int32(res.AttackerKills))
	w.WriteInt(int32(res.DefenderKills))
	w.WriteInt(int32(res.AttackerCities))
	w.WriteInt(int32(res.DefenderCities))
	w.WriteBool(res.Absorbed)
	return append([]byte(nil), w.Bytes()...)
}

// Notice [0x05] — one-line message shown to the observer.
func Notice(text string) []byte {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(OpcodeNotice)
	w.WriteString(text)
	return append([]byte(nil), w.Bytes()...)
}

// CommandResult [0x13] — reply to a client command.
func CommandResult(requestID int32, ok bool, message string) []byte {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(OpcodeCommandResult)
	w.WriteInt(requestID)
	w.WriteBool(ok)
	w.WriteString(message)
	return append([]byte(nil), w.Bytes()...)
}

// Hello [0x10] — first packet of a connection, identifies the player.
type Hello struct {
	Player uuid.UUID
	Name   string
}

// Position [0x11] — periodic location update.
type Position struct {
	World string
	X     float64
	Z     float64
}

// Command [0x12] — a player-issued realm operation.
type Command struct {
	RequestID int32
	Line      string
}

// ClientMessage is one decoded client-to-server packet: exactly one of the
// fields is set.
type ClientMessage struct {
	Hello    *Hello
	Position *Position
	Command  *Command
}

// DecodeClient parses a client packet.
func DecodeClient(data []byte) (ClientMessage, error) {
	r := packet.NewReader(data)
	op, err := r.ReadByte()
	if err != nil {
		return ClientMessage{}, err
	}
	switch op {
	case OpcodeHello:
		id, err := r.ReadUUID()
		if err != nil {
			return ClientMessage{}, err
		}
		name, err := r.ReadString()
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Hello: &Hello{Player: id, Name: name}}, nil
	case OpcodePosition:
		world, err := r.ReadString()
		if err != nil {
			return ClientMessage{}, err
		}
		x, err := r.ReadDouble()
		if err != nil {
			return ClientMessage{}, err
		}
		z, err := r.ReadDouble()
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Position: &Position{World: world, X: x, Z: z}}, nil
	case OpcodeCommand:
		id, err := r.ReadInt()
		if err != nil {
			return ClientMessage{}, err
		}
		line, err := r.ReadString()
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Command: &Command{RequestID: id, Line: line}}, nil
	default:
		return ClientMessage{}, fmt.Errorf("unknown client opcode 0x%02x", op)
	}
}

// EncodeHello builds a hello packet; used by test clients.
func EncodeHello(h Hello) []byte {
	w := packet.NewWriter()
	w.WriteByte(OpcodeHello)
	w.WriteUUID(h.Player)
	w.WriteString(h.Name)
	return w.Bytes()
}

// EncodePosition builds a position packet; used by test clients.
func EncodePosition(p Position) []byte {
	w := packet.NewWriter()
	w.WriteByte(OpcodePosition)
	w.WriteString(p.World)
	w.WriteDouble(p.X)
	w.WriteDouble(p.Z)
	return w.Bytes()
}

// EncodeCommand builds a command packet; used by test clients.
func EncodeCommand(c Command) []byte {
	w := packet.NewWriter()
	w.WriteByte(OpcodeCommand)
	w.WriteInt(c.RequestID)
	w.WriteString(c.Line)
	return w.Bytes()
}
