package netsync

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mezhov/kingdoms/internal/command"
)

const (
	handshakeTimeout = 5 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 5 * time.Second
)

// Server accepts observer connections over websocket: binary packets, a
// hello handshake, then positions and commands in, sync traffic out.
type Server struct {
	hub      *Hub
	commands *command.Dispatcher
	log      *slog.Logger

	upgrader websocket.Upgrader
}

// NewServer wires the websocket endpoint to the hub and command layer.
func NewServer(hub *Hub, commands *command.Dispatcher, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		hub:      hub,
		commands: commands,
		log:      log.With("component", "netsync"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the websocket upgrade handler.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		obs, ok := s.handshake(conn)
		if !ok {
			return
		}
		defer s.hub.Detach(obs)

		done := make(chan struct{})
		go s.writePump(conn, obs, done)

		// first contact gets the current borders and completion lists
		s.hub.SyncBorders(obs)
		obs.Send(SuggestionSync(s.hub.SuggestionsFor(obs.Player)))

		s.readLoop(conn, obs)
		close(done)
	}
}

// handshake expects a hello packet identifying the player.
func (s *Server) handshake(conn *websocket.Conn) (*Observer, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}
	decoded, err := DecodeClient(msg)
	if err != nil || decoded.Hello == nil || decoded.Hello.Player == uuid.Nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected hello"),
			time.Now().Add(time.Second))
		return nil, false
	}
	return s.hub.Attach(decoded.Hello.Player, decoded.Hello.Name), true
}

func (s *Server) writePump(conn *websocket.Conn, obs *Observer, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload, ok := <-obs.Outbound():
			if !ok {
				// replaced by a reconnect
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "superseded"),
					time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				return
			}
		}
	}
}

func (s *Server) readLoop(conn *websocket.Conn, obs *Observer) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				s.log.Debug("observer read ended", "player", obs.Player, "error", err)
			}
			return
		}
		decoded, err := DecodeClient(msg)
		if err != nil {
			s.log.Debug("bad client packet", "player", obs.Player, "error", err)
			continue
		}
		switch {
		case decoded.Position != nil:
			obs.SetPosition(decoded.Position.World, decoded.Position.X, decoded.Position.Z)
		case decoded.Command != nil:
			reply, err := s.commands.Execute(obs.Player, decoded.Command.Line)
			if err != nil {
				obs.Send(CommandResult(decoded.Command.RequestID, false, err.Error()))
				continue
			}
			obs.Send(CommandResult(decoded.Command.RequestID, true, reply))
		case decoded.Hello != nil:
			// hello is only valid as the first packet
		}
	}
}
