package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bingo-server/internal/engine"
	"bingo-server/internal/registry"
	"bingo-server/internal/room"
	"bingo-server/pkg/metrics"
	"bingo-server/pkg/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Handler upgrades each request to a WebSocket and runs the connection's read
// loop. The first valid join binds (room, player) for the connection's
// lifetime; every later action is attributed to that identity.
func Handler(reg *registry.Registry, logger *zap.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		outbox := make(chan types.ServerMessage, 16)
		log := logger.With(zap.String("conn", connID))

		metrics.ConnectedClients.Inc()
		defer metrics.ConnectedClients.Dec()
		log.Info("client connected")
		defer log.Info("client disconnected")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writeLoop(ctx, conn, outbox)

		var roomID, player string
		var rm *room.Room
		defer func() {
			if roomID != "" {
				reg.Inbox() <- registry.LeaveRoom{ID: roomID, ConnID: connID}
			}
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				// Clean close or transport failure: either way the deferred
				// leave handles it; the peer is unreachable for error replies.
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				log.Debug("malformed frame", zap.Error(err))
				sendError(outbox, "Server error processing request")
				continue
			}
			metrics.MessagesIn.WithLabelValues(messageLabel(cm.Type)).Inc()

			switch cm.Type {
			case "join":
				if cm.Player == "" || cm.Room == "" {
					sendError(outbox, "Server error processing request")
					continue
				}
				if roomID != "" && (roomID != cm.Room || player != cm.Player) {
					// Switching rooms or renaming: leave under the old
					// identity first so the room never carries a ghost
					// participant this socket no longer answers for.
					reg.Inbox() <- registry.LeaveRoom{ID: roomID, ConnID: connID}
					rm = nil
				}
				roomID, player = cm.Room, cm.Player
				reply := make(chan *room.Room, 1)
				reg.Inbox() <- registry.JoinRoom{
					ID:     roomID,
					Player: player,
					ConnID: connID,
					Outbox: outbox,
					Kick:   cancel,
					Reply:  reply,
				}
				rm = <-reply
				if rm == nil {
					sendError(outbox, "Room not found!")
					roomID, player = "", ""
					continue
				}
				log.Info("join", zap.String("room", roomID), zap.String("player", player))

			case "chat":
				if rm == nil {
					continue
				}
				rm.Send(room.Chat{ConnID: connID, Player: cm.Player, Message: cm.Message})

			case "start", "call", "winner", "reset":
				cmd := toCommand(cm, player)
				if rm == nil || !rm.Send(room.FromClient{ConnID: connID, Cmd: cmd, Reply: outbox}) {
					sendError(outbox, "Room not found!")
				}

			default:
				sendError(outbox, "Server error processing request")
			}
		}
	}
}

// messageLabel bounds metric label cardinality: only protocol message types
// become label values, anything else counts as unknown.
func messageLabel(t string) string {
	switch t {
	case "join", "chat", "start", "call", "winner", "reset":
		return t
	default:
		return "unknown"
	}
}

// toCommand translates a wire message into an engine command attributed to
// the connection's bound identity. Winner keeps the payload's player field;
// win claims are client-asserted and gated by the engine's verifier.
func toCommand(m types.ClientMessage, player string) engine.Command {
	switch m.Type {
	case "start":
		return engine.Command{Type: engine.CmdStart, Player: player, NumPlayers: m.NumPlayers}
	case "call":
		return engine.Command{Type: engine.CmdCall, Player: player, Number: m.Number}
	case "winner":
		reported := m.Player
		if reported == "" {
			reported = player
		}
		lines := m.Lines
		if lines == nil {
			lines = []string{}
		}
		return engine.Command{Type: engine.CmdWinner, Player: reported, Lines: lines}
	case "reset":
		return engine.Command{Type: engine.CmdReset, Player: player}
	default:
		return engine.Command{}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, outbox <-chan types.ServerMessage) {
	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()

	for {
		select {
		case msg := <-outbox:
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			_ = conn.Write(wctx, websocket.MessageText, payload)
			cancel()

		case <-ping.C:
			_ = conn.Ping(ctx)

		case <-ctx.Done():
			return
		}
	}
}

func sendError(outbox chan<- types.ServerMessage, message string) {
	metrics.RejectedActions.Inc()
	select {
	case outbox <- types.ServerMessage{Type: "error", Message: message}:
	default:
	}
}
