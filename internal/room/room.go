package room

import (
	"context"
	"errors"
	"fmt"

	"bingo-server/internal/engine"
	"bingo-server/pkg/metrics"
	"bingo-server/pkg/types"

	"go.uber.org/zap"
)

type Msg interface{ isRoomMsg() }

// Join admits a player (or rebinds an existing name to a new connection).
// Kick is called when the connection is deemed dead; it must be safe to call
// from the room goroutine and more than once.
type Join struct {
	Player string
	ConnID string
	Outbox chan types.ServerMessage
	Kick   func()
}

func (Join) isRoomMsg() {}

// FromClient is a game action from a bound connection. Errors go back on
// Reply only; successful actions broadcast through the participants' outboxes.
type FromClient struct {
	ConnID string
	Cmd    engine.Command
	Reply  chan types.ServerMessage
}

func (FromClient) isRoomMsg() {}

// Leave removes the participant whose stored connection handle matches
// ConnID. Emptied receives true when the removal left the room empty.
type Leave struct {
	ConnID  string
	Emptied chan<- bool
}

func (Leave) isRoomMsg() {}

// Chat fans a chat line out to everyone except the sender.
type Chat struct {
	ConnID  string
	Player  string
	Message string
}

func (Chat) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// View reflects internal state without data races; test-only plus /rooms.
type View struct {
	Players     []string
	CurrentTurn string
	Started     bool
	NumClients  int
}

type client struct {
	connID string
	outbox chan types.ServerMessage
	kick   func()
}

// Room runs one goroutine that owns all state for a single game room. Every
// mutation flows through the inbox, so actions from concurrent connections
// never interleave.
type Room struct {
	id      string
	inbox   chan Msg
	state   engine.State
	clients map[string]*client // keyed by player name
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(parent context.Context, id string, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		id:      id,
		inbox:   make(chan Msg, 64),
		state:   engine.NewEmptyState(),
		clients: make(map[string]*client),
		log:     log.With(zap.String("room", id)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Room) ID() string            { return r.id }
func (r *Room) Inbox() chan<- Msg     { return r.inbox }
func (r *Room) Done() <-chan struct{} { return r.done }

// Send delivers m unless the room has already shut down. A false return means
// the room is gone and the caller should treat it as not found.
func (r *Room) Send(m Msg) bool {
	select {
	case r.inbox <- m:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)

			case FromClient:
				r.handleCommand(msg)

			case Leave:
				empty := r.handleLeave(msg.ConnID)
				if msg.Emptied != nil {
					msg.Emptied <- empty
				}

			case Chat:
				r.fanOut(types.ServerMessage{Type: "chat", Player: msg.Player, Message: msg.Message}, msg.ConnID)

			case GetState:
				players := append([]string(nil), r.state.Players...)
				msg.Reply <- View{
					Players:     players,
					CurrentTurn: r.state.CurrentTurn,
					Started:     r.state.Started,
					NumClients:  len(r.clients),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	events, newState, err := engine.Apply(r.state, engine.Command{Type: engine.CmdJoin, Player: msg.Player})
	if err != nil {
		r.log.Error("join rejected", zap.String("player", msg.Player), zap.Error(err))
		return
	}
	if prev, ok := r.clients[msg.Player]; ok {
		r.log.Info("rebinding player connection",
			zap.String("player", msg.Player),
			zap.String("old_conn", prev.connID),
			zap.String("new_conn", msg.ConnID))
	}
	r.clients[msg.Player] = &client{connID: msg.ConnID, outbox: msg.Outbox, kick: msg.Kick}
	r.state = newState
	r.dispatch(events, msg.ConnID)
}

func (r *Room) handleCommand(msg FromClient) {
	events, newState, err := engine.Apply(r.state, msg.Cmd)
	if err != nil {
		metrics.RejectedActions.Inc()
		r.log.Debug("action rejected",
			zap.String("action", string(msg.Cmd.Type)),
			zap.String("player", msg.Cmd.Player),
			zap.Error(err))
		if msg.Reply != nil {
			select {
			case msg.Reply <- types.ServerMessage{Type: "error", Message: errorText(err)}:
			default:
			}
		}
		return
	}
	r.state = newState
	r.dispatch(events, msg.ConnID)
}

// handleLeave removes every participant whose stored connection handle
// matches ConnID and returns true when the room has no participants left. A
// ConnID that matches no stored handle is stale (the name was rebound to a
// newer connection) and removes nothing.
func (r *Room) handleLeave(connID string) bool {
	var names []string
	for p, c := range r.clients {
		if c.connID == connID {
			names = append(names, p)
		}
	}
	if len(names) == 0 {
		return false
	}
	for _, name := range names {
		delete(r.clients, name)

		events, newState, err := engine.Apply(r.state, engine.Command{Type: engine.CmdLeave, Player: name})
		if err != nil {
			r.log.Error("leave", zap.String("player", name), zap.Error(err))
			continue
		}
		r.state = newState
		r.log.Info("player left", zap.String("player", name), zap.Int("remaining", len(newState.Players)))
		r.dispatch(events, connID)
	}
	return len(r.state.Players) == 0
}

func (r *Room) dispatch(events []engine.Event, senderConnID string) {
	for _, ev := range events {
		except := ""
		if ev.Audience == engine.ToOthers {
			except = senderConnID
		}
		r.fanOut(toWire(ev), except)
	}
}

// fanOut sends to every client except the holder of exceptConnID. Sends never
// block: a full outbox means the peer is dead or hopelessly behind, so its
// connection is kicked and the regular disconnect path cleans it up.
func (r *Room) fanOut(out types.ServerMessage, exceptConnID string) {
	for name, c := range r.clients {
		if exceptConnID != "" && c.connID == exceptConnID {
			continue
		}
		select {
		case c.outbox <- out:
		default:
			r.log.Warn("outbox full, kicking client",
				zap.String("player", name), zap.String("conn", c.connID))
			if c.kick != nil {
				c.kick()
			}
		}
	}
}

func (r *Room) shutdown() {
	clear(r.clients)
	r.cancel()
	close(r.done)
}

func toWire(ev engine.Event) types.ServerMessage {
	switch ev.Type {
	case engine.EvtPlayersUpdated:
		return types.ServerMessage{Type: "players", Players: ev.Players}
	case engine.EvtGameStarted:
		return types.ServerMessage{Type: "start", FirstPlayer: ev.First}
	case engine.EvtNumberCalled:
		return types.ServerMessage{Type: "call", Number: ev.Number, Caller: ev.Caller, NextPlayer: ev.Next}
	case engine.EvtWinnerDeclared:
		lines := ev.Lines
		if lines == nil {
			lines = []string{}
		}
		return types.ServerMessage{Type: "winner", Player: ev.Player, Lines: lines}
	case engine.EvtGameReset:
		return types.ServerMessage{Type: "reset"}
	case engine.EvtTurnReassigned:
		return types.ServerMessage{
			Type:    "chat",
			Player:  "System",
			Message: fmt.Sprintf("%s disconnected. Now %s's turn.", ev.Player, ev.Next),
		}
	default:
		return types.ServerMessage{Type: "error", Message: "Server error processing request"}
	}
}

func errorText(err error) string {
	var insufficient *engine.InsufficientPlayersError
	var wrongTurn *engine.NotYourTurnError
	switch {
	case errors.As(err, &insufficient):
		return fmt.Sprintf("Waiting for %d players. Currently %d.", insufficient.Need, insufficient.Have)
	case errors.As(err, &wrongTurn):
		return fmt.Sprintf("It's %s's turn, not yours!", wrongTurn.Turn)
	case errors.Is(err, engine.ErrGameNotStarted):
		return "Game not started yet!"
	case errors.Is(err, engine.ErrRoomCorrupted):
		return "Server error: Player data corrupted"
	case errors.Is(err, engine.ErrWinRejected):
		return "Win claim rejected"
	default:
		return "Server error processing request"
	}
}
