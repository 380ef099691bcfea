package registry

import (
	"context"

	"bingo-server/internal/room"
	"bingo-server/pkg/metrics"
	"bingo-server/pkg/types"

	"go.uber.org/zap"
)

type Msg interface{ isRegistryMsg() }

// JoinRoom resolves ID to a live room, creating it on first reference, and
// forwards the join. Reply receives the room handle for later direct sends.
type JoinRoom struct {
	ID     string
	Player string
	ConnID string
	Outbox chan types.ServerMessage
	Kick   func()
	Reply  chan *room.Room
}

// GetRoom looks a room up without creating it; Reply may receive nil.
type GetRoom struct {
	ID    string
	Reply chan *room.Room
}

// LeaveRoom forwards a disconnect to the room and deletes the room once it
// reports empty. No-op for unknown IDs.
type LeaveRoom struct {
	ID     string
	ConnID string
}

type ListRooms struct {
	Reply chan []RoomInfo
}

type ShutdownRegistry struct{}

func (JoinRoom) isRegistryMsg()         {}
func (GetRoom) isRegistryMsg()          {}
func (LeaveRoom) isRegistryMsg()        {}
func (ListRooms) isRegistryMsg()        {}
func (ShutdownRegistry) isRegistryMsg() {}

type RoomInfo struct {
	ID         string `json:"id"`
	NumPlayers int    `json:"numPlayers"`
	Started    bool   `json:"started"`
}

// Registry is the sole owner of room lifetime: rooms are created on first
// join and torn down the moment their last participant leaves. One instance
// is constructed in main and injected wherever rooms are resolved.
type Registry struct {
	inbox  chan Msg
	rooms  map[string]*room.Room
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, log *zap.Logger) *Registry {
	ctx, cancel := context.WithCancel(parent)
	reg := &Registry{
		inbox:  make(chan Msg, 64),
		rooms:  make(map[string]*room.Room),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go reg.loop()
	return reg
}

func (reg *Registry) Inbox() chan<- Msg { return reg.inbox }

func (reg *Registry) loop() {
	for {
		select {
		case <-reg.ctx.Done():
			reg.shutdown()
			return

		case m := <-reg.inbox:
			switch msg := m.(type) {
			case JoinRoom:
				r := reg.rooms[msg.ID]
				if r == nil {
					r = room.New(reg.ctx, msg.ID, reg.log)
					reg.rooms[msg.ID] = r
					metrics.ActiveRooms.Set(float64(len(reg.rooms)))
					reg.log.Info("room created", zap.String("room", msg.ID))
				}
				join := room.Join{
					Player: msg.Player,
					ConnID: msg.ConnID,
					Outbox: msg.Outbox,
					Kick:   msg.Kick,
				}
				if !r.Send(join) {
					// Room died under us (process shutdown); report not found.
					delete(reg.rooms, msg.ID)
					msg.Reply <- nil
					break
				}
				msg.Reply <- r

			case GetRoom:
				msg.Reply <- reg.rooms[msg.ID] // may be nil

			case LeaveRoom:
				r := reg.rooms[msg.ID]
				if r == nil {
					break
				}
				emptied := make(chan bool, 1)
				if !r.Send(room.Leave{ConnID: msg.ConnID, Emptied: emptied}) {
					delete(reg.rooms, msg.ID)
					break
				}
				var empty bool
				select {
				case empty = <-emptied:
				case <-r.Done():
					// Room exited before replying; only happens on shutdown.
					delete(reg.rooms, msg.ID)
					break
				}
				if empty {
					delete(reg.rooms, msg.ID)
					r.Send(room.Shutdown{})
					metrics.ActiveRooms.Set(float64(len(reg.rooms)))
					reg.log.Info("room deleted", zap.String("room", msg.ID))
				}

			case ListRooms:
				msg.Reply <- reg.snapshot()

			case ShutdownRegistry:
				reg.shutdown()
				return
			}
		}
	}
}

func (reg *Registry) snapshot() []RoomInfo {
	infos := make([]RoomInfo, 0, len(reg.rooms))
	for id, r := range reg.rooms {
		reply := make(chan room.View, 1)
		if !r.Send(room.GetState{Reply: reply}) {
			continue
		}
		select {
		case view := <-reply:
			infos = append(infos, RoomInfo{ID: id, NumPlayers: len(view.Players), Started: view.Started})
		case <-r.Done():
			// Room exited after accepting the request; skip it.
		}
	}
	return infos
}

func (reg *Registry) shutdown() {
	for id, r := range reg.rooms {
		r.Send(room.Shutdown{})
		delete(reg.rooms, id)
	}
	metrics.ActiveRooms.Set(0)
	reg.cancel()
}
