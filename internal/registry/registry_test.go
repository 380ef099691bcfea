package registry

import (
	"context"
	"testing"
	"time"

	"bingo-server/internal/room"
	"bingo-server/pkg/types"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, zap.NewNop())
}

func joinRoom(t *testing.T, reg *Registry, id, player, connID string) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	reg.Inbox() <- JoinRoom{
		ID:     id,
		Player: player,
		ConnID: connID,
		Outbox: make(chan types.ServerMessage, 8),
		Reply:  reply,
	}
	select {
	case r := <-reply:
		return r
	case <-time.After(time.Second):
		t.Fatalf("timed out joining room %q", id)
		return nil // unreachable
	}
}

func getRoom(t *testing.T, reg *Registry, id string) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	reg.Inbox() <- GetRoom{ID: id, Reply: reply}
	select {
	case r := <-reply:
		return r
	case <-time.After(time.Second):
		t.Fatalf("timed out looking up room %q", id)
		return nil // unreachable
	}
}

func listRooms(t *testing.T, reg *Registry) []RoomInfo {
	t.Helper()
	reply := make(chan []RoomInfo, 1)
	reg.Inbox() <- ListRooms{Reply: reply}
	select {
	case infos := <-reply:
		return infos
	case <-time.After(time.Second):
		t.Fatalf("timed out listing rooms")
		return nil // unreachable
	}
}

func TestRegistry_JoinCreatesRoomOnce(t *testing.T) {
	reg := newTestRegistry(t)

	r1 := joinRoom(t, reg, "lobby", "A", "c1")
	r2 := joinRoom(t, reg, "lobby", "B", "c2")

	require.NotNil(t, r1)
	require.Same(t, r1, r2, "same ID must resolve to the same room")

	infos := listRooms(t, reg)
	require.Len(t, infos, 1)
	require.Equal(t, RoomInfo{ID: "lobby", NumPlayers: 2, Started: false}, infos[0])
}

func TestRegistry_GetUnknownReturnsNil(t *testing.T) {
	reg := newTestRegistry(t)
	require.Nil(t, getRoom(t, reg, "nowhere"))
}

func TestRegistry_LastLeaveDeletesRoom(t *testing.T) {
	reg := newTestRegistry(t)

	rm := joinRoom(t, reg, "lobby", "A", "c1")
	reg.Inbox() <- LeaveRoom{ID: "lobby", ConnID: "c1"}

	// Registry processes its inbox in order, so this lookup observes the
	// post-leave map.
	require.Nil(t, getRoom(t, reg, "lobby"))

	select {
	case <-rm.Done():
	case <-time.After(time.Second):
		t.Fatalf("deleted room never shut down")
	}
}

func TestRegistry_LeaveKeepsRoomWhileOccupied(t *testing.T) {
	reg := newTestRegistry(t)

	rm := joinRoom(t, reg, "lobby", "A", "c1")
	_ = joinRoom(t, reg, "lobby", "B", "c2")
	reg.Inbox() <- LeaveRoom{ID: "lobby", ConnID: "c1"}

	require.Same(t, rm, getRoom(t, reg, "lobby"))

	infos := listRooms(t, reg)
	require.Len(t, infos, 1)
	require.Equal(t, 1, infos[0].NumPlayers)
}

func TestRegistry_LeaveUnknownRoomIsNoop(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Inbox() <- LeaveRoom{ID: "nowhere", ConnID: "c1"}
	require.Empty(t, listRooms(t, reg))
}

func TestRegistry_StaleLeaveKeepsRoom(t *testing.T) {
	reg := newTestRegistry(t)

	// A reconnects: the name rebinds from c1 to c2.
	_ = joinRoom(t, reg, "lobby", "A", "c1")
	rm := joinRoom(t, reg, "lobby", "A", "c2")

	// The late disconnect of the replaced connection must not tear the
	// room down while A is still attached through c2.
	reg.Inbox() <- LeaveRoom{ID: "lobby", ConnID: "c1"}
	require.Same(t, rm, getRoom(t, reg, "lobby"))
}

func TestRegistry_ShutdownClosesRooms(t *testing.T) {
	reg := newTestRegistry(t)
	rm := joinRoom(t, reg, "lobby", "A", "c1")

	reg.Inbox() <- ShutdownRegistry{}

	select {
	case <-rm.Done():
	case <-time.After(time.Second):
		t.Fatalf("room survived registry shutdown")
	}
}

func TestRegistry_ListSkipsDeadRooms(t *testing.T) {
	reg := newTestRegistry(t)
	_ = joinRoom(t, reg, "alive", "A", "c1")
	dying := joinRoom(t, reg, "dying", "B", "c2")

	// Kill the room out from under the registry; listing must neither hang
	// nor report the dead room.
	dying.Inbox() <- room.Shutdown{}
	select {
	case <-dying.Done():
	case <-time.After(time.Second):
		t.Fatalf("room never shut down")
	}

	infos := listRooms(t, reg)
	require.Len(t, infos, 1)
	require.Equal(t, "alive", infos[0].ID)
}

func TestRegistry_ListSpansRooms(t *testing.T) {
	reg := newTestRegistry(t)
	_ = joinRoom(t, reg, "r1", "A", "c1")
	_ = joinRoom(t, reg, "r2", "B", "c2")

	infos := listRooms(t, reg)
	require.Len(t, infos, 2)

	byID := map[string]RoomInfo{}
	for _, info := range infos {
		byID[info.ID] = info
	}
	require.Equal(t, 1, byID["r1"].NumPlayers)
	require.Equal(t, 1, byID["r2"].NumPlayers)
}
