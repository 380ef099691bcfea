package httpapi

import (
	"encoding/json"
	"net/http"

	"bingo-server/internal/registry"
)

// ListRooms returns a snapshot of every live room: id, player count, and
// whether a round is running.
func ListRooms(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []registry.RoomInfo, 1)
		reg.Inbox() <- registry.ListRooms{Reply: reply}
		infos := <-reply

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Rooms []registry.RoomInfo `json:"rooms"`
		}{Rooms: infos})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
