package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bingo_active_rooms",
		Help: "Rooms currently held in the registry.",
	})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bingo_connected_clients",
		Help: "Live WebSocket connections.",
	})

	MessagesIn = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bingo_messages_in_total",
		Help: "Inbound client messages by type.",
	}, []string{"type"})

	RejectedActions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bingo_rejected_actions_total",
		Help: "Client actions rejected with an error reply.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
