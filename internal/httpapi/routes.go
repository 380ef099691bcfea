package httpapi

import (
	"net/http"

	"bingo-server/internal/config"
	"bingo-server/internal/registry"
	"bingo-server/internal/ws"
	"bingo-server/pkg/metrics"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func SetupRoutes(reg *registry.Registry, logger *zap.Logger, cfg config.Config) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Get("/rooms", ListRooms(reg))
	r.Get("/ws", ws.Handler(reg, logger, cfg.Origins))
	return r
}
