// Package rest
package rest

import (
	"net/http"
	"time"

	"bandmon-server/internal/config"
	"bandmon-server/internal/core"
	"bandmon-server/internal/transport/rest/middleware"
	"bandmon-server/internal/transport/websocket"
)

type RouterDeps struct {
	Stats   *StatsHandler
	WS      *websocket.Handler
	Monitor *core.Monitor
}

func NewRouter(cfg *config.Config, deps *RouterDeps) http.Handler {
	mux := http.NewServeMux()

	globalMw := middleware.New()
	globalMw.Use(middleware.CORS(cfg))

	apiStack := middleware.New()
	apiStack.Use(middleware.StaticToken(cfg))

	// HEALTH
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		JSONSuccess(w, http.StatusOK, APIResponse{
			Message: "OK",
			Data:    map[string]any{"sampler": deps.Monitor.State()},
		})
	})

	// WEBSOCKET
	mux.HandleFunc("GET /ws", deps.WS.Serve)

	// STATS
	mux.Handle("GET /api/v1/stats/bandwidth", apiStack.Then(http.HandlerFunc(deps.Stats.Bandwidth)))
	mux.Handle("GET /api/v1/stats/monthly", apiStack.Then(http.HandlerFunc(deps.Stats.Monthly)))

	return globalMw.Apply(mux)
}

func NewServer(handler http.Handler, addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
