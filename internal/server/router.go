package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentsight/agentsight/internal/handlers"
	"github.com/agentsight/agentsight/internal/middleware"
)

// NewRouter constructs the HTTP surface: the event API, the websocket
// upgrade path, metrics, and a JSON 404 for everything else, wrapped in
// CORS and request-id middleware.
func NewRouter(h *handlers.Handler, cors middleware.CORSConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/events", h.Events)
	mux.HandleFunc("/sessions", h.Sessions)
	mux.HandleFunc("/sources", h.Sources)
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ws", h.WebSocket)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Everything else answers with the JSON 404.
	mux.HandleFunc("/", h.NotFound)

	return middleware.RequestID(middleware.CORS(cors)(mux))
}
