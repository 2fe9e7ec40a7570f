package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentsight/agentsight/internal/hub"
	"github.com/agentsight/agentsight/internal/logging"
	"github.com/agentsight/agentsight/internal/models"
	"github.com/agentsight/agentsight/internal/ratelimit"
	"github.com/agentsight/agentsight/internal/store"
)

// Submitter runs one event through the ingestion pipeline.
type Submitter interface {
	Submit(ctx context.Context, event models.Event) (int64, error)
}

// EventReader serves the query surface. Reads bypass the hub entirely.
type EventReader interface {
	Query(q store.Query) ([]models.Event, error)
	Sessions() ([]string, error)
	Sources() ([]string, error)
}

// Handler serves the event API and the websocket upgrade path.
type Handler struct {
	service  Submitter
	reader   EventReader
	hub      *hub.Hub
	limiter  ratelimit.RateLimiter
	maxBody  int64
	log      *logging.Logger
	upgrader websocket.Upgrader
}

// New builds a Handler. limiter may be nil, which disables rate limiting;
// maxBody <= 0 disables the request size guard.
func New(service Submitter, reader EventReader, h *hub.Hub, limiter ratelimit.RateLimiter, maxBody int64, log *logging.Logger) *Handler {
	if limiter == nil {
		limiter = &ratelimit.NoOpRateLimiter{}
	}
	return &Handler{
		service: service,
		reader:  reader,
		hub:     h,
		limiter: limiter,
		maxBody: maxBody,
		log:     log,
		upgrader: websocket.Upgrader{
			// Cross-origin dashboards are expected; CORS posture is
			// handled at the middleware layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Events dispatches on method: POST submits one event, GET queries the
// log. Anything else falls through to the JSON 404, matching the
// route-not-found contract.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.submitEvent(w, r)
	case http.MethodGet:
		h.listEvents(w, r)
	default:
		h.NotFound(w, r)
	}
}

func (h *Handler) submitEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	allowed, err := h.limiter.Allow(ctx, clientIP(r))
	if err != nil {
		// A broken limiter must not take ingestion down with it.
		h.log.WarnContext(ctx, "rate limiter unavailable", logging.Error(err))
	} else if !allowed {
		h.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	body := r.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var event models.Event
	if err := json.Unmarshal(data, &event); err != nil {
		h.log.WarnContext(ctx, "undecodable event payload", logging.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	id, err := h.service.Submit(ctx, event)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			h.writeError(w, http.StatusBadRequest, "Missing required fields")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, models.SubmitResponse{Success: true, EventID: id})
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	q := store.Query{
		SourceApp: r.URL.Query().Get("sourceApp"),
		SessionID: r.URL.Query().Get("sessionId"),
		EventType: r.URL.Query().Get("eventType"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			q.Limit = limit
		}
	}

	events, err := h.reader.Query(q)
	if err != nil {
		h.log.ErrorContext(r.Context(), "query events", logging.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if events == nil {
		events = []models.Event{}
	}

	h.writeJSON(w, http.StatusOK, models.EventsResponse{Events: events, Count: len(events)})
}

// Sessions lists distinct session ids, most recently active first.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.NotFound(w, r)
		return
	}

	sessions, err := h.reader.Sessions()
	if err != nil {
		h.log.ErrorContext(r.Context(), "query sessions", logging.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if sessions == nil {
		sessions = []string{}
	}

	h.writeJSON(w, http.StatusOK, models.SessionsResponse{Sessions: sessions})
}

// Sources lists distinct source applications in lexicographic order.
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.NotFound(w, r)
		return
	}

	sources, err := h.reader.Sources()
	if err != nil {
		h.log.ErrorContext(r.Context(), "query sources", logging.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if sources == nil {
		sources = []string{}
	}

	h.writeJSON(w, http.StatusOK, models.SourcesResponse{Sources: sources})
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// WebSocket upgrades the connection and registers it as an observer.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.WarnContext(r.Context(), "websocket upgrade failed", logging.Error(err))
		return
	}

	conn := h.hub.Register(ws)
	if conn == nil {
		return
	}
	conn.ReadLoop()
}

// NotFound is the JSON 404 for unmatched routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotFound, "Not found")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
