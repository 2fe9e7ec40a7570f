// Package hub fans stored events out to connected websocket observers.
//
// Delivery is best effort and independent per observer: each connection
// owns a bounded send queue drained by its own writer goroutine, so a slow
// or dead observer is evicted instead of stalling the rest. Events are
// delivered to a single observer in publish order; there is no ordering
// guarantee across observers and no replay for late joiners.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentsight/agentsight/internal/logging"
	"github.com/agentsight/agentsight/internal/metrics"
	"github.com/agentsight/agentsight/internal/models"
)

const (
	// DefaultQueueSize is the per-observer send queue depth.
	DefaultQueueSize = 64

	// DefaultWriteTimeout bounds a single frame write.
	DefaultWriteTimeout = 10 * time.Second
)

// envelope is the wire frame pushed to observers.
type envelope struct {
	Type      string        `json:"type"`
	Message   string        `json:"message,omitempty"`
	Timestamp string        `json:"timestamp,omitempty"`
	Event     *models.Event `json:"event,omitempty"`
}

// Hub owns the set of live observer connections. No other component may
// iterate or mutate the registry.
type Hub struct {
	log          *logging.Logger
	queueSize    int
	writeTimeout time.Duration

	mu     sync.Mutex
	conns  map[*Conn]struct{}
	closed bool
}

// Options tunes per-observer delivery.
type Options struct {
	// QueueSize is the per-observer send queue depth. Zero means
	// DefaultQueueSize.
	QueueSize int

	// WriteTimeout bounds a single frame write. Zero means
	// DefaultWriteTimeout.
	WriteTimeout time.Duration
}

// New creates an empty hub.
func New(log *logging.Logger, opts Options) *Hub {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Hub{
		log:          log,
		queueSize:    opts.QueueSize,
		writeTimeout: opts.WriteTimeout,
		conns:        make(map[*Conn]struct{}),
	}
}

// Register adds an observer for the given websocket and immediately queues
// the connected acknowledgment. After Shutdown it closes the socket and
// returns nil. The caller must run ReadLoop on the returned connection.
func (h *Hub) Register(ws *websocket.Conn) *Conn {
	c := &Conn{
		ws:   ws,
		hub:  h,
		send: make(chan []byte, h.queueSize),
	}

	ack, err := json.Marshal(envelope{
		Type:      "connected",
		Message:   "connected to event stream",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		ack = []byte(`{"type":"connected"}`)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		closeSocket(ws, h.writeTimeout)
		return nil
	}
	h.conns[c] = struct{}{}
	c.send <- ack
	h.mu.Unlock()

	metrics.ObserversConnected.Inc()
	h.log.Debug("observer connected")

	go c.writePump()
	return c
}

// Unregister removes an observer. Calling it repeatedly, or for a
// connection that was already evicted, is a no-op.
func (h *Hub) Unregister(c *Conn) {
	if c == nil {
		return
	}

	h.mu.Lock()
	_, ok := h.conns[c]
	if ok {
		delete(h.conns, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		metrics.ObserversConnected.Dec()
		h.log.Debug("observer disconnected")
	}
}

// Publish queues the event for every registered observer. A full queue
// counts as a failed observer: the connection is evicted rather than
// awaited, and delivery to the others proceeds. Publish never fails and
// never blocks on an observer. After Shutdown it is a no-op.
func (h *Hub) Publish(event models.Event) {
	frame, err := json.Marshal(envelope{Type: "event", Event: &event})
	if err != nil {
		h.log.Error("encode broadcast frame", logging.Error(err), logging.EventID(event.ID))
		return
	}

	var evicted []*Conn

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	for c := range h.conns {
		select {
		case c.send <- frame:
		default:
			evicted = append(evicted, c)
		}
	}
	h.mu.Unlock()

	for _, c := range evicted {
		metrics.BroadcastDrops.Inc()
		h.log.Warn("evicting slow observer", logging.EventID(event.ID))
		h.Unregister(c)
	}
}

// Count returns the number of registered observers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown closes every observer connection and drops the registry.
// Register and Publish become no-ops afterwards.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	conns := h.conns
	h.conns = make(map[*Conn]struct{})
	for c := range conns {
		close(c.send)
	}
	h.mu.Unlock()

	metrics.ObserversConnected.Set(0)
	h.log.Info("broadcast hub shut down", "observers_closed", len(conns))
}

func closeSocket(ws *websocket.Conn, timeout time.Duration) {
	ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(timeout))
	ws.Close()
}
