// Package service sequences a single event submission: validate, durably
// append, then broadcast. The append and the broadcast are deliberately
// not transactional; a crash between them leaves the event persisted but
// unannounced, which is the accepted at-least-once-persisted /
// at-most-once-broadcast trade-off.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/agentsight/agentsight/internal/logging"
	"github.com/agentsight/agentsight/internal/metrics"
	"github.com/agentsight/agentsight/internal/models"
)

// EventAppender is the durable half of the pipeline.
type EventAppender interface {
	Append(event models.Event) (int64, error)
}

// Broadcaster is the live fan-out half of the pipeline.
type Broadcaster interface {
	Publish(event models.Event)
}

// Mirror forwards stored events to an external consumer, best effort.
type Mirror interface {
	Publish(ctx context.Context, event models.Event) error
}

// Stats summarizes coordinator activity.
type Stats struct {
	Submitted int64     `json:"submitted"`
	Stored    int64     `json:"stored"`
	Rejected  int64     `json:"rejected"`
	Failed    int64     `json:"failed"`
	LastEvent time.Time `json:"lastEvent"`
}

// Coordinator validates incoming events and drives store-then-broadcast.
type Coordinator struct {
	store  EventAppender
	hub    Broadcaster
	mirror Mirror
	log    *logging.Logger

	statsMu sync.RWMutex
	stats   Stats
}

// New creates a Coordinator. mirror may be nil.
func New(store EventAppender, hub Broadcaster, mirror Mirror, log *logging.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		hub:    hub,
		mirror: mirror,
		log:    log,
	}
}

// Submit runs one event through the pipeline and returns its assigned id.
// Validation failures surface as *models.ValidationError with no store
// mutation; store failures propagate unchanged. Once the append succeeds
// the submission succeeds — broadcast and mirror failures never reach the
// producer.
func (c *Coordinator) Submit(ctx context.Context, event models.Event) (int64, error) {
	c.bumpSubmitted()

	if err := event.Validate(); err != nil {
		c.bumpRejected()
		metrics.EventsReceived.WithLabelValues("rejected").Inc()
		return 0, err
	}

	id, err := c.store.Append(event)
	if err != nil {
		c.bumpFailed()
		metrics.EventsReceived.WithLabelValues("failed").Inc()
		metrics.StorageErrors.Inc()
		c.log.ErrorContext(ctx, "append event", logging.Error(err),
			logging.EventType(event.EventType), logging.SourceApp(event.SourceApp))
		return 0, err
	}

	event.ID = id
	c.bumpStored()
	metrics.EventsReceived.WithLabelValues("stored").Inc()
	metrics.EventBytesTotal.Add(float64(len(event.Data)))

	c.hub.Publish(event)

	if c.mirror != nil {
		if err := c.mirror.Publish(ctx, event); err != nil {
			c.log.WarnContext(ctx, "mirror event", logging.Error(err), logging.EventID(id))
		}
	}

	c.log.DebugContext(ctx, "event stored",
		logging.EventID(id),
		logging.EventType(event.EventType),
		logging.SourceApp(event.SourceApp),
		logging.SessionID(event.SessionID),
	)
	return id, nil
}

// Stats returns a snapshot of coordinator counters.
func (c *Coordinator) Stats() Stats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

func (c *Coordinator) bumpSubmitted() {
	c.statsMu.Lock()
	c.stats.Submitted++
	c.statsMu.Unlock()
}

func (c *Coordinator) bumpStored() {
	c.statsMu.Lock()
	c.stats.Stored++
	c.stats.LastEvent = time.Now()
	c.statsMu.Unlock()
}

func (c *Coordinator) bumpRejected() {
	c.statsMu.Lock()
	c.stats.Rejected++
	c.statsMu.Unlock()
}

func (c *Coordinator) bumpFailed() {
	c.statsMu.Lock()
	c.stats.Failed++
	c.statsMu.Unlock()
}
