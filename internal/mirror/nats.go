// Package mirror forwards stored events to a NATS subject so external
// consumers can tap the pipeline without holding a websocket open.
// Mirroring is best effort and sits after the durable append; failures are
// logged by the caller, never surfaced to producers.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/agentsight/agentsight/internal/models"
)

// Publisher mirrors events onto one NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Config holds NATS publisher settings.
type Config struct {
	// URL is the NATS server URL (e.g. "nats://localhost:4222").
	URL string

	// Subject is the subject stored events are published to.
	Subject string

	// Name identifies the connection to the server.
	Name string
}

// Connect dials NATS and returns a Publisher.
func Connect(cfg Config) (*Publisher, error) {
	if cfg.Name == "" {
		cfg.Name = "agentsight-mirror"
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{conn: conn, subject: cfg.Subject}, nil
}

// Publish sends the stored event to the configured subject.
func (p *Publisher) Publish(ctx context.Context, event models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.conn.Publish(p.subject, data)
}

// Close drains the connection, letting in-flight publishes complete.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
