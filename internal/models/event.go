package models

import "encoding/json"

// Event is one telemetry record emitted by an agent process.
//
// ID is assigned by the store at the moment of durable append and is
// strictly increasing in insertion order. Timestamp is supplied by the
// producer and drives query ordering; it is accepted as-is even when
// producers are out of sync with each other.
type Event struct {
	ID        int64           `json:"id,omitempty"`
	EventType string          `json:"eventType"`
	SourceApp string          `json:"sourceApp"`
	SessionID string          `json:"sessionId"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Validate checks that the required classification fields are present.
// It returns a *ValidationError naming every missing field, or nil.
func (e *Event) Validate() error {
	var missing []string
	if e.EventType == "" {
		missing = append(missing, "eventType")
	}
	if e.SourceApp == "" {
		missing = append(missing, "sourceApp")
	}
	if e.SessionID == "" {
		missing = append(missing, "sessionId")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
