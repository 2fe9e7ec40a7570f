package models

// SubmitResponse acknowledges a stored event.
type SubmitResponse struct {
	Success bool  `json:"success"`
	EventID int64 `json:"eventId"`
}

// EventsResponse carries a page of query results.
type EventsResponse struct {
	Events []Event `json:"events"`
	Count  int     `json:"count"`
}

// SessionsResponse lists known session IDs, most recently active first.
type SessionsResponse struct {
	Sessions []string `json:"sessions"`
}

// SourcesResponse lists known source applications in lexicographic order.
type SourcesResponse struct {
	Sources []string `json:"sources"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
