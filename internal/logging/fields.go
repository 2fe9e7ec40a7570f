package logging

import "log/slog"

// Field names shared across the server so log lines stay greppable.
const (
	FieldService   = "service"
	FieldEventID   = "event_id"
	FieldEventType = "event_type"
	FieldSessionID = "session_id"
	FieldSourceApp = "source_app"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldObservers = "observers"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// EventID returns a slog attribute for a store-assigned event id.
func EventID(id int64) slog.Attr {
	return slog.Int64(FieldEventID, id)
}

// EventType returns a slog attribute for the event classification.
func EventType(t string) slog.Attr {
	return slog.String(FieldEventType, t)
}

// SessionID returns a slog attribute for the producer session.
func SessionID(id string) slog.Attr {
	return slog.String(FieldSessionID, id)
}

// SourceApp returns a slog attribute for the producing application.
func SourceApp(app string) slog.Attr {
	return slog.String(FieldSourceApp, app)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for a duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Observers returns a slog attribute for a connected-observer count.
func Observers(n int) slog.Attr {
	return slog.Int(FieldObservers, n)
}
