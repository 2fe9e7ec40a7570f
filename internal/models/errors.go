package models

import "strings"

// ValidationError reports required event fields that are missing or empty.
// It is user-correctable and maps to a 400 at the HTTP boundary.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}
