package client

import "fmt"

// APIError is a non-2xx response from the migration API, surfaced verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("migration api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("migration api: status %d: %s", e.StatusCode, e.Message)
}
