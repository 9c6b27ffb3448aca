package registrar

import (
	"fmt"
	"net/http"

	"tapday/pkg/platform/sentinel"
)

// RegistryError is returned when the registrar rejects or fails a call.
// Message carries the upstream explanation verbatim.
type RegistryError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RegistryError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("registrar %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("registrar %s: %s", e.Op, e.Message)
}

// Unwrap exposes the transport cause, or a sentinel describing the rejection.
func (e *RegistryError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.StatusCode == http.StatusConflict {
		return sentinel.ErrConflict
	}
	if e.StatusCode == http.StatusNotFound {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrUnavailable
}
