package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Adapters for upstream
// collaborators return these (wrapped) so services can translate them into
// domain errors:
//   - ErrNotFound: the upstream has no such entity
//   - ErrConflict: the upstream rejected a write because the entity exists
//   - ErrUnavailable: the upstream could not be reached or answered non-2xx
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
