package testutil

import (
	"net/http"
	"time"

	"tapday/pkg/requestcontext"
)

// WithRequestID attaches a request ID the way the RequestID middleware would.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}

// WithTime pins the request clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
