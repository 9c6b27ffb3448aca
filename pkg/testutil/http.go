// Package testutil provides helpers shared by handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PostJSON builds a POST request whose body is v encoded as JSON.
func PostJSON(t *testing.T, path string, v any) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err, "failed to marshal request body")
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// PostRaw builds a POST request with a literal body.
func PostRaw(t *testing.T, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// Do serves req on h and returns the recorder.
func Do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// Decode unmarshals the recorded body into T.
func Decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "failed to unmarshal response: %s", rr.Body.String())
	return out
}

// ErrorBody is the error envelope written by httputil.WriteError.
type ErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Existing         string `json:"existing"`
}

// AssertError checks the status and the envelope's error code.
func AssertError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) ErrorBody {
	t.Helper()
	assert.Equal(t, status, rr.Code, "unexpected status code: %s", rr.Body.String())
	body := Decode[ErrorBody](t, rr)
	assert.Equal(t, code, body.Error, "unexpected error code")
	return body
}
