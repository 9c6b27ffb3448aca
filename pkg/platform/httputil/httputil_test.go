package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tapday/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("conflict carries existing name", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("claim: %w", dErrors.NewConflict("address already has a subname", "bob.deptofagri.eth")))

		assert.Equal(t, http.StatusConflict, w.Code)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "conflict", body.Error)
		assert.Equal(t, "bob.deptofagri.eth", body.Existing)
	})

	t.Run("uncoded error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("boom"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code dErrors.Code
		want int
	}{
		{dErrors.CodeValidation, http.StatusBadRequest},
		{dErrors.CodeInvalidFormat, http.StatusBadRequest},
		{dErrors.CodeConflict, http.StatusConflict},
		{dErrors.CodeUpstream, http.StatusBadGateway},
		{dErrors.CodeNotFound, http.StatusNotFound},
		{dErrors.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.code))
		})
	}
}

type pingRequest struct {
	Name string `json:"name"`
}

func (r *pingRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := context.Background()

	t.Run("decodes and normalizes", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"  bob  "}`))

		req, ok := DecodeAndPrepare[pingRequest](w, r, logger, ctx, "req-1")
		require.True(t, ok)
		assert.Equal(t, "bob", req.Name)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))

		_, ok := DecodeAndPrepare[pingRequest](w, r, logger, ctx, "req-2")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects empty body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", http.NoBody)

		_, ok := DecodeAndPrepare[pingRequest](w, r, logger, ctx, "req-3")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("surfaces validation error", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":" "}`))

		_, ok := DecodeAndPrepare[pingRequest](w, r, logger, ctx, "req-4")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "validation_error")
	})
}
