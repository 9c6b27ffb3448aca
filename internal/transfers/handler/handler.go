// Package handler exposes the transfer trace endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tapday/pkg/domain"
	dErrors "tapday/pkg/domain-errors"
	"tapday/pkg/platform/httputil"
	"tapday/pkg/requestcontext"
)

// Tracer resolves the destinations an address has sent tokens to.
type Tracer interface {
	TraceDestinations(ctx context.Context, address string) ([]domain.Address, error)
}

type Handler struct {
	tracer Tracer
	logger *slog.Logger
}

func New(tracer Tracer, logger *slog.Logger) *Handler {
	return &Handler{tracer: tracer, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/trace-destinations", h.HandleTraceDestinations)
}

type TraceRequest struct {
	Address string `json:"address"`
}

func (r *TraceRequest) Validate() error {
	r.Address = strings.TrimSpace(r.Address)
	if r.Address == "" {
		return dErrors.New(dErrors.CodeBadRequest, "address is required")
	}
	if !domain.IsAddressShape(r.Address) {
		return dErrors.New(dErrors.CodeInvalidFormat, "invalid address format: expected 0x followed by 40 hex characters")
	}
	return nil
}

type TraceResponse struct {
	Success      bool     `json:"success"`
	Address      string   `json:"address"`
	Destinations []string `json:"destinations"`
	Count        int      `json:"count"`
}

// HandleTraceDestinations lists the distinct recipients of an address's
// outbound token transfers.
func (h *Handler) HandleTraceDestinations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TraceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	destinations, err := h.tracer.TraceDestinations(ctx, req.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]string, 0, len(destinations))
	for _, d := range destinations {
		out = append(out, d.String())
	}
	h.logger.InfoContext(ctx, "traced destinations",
		"request_id", requestID,
		"address", strings.ToLower(req.Address),
		"count", len(out),
	)
	httputil.WriteJSON(w, http.StatusOK, TraceResponse{
		Success:      true,
		Address:      strings.ToLower(req.Address),
		Destinations: out,
		Count:        len(out),
	})
}
