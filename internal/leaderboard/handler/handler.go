// Package handler exposes the leaderboard endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"tapday/internal/leaderboard"
	"tapday/internal/transfers"
	"tapday/pkg/domain"
	"tapday/pkg/platform/httputil"
	"tapday/pkg/requestcontext"
)

// Service ranks leaderboards.
type Service interface {
	Rank(ctx context.Context, totals map[domain.Address]transfers.Totals, q leaderboard.Query) (*leaderboard.Board, error)
	RankTraced(ctx context.Context, addresses []string, q leaderboard.Query) (*leaderboard.Board, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/leaderboard", h.HandleRank)
	r.Post("/leaderboard/trace", h.HandleRankTraced)
}

// HandleRank ranks caller-supplied totals.
func (h *Handler) HandleRank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RankRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	board, err := h.service.Rank(ctx, req.totals, req.query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBoardResponse(board))
}

// HandleRankTraced ranks addresses by their traced ledger totals.
func (h *Handler) HandleRankTraced(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TraceRankRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	board, err := h.service.RankTraced(ctx, req.Addresses, leaderboard.Query{Search: req.Query, Limit: req.Limit})
	if err != nil {
		h.logger.WarnContext(ctx, "traced leaderboard failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBoardResponse(board))
}

type EntryResponse struct {
	Rank             int             `json:"rank"`
	Wallet           string          `json:"wallet"`
	DisplayWallet    string          `json:"display_wallet"`
	TotalSent        decimal.Decimal `json:"total_sent"`
	TransactionCount int             `json:"transaction_count"`
	CapProgress      decimal.Decimal `json:"cap_progress"`
	FID              *string         `json:"fid,omitempty"`
	Name             *string         `json:"name"`
	Avatar           *string         `json:"avatar"`
	URL              *string         `json:"url"`
}

type BoardResponse struct {
	Entries []EntryResponse `json:"entries"`
	Total   int             `json:"total"`
	Cap     decimal.Decimal `json:"cap"`
}

func toBoardResponse(b *leaderboard.Board) BoardResponse {
	entries := make([]EntryResponse, 0, len(b.Entries))
	for _, e := range b.Entries {
		entries = append(entries, EntryResponse{
			Rank:             e.OriginalRank,
			Wallet:           e.Wallet,
			DisplayWallet:    leaderboard.FormatWallet(e.Wallet),
			TotalSent:        e.TotalSent,
			TransactionCount: e.TransactionCount,
			CapProgress:      leaderboard.CapProgress(e.TotalSent, b.Cap).Round(2),
			FID:              e.FID,
			Name:             e.Name,
			Avatar:           e.Avatar,
			URL:              e.URL,
		})
	}
	return BoardResponse{Entries: entries, Total: b.Total, Cap: b.Cap}
}
