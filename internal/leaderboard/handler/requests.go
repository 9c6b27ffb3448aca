package handler

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tapday/internal/leaderboard"
	"tapday/internal/transfers"
	"tapday/pkg/domain"
	dErrors "tapday/pkg/domain-errors"
	pstrings "tapday/pkg/platform/strings"
)

type EntryRequest struct {
	Wallet           string          `json:"wallet"`
	TotalSent        decimal.Decimal `json:"total_sent"`
	TransactionCount int             `json:"transaction_count"`
}

// RankRequest is the body of POST /leaderboard. Entries for the same wallet
// are merged.
type RankRequest struct {
	Entries []EntryRequest `json:"entries"`
	Query   string         `json:"query"`
	Limit   int            `json:"limit"`

	totals map[domain.Address]transfers.Totals
}

func (r *RankRequest) Validate() error {
	if r.Entries == nil {
		return dErrors.New(dErrors.CodeBadRequest, "entries must be an array")
	}
	r.totals = make(map[domain.Address]transfers.Totals, len(r.Entries))
	for i, e := range r.Entries {
		wallet, err := domain.ParseAddress(e.Wallet)
		if err != nil {
			return dErrors.New(dErrors.CodeInvalidFormat, fmt.Sprintf("entries[%d]: invalid wallet address", i))
		}
		if e.TotalSent.IsNegative() || e.TransactionCount < 0 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("entries[%d]: totals must not be negative", i))
		}
		t := r.totals[wallet]
		r.totals[wallet] = transfers.Totals{
			TotalSent:        t.TotalSent.Add(e.TotalSent),
			TransactionCount: t.TransactionCount + e.TransactionCount,
		}
	}
	return nil
}

func (r *RankRequest) query() leaderboard.Query {
	return leaderboard.Query{Search: r.Query, Limit: r.Limit}
}

// TraceRankRequest is the body of POST /leaderboard/trace.
type TraceRankRequest struct {
	Addresses []string `json:"addresses"`
	Query     string   `json:"query"`
	Limit     int      `json:"limit"`
}

func (r *TraceRankRequest) Validate() error {
	r.Addresses = pstrings.DedupeAndTrimLower(r.Addresses)
	if len(r.Addresses) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "addresses are required")
	}
	for _, a := range r.Addresses {
		if !domain.IsAddressShape(a) {
			return dErrors.New(dErrors.CodeInvalidFormat, "invalid address: "+a)
		}
	}
	return nil
}
