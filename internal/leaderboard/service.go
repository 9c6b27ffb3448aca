package leaderboard

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"tapday/internal/identitycache"
	"tapday/internal/transfers"
	"tapday/pkg/domain"
	dErrors "tapday/pkg/domain-errors"
	"tapday/pkg/requestcontext"
)

// Directory supplies the current identity snapshot.
type Directory interface {
	Current(ctx context.Context) *identitycache.Snapshot
}

// TotalsSource computes outbound totals for addresses.
type TotalsSource interface {
	OutboundTotals(ctx context.Context, addresses []string) (map[domain.Address]transfers.Totals, error)
}

// Query narrows a ranked board.
type Query struct {
	Search string
	Limit  int
}

// Board is a ranked and filtered leaderboard.
type Board struct {
	Entries []Entry
	// Total counts entries matching the search before the limit is applied.
	Total int
	Cap   decimal.Decimal
}

type Service struct {
	directory Directory
	totals    TotalsSource
	cap       decimal.Decimal
	maxLimit  int
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCap sets the amount that counts as 100% progress.
func WithCap(c decimal.Decimal) Option {
	return func(s *Service) {
		s.cap = c
	}
}

// WithMaxLimit bounds the number of entries a single board returns.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

func NewService(directory Directory, totals TotalsSource, opts ...Option) *Service {
	s := &Service{
		directory: directory,
		totals:    totals,
		cap:       decimal.NewFromInt(1000),
		maxLimit:  500,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cap returns the configured progress cap.
func (s *Service) Cap() decimal.Decimal {
	return s.cap
}

// Rank builds a board from caller-supplied totals.
func (s *Service) Rank(ctx context.Context, totals map[domain.Address]transfers.Totals, q Query) (*Board, error) {
	if q.Limit < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "limit must not be negative")
	}
	limit := q.Limit
	if limit == 0 || limit > s.maxLimit {
		limit = s.maxLimit
	}

	ranked := Build(totals, s.directory.Current(ctx))
	matching := Filter(ranked, q.Search, 0)
	entries := matching
	if len(entries) > limit {
		entries = entries[:limit]
	}

	s.logger.DebugContext(ctx, "leaderboard ranked",
		"request_id", requestcontext.RequestID(ctx),
		"ranked", len(ranked),
		"matching", len(matching),
		"returned", len(entries),
	)
	return &Board{Entries: entries, Total: len(matching), Cap: s.cap}, nil
}

// RankTraced builds a board from totals computed from the ledger.
func (s *Service) RankTraced(ctx context.Context, addresses []string, q Query) (*Board, error) {
	totals, err := s.totals.OutboundTotals(ctx, addresses)
	if err != nil {
		return nil, err
	}
	return s.Rank(ctx, totals, q)
}
