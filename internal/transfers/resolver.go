package transfers

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"tapday/pkg/domain"
	dErrors "tapday/pkg/domain-errors"
	"tapday/pkg/requestcontext"
)

// Ledger is the transfer source.
type Ledger interface {
	TokenTransfers(ctx context.Context, address domain.Address) ([]Edge, error)
}

// Resolver derives destinations and totals from ledger transfers. Ledger
// failures degrade to empty results.
type Resolver struct {
	ledger  Ledger
	fanOut  int
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithFanOut bounds concurrent ledger calls for batch operations.
func WithFanOut(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.fanOut = n
		}
	}
}

func NewResolver(ledger Ledger, opts ...Option) *Resolver {
	r := &Resolver{
		ledger: ledger,
		fanOut: 4,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TraceDestinations returns the distinct addresses raw has sent the token to,
// sorted ascending.
func (r *Resolver) TraceDestinations(ctx context.Context, raw string) ([]domain.Address, error) {
	address, err := domain.ParseAddress(raw)
	if err != nil {
		return nil, err
	}

	seen := make(map[domain.Address]struct{})
	for _, e := range r.outbound(ctx, address) {
		seen[e.To] = struct{}{}
	}
	out := make([]domain.Address, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b domain.Address) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return out, nil
}

// OutboundTotals computes totals for each address concurrently. Addresses are
// deduplicated; one with no readable transfers gets zero totals.
func (r *Resolver) OutboundTotals(ctx context.Context, raw []string) (map[domain.Address]Totals, error) {
	addresses := make([]domain.Address, 0, len(raw))
	seen := make(map[domain.Address]struct{}, len(raw))
	for _, s := range raw {
		a, err := domain.ParseAddress(s)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidFormat, "invalid address: "+s)
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		addresses = append(addresses, a)
	}

	results := make([]Totals, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fanOut)
	for i, a := range addresses {
		i, a := i, a
		g.Go(func() error {
			var t Totals
			for _, e := range r.outbound(gctx, a) {
				t = t.Add(e)
			}
			results[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totals := make(map[domain.Address]Totals, len(addresses))
	for i, a := range addresses {
		totals[a] = results[i]
	}
	return totals, nil
}

// outbound returns the transfers sent by address, or nil when the ledger
// cannot answer.
func (r *Resolver) outbound(ctx context.Context, address domain.Address) []Edge {
	start := time.Now()
	edges, err := r.ledger.TokenTransfers(ctx, address)
	if err != nil {
		r.metrics.ObserveLedgerCall("degraded", time.Since(start))
		r.logger.WarnContext(ctx, "ledger lookup failed, treating as no transfers",
			"request_id", requestcontext.RequestID(ctx),
			"address", address.String(),
			"error", err,
		)
		return nil
	}
	r.metrics.ObserveLedgerCall("ok", time.Since(start))

	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.From == address {
			out = append(out, e)
		}
	}
	return out
}
