package transfers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapday/pkg/domain"
	dErrors "tapday/pkg/domain-errors"
)

type fakeLedger struct {
	mu       sync.Mutex
	edges    map[domain.Address][]Edge
	failing  map[domain.Address]bool
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeLedger) TokenTransfers(_ context.Context, a domain.Address) ([]Edge, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[a] {
		return nil, errors.New("ledger down")
	}
	return f.edges[a], nil
}

func edge(from, to, amount string) Edge {
	return Edge{
		From:   domain.MustParseAddress(from),
		To:     domain.MustParseAddress(to),
		Amount: decimal.RequireFromString(amount),
	}
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTraceDestinations(t *testing.T) {
	a := domain.MustParseAddress(alice)
	ledger := &fakeLedger{edges: map[domain.Address][]Edge{
		a: {
			edge(alice, carol, "1"),
			edge(alice, bob, "2"),
			edge(alice, carol, "3"),
			edge(bob, alice, "4"),
		},
	}}
	r := NewResolver(ledger, quiet())

	t.Run("outbound recipients deduplicated and sorted", func(t *testing.T) {
		got, err := r.TraceDestinations(context.Background(), "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, bob, got[0].String())
		assert.Equal(t, carol, got[1].String())
	})

	t.Run("bad shape", func(t *testing.T) {
		_, err := r.TraceDestinations(context.Background(), "0x123")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidFormat))
	})

	t.Run("ledger failure is empty", func(t *testing.T) {
		ledger.failing = map[domain.Address]bool{a: true}
		defer func() { ledger.failing = nil }()

		got, err := r.TraceDestinations(context.Background(), alice)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestTraceDestinations_NoDuplicates(t *testing.T) {
	a := domain.MustParseAddress(alice)
	recipients := []string{bob, carol, bob, bob, carol, "0xdddddddddddddddddddddddddddddddddddddddd"}
	var edges []Edge
	for _, to := range recipients {
		edges = append(edges, edge(alice, to, "1"))
	}
	r := NewResolver(&fakeLedger{edges: map[domain.Address][]Edge{a: edges}}, quiet())

	got, err := r.TraceDestinations(context.Background(), alice)
	require.NoError(t, err)

	seen := map[domain.Address]bool{}
	for _, d := range got {
		assert.False(t, seen[d], "duplicate destination %s", d)
		seen[d] = true
	}
	assert.Len(t, got, 3)
}

func TestOutboundTotals(t *testing.T) {
	a := domain.MustParseAddress(alice)
	b := domain.MustParseAddress(bob)
	c := domain.MustParseAddress(carol)
	ledger := &fakeLedger{
		edges: map[domain.Address][]Edge{
			a: {edge(alice, bob, "1.5"), edge(alice, carol, "2"), edge(carol, alice, "100")},
			b: {edge(bob, carol, "0.25")},
		},
		failing: map[domain.Address]bool{c: true},
	}
	r := NewResolver(ledger, quiet())

	totals, err := r.OutboundTotals(context.Background(), []string{alice, bob, carol, alice})
	require.NoError(t, err)
	require.Len(t, totals, 3)

	assert.Equal(t, "3.5", totals[a].TotalSent.String())
	assert.Equal(t, 2, totals[a].TransactionCount)
	assert.Equal(t, "0.25", totals[b].TotalSent.String())
	assert.Equal(t, 1, totals[b].TransactionCount)
	assert.True(t, totals[c].TotalSent.IsZero())
	assert.Zero(t, totals[c].TransactionCount)
}

func TestOutboundTotals_RejectsBadAddress(t *testing.T) {
	r := NewResolver(&fakeLedger{}, quiet())
	_, err := r.OutboundTotals(context.Background(), []string{alice, "nope"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidFormat))
}

func TestOutboundTotals_BoundedFanOut(t *testing.T) {
	ledger := &fakeLedger{delay: 20 * time.Millisecond}
	r := NewResolver(ledger, quiet(), WithFanOut(2))

	var addrs []string
	for i := 1; i <= 6; i++ {
		addrs = append(addrs, fmt.Sprintf("0x%040x", i))
	}
	_, err := r.OutboundTotals(context.Background(), addrs)
	require.NoError(t, err)
	assert.LessOrEqual(t, ledger.peak.Load(), int32(2))
}
