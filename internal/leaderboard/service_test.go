package leaderboard

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapday/internal/identitycache"
	"tapday/internal/transfers"
	"tapday/pkg/domain"
	dErrors "tapday/pkg/domain-errors"
)

type noSnapshot struct{}

func (noSnapshot) Current(context.Context) *identitycache.Snapshot { return nil }

type fixedTotals map[domain.Address]transfers.Totals

func (f fixedTotals) OutboundTotals(_ context.Context, addresses []string) (map[domain.Address]transfers.Totals, error) {
	out := make(map[domain.Address]transfers.Totals, len(addresses))
	for _, a := range addresses {
		addr, err := domain.ParseAddress(a)
		if err != nil {
			return nil, err
		}
		out[addr] = f[addr]
	}
	return out, nil
}

func newService(opts ...Option) *Service {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewService(noSnapshot{}, fixedTotals{
		domain.MustParseAddress(walletA): totals("10", 1),
		domain.MustParseAddress(walletB): totals("30", 2),
		domain.MustParseAddress(walletC): totals("20", 3),
	}, opts...)
}

func TestService_Rank(t *testing.T) {
	in := map[domain.Address]transfers.Totals{
		domain.MustParseAddress(walletA): totals("10", 1),
		domain.MustParseAddress(walletB): totals("30", 2),
		domain.MustParseAddress(walletC): totals("20", 3),
	}

	t.Run("limit applies after ranking", func(t *testing.T) {
		board, err := newService().Rank(context.Background(), in, Query{Limit: 2})
		require.NoError(t, err)
		require.Len(t, board.Entries, 2)
		assert.Equal(t, walletB, board.Entries[0].Wallet)
		assert.Equal(t, walletC, board.Entries[1].Wallet)
		assert.Equal(t, 3, board.Total)
		assert.True(t, board.Cap.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("max limit bounds the board", func(t *testing.T) {
		board, err := newService(WithMaxLimit(1)).Rank(context.Background(), in, Query{Limit: 50})
		require.NoError(t, err)
		assert.Len(t, board.Entries, 1)
	})

	t.Run("search keeps ranks", func(t *testing.T) {
		board, err := newService().Rank(context.Background(), in, Query{Search: "0xaaaa"})
		require.NoError(t, err)
		require.Len(t, board.Entries, 1)
		assert.Equal(t, 3, board.Entries[0].OriginalRank)
		assert.Equal(t, 1, board.Total)
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := newService().Rank(context.Background(), in, Query{Limit: -1})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestService_RankTraced(t *testing.T) {
	svc := newService(WithCap(decimal.NewFromInt(40)))

	board, err := svc.RankTraced(context.Background(), []string{walletA, walletC}, Query{})
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, walletC, board.Entries[0].Wallet)
	assert.True(t, CapProgress(board.Entries[0].TotalSent, board.Cap).Equal(decimal.NewFromInt(50)))
}
