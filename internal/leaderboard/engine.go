// Package leaderboard ranks addresses by outbound token volume and annotates
// them with claimed identities.
//
// Ranking is total sent descending, then transaction count descending, then
// address ascending, so the order is total and deterministic. OriginalRank is
// fixed at build time; filtering and slicing never renumber it.
package leaderboard

import (
	"slices"

	"github.com/shopspring/decimal"

	"tapday/internal/identitycache"
	"tapday/internal/transfers"
	"tapday/pkg/domain"
	pstrings "tapday/pkg/platform/strings"
)

var hundred = decimal.NewFromInt(100)

// Entry is one ranked address.
type Entry struct {
	Wallet           string
	TotalSent        decimal.Decimal
	TransactionCount int
	OriginalRank     int
	FID              *string
	Name             *string
	Avatar           *string
	URL              *string
}

// IdentitySource annotates addresses. *identitycache.Snapshot satisfies it,
// including a nil one.
type IdentitySource interface {
	Get(address string) identitycache.Entry
}

// Build ranks totals and annotates each entry from ids. A nil ids leaves
// every annotation absent.
func Build(totals map[domain.Address]transfers.Totals, ids IdentitySource) []Entry {
	type row struct {
		addr domain.Address
		t    transfers.Totals
	}
	rows := make([]row, 0, len(totals))
	for a, t := range totals {
		rows = append(rows, row{addr: a, t: t})
	}
	slices.SortFunc(rows, func(x, y row) int {
		if c := y.t.TotalSent.Cmp(x.t.TotalSent); c != 0 {
			return c
		}
		if x.t.TransactionCount != y.t.TransactionCount {
			return y.t.TransactionCount - x.t.TransactionCount
		}
		switch {
		case x.addr.Less(y.addr):
			return -1
		case y.addr.Less(x.addr):
			return 1
		}
		return 0
	})

	entries := make([]Entry, 0, len(rows))
	for i, r := range rows {
		e := Entry{
			Wallet:           r.addr.String(),
			TotalSent:        r.t.TotalSent,
			TransactionCount: r.t.TransactionCount,
			OriginalRank:     i + 1,
		}
		if ids != nil {
			id := ids.Get(e.Wallet)
			e.FID, e.Name, e.Avatar, e.URL = id.FID, id.Name, id.Avatar, id.URL
		}
		entries = append(entries, e)
	}
	return entries
}

// CapProgress is totalSent as a percentage of limit, clamped to [0, 100].
func CapProgress(totalSent, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() || !totalSent.IsPositive() {
		return decimal.Zero
	}
	p := totalSent.Div(limit).Mul(hundred)
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// FormatWallet shortens a wallet for display as 0x1234...abcd.
func FormatWallet(wallet string) string {
	if len(wallet) <= 10 {
		return wallet
	}
	return wallet[:6] + "..." + wallet[len(wallet)-4:]
}

// Filter keeps entries whose wallet or name contains query, then truncates to
// limit. A limit of zero or less keeps everything.
func Filter(entries []Entry, query string, limit int) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		name := ""
		if e.Name != nil {
			name = *e.Name
		}
		if pstrings.ContainsFold(query, e.Wallet, name) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
