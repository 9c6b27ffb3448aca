// Package transfers traces outbound token transfers through an
// etherscan-compatible ledger indexer.
package transfers

import (
	"github.com/shopspring/decimal"

	"tapday/pkg/domain"
)

// Edge is one token transfer.
type Edge struct {
	From   domain.Address
	To     domain.Address
	Amount decimal.Decimal
	Hash   string
}

// Totals summarizes the transfers sent by one address.
type Totals struct {
	TotalSent        decimal.Decimal
	TransactionCount int
}

// Add folds one outbound edge into the totals.
func (t Totals) Add(e Edge) Totals {
	return Totals{
		TotalSent:        t.TotalSent.Add(e.Amount),
		TransactionCount: t.TransactionCount + 1,
	}
}
