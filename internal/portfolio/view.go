// Package portfolio transforms raw balance-inquiry rows into typed account
// and holding views.
package portfolio

import (
	"strconv"
	"strings"

	"github.com/seojun-lab/kistrader/internal/domain"
	"github.com/seojun-lab/kistrader/internal/platform/kis"
)

// Render converts the raw balance rows into a typed account summary and
// holding list. Every numeric field arrives string-encoded; a field that
// fails to parse degrades to zero rather than failing the whole view, and an
// absent summary row yields an all-zero AccountSummary. The view is always
// renderable, even from empty brokerage data.
func Render(holdings []kis.BalanceHolding, summary []kis.BalanceSummary) (domain.AccountSummary, []domain.Holding) {
	var account domain.AccountSummary
	if len(summary) > 0 {
		s := summary[0]
		account = domain.AccountSummary{
			TotalAssetValue:    parseInt(s.TotalEvalAmount),
			TotalUnrealizedPnl: parseInt(s.TotalPnlAmount),
			PnlRatePercent:     parseFloat(s.PnlRate),
			CashBalance:        parseInt(s.CashBalance),
		}
	}

	rows := make([]domain.Holding, 0, len(holdings))
	for _, h := range holdings {
		qty := parseInt(h.HoldingQty)
		if qty == 0 {
			// Settled-out rows linger in the response with zero quantity.
			continue
		}
		rows = append(rows, domain.Holding{
			Symbol:         h.Symbol,
			Name:           h.ProductName,
			Quantity:       qty,
			AverageCost:    parseFloat(h.PurchaseAvgPrc),
			CurrentPrice:   parseFloat(h.CurrentPrice),
			UnrealizedPnl:  parseInt(h.UnrealizedPnl),
			PnlRatePercent: parseFloat(h.PnlRate),
		})
	}
	return account, rows
}

// parseInt parses a string-encoded integer, tolerating a decimal tail
// ("10.00" -> 10). Unparseable input degrades to 0.
func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// parseFloat parses a string-encoded float. Unparseable input degrades to 0.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
