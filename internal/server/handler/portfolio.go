package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/seojun-lab/kistrader/internal/platform/kis"
	"github.com/seojun-lab/kistrader/internal/portfolio"
)

// BalanceSource provides the raw balance rows. The broker client satisfies
// this; its degraded empty result renders as an all-zero portfolio rather
// than an error page.
type BalanceSource interface {
	GetBalance(ctx context.Context) ([]kis.BalanceHolding, []kis.BalanceSummary)
}

// PortfolioHandler serves the account summary and holdings table.
type PortfolioHandler struct {
	broker BalanceSource
	logger *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler.
func NewPortfolioHandler(broker BalanceSource, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		broker: broker,
		logger: logHandler(logger, "portfolio"),
	}
}

// GetPortfolio returns the parsed account summary and holdings.
// GET /api/portfolio
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	holdings, summary := h.broker.GetBalance(r.Context())
	account, rows := portfolio.Render(holdings, summary)

	writeJSON(w, http.StatusOK, map[string]any{
		"account":  account,
		"holdings": rows,
	})
}
