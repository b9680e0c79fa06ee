package domain

// AccountSummary is the normalized account-level view derived from a balance
// inquiry. All fields are parsed from the brokerage's string-encoded payload.
type AccountSummary struct {
	TotalAssetValue    int64   `json:"total_asset_value"`
	TotalUnrealizedPnl int64   `json:"total_unrealized_pnl"`
	PnlRatePercent     float64 `json:"pnl_rate_percent"`
	CashBalance        int64   `json:"cash_balance"`
}

// Holding is one row of the normalized holdings table.
type Holding struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Quantity       int64   `json:"quantity"`
	AverageCost    float64 `json:"average_cost"`
	CurrentPrice   float64 `json:"current_price"`
	UnrealizedPnl  int64   `json:"unrealized_pnl"`
	PnlRatePercent float64 `json:"pnl_rate_percent"`
}
