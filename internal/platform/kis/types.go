package kis

// Transaction codes (tr_id header). Every authenticated operation carries one;
// paper and live environments use distinct codes for the same operation.
const (
	trBalancePaper = "VTTC8434R"
	trBalanceLive  = "TTTC8434R"
	trBuyPaper     = "VTTC0802U"
	trBuyLive      = "TTTC0802U"
	trSellPaper    = "VTTC0801U"
	trSellLive     = "TTTC0801U"

	trRealtimePrice = "H0STCNT0"
)

// rtSuccess is the brokerage result code that marks an accepted request.
const rtSuccess = "0"

// tokenResponse is the payload of POST /oauth2/tokenP.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// approvalResponse is the payload of POST /oauth2/Approval, used for the
// realtime websocket handshake.
type approvalResponse struct {
	ApprovalKey string `json:"approval_key"`
}

// BalanceHolding is one raw holdings row (output1) from the balance inquiry.
// All numeric fields arrive string-encoded; parsing happens in the portfolio
// view, not here.
type BalanceHolding struct {
	Symbol         string `json:"pdno"`
	ProductName    string `json:"prdt_name"`
	HoldingQty     string `json:"hldg_qty"`
	PurchaseAvgPrc string `json:"pchs_avg_pric"`
	CurrentPrice   string `json:"prpr"`
	UnrealizedPnl  string `json:"evlu_pfls_amt"`
	PnlRate        string `json:"evlu_pfls_rt"`
}

// BalanceSummary is the raw account totals row (output2) from the balance
// inquiry.
type BalanceSummary struct {
	TotalEvalAmount string `json:"tot_evlu_amt"`
	TotalPnlAmount  string `json:"evlu_pfls_smtl_amt"`
	PnlRate         string `json:"evlu_pfls_rt"`
	CashBalance     string `json:"dnca_tot_amt"`
}

// balanceResponse is the full balance-inquiry envelope.
type balanceResponse struct {
	ResultCode string           `json:"rt_cd"`
	Message    string           `json:"msg1"`
	Holdings   []BalanceHolding `json:"output1"`
	Summary    []BalanceSummary `json:"output2"`
}

// orderResponse is the order-submission envelope. Only the result code and
// message matter: an order is atomically accepted or rejected.
type orderResponse struct {
	ResultCode string `json:"rt_cd"`
	Message    string `json:"msg1"`
}
