package domain

// TradingMode selects the KIS trading environment. It is immutable for the
// lifetime of a broker client and determines both the base endpoint and every
// transaction code sent on the wire.
type TradingMode string

const (
	ModePaper TradingMode = "paper"
	ModeLive  TradingMode = "live"
)

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderRequest describes a single cash order. A zero LimitPrice means a
// market order.
type OrderRequest struct {
	Symbol     string
	Quantity   int
	LimitPrice float64
	Side       OrderSide
}

// OrderResult wraps the brokerage response after order submission. Orders are
// atomically accepted or rejected; there is no partial-success state.
type OrderResult struct {
	Success bool
	Message string
}
