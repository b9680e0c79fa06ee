package domain

import "time"

// EventKind classifies what happened during a single evaluation cycle.
type EventKind string

const (
	EventOrderFilled      EventKind = "order_filled"
	EventOrderFailed      EventKind = "order_failed"
	EventAlreadyHolding   EventKind = "already_holding"
	EventNothingToSell    EventKind = "nothing_to_sell"
	EventWatching         EventKind = "watching"
	EventPriceUnavailable EventKind = "price_unavailable"
)

// TradeEvent is the human-readable outcome of one controller cycle.
type TradeEvent struct {
	ID      string    `json:"id"`
	Kind    EventKind `json:"kind"`
	Symbol  string    `json:"symbol"`
	Side    OrderSide `json:"side,omitempty"`
	Price   float64   `json:"price"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}
