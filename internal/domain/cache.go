package domain

import (
	"context"
	"time"
)

// QuoteCache caches last-traded prices keyed by symbol. Implementations
// return ErrNotFound when no fresh entry exists.
type QuoteCache interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (float64, time.Time, error)
}
