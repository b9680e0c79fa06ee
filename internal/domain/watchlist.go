package domain

import (
	"context"
	"time"
)

// WatchlistEntry is one instrument a user tracks.
type WatchlistEntry struct {
	UserID    string    `json:"user_id"`
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
}

// WatchlistStore persists per-user watchlists.
type WatchlistStore interface {
	Add(ctx context.Context, userID, symbol string) error
	Remove(ctx context.Context, userID, symbol string) error
	List(ctx context.Context, userID string) ([]WatchlistEntry, error)
}
