package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seojun-lab/kistrader/internal/domain"
)

// WatchlistStore implements domain.WatchlistStore on the watchlists table.
// Tickers are normalized to upper case on the way in so "aapl" and "AAPL"
// are the same entry.
type WatchlistStore struct {
	pool *pgxpool.Pool
}

// NewWatchlistStore creates a WatchlistStore backed by the given Client.
func NewWatchlistStore(c *Client) *WatchlistStore {
	return &WatchlistStore{pool: c.Pool()}
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Add inserts a ticker into the user's watchlist. Adding an already-present
// ticker is a no-op, not an error.
func (s *WatchlistStore) Add(ctx context.Context, userID, ticker string) error {
	ticker = normalizeTicker(ticker)
	if ticker == "" {
		return fmt.Errorf("postgres: add watchlist: empty ticker")
	}

	const query = `
		INSERT INTO watchlists (user_id, ticker)
		VALUES ($1, $2)
		ON CONFLICT (user_id, ticker) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, userID, ticker); err != nil {
		return fmt.Errorf("postgres: add watchlist %s/%s: %w", userID, ticker, err)
	}
	return nil
}

// Remove deletes a ticker from the user's watchlist. It returns
// domain.ErrNotFound when the entry does not exist.
func (s *WatchlistStore) Remove(ctx context.Context, userID, ticker string) error {
	ticker = normalizeTicker(ticker)

	const query = `DELETE FROM watchlists WHERE user_id = $1 AND ticker = $2`
	tag, err := s.pool.Exec(ctx, query, userID, ticker)
	if err != nil {
		return fmt.Errorf("postgres: remove watchlist %s/%s: %w", userID, ticker, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns the user's watchlist entries ordered by ticker.
func (s *WatchlistStore) List(ctx context.Context, userID string) ([]domain.WatchlistEntry, error) {
	const query = `
		SELECT user_id, ticker, created_at
		FROM watchlists
		WHERE user_id = $1
		ORDER BY ticker`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list watchlist %s: %w", userID, err)
	}
	defer rows.Close()

	var entries []domain.WatchlistEntry
	for rows.Next() {
		var e domain.WatchlistEntry
		if err := rows.Scan(&e.UserID, &e.Symbol, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan watchlist row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate watchlist rows: %w", err)
	}
	return entries, nil
}

// Compile-time interface check.
var _ domain.WatchlistStore = (*WatchlistStore)(nil)
