// Package service composes the platform clients into the read paths used by
// the trading loop and the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seojun-lab/kistrader/internal/domain"
)

// HistorySource provides market data lookups from the external quote
// provider. The Yahoo client satisfies this.
type HistorySource interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	GetHistory(ctx context.Context, symbol, chartRange, interval string) ([]domain.Candle, error)
	GetNews(ctx context.Context, symbol string, limit int) ([]domain.NewsItem, error)
}

// PriceService answers price queries cache-first. Fresh entries (realtime
// ticks or recent lookups) come straight from Redis; anything stale or
// missing falls through to the provider and is written back.
type PriceService struct {
	cache    domain.QuoteCache
	source   HistorySource
	maxStale time.Duration
	logger   *slog.Logger
}

// NewPriceService creates a PriceService. cache may be nil, in which case
// every read goes to the provider.
func NewPriceService(cache domain.QuoteCache, source HistorySource, maxStale time.Duration, logger *slog.Logger) *PriceService {
	return &PriceService{
		cache:    cache,
		source:   source,
		maxStale: maxStale,
		logger:   logger.With(slog.String("component", "price_service")),
	}
}

// GetCurrentPrice returns the freshest known price for symbol.
func (s *PriceService) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if s.cache != nil {
		price, ts, err := s.cache.GetPrice(ctx, symbol)
		switch {
		case err == nil && (s.maxStale <= 0 || time.Since(ts) <= s.maxStale):
			return price, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			// A cache fault degrades to a provider lookup, not a failure.
			s.logger.Warn("quote cache read failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		}
	}

	price, err := s.source.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("fetch current price %s: %w", symbol, err)
	}

	if s.cache != nil {
		if err := s.cache.SetPrice(ctx, symbol, price, time.Now()); err != nil {
			s.logger.Warn("quote cache write failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		}
	}
	return price, nil
}

// GetHistory returns OHLCV candles straight from the provider. History is
// not cached: the dashboard requests it rarely and ranges vary.
func (s *PriceService) GetHistory(ctx context.Context, symbol, chartRange, interval string) ([]domain.Candle, error) {
	candles, err := s.source.GetHistory(ctx, symbol, chartRange, interval)
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", symbol, err)
	}
	return candles, nil
}

// GetNews returns recent headlines for symbol straight from the provider.
func (s *PriceService) GetNews(ctx context.Context, symbol string, limit int) ([]domain.NewsItem, error) {
	items, err := s.source.GetNews(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch news %s: %w", symbol, err)
	}
	return items, nil
}

// ObserveQuote records a realtime tick into the cache. The websocket feed
// calls this for every execution-price frame.
func (s *PriceService) ObserveQuote(ctx context.Context, quote domain.Quote) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetPrice(ctx, quote.Symbol, quote.Price, quote.Time); err != nil {
		s.logger.Warn("quote cache write failed", slog.String("symbol", quote.Symbol), slog.String("error", err.Error()))
	}
}
