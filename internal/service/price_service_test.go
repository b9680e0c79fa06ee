package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seojun-lab/kistrader/internal/domain"
)

type memQuoteCache struct {
	mu     sync.Mutex
	prices map[string]float64
	times  map[string]time.Time
	err    error
}

func newMemQuoteCache() *memQuoteCache {
	return &memQuoteCache{
		prices: make(map[string]float64),
		times:  make(map[string]time.Time),
	}
}

func (c *memQuoteCache) SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.prices[symbol] = price
	c.times[symbol] = ts
	return nil
}

func (c *memQuoteCache) GetPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, time.Time{}, c.err
	}
	p, ok := c.prices[symbol]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p, c.times[symbol], nil
}

type stubHistorySource struct {
	price float64
	err   error
	calls int
}

func (s *stubHistorySource) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	s.calls++
	return s.price, s.err
}

func (s *stubHistorySource) GetHistory(ctx context.Context, symbol, chartRange, interval string) ([]domain.Candle, error) {
	return []domain.Candle{{Close: s.price}}, s.err
}

func (s *stubHistorySource) GetNews(ctx context.Context, symbol string, limit int) ([]domain.NewsItem, error) {
	return []domain.NewsItem{{Title: "headline"}}, s.err
}

func newTestPriceService(cache domain.QuoteCache, source HistorySource, maxStale time.Duration) *PriceService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPriceService(cache, source, maxStale, logger)
}

func TestGetCurrentPricePrefersFreshCache(t *testing.T) {
	cache := newMemQuoteCache()
	require.NoError(t, cache.SetPrice(context.Background(), "005930", 72500, time.Now()))
	source := &stubHistorySource{price: 99999}

	svc := newTestPriceService(cache, source, 5*time.Minute)
	price, err := svc.GetCurrentPrice(context.Background(), "005930")
	require.NoError(t, err)
	assert.InDelta(t, 72500, price, 1e-9)
	assert.Zero(t, source.calls, "fresh cache entry must not hit the provider")
}

func TestGetCurrentPriceFallsThroughOnStale(t *testing.T) {
	cache := newMemQuoteCache()
	require.NoError(t, cache.SetPrice(context.Background(), "005930", 70000, time.Now().Add(-time.Hour)))
	source := &stubHistorySource{price: 72500}

	svc := newTestPriceService(cache, source, 5*time.Minute)
	price, err := svc.GetCurrentPrice(context.Background(), "005930")
	require.NoError(t, err)
	assert.InDelta(t, 72500, price, 1e-9)
	assert.Equal(t, 1, source.calls)

	// The provider result was written back to the cache.
	cached, _, err := cache.GetPrice(context.Background(), "005930")
	require.NoError(t, err)
	assert.InDelta(t, 72500, cached, 1e-9)
}

func TestGetCurrentPriceCacheFaultDegrades(t *testing.T) {
	cache := newMemQuoteCache()
	cache.err = errors.New("connection refused")
	source := &stubHistorySource{price: 72500}

	svc := newTestPriceService(cache, source, 5*time.Minute)
	price, err := svc.GetCurrentPrice(context.Background(), "005930")
	require.NoError(t, err, "a broken cache must not fail the lookup")
	assert.InDelta(t, 72500, price, 1e-9)
}

func TestGetCurrentPriceProviderFailure(t *testing.T) {
	source := &stubHistorySource{err: errors.New("rate limited")}
	svc := newTestPriceService(newMemQuoteCache(), source, 5*time.Minute)

	_, err := svc.GetCurrentPrice(context.Background(), "005930")
	assert.Error(t, err)
}

func TestObserveQuoteFeedsCache(t *testing.T) {
	cache := newMemQuoteCache()
	source := &stubHistorySource{price: 99999}
	svc := newTestPriceService(cache, source, 5*time.Minute)

	svc.ObserveQuote(context.Background(), domain.Quote{
		Symbol: "005930",
		Price:  72800,
		Time:   time.Now(),
	})

	price, err := svc.GetCurrentPrice(context.Background(), "005930")
	require.NoError(t, err)
	assert.InDelta(t, 72800, price, 1e-9)
	assert.Zero(t, source.calls)
}
