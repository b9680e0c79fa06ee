// Package yahoo implements a quote, history, and news client on the Yahoo
// Finance chart and search APIs. It serves the dashboard surfaces; trading
// decisions use the brokerage realtime feed when enabled.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/seojun-lab/kistrader/internal/domain"
)

// Client is an unauthenticated HTTP client for the Yahoo Finance chart API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a chart API client. baseURL defaults to the public
// endpoint when empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// chartResponse is the subset of the chart API envelope we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetCurrentPrice returns the latest market price for symbol. It prefers the
// regular market price from the chart metadata and falls back to the last
// close in the series.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	resp, err := c.fetchChart(ctx, symbol, "1d", "1m")
	if err != nil {
		return 0, err
	}

	result := resp.Chart.Result[0]
	if p := result.Meta.RegularMarketPrice; p > 0 {
		return p, nil
	}

	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] > 0 {
				return closes[i], nil
			}
		}
	}
	return 0, fmt.Errorf("yahoo: %s: %w", symbol, domain.ErrNoQuote)
}

// GetHistory returns OHLCV candles for symbol over the given range and
// interval (chart API notation, e.g. "1mo" / "1d"). Gap rows with a zero
// close are skipped.
func (c *Client) GetHistory(ctx context.Context, symbol, chartRange, interval string) ([]domain.Candle, error) {
	resp, err := c.fetchChart(ctx, symbol, chartRange, interval)
	if err != nil {
		return nil, err
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: %s: no quote series: %w", symbol, domain.ErrNoQuote)
	}
	quote := result.Indicators.Quote[0]

	candles := make([]domain.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == 0 {
			continue
		}
		candle := domain.Candle{
			Time:  time.Unix(ts, 0).UTC(),
			Close: quote.Close[i],
		}
		if i < len(quote.Open) {
			candle.Open = quote.Open[i]
		}
		if i < len(quote.High) {
			candle.High = quote.High[i]
		}
		if i < len(quote.Low) {
			candle.Low = quote.Low[i]
		}
		if i < len(quote.Volume) {
			candle.Volume = quote.Volume[i]
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// searchResponse is the subset of the search API envelope carrying news.
type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

// GetNews returns recent headlines mentioning symbol via the search API.
// limit caps the request; values below one fall back to ten.
func (c *Client) GetNews(ctx context.Context, symbol string, limit int) ([]domain.NewsItem, error) {
	if limit < 1 {
		limit = 10
	}

	query := url.Values{}
	query.Set("q", symbol)
	query.Set("quotesCount", "0")
	query.Set("newsCount", fmt.Sprint(limit))
	fullURL := fmt.Sprintf("%s/v1/finance/search?%s", c.baseURL, query.Encode())

	body, err := c.get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("yahoo: news %s: %w", symbol, err)
	}

	var search searchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, fmt.Errorf("yahoo: decode news: %w", err)
	}

	items := make([]domain.NewsItem, 0, len(search.News))
	for _, n := range search.News {
		if n.Title == "" {
			continue
		}
		items = append(items, domain.NewsItem{
			Title:     n.Title,
			Publisher: n.Publisher,
			Link:      n.Link,
			Time:      time.Unix(n.ProviderPublishTime, 0).UTC(),
		})
	}
	return items, nil
}

// fetchChart issues the chart request and validates the envelope down to a
// non-empty result.
func (c *Client) fetchChart(ctx context.Context, symbol, chartRange, interval string) (*chartResponse, error) {
	query := url.Values{}
	query.Set("range", chartRange)
	query.Set("interval", interval)

	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), query.Encode())

	body, err := c.get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("yahoo: chart %s: %w", symbol, err)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo: decode chart: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo: chart %s: %s: %s", symbol, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: %s: empty result: %w", symbol, domain.ErrNoQuote)
	}
	return &chart, nil
}

// get issues an anonymous GET and returns the body on HTTP 200. Yahoo blocks
// requests without a browser-ish User-Agent.
func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; kistrader/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return body, nil
}
