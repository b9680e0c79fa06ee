package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seojun-lab/kistrader/internal/domain"
)

func newChartServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetCurrentPriceFromMeta(t *testing.T) {
	srv := newChartServer(t, `{
		"chart":{"result":[{"meta":{"regularMarketPrice":182.52},"timestamp":[],"indicators":{"quote":[{}]}}]}
	}`)

	price, err := NewClient(srv.URL).GetCurrentPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 182.52, price, 1e-9)
}

func TestGetCurrentPriceFallsBackToLastClose(t *testing.T) {
	srv := newChartServer(t, `{
		"chart":{"result":[{
			"meta":{},
			"timestamp":[1700000000,1700000060,1700000120],
			"indicators":{"quote":[{"close":[100.5,101.25,0]}]}
		}]}
	}`)

	price, err := NewClient(srv.URL).GetCurrentPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 101.25, price, 1e-9, "trailing zero rows are skipped")
}

func TestGetCurrentPriceNoData(t *testing.T) {
	srv := newChartServer(t, `{"chart":{"result":[{"meta":{},"indicators":{"quote":[{}]}}]}}`)

	_, err := NewClient(srv.URL).GetCurrentPrice(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domain.ErrNoQuote)
}

func TestGetCurrentPriceChartError(t *testing.T) {
	srv := newChartServer(t, `{
		"chart":{"result":[],"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}
	}`)

	_, err := NewClient(srv.URL).GetCurrentPrice(context.Background(), "BOGUS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestGetHistory(t *testing.T) {
	srv := newChartServer(t, `{
		"chart":{"result":[{
			"meta":{"regularMarketPrice":103},
			"timestamp":[1700000000,1700086400,1700172800],
			"indicators":{"quote":[{
				"open":[100,101,0],
				"high":[102,103,0],
				"low":[99,100,0],
				"close":[101,102,0],
				"volume":[5000,6000,0]
			}]}
		}]}
	}`)

	candles, err := NewClient(srv.URL).GetHistory(context.Background(), "AAPL", "5d", "1d")
	require.NoError(t, err)
	require.Len(t, candles, 2, "gap rows with zero close are dropped")

	assert.InDelta(t, 100, candles[0].Open, 1e-9)
	assert.InDelta(t, 101, candles[0].Close, 1e-9)
	assert.Equal(t, int64(5000), candles[0].Volume)
	assert.True(t, candles[0].Time.Before(candles[1].Time))
}

func TestGetNews(t *testing.T) {
	srv := newChartServer(t, `{
		"news":[
			{"title":"Samsung beats estimates","publisher":"Reuters","link":"https://example.com/a","providerPublishTime":1700000000},
			{"title":"","publisher":"Empty","link":"https://example.com/b","providerPublishTime":1700000060},
			{"title":"Chip demand rebounds","publisher":"Bloomberg","link":"https://example.com/c","providerPublishTime":1700000120}
		]
	}`)

	items, err := NewClient(srv.URL).GetNews(context.Background(), "005930.KS", 10)
	require.NoError(t, err)
	require.Len(t, items, 2, "untitled entries are dropped")

	assert.Equal(t, "Samsung beats estimates", items[0].Title)
	assert.Equal(t, "Reuters", items[0].Publisher)
	assert.Equal(t, "https://example.com/a", items[0].Link)
	assert.Equal(t, int64(1700000000), items[0].Time.Unix())
}

func TestGetNewsEmpty(t *testing.T) {
	srv := newChartServer(t, `{"news":[]}`)

	items, err := NewClient(srv.URL).GetNews(context.Background(), "BOGUS", 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetHistoryHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).GetHistory(context.Background(), "AAPL", "1mo", "1d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
}
