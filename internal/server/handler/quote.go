package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/seojun-lab/kistrader/internal/domain"
)

// QuoteSource answers current-price, history, and news queries. The price
// service satisfies this.
type QuoteSource interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	GetHistory(ctx context.Context, symbol, chartRange, interval string) ([]domain.Candle, error)
	GetNews(ctx context.Context, symbol string, limit int) ([]domain.NewsItem, error)
}

// QuoteHandler serves price and history lookups.
type QuoteHandler struct {
	quotes QuoteSource
	logger *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler.
func NewQuoteHandler(quotes QuoteSource, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{
		quotes: quotes,
		logger: logHandler(logger, "quote"),
	}
}

// GetQuote returns the current price for a symbol.
// GET /api/quotes/{symbol}
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	price, err := h.quotes.GetCurrentPrice(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNoQuote) {
			writeError(w, http.StatusNotFound, "no quote for "+symbol)
			return
		}
		h.logger.ErrorContext(r.Context(), "quote lookup failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "quote lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"price":  price,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetHistory returns OHLCV candles for a symbol.
// GET /api/quotes/{symbol}/history?range=1mo&interval=1d
func (h *QuoteHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	q := r.URL.Query()
	chartRange := q.Get("range")
	if chartRange == "" {
		chartRange = "1mo"
	}
	interval := q.Get("interval")
	if interval == "" {
		interval = "1d"
	}

	candles, err := h.quotes.GetHistory(r.Context(), symbol, chartRange, interval)
	if err != nil {
		if errors.Is(err, domain.ErrNoQuote) {
			writeError(w, http.StatusNotFound, "no history for "+symbol)
			return
		}
		h.logger.ErrorContext(r.Context(), "history lookup failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "history lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":  symbol,
		"range":   chartRange,
		"candles": candles,
	})
}

// GetNews returns recent headlines for a symbol.
// GET /api/quotes/{symbol}/news?limit=10
func (h *QuoteHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	items, err := h.quotes.GetNews(r.Context(), symbol, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "news lookup failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "news lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"news":   items,
	})
}
