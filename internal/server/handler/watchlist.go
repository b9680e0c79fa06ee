package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/seojun-lab/kistrader/internal/domain"
)

// WatchlistHandler serves per-user watchlist management.
type WatchlistHandler struct {
	store  domain.WatchlistStore
	logger *slog.Logger
}

// NewWatchlistHandler creates a WatchlistHandler.
func NewWatchlistHandler(store domain.WatchlistStore, logger *slog.Logger) *WatchlistHandler {
	return &WatchlistHandler{
		store:  store,
		logger: logHandler(logger, "watchlist"),
	}
}

// ListWatchlist returns a user's watchlist entries.
// GET /api/watchlists/{user}
func (h *WatchlistHandler) ListWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	entries, err := h.store.List(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list watchlist failed",
			slog.String("user", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list watchlist")
		return
	}
	if entries == nil {
		entries = []domain.WatchlistEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":    userID,
		"entries": entries,
	})
}

// AddTicker adds a ticker to a user's watchlist.
// POST /api/watchlists/{user}
func (h *WatchlistHandler) AddTicker(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	var req struct {
		Ticker string `json:"ticker"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	if err := h.store.Add(r.Context(), userID, req.Ticker); err != nil {
		h.logger.ErrorContext(r.Context(), "add watchlist ticker failed",
			slog.String("user", userID),
			slog.String("ticker", req.Ticker),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to add ticker")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"user":   userID,
		"ticker": req.Ticker,
	})
}

// RemoveTicker removes a ticker from a user's watchlist.
// DELETE /api/watchlists/{user}/{ticker}
func (h *WatchlistHandler) RemoveTicker(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "user")
	ticker := pathParam(r, "ticker")
	if userID == "" || ticker == "" {
		writeError(w, http.StatusBadRequest, "user and ticker are required")
		return
	}

	if err := h.store.Remove(r.Context(), userID, ticker); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ticker not in watchlist")
			return
		}
		h.logger.ErrorContext(r.Context(), "remove watchlist ticker failed",
			slog.String("user", userID),
			slog.String("ticker", ticker),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to remove ticker")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
