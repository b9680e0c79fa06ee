package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/seojun-lab/kistrader/internal/domain"
	"github.com/seojun-lab/kistrader/internal/trading"
)

// StatusHandler reports the trader's runtime state: trading environment,
// monitored symbol, configured thresholds, and the position map.
type StatusHandler struct {
	mode       domain.TradingMode
	symbol     string
	targetBuy  float64
	targetSell float64
	positions  *trading.PositionState
	startedAt  time.Time
	logger     *slog.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode domain.TradingMode, symbol string, targetBuy, targetSell float64, positions *trading.PositionState, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:       mode,
		symbol:     symbol,
		targetBuy:  targetBuy,
		targetSell: targetSell,
		positions:  positions,
		startedAt:  time.Now().UTC(),
		logger:     logHandler(logger, "status"),
	}
}

// GetStatus returns the current runtime state.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":        h.mode,
		"symbol":      h.symbol,
		"target_buy":  h.targetBuy,
		"target_sell": h.targetSell,
		"positions":   h.positions.Snapshot(),
		"started_at":  h.startedAt.Format(time.RFC3339),
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
	})
}
