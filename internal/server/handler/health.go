package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/seojun-lab/kistrader/internal/domain"
)

// HealthHandler answers liveness probes. Besides the bare "ok" it reports
// which brokerage environment and application mode this process runs in, so
// an operator probing a box can tell paper from live at a glance.
type HealthHandler struct {
	brokerMode domain.TradingMode
	appMode    string
	logger     *slog.Logger
}

// NewHealthHandler creates a HealthHandler for the given run identity.
func NewHealthHandler(brokerMode domain.TradingMode, appMode string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		brokerMode: brokerMode,
		appMode:    appMode,
		logger:     logHandler(logger, "health"),
	}
}

// HealthCheck reports process liveness and run identity.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"broker_mode": h.brokerMode,
		"app_mode":    h.appMode,
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}
