package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/tradeassist/internal/supervisor"
	"github.com/wonny/tradeassist/internal/tradingday"
	"github.com/wonny/tradeassist/pkg/logger"
)

// SystemHandler exposes trading-calendar and supervisor state
type SystemHandler struct {
	calendar   *tradingday.Calendar
	supervisor *supervisor.Supervisor
	logger     *logger.Logger
}

// NewSystemHandler creates a new system handler. sup may be nil when the API
// runs without a supervised program.
func NewSystemHandler(cal *tradingday.Calendar, sup *supervisor.Supervisor, log *logger.Logger) *SystemHandler {
	return &SystemHandler{
		calendar:   cal,
		supervisor: sup,
		logger:     log,
	}
}

// MarketStatus returns today's trading-calendar status (KST)
// GET /api/market/status
func (h *SystemHandler) MarketStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := h.calendar.StatusFor(ctx, time.Now().In(tradingday.KST))
	respondData(w, http.StatusOK, status)
}

// SupervisorStatus returns the supervised program state
// GET /api/supervisor/status
func (h *SystemHandler) SupervisorStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.supervisor == nil {
		respondError(w, http.StatusNotFound, "Supervisor not configured")
		return
	}

	respondData(w, http.StatusOK, h.supervisor.Status(ctx))
}
