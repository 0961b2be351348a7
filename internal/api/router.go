package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/tradeassist/internal/api/handlers"
	"github.com/wonny/tradeassist/internal/broadcast"
	"github.com/wonny/tradeassist/pkg/config"
	"github.com/wonny/tradeassist/pkg/logger"
)

// Handlers bundles the handler groups the router wires up
type Handlers struct {
	Baseline    *handlers.BaselineHandler
	StepManager *handlers.StepManagerHandler
	Confidence  *handlers.ConfidenceHandler
	OrderCond   *handlers.OrderCondHandler
	System      *handlers.SystemHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(cfg *config.Config, h Handlers, hub *broadcast.Hub, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Websocket event stream
	if hub != nil {
		r.HandleFunc("/ws/events", hub.ServeWS)
	}

	api := r.PathPrefix("/api").Subrouter()

	// Baseline endpoints
	b := api.PathPrefix("/baseline").Subrouter()
	b.HandleFunc("", h.Baseline.Create).Methods("POST")
	b.HandleFunc("/", h.Baseline.Create).Methods("POST")
	b.HandleFunc("/add-step", h.Baseline.AddStep).Methods("POST")
	b.HandleFunc("/update_by_step", h.Baseline.UpdateByStep).Methods("PUT")
	b.HandleFunc("/bulk-create", h.Baseline.BulkCreate).Methods("POST")
	b.HandleFunc("/bulk-update", h.Baseline.BulkUpdate).Methods("PUT")
	b.HandleFunc("/create-with-validation", h.Baseline.CreateWithValidation).Methods("POST")
	b.HandleFunc("/search-by-price-range", h.Baseline.SearchByPriceRange).Methods("POST")
	b.HandleFunc("/get_all_by_code/{code}", h.Baseline.GetAllByCode).Methods("GET")
	b.HandleFunc("/last_step/{code}", h.Baseline.GetLastStep).Methods("GET")
	b.HandleFunc("/last_data/{code}", h.Baseline.GetLast).Methods("GET")
	b.HandleFunc("/all", h.Baseline.GetAll).Methods("GET")
	b.HandleFunc("/all/ordered", h.Baseline.GetAllOrdered).Methods("GET")
	b.HandleFunc("/stock-codes", h.Baseline.StockCodes).Methods("GET")
	b.HandleFunc("/count", h.Baseline.Count).Methods("GET")
	b.HandleFunc("/summary", h.Baseline.GetSummary).Methods("GET")
	b.HandleFunc("/stats/{code}", h.Baseline.GetStats).Methods("GET")
	b.HandleFunc("/price-range-analysis/{code}", h.Baseline.GetPriceRangeAnalysis).Methods("GET")
	b.HandleFunc("/price-range-stats", h.Baseline.GetPriceRangeStats).Methods("GET")
	b.HandleFunc("/delete-all", h.Baseline.DeleteAll).Methods("DELETE")
	b.HandleFunc("/delete_last/{code}", h.Baseline.DeleteLastStep).Methods("DELETE")
	b.HandleFunc("/delete_all/{code}", h.Baseline.DeleteByCode).Methods("DELETE")
	b.HandleFunc("/{code}/step/{step}", h.Baseline.GetByStep).Methods("GET")
	b.HandleFunc("/{code}/step/{step}", h.Baseline.DeleteByStep).Methods("DELETE")

	// Step manager endpoints
	s := api.PathPrefix("/step_manager").Subrouter()
	s.HandleFunc("", h.StepManager.Create).Methods("POST")
	s.HandleFunc("/", h.StepManager.Create).Methods("POST")
	s.HandleFunc("/code/{code}", h.StepManager.GetByCode).Methods("GET")
	s.HandleFunc("/all", h.StepManager.GetAll).Methods("GET")
	s.HandleFunc("/market/{market}", h.StepManager.GetByMarket).Methods("GET")
	s.HandleFunc("/type/{type}", h.StepManager.GetByType).Methods("GET")
	s.HandleFunc("/trade-step/{step}", h.StepManager.GetByTradeStep).Methods("GET")
	s.HandleFunc("/update/{code}", h.StepManager.UpdateByCode).Methods("PUT")
	s.HandleFunc("/update-trade/{code}", h.StepManager.UpdateTradeInfo).Methods("PUT")
	s.HandleFunc("/add-price/{code}", h.StepManager.AddTradePrice).Methods("POST")
	s.HandleFunc("/delete-price/{code}", h.StepManager.PopTradePrice).Methods("DELETE")
	s.HandleFunc("/delete-price/{code}/index/{index}", h.StepManager.RemoveTradePriceAt).Methods("DELETE")
	s.HandleFunc("/update-price/{code}/index/{index}", h.StepManager.UpdateTradePriceAt).Methods("PUT")
	s.HandleFunc("/sync-step/{code}", h.StepManager.SyncTradeStep).Methods("PUT")
	s.HandleFunc("/reset-prices/{code}", h.StepManager.ResetTradePrices).Methods("DELETE")
	s.HandleFunc("/delete/{code}", h.StepManager.DeleteByCode).Methods("DELETE")
	s.HandleFunc("/delete-all", h.StepManager.DeleteAll).Methods("DELETE")
	s.HandleFunc("/codes", h.StepManager.Codes).Methods("GET")
	s.HandleFunc("/active-positions", h.StepManager.ActivePositions).Methods("GET")
	s.HandleFunc("/fully-traded", h.StepManager.FullyTradedPositions).Methods("GET")
	s.HandleFunc("/recent-trades", h.StepManager.RecentTrades).Methods("GET")
	s.HandleFunc("/summary", h.StepManager.GetSummary).Methods("GET")
	s.HandleFunc("/trade-history", h.StepManager.GetTradeHistory).Methods("GET")

	// Confidence endpoints (literal routes before the {code} catch-all)
	c := api.PathPrefix("/confidence").Subrouter()
	c.HandleFunc("/record", h.Confidence.Record).Methods("POST")
	c.HandleFunc("/all", h.Confidence.GetAll).Methods("GET")
	c.HandleFunc("/{code}", h.Confidence.Get).Methods("GET")
	c.HandleFunc("/{code}/summary", h.Confidence.GetSummary).Methods("GET")

	// Order condition endpoints
	o := api.PathPrefix("/orders").Subrouter()
	o.HandleFunc("", h.OrderCond.GetAll).Methods("GET")
	o.HandleFunc("/", h.OrderCond.GetAll).Methods("GET")
	o.HandleFunc("/{code}", h.OrderCond.AddStock).Methods("POST")
	o.HandleFunc("/{code}", h.OrderCond.GetStock).Methods("GET")
	o.HandleFunc("/{code}", h.OrderCond.DeleteStock).Methods("DELETE")
	o.HandleFunc("/{code}/{direction}", h.OrderCond.AddCondition).Methods("POST")
	o.HandleFunc("/{code}/{direction}/available", h.OrderCond.AvailableNums).Methods("GET")
	o.HandleFunc("/{code}/{direction}/{key}", h.OrderCond.UpdateCondition).Methods("PUT")
	o.HandleFunc("/{code}/{direction}/{num}", h.OrderCond.DeleteCondition).Methods("DELETE")

	// System endpoints
	if h.System != nil {
		api.HandleFunc("/market/status", h.System.MarketStatus).Methods("GET")
		api.HandleFunc("/supervisor/status", h.System.SupervisorStatus).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	if cfg.RateLimit.Enabled {
		api.Use(rateLimitMiddleware(cfg.RateLimit, log))
	}

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "tradeassist-api",
	})
}
