package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/tradeassist/internal/broadcast"
	"github.com/wonny/tradeassist/internal/stepmanager"
	"github.com/wonny/tradeassist/pkg/logger"
)

// StepManagerHandler handles step-wise position API endpoints
// ⭐ SSOT: 스텝 매니저 API 핸들러는 이 구조체에서만
type StepManagerHandler struct {
	repo   *stepmanager.Repository
	hub    *broadcast.Hub
	logger *logger.Logger
}

// NewStepManagerHandler creates a new step manager handler
func NewStepManagerHandler(repo *stepmanager.Repository, hub *broadcast.Hub, log *logger.Logger) *StepManagerHandler {
	return &StepManagerHandler{
		repo:   repo,
		hub:    hub,
		logger: log,
	}
}

func (h *StepManagerHandler) publish(code string, m *stepmanager.StepManager) {
	if h.hub != nil {
		h.hub.Publish(broadcast.Event{
			Type:      broadcast.EventTradeUpdated,
			StockCode: code,
			Payload:   m,
		})
	}
}

// respondRepoError maps the repository error vocabulary onto HTTP statuses
func (h *StepManagerHandler) respondRepoError(w http.ResponseWriter, code, action string, err error) {
	switch {
	case errors.Is(err, stepmanager.ErrNotFound):
		respondError(w, http.StatusNotFound, "Step manager not found")
	case errors.Is(err, stepmanager.ErrAlreadyExists):
		respondError(w, http.StatusBadRequest, "Step manager already exists for stock")
	case errors.Is(err, stepmanager.ErrNoTradePrices):
		respondError(w, http.StatusBadRequest, "No trade prices recorded")
	case errors.Is(err, stepmanager.ErrInvalidIndex):
		respondError(w, http.StatusBadRequest, "Trade price index out of range")
	default:
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code":   code,
			"action": action,
		}).Error("Step manager operation failed")
		respondError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// validateCreateParams normalizes and checks a create request. Returns an
// empty string when the params are valid.
func validateCreateParams(req *stepmanager.CreateParams) string {
	if req.Code == "" {
		return "code is required"
	}
	if req.Market == "" {
		req.Market = "kospi"
	}
	if req.Market != "kospi" && req.Market != "kosdaq" && req.Market != "all" {
		return "market must be kospi, kosdaq or all"
	}
	if req.FinalPrice <= 0 || req.TotalQty <= 0 {
		return "final_price and total_qty must be positive"
	}
	return ""
}

// Create registers a new position
// POST /api/step_manager/
func (h *StepManagerHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req stepmanager.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateCreateParams(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.repo.Create(ctx, req)
	if err != nil {
		h.respondRepoError(w, req.Code, "create step manager", err)
		return
	}

	h.publish(req.Code, created)
	respondData(w, http.StatusCreated, created)
}

// GetByCode returns the position of one stock
// GET /api/step_manager/code/{code}
func (h *StepManagerHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	manager, err := h.repo.GetByCode(ctx, code)
	if err != nil {
		h.respondRepoError(w, code, "retrieve step manager", err)
		return
	}

	respondData(w, http.StatusOK, manager)
}

// GetAll returns every position
// GET /api/step_manager/all
func (h *StepManagerHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	managers, err := h.repo.GetAll(ctx)
	if err != nil {
		h.respondRepoError(w, "", "retrieve step managers", err)
		return
	}

	respondData(w, http.StatusOK, managers)
}

// GetByMarket filters positions by market ("all" returns everything)
// GET /api/step_manager/market/{market}
func (h *StepManagerHandler) GetByMarket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	market := mux.Vars(r)["market"]

	if market != "kospi" && market != "kosdaq" && market != "all" {
		respondError(w, http.StatusBadRequest, "market must be kospi, kosdaq or all")
		return
	}

	managers, err := h.repo.GetByMarket(ctx, market)
	if err != nil {
		h.respondRepoError(w, "", "retrieve step managers", err)
		return
	}

	respondData(w, http.StatusOK, managers)
}

// GetByType filters positions by the type flag
// GET /api/step_manager/type/{type}
func (h *StepManagerHandler) GetByType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	typeValue, err := strconv.ParseBool(mux.Vars(r)["type"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "type must be true or false")
		return
	}

	managers, err := h.repo.GetByType(ctx, typeValue)
	if err != nil {
		h.respondRepoError(w, "", "retrieve step managers", err)
		return
	}

	respondData(w, http.StatusOK, managers)
}

// GetByTradeStep filters positions by trade step
// GET /api/step_manager/trade-step/{step}
func (h *StepManagerHandler) GetByTradeStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	step, err := strconv.Atoi(mux.Vars(r)["step"])
	if err != nil || step < 0 {
		respondError(w, http.StatusBadRequest, "step must be a non-negative integer")
		return
	}

	managers, err := h.repo.GetByTradeStep(ctx, step)
	if err != nil {
		h.respondRepoError(w, "", "retrieve step managers", err)
		return
	}

	respondData(w, http.StatusOK, managers)
}

// UpdateByCode applies a partial update
// PUT /api/step_manager/update/{code}
func (h *StepManagerHandler) UpdateByCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	var req stepmanager.UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.repo.UpdateByCode(ctx, code, req)
	if err != nil {
		h.respondRepoError(w, code, "update step manager", err)
		return
	}

	h.publish(code, updated)
	respondData(w, http.StatusOK, updated)
}

// TradeUpdateRequest is the update-trade request body
type TradeUpdateRequest struct {
	TradeQty   int64 `json:"trade_qty"`
	TradeStep  int   `json:"trade_step"`
	TradePrice int64 `json:"trade_price"`
}

// UpdateTradeInfo records an executed trade: quantity, step, appended price,
// timestamp, recomputed hold quantity
// PUT /api/step_manager/update-trade/{code}
func (h *StepManagerHandler) UpdateTradeInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	var req TradeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TradeQty < 0 || req.TradeStep < 0 || req.TradePrice <= 0 {
		respondError(w, http.StatusBadRequest, "trade_qty, trade_step and trade_price must be valid")
		return
	}

	updated, err := h.repo.UpdateTradeInfo(ctx, code, req.TradeQty, req.TradeStep, req.TradePrice)
	if err != nil {
		h.respondRepoError(w, code, "update trade info", err)
		return
	}

	h.publish(code, updated)
	respondData(w, http.StatusOK, updated)
}

// PriceRequest carries a single trade price
type PriceRequest struct {
	Price int64 `json:"price"`
}

// AddTradePrice appends a trade price and bumps the step
// POST /api/step_manager/add-price/{code}
func (h *StepManagerHandler) AddTradePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	var req PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Price <= 0 {
		respondError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	updated, err := h.repo.AddTradePrice(ctx, code, req.Price)
	if err != nil {
		h.respondRepoError(w, code, "add trade price", err)
		return
	}

	h.publish(code, updated)
	respondData(w, http.StatusOK, updated)
}

// PopTradePrice removes the most recent trade price and decrements the step
// DELETE /api/step_manager/delete-price/{code}
func (h *StepManagerHandler) PopTradePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	updated, err := h.repo.PopTradePrice(ctx, code)
	if err != nil {
		h.respondRepoError(w, code, "delete trade price", err)
		return
	}

	h.publish(code, updated)
	respondData(w, http.StatusOK, updated)
}

// RemoveTradePriceAt removes the trade price at an index and re-syncs the step
// DELETE /api/step_manager/delete-price/{code}/index/{index}
func (h *StepManagerHandler) RemoveTradePriceAt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	code := vars["code"]

	index, err := strconv.Atoi(vars["index"])
	if err != nil || index < 0 {
		respondError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}

	updated, err := h.repo.RemoveTradePriceAt(ctx, code, index)
	if err != nil {
		h.respondRepoError(w, code, "delete trade price", err)
		return
	}

	h.publish(code, updated)
	respondData(w, http.StatusOK, updated)
}

// UpdateTradePriceAt replaces the trade price at an index
// PUT /api/step_manager/update-price/{code}/index/{index}
func (h *StepManagerHandler) UpdateTradePriceAt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	code := vars["code"]

	index, err := strconv.Atoi(vars["index"])
	if err != nil || index < 0 {
		respondError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}

	var req PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Price <= 0 {
		respondError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	updated, err := h.repo.UpdateTradePriceAt(ctx, code, index, req.Price)
	if err != nil {
		h.respondRepoError(w, code, "update trade price", err)
		return
	}

	h.publish(code, updated)
	respondData(w, http.StatusOK, updated)
}

// SyncTradeStep repairs trade_step to match the price-list length
// PUT /api/step_manager/sync-step/{code}
func (h *StepManagerHandler) SyncTradeStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	updated, err := h.repo.SyncTradeStep(ctx, code)
	if err != nil {
		h.respondRepoError(w, code, "sync trade step", err)
		return
	}

	respondData(w, http.StatusOK, updated)
}

// ResetTradePrices clears the price list and zeroes the step
// DELETE /api/step_manager/reset-prices/{code}
func (h *StepManagerHandler) ResetTradePrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	updated, err := h.repo.ResetTradePrices(ctx, code)
	if err != nil {
		h.respondRepoError(w, code, "reset trade prices", err)
		return
	}

	h.publish(code, updated)
	respondData(w, http.StatusOK, updated)
}

// DeleteByCode removes one position
// DELETE /api/step_manager/delete/{code}
func (h *StepManagerHandler) DeleteByCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	if err := h.repo.DeleteByCode(ctx, code); err != nil {
		h.respondRepoError(w, code, "delete step manager", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"code":    code,
		"deleted": true,
	})
}

// DeleteAll wipes the step manager table
// DELETE /api/step_manager/delete-all
func (h *StepManagerHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.repo.DeleteAll(ctx)
	if err != nil {
		h.respondRepoError(w, "", "delete step managers", err)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"deleted": count,
	}).Warn("스텝 매니저 전체 삭제")

	respondData(w, http.StatusOK, map[string]interface{}{
		"deleted_count": count,
	})
}

// Codes returns the registered stock codes
// GET /api/step_manager/codes
func (h *StepManagerHandler) Codes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	codes, err := h.repo.Codes(ctx)
	if err != nil {
		h.respondRepoError(w, "", "retrieve codes", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"codes": codes,
		"count": len(codes),
	})
}

// ActivePositions returns positions with remaining hold quantity
// GET /api/step_manager/active-positions
func (h *StepManagerHandler) ActivePositions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	managers, err := h.repo.ActivePositions(ctx)
	if err != nil {
		h.respondRepoError(w, "", "retrieve active positions", err)
		return
	}

	respondData(w, http.StatusOK, managers)
}

// FullyTradedPositions returns positions whose planned quantity is
// completely traded
// GET /api/step_manager/fully-traded
func (h *StepManagerHandler) FullyTradedPositions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	managers, err := h.repo.FullyTradedPositions(ctx)
	if err != nil {
		h.respondRepoError(w, "", "retrieve fully traded positions", err)
		return
	}

	respondData(w, http.StatusOK, managers)
}

// RecentTrades returns the most recently traded positions
// GET /api/step_manager/recent-trades?limit=10
func (h *StepManagerHandler) RecentTrades(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	managers, err := h.repo.RecentTrades(ctx, limit)
	if err != nil {
		h.respondRepoError(w, "", "retrieve recent trades", err)
		return
	}

	respondData(w, http.StatusOK, managers)
}

// GetSummary returns the global position summary
// GET /api/step_manager/summary
func (h *StepManagerHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	managers, err := h.repo.GetAll(ctx)
	if err != nil {
		h.respondRepoError(w, "", "compute summary", err)
		return
	}

	respondData(w, http.StatusOK, stepmanager.ComputeSummary(managers))
}

// GetTradeHistory returns the aggregated trade history
// GET /api/step_manager/trade-history
func (h *StepManagerHandler) GetTradeHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	managers, err := h.repo.GetAll(ctx)
	if err != nil {
		h.respondRepoError(w, "", "compute trade history", err)
		return
	}

	respondData(w, http.StatusOK, stepmanager.ComputeTradeHistory(managers))
}
