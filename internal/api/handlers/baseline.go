package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/tradeassist/internal/baseline"
	"github.com/wonny/tradeassist/internal/broadcast"
	"github.com/wonny/tradeassist/pkg/logger"
)

// 기본값: create-with-validation 의 허용 편차 (10%)
const defaultMaxDeviation = 0.1

// BaselineHandler handles baseline price/quantity API endpoints
// ⭐ SSOT: 기준 데이터 API 핸들러는 이 구조체에서만
type BaselineHandler struct {
	repo   *baseline.Repository
	hub    *broadcast.Hub
	logger *logger.Logger
}

// NewBaselineHandler creates a new baseline handler
func NewBaselineHandler(repo *baseline.Repository, hub *broadcast.Hub, log *logger.Logger) *BaselineHandler {
	return &BaselineHandler{
		repo:   repo,
		hub:    hub,
		logger: log,
	}
}

// BaselineRequest is the create/add-step/update request body
type BaselineRequest struct {
	StockCode     string `json:"stock_code"`
	DecisionPrice int64  `json:"decision_price"`
	Quantity      int64  `json:"quantity"`
	LowPrice      *int64 `json:"low_price,omitempty"`
	HighPrice     *int64 `json:"high_price,omitempty"`
}

func (req *BaselineRequest) validate() string {
	if req.StockCode == "" {
		return "stock_code is required"
	}
	if req.DecisionPrice <= 0 {
		return "decision_price must be positive"
	}
	if req.Quantity <= 0 {
		return "quantity must be positive"
	}
	if req.LowPrice != nil && req.HighPrice != nil && *req.LowPrice > *req.HighPrice {
		return "low_price must not exceed high_price"
	}
	return ""
}

func (h *BaselineHandler) publish(code string, b *baseline.Baseline) {
	if h.hub != nil {
		h.hub.Publish(broadcast.Event{
			Type:      broadcast.EventBaselineCreated,
			StockCode: code,
			Payload:   b,
		})
	}
}

// Create registers the step-0 baseline for a stock
// POST /api/baseline/
func (h *BaselineHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BaselineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.repo.Create(ctx, req.StockCode, req.DecisionPrice, req.Quantity, req.LowPrice, req.HighPrice)
	if err != nil {
		if errors.Is(err, baseline.ErrAlreadyExists) {
			respondError(w, http.StatusBadRequest, "Baseline already exists for stock")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": req.StockCode,
		}).Error("Failed to create baseline")
		respondError(w, http.StatusInternalServerError, "Failed to create baseline")
		return
	}

	h.publish(req.StockCode, created)
	respondData(w, http.StatusCreated, created)
}

// AddStep appends the next accumulation step for a stock
// POST /api/baseline/add-step
func (h *BaselineHandler) AddStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BaselineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.repo.AddStep(ctx, req.StockCode, req.DecisionPrice, req.Quantity, req.LowPrice, req.HighPrice)
	if err != nil {
		if errors.Is(err, baseline.ErrNotFound) {
			respondError(w, http.StatusBadRequest, "No baseline exists for stock; create step 0 first")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": req.StockCode,
		}).Error("Failed to add baseline step")
		respondError(w, http.StatusInternalServerError, "Failed to add baseline step")
		return
	}

	h.publish(req.StockCode, created)
	respondData(w, http.StatusCreated, created)
}

// UpdateRequest is the update-by-step request body
type UpdateRequest struct {
	BaselineRequest
	Step int `json:"step"`
}

// UpdateByStep replaces the price/quantity values of one step
// PUT /api/baseline/update_by_step
func (h *BaselineHandler) UpdateByStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Step < 0 {
		respondError(w, http.StatusBadRequest, "step must be non-negative")
		return
	}

	updated, err := h.repo.UpdateByStep(ctx, req.StockCode, req.Step, req.DecisionPrice, req.Quantity, req.LowPrice, req.HighPrice)
	if err != nil {
		if errors.Is(err, baseline.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Baseline step not found")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": req.StockCode,
			"step": req.Step,
		}).Error("Failed to update baseline")
		respondError(w, http.StatusInternalServerError, "Failed to update baseline")
		return
	}

	respondData(w, http.StatusOK, updated)
}

// GetAllByCode returns every step of a stock
// GET /api/baseline/get_all_by_code/{code}
func (h *BaselineHandler) GetAllByCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	rows, err := h.repo.GetAllByCode(ctx, code)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": code,
		}).Error("Failed to get baselines")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve baselines")
		return
	}

	respondData(w, http.StatusOK, rows)
}

// GetLastStep returns the highest registered step number
// GET /api/baseline/last_step/{code}
func (h *BaselineHandler) GetLastStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	step, err := h.repo.GetLastStep(ctx, code)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": code,
		}).Error("Failed to get last step")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve last step")
		return
	}
	if step == nil {
		respondError(w, http.StatusNotFound, "No baseline registered for stock")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"last_step":  *step,
	})
}

// GetLast returns the most recent step row
// GET /api/baseline/last_data/{code}
func (h *BaselineHandler) GetLast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	row, err := h.repo.GetLast(ctx, code)
	if err != nil {
		if errors.Is(err, baseline.ErrNotFound) {
			respondError(w, http.StatusNotFound, "No baseline registered for stock")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": code,
		}).Error("Failed to get last baseline")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve last baseline")
		return
	}

	respondData(w, http.StatusOK, row)
}

// GetByStep returns one step row
// GET /api/baseline/{code}/step/{step}
func (h *BaselineHandler) GetByStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	code := vars["code"]

	step, err := strconv.Atoi(vars["step"])
	if err != nil || step < 0 {
		respondError(w, http.StatusBadRequest, "step must be a non-negative integer")
		return
	}

	row, err := h.repo.GetByStep(ctx, code, step)
	if err != nil {
		if errors.Is(err, baseline.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Baseline step not found")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": code,
			"step": step,
		}).Error("Failed to get baseline step")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve baseline step")
		return
	}

	respondData(w, http.StatusOK, row)
}

// DeleteByStep removes one step row
// DELETE /api/baseline/{code}/step/{step}
func (h *BaselineHandler) DeleteByStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	code := vars["code"]

	step, err := strconv.Atoi(vars["step"])
	if err != nil || step < 0 {
		respondError(w, http.StatusBadRequest, "step must be a non-negative integer")
		return
	}

	if err := h.repo.DeleteByStep(ctx, code, step); err != nil {
		if errors.Is(err, baseline.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Baseline step not found")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": code,
			"step": step,
		}).Error("Failed to delete baseline step")
		respondError(w, http.StatusInternalServerError, "Failed to delete baseline step")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"step":       step,
		"deleted":    true,
	})
}

// DeleteLastStep removes the most recent step row
// DELETE /api/baseline/delete_last/{code}
func (h *BaselineHandler) DeleteLastStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	if err := h.repo.DeleteLastStep(ctx, code); err != nil {
		if errors.Is(err, baseline.ErrNotFound) {
			respondError(w, http.StatusNotFound, "No baseline registered for stock")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": code,
		}).Error("Failed to delete last baseline step")
		respondError(w, http.StatusInternalServerError, "Failed to delete last baseline step")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"deleted":    true,
	})
}

// DeleteByCode removes every step of a stock
// DELETE /api/baseline/delete_all/{code}
func (h *BaselineHandler) DeleteByCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	count, err := h.repo.DeleteByCode(ctx, code)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": code,
		}).Error("Failed to delete baselines")
		respondError(w, http.StatusInternalServerError, "Failed to delete baselines")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"stock_code":    code,
		"deleted_count": count,
	})
}

// GetAll returns every baseline row
// GET /api/baseline/all
func (h *BaselineHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.repo.GetAll(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get baselines")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve baselines")
		return
	}

	respondData(w, http.StatusOK, rows)
}

// GetAllOrdered returns every baseline row ordered by code then step
// GET /api/baseline/all/ordered
func (h *BaselineHandler) GetAllOrdered(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.repo.GetAllOrdered(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get ordered baselines")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve baselines")
		return
	}

	respondData(w, http.StatusOK, rows)
}

// StockCodes returns the distinct registered stock codes
// GET /api/baseline/stock-codes
func (h *BaselineHandler) StockCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	codes, err := h.repo.StockCodes(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get stock codes")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stock codes")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"stock_codes": codes,
		"count":       len(codes),
	})
}

// Count returns the total baseline row count
// GET /api/baseline/count
func (h *BaselineHandler) Count(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.repo.Count(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count baselines")
		respondError(w, http.StatusInternalServerError, "Failed to count baselines")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"count": count,
	})
}

// GetSummary returns the global baseline summary
// GET /api/baseline/summary
func (h *BaselineHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.repo.GetAll(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get baselines for summary")
		respondError(w, http.StatusInternalServerError, "Failed to compute summary")
		return
	}

	respondData(w, http.StatusOK, baseline.ComputeSummary(rows))
}

// GetStats returns per-stock statistics across all steps
// GET /api/baseline/stats/{code}
func (h *BaselineHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	rows, err := h.repo.GetAllByCode(ctx, code)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": code,
		}).Error("Failed to get baselines for stats")
		respondError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}
	if len(rows) == 0 {
		respondError(w, http.StatusNotFound, "No baseline registered for stock")
		return
	}

	respondData(w, http.StatusOK, baseline.ComputeStockStats(code, rows))
}

// BulkResult reports the outcome of a bulk create/update request
type BulkResult struct {
	Total       int      `json:"total"`
	Succeeded   int      `json:"succeeded"`
	Skipped     int      `json:"skipped"`
	Errors      []string `json:"errors"`
	SuccessRate float64  `json:"success_rate"`
}

func (res *BulkResult) finish() {
	if res.Errors == nil {
		res.Errors = []string{}
	}
	if res.Total > 0 {
		res.SuccessRate = float64(res.Succeeded) / float64(res.Total) * 100
	}
}

// BulkCreate registers many step-0 baselines in one call; duplicates are
// skipped, per-row failures are collected instead of aborting the batch
// POST /api/baseline/bulk-create
func (h *BaselineHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqs []BaselineRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(reqs) == 0 {
		respondError(w, http.StatusBadRequest, "At least one baseline is required")
		return
	}

	result := BulkResult{Total: len(reqs)}
	for _, req := range reqs {
		if msg := req.validate(); msg != "" {
			result.Errors = append(result.Errors, req.StockCode+": "+msg)
			continue
		}
		_, err := h.repo.Create(ctx, req.StockCode, req.DecisionPrice, req.Quantity, req.LowPrice, req.HighPrice)
		switch {
		case err == nil:
			result.Succeeded++
		case errors.Is(err, baseline.ErrAlreadyExists):
			result.Skipped++
		default:
			h.logger.WithError(err).WithFields(map[string]interface{}{
				"code": req.StockCode,
			}).Error("Bulk create failed for stock")
			result.Errors = append(result.Errors, req.StockCode+": "+err.Error())
		}
	}
	result.finish()

	respondData(w, http.StatusOK, result)
}

// BulkUpdate updates many (code, step) rows in one call
// PUT /api/baseline/bulk-update
func (h *BaselineHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqs []UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(reqs) == 0 {
		respondError(w, http.StatusBadRequest, "At least one update is required")
		return
	}

	result := BulkResult{Total: len(reqs)}
	for _, req := range reqs {
		if msg := req.validate(); msg != "" {
			result.Errors = append(result.Errors, req.StockCode+": "+msg)
			continue
		}
		_, err := h.repo.UpdateByStep(ctx, req.StockCode, req.Step, req.DecisionPrice, req.Quantity, req.LowPrice, req.HighPrice)
		switch {
		case err == nil:
			result.Succeeded++
		case errors.Is(err, baseline.ErrNotFound):
			result.Skipped++
		default:
			h.logger.WithError(err).WithFields(map[string]interface{}{
				"code": req.StockCode,
				"step": req.Step,
			}).Error("Bulk update failed for stock")
			result.Errors = append(result.Errors, req.StockCode+": "+err.Error())
		}
	}
	result.finish()

	respondData(w, http.StatusOK, result)
}

// DeleteAll wipes the baseline table; requires ?confirm=true
// DELETE /api/baseline/delete-all
func (h *BaselineHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("confirm") != "true" {
		respondError(w, http.StatusBadRequest, "Pass confirm=true to delete every baseline")
		return
	}

	count, err := h.repo.DeleteAll(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to delete all baselines")
		respondError(w, http.StatusInternalServerError, "Failed to delete baselines")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"deleted": count,
	}).Warn("기준 데이터 전체 삭제")

	respondData(w, http.StatusOK, map[string]interface{}{
		"deleted_count": count,
	})
}

// GetPriceRangeAnalysis returns the per-stock spread/risk analysis
// GET /api/baseline/price-range-analysis/{code}
func (h *BaselineHandler) GetPriceRangeAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	rows, err := h.repo.GetAllByCode(ctx, code)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": code,
		}).Error("Failed to get baselines for range analysis")
		respondError(w, http.StatusInternalServerError, "Failed to analyze price range")
		return
	}

	respondData(w, http.StatusOK, baseline.AnalyzePriceRange(code, rows))
}

// GetPriceRangeStats returns coverage and volatility aggregates over all rows
// GET /api/baseline/price-range-stats
func (h *BaselineHandler) GetPriceRangeStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.repo.GetAll(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get baselines for range stats")
		respondError(w, http.StatusInternalServerError, "Failed to compute range statistics")
		return
	}

	respondData(w, http.StatusOK, baseline.ComputeOverallRangeStats(rows))
}

// ValidatedCreateRequest adds the deviation bound to a create request
type ValidatedCreateRequest struct {
	BaselineRequest
	MaxDeviation *float64 `json:"max_deviation,omitempty"`
}

// CreateWithValidation creates step 0 only when the decision price sits
// inside its own predicted range
// POST /api/baseline/create-with-validation
func (h *BaselineHandler) CreateWithValidation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ValidatedCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	maxDeviation := defaultMaxDeviation
	if req.MaxDeviation != nil {
		if *req.MaxDeviation <= 0 || *req.MaxDeviation > 1 {
			respondError(w, http.StatusBadRequest, "max_deviation must be in (0, 1]")
			return
		}
		maxDeviation = *req.MaxDeviation
	}

	if err := baseline.ValidateRange(req.DecisionPrice, req.LowPrice, req.HighPrice, maxDeviation); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.repo.Create(ctx, req.StockCode, req.DecisionPrice, req.Quantity, req.LowPrice, req.HighPrice)
	if err != nil {
		if errors.Is(err, baseline.ErrAlreadyExists) {
			respondError(w, http.StatusBadRequest, "Baseline already exists for stock")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": req.StockCode,
		}).Error("Failed to create validated baseline")
		respondError(w, http.StatusInternalServerError, "Failed to create baseline")
		return
	}

	h.publish(req.StockCode, created)
	respondData(w, http.StatusCreated, created)
}

// SearchByPriceRange returns rows matching the given price bounds
// POST /api/baseline/search-by-price-range
func (h *BaselineHandler) SearchByPriceRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter baseline.RangeFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rows, err := h.repo.GetAllOrdered(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get baselines for search")
		respondError(w, http.StatusInternalServerError, "Failed to search baselines")
		return
	}

	matched := baseline.FilterByRange(rows, filter)
	respondData(w, http.StatusOK, map[string]interface{}{
		"count":   len(matched),
		"results": matched,
	})
}
