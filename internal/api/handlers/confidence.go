package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/tradeassist/internal/baseline"
	"github.com/wonny/tradeassist/internal/broadcast"
	"github.com/wonny/tradeassist/internal/confidence"
	"github.com/wonny/tradeassist/pkg/logger"
)

// PriceFetcher supplies the current traded price when the caller omits it
type PriceFetcher interface {
	FetchCurrentPrice(ctx context.Context, stockCode string) (int64, error)
}

// ConfidenceHandler handles opening-price confidence API endpoints
// ⭐ SSOT: 시가 신뢰도 API 핸들러는 이 구조체에서만
type ConfidenceHandler struct {
	service   *confidence.Service
	baselines *baseline.Repository
	fetcher   PriceFetcher
	hub       *broadcast.Hub
	logger    *logger.Logger
}

// NewConfidenceHandler creates a new confidence handler. fetcher may be nil;
// record requests must then carry the current price themselves.
func NewConfidenceHandler(service *confidence.Service, baselines *baseline.Repository, fetcher PriceFetcher, hub *broadcast.Hub, log *logger.Logger) *ConfidenceHandler {
	return &ConfidenceHandler{
		service:   service,
		baselines: baselines,
		fetcher:   fetcher,
		hub:       hub,
		logger:    log,
	}
}

// RecordRequest is the record-open-price request body. The prediction triple
// is optional; when omitted the stock's step-0 baseline supplies it.
type RecordRequest struct {
	StockCode     string `json:"stock_code"`
	CurrentPrice  *int64 `json:"current_price,omitempty"`
	DecisionPrice *int64 `json:"decision_price,omitempty"`
	LowPrice      *int64 `json:"low_price,omitempty"`
	HighPrice     *int64 `json:"high_price,omitempty"`
}

// Record stores today's opening price for a stock and scores it against the
// predicted range. The first write wins; repeats return the stored record.
// POST /api/confidence/record
func (h *ConfidenceHandler) Record(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.StockCode == "" {
		respondError(w, http.StatusBadRequest, "stock_code is required")
		return
	}

	// 현재가: 요청에 없으면 시세 조회로 보충
	var currentPrice int64
	switch {
	case req.CurrentPrice != nil:
		if *req.CurrentPrice <= 0 {
			respondError(w, http.StatusBadRequest, "current_price must be positive")
			return
		}
		currentPrice = *req.CurrentPrice
	case h.fetcher != nil:
		price, err := h.fetcher.FetchCurrentPrice(ctx, req.StockCode)
		if err != nil {
			h.logger.WithError(err).WithFields(map[string]interface{}{
				"code": req.StockCode,
			}).Error("Failed to fetch current price")
			respondError(w, http.StatusBadRequest, "current_price missing and quote lookup failed")
			return
		}
		currentPrice = price
	default:
		respondError(w, http.StatusBadRequest, "current_price is required")
		return
	}

	// 예측값: 요청에 없으면 0단계 기준 데이터로 보충
	var decisionPrice, lowPrice, highPrice int64
	if req.DecisionPrice != nil && req.LowPrice != nil && req.HighPrice != nil {
		decisionPrice, lowPrice, highPrice = *req.DecisionPrice, *req.LowPrice, *req.HighPrice
	} else {
		base, err := h.baselines.GetByStep(ctx, req.StockCode, 0)
		if err != nil {
			if errors.Is(err, baseline.ErrNotFound) {
				respondError(w, http.StatusBadRequest, "No step-0 baseline for stock; pass the prediction explicitly")
				return
			}
			h.logger.WithError(err).WithFields(map[string]interface{}{
				"code": req.StockCode,
			}).Error("Failed to load baseline for confidence record")
			respondError(w, http.StatusInternalServerError, "Failed to load baseline")
			return
		}
		if !base.HasPriceRange() {
			respondError(w, http.StatusBadRequest, "Baseline carries no predicted range; pass the prediction explicitly")
			return
		}
		decisionPrice, lowPrice, highPrice = base.DecisionPrice, *base.LowPrice, *base.HighPrice
	}

	if decisionPrice <= 0 {
		respondError(w, http.StatusBadRequest, "decision_price must be positive")
		return
	}

	data, created, err := h.service.Record(ctx, req.StockCode, currentPrice, decisionPrice, lowPrice, highPrice)
	if err != nil {
		if errors.Is(err, confidence.ErrDisabled) {
			respondError(w, http.StatusServiceUnavailable, "Opening price store is disabled")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": req.StockCode,
		}).Error("Failed to record opening price")
		respondError(w, http.StatusInternalServerError, "Failed to record opening price")
		return
	}

	if created && h.hub != nil {
		h.hub.Publish(broadcast.Event{
			Type:      broadcast.EventConfidenceRecorded,
			StockCode: req.StockCode,
			Payload:   data,
		})
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]interface{}{
		"success": true,
		"created": created,
		"data":    data,
	})
}

// Get returns the stored opening-price record for a stock
// GET /api/confidence/{code}
func (h *ConfidenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	data, err := h.service.Get(ctx, code)
	if err != nil {
		if errors.Is(err, confidence.ErrNotFound) {
			respondError(w, http.StatusNotFound, "No opening price recorded for stock")
			return
		}
		if errors.Is(err, confidence.ErrDisabled) {
			respondError(w, http.StatusServiceUnavailable, "Opening price store is disabled")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": code,
		}).Error("Failed to get opening price")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve opening price")
		return
	}

	respondData(w, http.StatusOK, data)
}

// GetSummary returns the interpreted confidence summary for a stock
// GET /api/confidence/{code}/summary
func (h *ConfidenceHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	summary, err := h.service.Summarize(ctx, code)
	if err != nil {
		if errors.Is(err, confidence.ErrNotFound) {
			respondError(w, http.StatusNotFound, "No opening price recorded for stock")
			return
		}
		if errors.Is(err, confidence.ErrDisabled) {
			respondError(w, http.StatusServiceUnavailable, "Opening price store is disabled")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code": code,
		}).Error("Failed to summarize opening price")
		respondError(w, http.StatusInternalServerError, "Failed to summarize opening price")
		return
	}

	respondData(w, http.StatusOK, summary)
}

// GetAll returns every recorded opening price with per-level counts
// GET /api/confidence/all
func (h *ConfidenceHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	overview, err := h.service.All(ctx)
	if err != nil {
		if errors.Is(err, confidence.ErrDisabled) {
			respondError(w, http.StatusServiceUnavailable, "Opening price store is disabled")
			return
		}
		h.logger.WithError(err).Error("Failed to list opening prices")
		respondError(w, http.StatusInternalServerError, "Failed to list opening prices")
		return
	}

	respondData(w, http.StatusOK, overview)
}
