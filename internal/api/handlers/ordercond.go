package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/tradeassist/internal/broadcast"
	"github.com/wonny/tradeassist/internal/ordercond"
	"github.com/wonny/tradeassist/pkg/logger"
)

// OrderCondHandler handles order-condition API endpoints
// ⭐ SSOT: 주문 조건 API 핸들러는 이 구조체에서만
type OrderCondHandler struct {
	manager *ordercond.Manager
	hub     *broadcast.Hub
	logger  *logger.Logger
}

// NewOrderCondHandler creates a new order-condition handler
func NewOrderCondHandler(manager *ordercond.Manager, hub *broadcast.Hub, log *logger.Logger) *OrderCondHandler {
	return &OrderCondHandler{
		manager: manager,
		hub:     hub,
		logger:  log,
	}
}

func (h *OrderCondHandler) publish(code string, payload interface{}) {
	if h.hub != nil {
		h.hub.Publish(broadcast.Event{
			Type:      broadcast.EventConditionChanged,
			StockCode: code,
			Payload:   payload,
		})
	}
}

func (h *OrderCondHandler) respondManagerError(w http.ResponseWriter, code, action string, err error) {
	switch {
	case errors.Is(err, ordercond.ErrStockNotFound):
		respondError(w, http.StatusNotFound, "Stock not registered")
	case errors.Is(err, ordercond.ErrCondNotFound):
		respondError(w, http.StatusNotFound, "Condition not found")
	case errors.Is(err, ordercond.ErrInvalidDirection),
		errors.Is(err, ordercond.ErrInvalidNum),
		errors.Is(err, ordercond.ErrInvalidPrice):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"code":   code,
			"action": action,
		}).Error("Order condition operation failed")
		respondError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// AddStock registers an empty up/down condition set for a stock
// POST /api/orders/{code}
func (h *OrderCondHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	created, err := h.manager.AddStock(code)
	if err != nil {
		h.respondManagerError(w, code, "register stock", err)
		return
	}

	if created {
		h.publish(code, map[string]interface{}{"registered": true})
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"created":    created,
	})
}

// ConditionRequest is the add-condition request body; unknown fields ride
// along as extras and are persisted with the condition
type ConditionRequest struct {
	Num   int                    `json:"num"`
	Price int64                  `json:"price"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// AddCondition adds (or replaces) a numbered threshold for a direction
// POST /api/orders/{code}/{direction}
func (h *OrderCondHandler) AddCondition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]
	direction := vars["direction"]

	var req ConditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cond, err := h.manager.AddCondition(code, direction, req.Num, req.Price, req.Extra)
	if err != nil {
		h.respondManagerError(w, code, "add condition", err)
		return
	}

	h.publish(code, cond)
	respondData(w, http.StatusCreated, cond)
}

// UpdateConditionRequest carries the replacement price
type UpdateConditionRequest struct {
	Price int64 `json:"price"`
}

// UpdateCondition replaces the price of an existing condition key
// PUT /api/orders/{code}/{direction}/{key}
func (h *OrderCondHandler) UpdateCondition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]
	direction := vars["direction"]
	key := vars["key"]

	var req UpdateConditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Price <= 0 {
		respondError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	if err := h.manager.UpdateCondition(code, direction, key, req.Price); err != nil {
		h.respondManagerError(w, code, "update condition", err)
		return
	}

	h.publish(code, map[string]interface{}{
		"key":   key,
		"price": req.Price,
	})
	respondData(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"direction":  direction,
		"key":        key,
		"price":      req.Price,
	})
}

// GetStock returns the up/down condition sets of one stock
// GET /api/orders/{code}
func (h *OrderCondHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	set, err := h.manager.StockConditions(code)
	if err != nil {
		h.respondManagerError(w, code, "retrieve conditions", err)
		return
	}

	respondData(w, http.StatusOK, set)
}

// GetAll returns every registered stock's condition sets
// GET /api/orders/
func (h *OrderCondHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	all := h.manager.All()

	respondData(w, http.StatusOK, map[string]interface{}{
		"count":  len(all),
		"orders": all,
	})
}

// AvailableNums returns the unused condition numbers for a direction
// GET /api/orders/{code}/{direction}/available
func (h *OrderCondHandler) AvailableNums(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]
	direction := vars["direction"]

	nums, err := h.manager.AvailableNums(code, direction)
	if err != nil {
		h.respondManagerError(w, code, "list available numbers", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"direction":  direction,
		"available":  nums,
	})
}

// DeleteCondition removes one numbered condition
// DELETE /api/orders/{code}/{direction}/{num}
func (h *OrderCondHandler) DeleteCondition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]
	direction := vars["direction"]

	num, err := strconv.Atoi(vars["num"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "num must be an integer")
		return
	}

	if err := h.manager.DeleteConditionByNum(code, direction, num); err != nil {
		h.respondManagerError(w, code, "delete condition", err)
		return
	}

	h.publish(code, map[string]interface{}{
		"direction": direction,
		"num":       num,
		"deleted":   true,
	})
	respondData(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"direction":  direction,
		"num":        num,
		"deleted":    true,
	})
}

// DeleteStock removes a stock and all of its conditions
// DELETE /api/orders/{code}
func (h *OrderCondHandler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	if err := h.manager.DeleteStock(code); err != nil {
		h.respondManagerError(w, code, "delete stock", err)
		return
	}

	h.publish(code, map[string]interface{}{"deleted": true})
	respondData(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"deleted":    true,
	})
}
