package handlers

import (
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

// 저장소에 닿기 전의 검증 경로만 확인한다
func newBaselineRouter() *mux.Router {
	h := NewBaselineHandler(nil, nil, testLogger())

	r := mux.NewRouter()
	b := r.PathPrefix("/api/baseline").Subrouter()
	b.HandleFunc("", h.Create).Methods("POST")
	b.HandleFunc("/add-step", h.AddStep).Methods("POST")
	b.HandleFunc("/update_by_step", h.UpdateByStep).Methods("PUT")
	b.HandleFunc("/bulk-create", h.BulkCreate).Methods("POST")
	b.HandleFunc("/create-with-validation", h.CreateWithValidation).Methods("POST")
	b.HandleFunc("/delete-all", h.DeleteAll).Methods("DELETE")
	return r
}

func TestBaselineHandler_CreateValidation(t *testing.T) {
	r := newBaselineRouter()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing code", map[string]interface{}{"decision_price": 70000, "quantity": 10}},
		{"zero price", map[string]interface{}{"stock_code": "005930", "decision_price": 0, "quantity": 10}},
		{"zero quantity", map[string]interface{}{"stock_code": "005930", "decision_price": 70000, "quantity": 0}},
		{"inverted range", map[string]interface{}{
			"stock_code": "005930", "decision_price": 70000, "quantity": 10,
			"low_price": 75000, "high_price": 65000,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/api/baseline", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			body := decodeBody(t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestBaselineHandler_CreateWithValidationRejectsOutOfRange(t *testing.T) {
	r := newBaselineRouter()

	// 결정가가 예측 범위 밖
	rec := doJSON(t, r, http.MethodPost, "/api/baseline/create-with-validation", map[string]interface{}{
		"stock_code":     "005930",
		"decision_price": 80000,
		"quantity":       10,
		"low_price":      65000,
		"high_price":     75000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 범위 안이지만 중간값에서 10% 넘게 벗어남
	rec = doJSON(t, r, http.MethodPost, "/api/baseline/create-with-validation", map[string]interface{}{
		"stock_code":     "005930",
		"decision_price": 99000,
		"quantity":       10,
		"low_price":      50000,
		"high_price":     100000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBaselineHandler_CreateWithValidationBadDeviation(t *testing.T) {
	r := newBaselineRouter()

	rec := doJSON(t, r, http.MethodPost, "/api/baseline/create-with-validation", map[string]interface{}{
		"stock_code":     "005930",
		"decision_price": 70000,
		"quantity":       10,
		"max_deviation":  1.5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBaselineHandler_BulkCreateEmpty(t *testing.T) {
	r := newBaselineRouter()

	rec := doJSON(t, r, http.MethodPost, "/api/baseline/bulk-create", []map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBaselineHandler_DeleteAllRequiresConfirm(t *testing.T) {
	r := newBaselineRouter()

	rec := doJSON(t, r, http.MethodDelete, "/api/baseline/delete-all", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "confirm=true")
}
