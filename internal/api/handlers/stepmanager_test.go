package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradeassist/internal/stepmanager"
)

// 저장소에 닿기 전의 검증 경로만 확인한다
func newStepManagerRouter() *mux.Router {
	h := NewStepManagerHandler(nil, nil, testLogger())

	r := mux.NewRouter()
	s := r.PathPrefix("/api/step_manager").Subrouter()
	s.HandleFunc("", h.Create).Methods("POST")
	s.HandleFunc("/market/{market}", h.GetByMarket).Methods("GET")
	s.HandleFunc("/type/{type}", h.GetByType).Methods("GET")
	s.HandleFunc("/trade-step/{step}", h.GetByTradeStep).Methods("GET")
	s.HandleFunc("/update-trade/{code}", h.UpdateTradeInfo).Methods("PUT")
	s.HandleFunc("/add-price/{code}", h.AddTradePrice).Methods("POST")
	s.HandleFunc("/update-price/{code}/index/{index}", h.UpdateTradePriceAt).Methods("PUT")
	s.HandleFunc("/recent-trades", h.RecentTrades).Methods("GET")
	return r
}

func TestStepManagerHandler_CreateValidation(t *testing.T) {
	r := newStepManagerRouter()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing code", map[string]interface{}{"final_price": 70000, "total_qty": 100}},
		{"bad market", map[string]interface{}{
			"code": "005930", "market": "nasdaq", "final_price": 70000, "total_qty": 100,
		}},
		{"zero final price", map[string]interface{}{"code": "005930", "final_price": 0, "total_qty": 100}},
		{"zero total qty", map[string]interface{}{"code": "005930", "final_price": 70000, "total_qty": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/api/step_manager", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			body := decodeBody(t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}
}

// 스네이크 케이스 본문이 그대로 바인딩되고 검증을 통과해야 한다
func TestStepManagerHandler_CreateBindsSnakeCaseBody(t *testing.T) {
	raw := []byte(`{
		"code": "005930",
		"type": true,
		"market": "kosdaq",
		"final_price": 70000,
		"total_qty": 100,
		"trade_qty": 40,
		"trade_step": 1,
		"last_trade_prices": [69000]
	}`)

	var req stepmanager.CreateParams
	require.NoError(t, json.Unmarshal(raw, &req))

	assert.Equal(t, "005930", req.Code)
	assert.Equal(t, int64(70000), req.FinalPrice)
	assert.Equal(t, int64(100), req.TotalQty)
	assert.Equal(t, []int64{69000}, req.TradePrices)

	// 유효한 본문은 검증 단계에서 거부되지 않는다
	assert.Empty(t, validateCreateParams(&req))
}

func TestStepManagerHandler_CreateDefaultsMarket(t *testing.T) {
	req := stepmanager.CreateParams{Code: "005930", FinalPrice: 70000, TotalQty: 100}

	assert.Empty(t, validateCreateParams(&req))
	assert.Equal(t, "kospi", req.Market)
}

func TestStepManagerHandler_PathParamValidation(t *testing.T) {
	r := newStepManagerRouter()

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"bad market filter", http.MethodGet, "/api/step_manager/market/nasdaq"},
		{"bad type filter", http.MethodGet, "/api/step_manager/type/maybe"},
		{"negative trade step", http.MethodGet, "/api/step_manager/trade-step/-1"},
		{"bad recent-trades limit", http.MethodGet, "/api/step_manager/recent-trades?limit=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestStepManagerHandler_TradeUpdateValidation(t *testing.T) {
	r := newStepManagerRouter()

	// 체결가는 양수여야 한다
	rec := doJSON(t, r, http.MethodPut, "/api/step_manager/update-trade/005930", map[string]interface{}{
		"trade_qty": 10, "trade_step": 1, "trade_price": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/step_manager/add-price/005930", map[string]interface{}{
		"price": -100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/api/step_manager/update-price/005930/index/0", map[string]interface{}{
		"price": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
