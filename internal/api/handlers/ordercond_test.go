package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradeassist/internal/ordercond"
	"github.com/wonny/tradeassist/pkg/config"
	"github.com/wonny/tradeassist/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "console"})
}

func newOrderCondRouter(t *testing.T) *mux.Router {
	t.Helper()

	manager := ordercond.NewManager(filepath.Join(t.TempDir(), "orders.json"), testLogger())
	require.NoError(t, manager.Load())

	h := NewOrderCondHandler(manager, nil, testLogger())

	r := mux.NewRouter()
	o := r.PathPrefix("/api/orders").Subrouter()
	o.HandleFunc("", h.GetAll).Methods("GET")
	o.HandleFunc("/{code}", h.AddStock).Methods("POST")
	o.HandleFunc("/{code}", h.GetStock).Methods("GET")
	o.HandleFunc("/{code}", h.DeleteStock).Methods("DELETE")
	o.HandleFunc("/{code}/{direction}", h.AddCondition).Methods("POST")
	o.HandleFunc("/{code}/{direction}/available", h.AvailableNums).Methods("GET")
	o.HandleFunc("/{code}/{direction}/{key}", h.UpdateCondition).Methods("PUT")
	o.HandleFunc("/{code}/{direction}/{num}", h.DeleteCondition).Methods("DELETE")
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestOrderCondHandler_AddStockAndCondition(t *testing.T) {
	r := newOrderCondRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/orders/005930", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["created"])

	// 조건 추가
	rec = doJSON(t, r, http.MethodPost, "/api/orders/005930/up", map[string]interface{}{
		"num":   3,
		"price": 75000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body = decodeBody(t, rec)
	cond := body["data"].(map[string]interface{})
	assert.Equal(t, float64(75000), cond["up3"])
	assert.NotEmpty(t, cond["timestamp"])

	rec = doJSON(t, r, http.MethodGet, "/api/orders/005930", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderCondHandler_AddConditionAutoRegistersStock(t *testing.T) {
	r := newOrderCondRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/orders/000660/down", map[string]interface{}{
		"num":   1,
		"price": 120000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/orders/000660", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderCondHandler_Validation(t *testing.T) {
	r := newOrderCondRouter(t)

	// 잘못된 방향
	rec := doJSON(t, r, http.MethodPost, "/api/orders/005930/sideways", map[string]interface{}{
		"num":   1,
		"price": 75000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 범위 밖 번호
	rec = doJSON(t, r, http.MethodPost, "/api/orders/005930/up", map[string]interface{}{
		"num":   8,
		"price": 75000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 0원 가격
	rec = doJSON(t, r, http.MethodPost, "/api/orders/005930/up", map[string]interface{}{
		"num":   1,
		"price": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderCondHandler_UpdateAndDelete(t *testing.T) {
	r := newOrderCondRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/orders/005930/up", map[string]interface{}{
		"num":   2,
		"price": 70000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/api/orders/005930/up/up2", map[string]interface{}{
		"price": 71000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/api/orders/005930/up/up5", map[string]interface{}{
		"price": 71000,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/api/orders/005930/up/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/api/orders/005930/up/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderCondHandler_AvailableNums(t *testing.T) {
	r := newOrderCondRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/orders/005930/up", map[string]interface{}{
		"num":   1,
		"price": 70000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, r, http.MethodPost, "/api/orders/005930/up", map[string]interface{}{
		"num":   4,
		"price": 72000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/orders/005930/up/available", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	available := data["available"].([]interface{})
	assert.Len(t, available, 5)
	assert.NotContains(t, available, float64(1))
	assert.NotContains(t, available, float64(4))
}

func TestOrderCondHandler_DeleteStock(t *testing.T) {
	r := newOrderCondRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/orders/005930", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/api/orders/005930", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/orders/005930", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderCondHandler_GetAllEmpty(t *testing.T) {
	r := newOrderCondRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["count"])
}
