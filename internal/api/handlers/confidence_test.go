package handlers

import (
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradeassist/internal/confidence"
	"github.com/wonny/tradeassist/pkg/config"
	"github.com/wonny/tradeassist/pkg/redis"
)

// redis 비활성 설정으로 만든 핸들러. 서버 없이 비활성 경로를 검증한다.
func newDisabledConfidenceRouter(t *testing.T) *mux.Router {
	t.Helper()

	cfg := &config.Config{Env: "test", LogLevel: "error", LogFormat: "console"}
	client, err := redis.New(cfg)
	require.NoError(t, err)

	svc := confidence.NewService(redis.NewCache(client, "tradeassist-test"), testLogger())
	h := NewConfidenceHandler(svc, nil, nil, nil, testLogger())

	r := mux.NewRouter()
	c := r.PathPrefix("/api/confidence").Subrouter()
	c.HandleFunc("/record", h.Record).Methods("POST")
	c.HandleFunc("/all", h.GetAll).Methods("GET")
	c.HandleFunc("/{code}", h.Get).Methods("GET")
	c.HandleFunc("/{code}/summary", h.GetSummary).Methods("GET")
	return r
}

func TestConfidenceHandler_DisabledStoreReturns503(t *testing.T) {
	r := newDisabledConfidenceRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/confidence/record", map[string]interface{}{
		"stock_code":     "005930",
		"current_price":  70500,
		"decision_price": 70000,
		"low_price":      68000,
		"high_price":     72000,
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/confidence/005930", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/confidence/005930/summary", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/confidence/all", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestConfidenceHandler_RecordValidation(t *testing.T) {
	r := newDisabledConfidenceRouter(t)

	// 종목 코드 누락
	rec := doJSON(t, r, http.MethodPost, "/api/confidence/record", map[string]interface{}{
		"current_price": 70500,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 현재가가 없고 시세 조회도 붙어 있지 않음
	rec = doJSON(t, r, http.MethodPost, "/api/confidence/record", map[string]interface{}{
		"stock_code":     "005930",
		"decision_price": 70000,
		"low_price":      68000,
		"high_price":     72000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
