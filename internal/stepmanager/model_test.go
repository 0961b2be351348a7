package stepmanager

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepManager_DerivedMetrics(t *testing.T) {
	m := &StepManager{
		Code:        "005930",
		FinalPrice:  70000,
		TotalQty:    100,
		TradeQty:    40,
		HoldQty:     60,
		TradeStep:   2,
		TradePrices: []int64{69000, 68500},
	}

	require.NotNil(t, m.LastTradePrice())
	assert.Equal(t, int64(68500), *m.LastTradePrice())

	require.NotNil(t, m.LastTradeValue())
	assert.Equal(t, int64(68500*40), *m.LastTradeValue())

	// 최종가 기준 평가액 - 마지막 체결가 기준 평가액
	require.NotNil(t, m.ProfitLoss())
	assert.Equal(t, int64((70000-68500)*40), *m.ProfitLoss())

	assert.Equal(t, int64(60), m.RemainingQty())

	require.NotNil(t, m.PriceAtStep(0))
	assert.Equal(t, int64(69000), *m.PriceAtStep(0))
	assert.Nil(t, m.PriceAtStep(2))
	assert.Nil(t, m.PriceAtStep(-1))
}

func TestStepManager_DerivedMetricsNoTrades(t *testing.T) {
	m := &StepManager{Code: "005930", FinalPrice: 70000, TotalQty: 100}

	assert.Nil(t, m.LastTradePrice())
	assert.Nil(t, m.LastTradeValue())
	assert.Nil(t, m.ProfitLoss())
	assert.Equal(t, int64(100), m.RemainingQty())
}

func TestStepManager_MarshalIncludesComputedFields(t *testing.T) {
	m := &StepManager{
		Code:        "005930",
		Market:      "kospi",
		FinalPrice:  70000,
		TotalQty:    100,
		TradeQty:    100,
		HoldQty:     0,
		TradeStep:   1,
		TradePrices: []int64{69000},
	}

	raw, err := json.Marshal(m)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, float64(70000*100), got["total_value"])
	assert.Equal(t, float64(0), got["hold_value"])
	assert.Equal(t, float64(70000*100), got["trade_value"])
	assert.Equal(t, float64(69000), got["last_trade_price"])
	assert.Equal(t, float64(69000*100), got["last_trade_value"])
	assert.Equal(t, float64((70000-69000)*100), got["profit_loss"])
	assert.Equal(t, float64(0), got["remaining_qty"])
	assert.Equal(t, true, got["is_fully_traded"])

	// 체결 이력이 없으면 파생 필드는 null
	empty, err := json.Marshal(&StepManager{Code: "000660", FinalPrice: 100000, TotalQty: 10})
	require.NoError(t, err)

	var gotEmpty map[string]interface{}
	require.NoError(t, json.Unmarshal(empty, &gotEmpty))
	assert.Nil(t, gotEmpty["last_trade_price"])
	assert.Nil(t, gotEmpty["profit_loss"])
	assert.Equal(t, float64(10), gotEmpty["remaining_qty"])
}

func TestCreateParams_BindsSnakeCaseBody(t *testing.T) {
	body := []byte(`{
		"code": "005930",
		"type": true,
		"market": "kosdaq",
		"final_price": 70000,
		"total_qty": 100,
		"trade_qty": 40,
		"trade_step": 2,
		"last_trade_prices": [69000, 68500]
	}`)

	var p CreateParams
	require.NoError(t, json.Unmarshal(body, &p))

	assert.Equal(t, "005930", p.Code)
	assert.True(t, p.Type)
	assert.Equal(t, "kosdaq", p.Market)
	assert.Equal(t, int64(70000), p.FinalPrice)
	assert.Equal(t, int64(100), p.TotalQty)
	assert.Equal(t, int64(40), p.TradeQty)
	assert.Equal(t, 2, p.TradeStep)
	assert.Equal(t, []int64{69000, 68500}, p.TradePrices)
}
