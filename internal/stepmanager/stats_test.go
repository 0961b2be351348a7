package stepmanager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func sampleManagers() []*StepManager {
	return []*StepManager{
		{
			Code: "005930", Type: true, Market: "kospi",
			FinalPrice: 75000, TotalQty: 100, TradeQty: 50, TradeStep: 2, HoldQty: 50,
			TradePrices:   []int64{74000, 74500},
			LastTradeTime: timePtr(time.Date(2025, 6, 20, 10, 30, 0, 0, time.UTC)),
		},
		{
			Code: "000660", Type: false, Market: "kospi",
			FinalPrice: 120000, TotalQty: 50, TradeQty: 50, TradeStep: 1, HoldQty: 0,
			TradePrices:   []int64{118000},
			LastTradeTime: timePtr(time.Date(2025, 6, 21, 11, 0, 0, 0, time.UTC)),
		},
		{
			Code: "035720", Type: true, Market: "kosdaq",
			FinalPrice: 45000, TotalQty: 200, TradeQty: 0, TradeStep: 0, HoldQty: 200,
			TradePrices: []int64{},
		},
	}
}

func TestStepManager_Helpers(t *testing.T) {
	m := sampleManagers()[0]

	assert.Equal(t, int64(7_500_000), m.TotalValue())
	assert.Equal(t, int64(3_750_000), m.HoldValue())
	assert.Equal(t, int64(3_750_000), m.TradeValue())
	assert.False(t, m.IsFullyTraded())
	assert.True(t, m.IsStepConsistent())

	avg := m.AverageTradePrice()
	require.NotNil(t, avg)
	assert.InDelta(t, 74250, *avg, 0.01)

	empty := &StepManager{TradePrices: []int64{}}
	assert.Nil(t, empty.AverageTradePrice())

	fully := sampleManagers()[1]
	assert.True(t, fully.IsFullyTraded())

	drifted := &StepManager{TradeStep: 3, TradePrices: []int64{74000}}
	assert.False(t, drifted.IsStepConsistent())
}

func TestComputeSummary(t *testing.T) {
	summary := ComputeSummary(sampleManagers())

	assert.Equal(t, 3, summary.TotalCount)
	assert.Equal(t, 2, summary.MarketDistribution["kospi"])
	assert.Equal(t, 1, summary.MarketDistribution["kosdaq"])
	assert.Equal(t, 2, summary.TypeDistribution["true"])
	assert.Equal(t, 1, summary.TypeDistribution["false"])
	assert.Equal(t, int64(80000), summary.AverageFinalPrice)
	assert.Equal(t, int64(7_500_000+6_000_000+9_000_000), summary.TotalValue)
	assert.Equal(t, int64(3_750_000+0+9_000_000), summary.TotalHoldValue)
	assert.Equal(t, 2, summary.ActivePositions)
	assert.Equal(t, 1, summary.FullyTradedPositions)
	assert.InDelta(t, 33.33, summary.CompletionRate, 0.01)

	require.NotNil(t, summary.AvgTradePrices)
	assert.Equal(t, 2, summary.AvgTradePrices.Count)
	assert.InDelta(t, 74250, summary.AvgTradePrices.Min, 0.01)
	assert.InDelta(t, 118000, summary.AvgTradePrices.Max, 0.01)
}

func TestComputeSummary_Empty(t *testing.T) {
	summary := ComputeSummary(nil)
	assert.Equal(t, 0, summary.TotalCount)
	assert.Nil(t, summary.AvgTradePrices)
	assert.Empty(t, summary.MarketDistribution)
}

func TestComputeTradeHistory(t *testing.T) {
	managers := append(sampleManagers(), &StepManager{
		Code: "005380", Market: "kospi", TradeStep: 2,
		TradePrices: []int64{250_000, 1_200_000},
	})

	history := ComputeTradeHistory(managers)

	assert.Equal(t, 5, history.TotalTrades)
	assert.Equal(t, 3, history.ManagersWithTrades)
	assert.Equal(t, 1, history.StepDistribution[0])
	assert.Equal(t, 1, history.StepDistribution[1])
	assert.Equal(t, 2, history.StepDistribution[2])
	assert.Equal(t, 3, history.PriceRanges["under_100k"])
	assert.Equal(t, 1, history.PriceRanges["100k_500k"])
	assert.Equal(t, 0, history.PriceRanges["500k_1m"])
	assert.Equal(t, 1, history.PriceRanges["over_1m"])
}

func TestFindInconsistent(t *testing.T) {
	managers := sampleManagers()
	assert.Empty(t, FindInconsistent(managers))

	managers = append(managers, &StepManager{
		Code: "005380", TradeStep: 3, TradePrices: []int64{250_000},
	})

	issues := FindInconsistent(managers)
	require.Len(t, issues, 1)
	assert.Equal(t, "005380", issues[0].Code)
	assert.Equal(t, 3, issues[0].TradeStep)
	assert.Equal(t, 1, issues[0].PriceCount)
	assert.Equal(t, 2, issues[0].Difference)
}
