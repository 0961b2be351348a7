package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBaselines() []*Baseline {
	return []*Baseline{
		{StockCode: "005930", Step: 0, DecisionPrice: 70000, Quantity: 10, LowPrice: int64Ptr(68000), HighPrice: int64Ptr(72000)},
		{StockCode: "005930", Step: 1, DecisionPrice: 68000, Quantity: 15, LowPrice: int64Ptr(66000), HighPrice: int64Ptr(70000)},
		{StockCode: "005930", Step: 2, DecisionPrice: 66000, Quantity: 20},
	}
}

func TestComputeStockStats(t *testing.T) {
	stats := ComputeStockStats("005930", sampleBaselines())
	require.NotNil(t, stats)

	assert.Equal(t, "005930", stats.StockCode)
	assert.Equal(t, 3, stats.TotalSteps)
	assert.Equal(t, int64(45), stats.TotalQuantity)
	assert.Equal(t, int64(70000*10+68000*15+66000*20), stats.TotalValue)
	assert.Equal(t, int64(66000), stats.MinPrice)
	assert.Equal(t, int64(70000), stats.MaxPrice)
	assert.InDelta(t, 68000, stats.AveragePrice, 0.01)
	assert.Equal(t, 2, stats.PriceRangeDataCount)
	require.NotNil(t, stats.AverageLowPrice)
	assert.InDelta(t, 67000, *stats.AverageLowPrice, 0.01)
	require.NotNil(t, stats.AverageHighPrice)
	assert.InDelta(t, 71000, *stats.AverageHighPrice, 0.01)
	assert.Len(t, stats.Steps, 3)

	assert.Nil(t, ComputeStockStats("005930", nil))
}

func TestComputeSummary(t *testing.T) {
	baselines := append(sampleBaselines(),
		&Baseline{StockCode: "000660", Step: 0, DecisionPrice: 120000, Quantity: 5},
	)

	summary := ComputeSummary(baselines)
	assert.Equal(t, 4, summary.TotalBaselines)
	assert.Equal(t, 2, summary.UniqueStocks)
	assert.Equal(t, []string{"000660", "005930"}, summary.StockCodes)
	assert.Equal(t, 3, summary.StockStepCounts["005930"])
	assert.Equal(t, 1, summary.StockStepCounts["000660"])
	assert.Equal(t, 3, summary.MaxStepsPerStock)
	assert.Equal(t, 1, summary.MinStepsPerStock)
}

func TestAnalyzePriceRange_RiskBands(t *testing.T) {
	tests := []struct {
		name   string
		spread int64
		want   string
	}{
		{"low risk under 5000", 4000, "LOW_RISK"},
		{"medium risk under 15000", 10000, "MEDIUM_RISK"},
		{"high risk at 15000 and above", 20000, "HIGH_RISK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baselines := []*Baseline{
				{StockCode: "005930", DecisionPrice: 70000, LowPrice: int64Ptr(70000 - tt.spread/2), HighPrice: int64Ptr(70000 + tt.spread/2)},
			}
			analysis := AnalyzePriceRange("005930", baselines)
			assert.Equal(t, tt.want, analysis.RiskAssessment)
			require.NotNil(t, analysis.AverageSpread)
			assert.InDelta(t, float64(tt.spread), *analysis.AverageSpread, 0.01)
			require.NotNil(t, analysis.AccuracyRatio)
			assert.InDelta(t, 1.0, *analysis.AccuracyRatio, 0.0001)
		})
	}
}

func TestAnalyzePriceRange_NoData(t *testing.T) {
	analysis := AnalyzePriceRange("005930", []*Baseline{
		{StockCode: "005930", DecisionPrice: 70000},
	})
	assert.Equal(t, "NO_DATA", analysis.RiskAssessment)
	assert.Equal(t, 0, analysis.PriceRangeDataCount)
	assert.Nil(t, analysis.AverageSpread)
}

func TestComputeOverallRangeStats(t *testing.T) {
	baselines := append(sampleBaselines(),
		&Baseline{StockCode: "000660", Step: 0, DecisionPrice: 120000, Quantity: 5, LowPrice: int64Ptr(110000), HighPrice: int64Ptr(130000)},
	)

	stats := ComputeOverallRangeStats(baselines)
	assert.Equal(t, 4, stats.TotalBaselines)
	assert.Equal(t, 3, stats.PriceRangeDataCount)
	assert.InDelta(t, 75.0, stats.CoveragePercent, 0.01)
	assert.Equal(t, int64(4000), stats.MinSpread)
	assert.Equal(t, int64(20000), stats.MaxSpread)
	assert.Equal(t, 2, stats.StocksWithRange)
	require.NotEmpty(t, stats.TopVolatileStocks)
	assert.Equal(t, "000660", stats.TopVolatileStocks[0].StockCode)
	assert.InDelta(t, 20000, stats.TopVolatileStocks[0].AverageSpread, 0.01)
}

func TestValidateRange(t *testing.T) {
	// no range set: nothing to validate
	assert.NoError(t, ValidateRange(70000, nil, nil, 0.1))

	// inside range, near mid
	assert.NoError(t, ValidateRange(70000, int64Ptr(68000), int64Ptr(72000), 0.1))

	// outside range
	err := ValidateRange(75000, int64Ptr(68000), int64Ptr(72000), 0.1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside predicted range")

	// inside range but too far from mid
	err = ValidateRange(51000, int64Ptr(50000), int64Ptr(90000), 0.1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deviates")
}

func TestFilterByRange(t *testing.T) {
	baselines := sampleBaselines()

	// only rows whose low price is at least 67000
	got := FilterByRange(baselines, RangeFilter{MinLowPrice: int64Ptr(67000)})
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Step)

	// decision price band matches rows with or without a range
	got = FilterByRange(baselines, RangeFilter{
		MinDecisionPrice: int64Ptr(66000),
		MaxDecisionPrice: int64Ptr(68000),
	})
	assert.Len(t, got, 2)

	// empty filter passes everything through
	got = FilterByRange(baselines, RangeFilter{})
	assert.Len(t, got, 3)
}
