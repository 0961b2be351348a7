package baseline

import (
	"fmt"
	"math"
	"sort"
)

// Risk bands for the average predicted spread, in won.
const (
	spreadLowRisk    = 5000
	spreadMediumRisk = 15000
)

// StepDetail is one step's figures inside StockStats
type StepDetail struct {
	Step      int    `json:"step"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	LowPrice  *int64 `json:"low_price,omitempty"`
	HighPrice *int64 `json:"high_price,omitempty"`
}

// StockStats aggregates one stock's baselines
type StockStats struct {
	StockCode           string       `json:"stock_code"`
	TotalSteps          int          `json:"total_steps"`
	TotalQuantity       int64        `json:"total_quantity"`
	TotalValue          int64        `json:"total_value"`
	AveragePrice        float64      `json:"average_price"`
	MinPrice            int64        `json:"min_price"`
	MaxPrice            int64        `json:"max_price"`
	AverageLowPrice     *float64     `json:"average_low_price,omitempty"`
	AverageHighPrice    *float64     `json:"average_high_price,omitempty"`
	PriceRangeDataCount int          `json:"price_range_data_count"`
	Steps               []StepDetail `json:"steps"`
}

// ComputeStockStats builds per-stock statistics from already-fetched rows
func ComputeStockStats(stockCode string, baselines []*Baseline) *StockStats {
	if len(baselines) == 0 {
		return nil
	}

	stats := &StockStats{
		StockCode:  stockCode,
		TotalSteps: len(baselines),
		MinPrice:   baselines[0].DecisionPrice,
		MaxPrice:   baselines[0].DecisionPrice,
		Steps:      make([]StepDetail, 0, len(baselines)),
	}

	var priceSum int64
	var lowSum, highSum int64
	for _, b := range baselines {
		stats.TotalQuantity += b.Quantity
		stats.TotalValue += b.TotalValue()
		priceSum += b.DecisionPrice
		if b.DecisionPrice < stats.MinPrice {
			stats.MinPrice = b.DecisionPrice
		}
		if b.DecisionPrice > stats.MaxPrice {
			stats.MaxPrice = b.DecisionPrice
		}
		if b.HasPriceRange() {
			stats.PriceRangeDataCount++
			lowSum += *b.LowPrice
			highSum += *b.HighPrice
		}
		stats.Steps = append(stats.Steps, StepDetail{
			Step:      b.Step,
			Price:     b.DecisionPrice,
			Quantity:  b.Quantity,
			LowPrice:  b.LowPrice,
			HighPrice: b.HighPrice,
		})
	}

	stats.AveragePrice = round2(float64(priceSum) / float64(len(baselines)))
	if stats.PriceRangeDataCount > 0 {
		avgLow := round2(float64(lowSum) / float64(stats.PriceRangeDataCount))
		avgHigh := round2(float64(highSum) / float64(stats.PriceRangeDataCount))
		stats.AverageLowPrice = &avgLow
		stats.AverageHighPrice = &avgHigh
	}

	return stats
}

// Summary is the fleet-wide baseline overview
type Summary struct {
	TotalBaselines   int            `json:"total_baselines"`
	UniqueStocks     int            `json:"unique_stocks"`
	StockCodes       []string       `json:"stock_codes"`
	StockStepCounts  map[string]int `json:"stock_step_counts"`
	MaxStepsPerStock int            `json:"max_steps_per_stock"`
	MinStepsPerStock int            `json:"min_steps_per_stock"`
}

// ComputeSummary builds the fleet-wide overview from all rows
func ComputeSummary(baselines []*Baseline) *Summary {
	stepCounts := make(map[string]int)
	for _, b := range baselines {
		stepCounts[b.StockCode]++
	}

	codes := make([]string, 0, len(stepCounts))
	for code := range stepCounts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	summary := &Summary{
		TotalBaselines:  len(baselines),
		UniqueStocks:    len(codes),
		StockCodes:      codes,
		StockStepCounts: stepCounts,
	}

	for _, count := range stepCounts {
		if count > summary.MaxStepsPerStock {
			summary.MaxStepsPerStock = count
		}
		if summary.MinStepsPerStock == 0 || count < summary.MinStepsPerStock {
			summary.MinStepsPerStock = count
		}
	}

	return summary
}

// RangeAnalysis is the per-stock prediction-range risk view
type RangeAnalysis struct {
	StockCode           string   `json:"stock_code"`
	TotalBaselines      int      `json:"total_baselines"`
	PriceRangeDataCount int      `json:"price_range_data_count"`
	AverageSpread       *float64 `json:"price_range_spread,omitempty"`
	AccuracyRatio       *float64 `json:"price_accuracy_ratio,omitempty"`
	RiskAssessment      string   `json:"risk_assessment"`
	Recommendation      string   `json:"recommendation"`
	MinSpread           int64    `json:"min_spread,omitempty"`
	MaxSpread           int64    `json:"max_spread,omitempty"`
	SpreadStdDev        float64  `json:"spread_std,omitempty"`
}

// AnalyzePriceRange evaluates spread width and decision-vs-mid accuracy for
// one stock's baselines, mapping the average spread to a risk band.
func AnalyzePriceRange(stockCode string, baselines []*Baseline) *RangeAnalysis {
	analysis := &RangeAnalysis{
		StockCode:      stockCode,
		TotalBaselines: len(baselines),
	}

	var spreads []int64
	var accuracySum float64
	for _, b := range baselines {
		if !b.HasPriceRange() {
			continue
		}
		spreads = append(spreads, *b.HighPrice-*b.LowPrice)
		mid := float64(*b.HighPrice+*b.LowPrice) / 2
		if mid > 0 {
			accuracySum += float64(b.DecisionPrice) / mid
		}
	}

	analysis.PriceRangeDataCount = len(spreads)
	if len(spreads) == 0 {
		analysis.RiskAssessment = "NO_DATA"
		analysis.Recommendation = "가격 범위 데이터가 없어 분석할 수 없습니다."
		return analysis
	}

	var spreadSum int64
	analysis.MinSpread = spreads[0]
	analysis.MaxSpread = spreads[0]
	for _, s := range spreads {
		spreadSum += s
		if s < analysis.MinSpread {
			analysis.MinSpread = s
		}
		if s > analysis.MaxSpread {
			analysis.MaxSpread = s
		}
	}

	avgSpread := round2(float64(spreadSum) / float64(len(spreads)))
	accuracy := round4(accuracySum / float64(len(spreads)))
	analysis.AverageSpread = &avgSpread
	analysis.AccuracyRatio = &accuracy

	if len(spreads) > 1 {
		var variance float64
		for _, s := range spreads {
			d := float64(s) - avgSpread
			variance += d * d
		}
		analysis.SpreadStdDev = round2(math.Sqrt(variance / float64(len(spreads))))
	}

	switch {
	case avgSpread < spreadLowRisk:
		analysis.RiskAssessment = "LOW_RISK"
		analysis.Recommendation = "가격 변동성이 낮아 안정적인 투자가 가능합니다."
	case avgSpread < spreadMediumRisk:
		analysis.RiskAssessment = "MEDIUM_RISK"
		analysis.Recommendation = "적정한 가격 변동성으로 분할 매수를 권장합니다."
	default:
		analysis.RiskAssessment = "HIGH_RISK"
		analysis.Recommendation = "높은 가격 변동성으로 신중한 접근이 필요합니다."
	}

	return analysis
}

// VolatileStock pairs a stock code with its average predicted spread
type VolatileStock struct {
	StockCode     string  `json:"stock_code"`
	AverageSpread float64 `json:"avg_spread"`
}

// OverallRangeStats aggregates prediction ranges across every baseline
type OverallRangeStats struct {
	TotalBaselines      int             `json:"total_baselines"`
	PriceRangeDataCount int             `json:"price_range_data_count"`
	CoveragePercent     float64         `json:"coverage_percentage"`
	AvgSpread           float64         `json:"avg_spread"`
	MinSpread           int64           `json:"min_spread"`
	MaxSpread           int64           `json:"max_spread"`
	AvgDecisionPrice    float64         `json:"avg_decision_price"`
	MinDecisionPrice    int64           `json:"min_decision_price"`
	MaxDecisionPrice    int64           `json:"max_decision_price"`
	AvgLowPrice         float64         `json:"avg_low_price"`
	AvgHighPrice        float64         `json:"avg_high_price"`
	StocksWithRange     int             `json:"stock_count_with_price_range"`
	TopVolatileStocks   []VolatileStock `json:"top_volatile_stocks"`
}

// ComputeOverallRangeStats builds the global prediction-range statistics and
// the top-10 most volatile stocks by average spread.
func ComputeOverallRangeStats(baselines []*Baseline) *OverallRangeStats {
	stats := &OverallRangeStats{TotalBaselines: len(baselines)}
	if len(baselines) == 0 {
		return stats
	}

	type stockAgg struct {
		spreadSum int64
		count     int
	}
	perStock := make(map[string]*stockAgg)

	var spreadSum, decisionSum, lowSum, highSum int64
	first := true
	for _, b := range baselines {
		if !b.HasPriceRange() {
			continue
		}
		spread := *b.HighPrice - *b.LowPrice
		stats.PriceRangeDataCount++
		spreadSum += spread
		decisionSum += b.DecisionPrice
		lowSum += *b.LowPrice
		highSum += *b.HighPrice

		if first {
			stats.MinSpread, stats.MaxSpread = spread, spread
			stats.MinDecisionPrice, stats.MaxDecisionPrice = b.DecisionPrice, b.DecisionPrice
			first = false
		} else {
			if spread < stats.MinSpread {
				stats.MinSpread = spread
			}
			if spread > stats.MaxSpread {
				stats.MaxSpread = spread
			}
			if b.DecisionPrice < stats.MinDecisionPrice {
				stats.MinDecisionPrice = b.DecisionPrice
			}
			if b.DecisionPrice > stats.MaxDecisionPrice {
				stats.MaxDecisionPrice = b.DecisionPrice
			}
		}

		agg, ok := perStock[b.StockCode]
		if !ok {
			agg = &stockAgg{}
			perStock[b.StockCode] = agg
		}
		agg.spreadSum += spread
		agg.count++
	}

	if stats.PriceRangeDataCount == 0 {
		return stats
	}

	n := float64(stats.PriceRangeDataCount)
	stats.CoveragePercent = round2(n / float64(len(baselines)) * 100)
	stats.AvgSpread = round2(float64(spreadSum) / n)
	stats.AvgDecisionPrice = round2(float64(decisionSum) / n)
	stats.AvgLowPrice = round2(float64(lowSum) / n)
	stats.AvgHighPrice = round2(float64(highSum) / n)
	stats.StocksWithRange = len(perStock)

	for code, agg := range perStock {
		stats.TopVolatileStocks = append(stats.TopVolatileStocks, VolatileStock{
			StockCode:     code,
			AverageSpread: round2(float64(agg.spreadSum) / float64(agg.count)),
		})
	}
	sort.Slice(stats.TopVolatileStocks, func(i, j int) bool {
		if stats.TopVolatileStocks[i].AverageSpread != stats.TopVolatileStocks[j].AverageSpread {
			return stats.TopVolatileStocks[i].AverageSpread > stats.TopVolatileStocks[j].AverageSpread
		}
		return stats.TopVolatileStocks[i].StockCode < stats.TopVolatileStocks[j].StockCode
	})
	if len(stats.TopVolatileStocks) > 10 {
		stats.TopVolatileStocks = stats.TopVolatileStocks[:10]
	}

	return stats
}

// ValidateRange checks a create request against its own predicted range: the
// decision price must lie inside [low, high] and deviate from the mid price
// by at most maxDeviation (fraction, e.g. 0.1 for 10%).
func ValidateRange(decisionPrice int64, lowPrice, highPrice *int64, maxDeviation float64) error {
	if lowPrice == nil || highPrice == nil {
		return nil // nothing to validate against
	}

	if decisionPrice < *lowPrice || decisionPrice > *highPrice {
		return fmt.Errorf("decision price %d outside predicted range [%d, %d]",
			decisionPrice, *lowPrice, *highPrice)
	}

	mid := float64(*highPrice+*lowPrice) / 2
	if mid <= 0 {
		return fmt.Errorf("invalid predicted range [%d, %d]", *lowPrice, *highPrice)
	}

	deviation := math.Abs(float64(decisionPrice)-mid) / mid
	if deviation > maxDeviation {
		return fmt.Errorf("decision price deviates %.2f%% from range mid, allowed %.2f%%",
			deviation*100, maxDeviation*100)
	}

	return nil
}

// RangeFilter carries the optional bounds of a price-range search. Nil means
// unconstrained.
type RangeFilter struct {
	MinLowPrice      *int64 `json:"min_low_price,omitempty"`
	MaxLowPrice      *int64 `json:"max_low_price,omitempty"`
	MinHighPrice     *int64 `json:"min_high_price,omitempty"`
	MaxHighPrice     *int64 `json:"max_high_price,omitempty"`
	MinDecisionPrice *int64 `json:"min_decision_price,omitempty"`
	MaxDecisionPrice *int64 `json:"max_decision_price,omitempty"`
}

// FilterByRange applies a RangeFilter to fetched rows. Low/high bounds only
// match baselines that carry a range.
func FilterByRange(baselines []*Baseline, f RangeFilter) []*Baseline {
	result := make([]*Baseline, 0, len(baselines))
	for _, b := range baselines {
		if f.MinLowPrice != nil && (b.LowPrice == nil || *b.LowPrice < *f.MinLowPrice) {
			continue
		}
		if f.MaxLowPrice != nil && (b.LowPrice == nil || *b.LowPrice > *f.MaxLowPrice) {
			continue
		}
		if f.MinHighPrice != nil && (b.HighPrice == nil || *b.HighPrice < *f.MinHighPrice) {
			continue
		}
		if f.MaxHighPrice != nil && (b.HighPrice == nil || *b.HighPrice > *f.MaxHighPrice) {
			continue
		}
		if f.MinDecisionPrice != nil && b.DecisionPrice < *f.MinDecisionPrice {
			continue
		}
		if f.MaxDecisionPrice != nil && b.DecisionPrice > *f.MaxDecisionPrice {
			continue
		}
		result = append(result, b)
	}
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
