package stepmanager

import "math"

// AvgPriceSummary summarizes the per-stock average trade prices
type AvgPriceSummary struct {
	Count   int     `json:"count"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// Summary is the fleet-wide step manager overview
type Summary struct {
	TotalCount           int              `json:"total_count"`
	MarketDistribution   map[string]int   `json:"market_distribution"`
	TypeDistribution     map[string]int   `json:"type_distribution"`
	AverageFinalPrice    int64            `json:"average_final_price"`
	TotalValue           int64            `json:"total_value"`
	TotalHoldValue       int64            `json:"total_hold_value"`
	ActivePositions      int              `json:"active_positions"`
	FullyTradedPositions int              `json:"fully_traded_positions"`
	CompletionRate       float64          `json:"completion_rate"`
	AvgTradePrices       *AvgPriceSummary `json:"average_trade_prices_summary,omitempty"`
}

// ComputeSummary builds the fleet-wide overview from all step managers
func ComputeSummary(managers []*StepManager) *Summary {
	summary := &Summary{
		MarketDistribution: make(map[string]int),
		TypeDistribution:   map[string]int{"true": 0, "false": 0},
	}
	if len(managers) == 0 {
		return summary
	}

	summary.TotalCount = len(managers)

	var priceSum int64
	var avgPrices []float64
	for _, m := range managers {
		summary.MarketDistribution[m.Market]++
		if m.Type {
			summary.TypeDistribution["true"]++
		} else {
			summary.TypeDistribution["false"]++
		}

		summary.TotalValue += m.TotalValue()
		summary.TotalHoldValue += m.HoldValue()
		priceSum += m.FinalPrice

		if m.HoldQty > 0 {
			summary.ActivePositions++
		}
		if m.IsFullyTraded() {
			summary.FullyTradedPositions++
		}
		if avg := m.AverageTradePrice(); avg != nil {
			avgPrices = append(avgPrices, *avg)
		}
	}

	summary.AverageFinalPrice = priceSum / int64(len(managers))
	summary.CompletionRate = round2(float64(summary.FullyTradedPositions) / float64(len(managers)) * 100)

	if len(avgPrices) > 0 {
		ap := &AvgPriceSummary{Count: len(avgPrices), Min: avgPrices[0], Max: avgPrices[0]}
		var sum float64
		for _, p := range avgPrices {
			sum += p
			if p < ap.Min {
				ap.Min = p
			}
			if p > ap.Max {
				ap.Max = p
			}
		}
		ap.Average = round2(sum / float64(len(avgPrices)))
		summary.AvgTradePrices = ap
	}

	return summary
}

// TradeHistory summarizes recorded trade prices across the fleet
type TradeHistory struct {
	TotalTrades        int            `json:"total_trades"`
	StepDistribution   map[int]int    `json:"step_distribution"`
	PriceRanges        map[string]int `json:"price_ranges"`
	ManagersWithTrades int            `json:"managers_with_trades"`
}

// ComputeTradeHistory buckets every recorded trade price by band and counts
// managers per current step.
func ComputeTradeHistory(managers []*StepManager) *TradeHistory {
	history := &TradeHistory{
		StepDistribution: make(map[int]int),
		PriceRanges: map[string]int{
			"under_100k": 0,
			"100k_500k":  0,
			"500k_1m":    0,
			"over_1m":    0,
		},
	}

	for _, m := range managers {
		history.TotalTrades += len(m.TradePrices)
		history.StepDistribution[m.TradeStep]++
		if len(m.TradePrices) > 0 {
			history.ManagersWithTrades++
		}

		for _, price := range m.TradePrices {
			switch {
			case price < 100_000:
				history.PriceRanges["under_100k"]++
			case price < 500_000:
				history.PriceRanges["100k_500k"]++
			case price < 1_000_000:
				history.PriceRanges["500k_1m"]++
			default:
				history.PriceRanges["over_1m"]++
			}
		}
	}

	return history
}

// ConsistencyIssue flags a manager whose step disagrees with its price list
type ConsistencyIssue struct {
	Code       string `json:"code"`
	TradeStep  int    `json:"trade_step"`
	PriceCount int    `json:"price_count"`
	Difference int    `json:"difference"`
}

// FindInconsistent returns the managers whose trade_step has drifted away
// from len(trade_prices).
func FindInconsistent(managers []*StepManager) []ConsistencyIssue {
	var issues []ConsistencyIssue
	for _, m := range managers {
		if m.IsStepConsistent() {
			continue
		}
		issues = append(issues, ConsistencyIssue{
			Code:       m.Code,
			TradeStep:  m.TradeStep,
			PriceCount: len(m.TradePrices),
			Difference: m.TradeStep - len(m.TradePrices),
		})
	}
	return issues
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
