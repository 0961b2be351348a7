package confidence

import "math"

// Level buckets a confidence score
type Level string

// Score thresholds: >=90 very high, >=70 high, >=30 medium, >=10 low
const (
	LevelVeryHigh Level = "VERY_HIGH"
	LevelHigh     Level = "HIGH"
	LevelMedium   Level = "MEDIUM"
	LevelLow      Level = "LOW"
	LevelVeryLow  Level = "VERY_LOW"
)

// Label is the Korean display name of the level
func (l Level) Label() string {
	switch l {
	case LevelVeryHigh:
		return "매우 높음"
	case LevelHigh:
		return "높음"
	case LevelMedium:
		return "보통"
	case LevelLow:
		return "낮음"
	default:
		return "매우 낮음"
	}
}

// LevelFor maps a 0-100 score to its level
func LevelFor(score float64) Level {
	switch {
	case score >= 90:
		return LevelVeryHigh
	case score >= 70:
		return LevelHigh
	case score >= 30:
		return LevelMedium
	case score >= 10:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

// AnalysisDetails carries the secondary ratios of an Analysis, all in percent
type AnalysisDetails struct {
	OpenVsDecision float64 `json:"open_vs_decision"`
	DistanceToLow  float64 `json:"distance_to_low"`
	DistanceToHigh float64 `json:"distance_to_high"`
	RangeWidth     float64 `json:"range_width"`
}

// Analysis is the result of comparing an opening price against the predicted
// decision price and range.
type Analysis struct {
	Score           float64          `json:"confidence_score"`
	Level           Level            `json:"confidence_level"`
	PositionInRange float64          `json:"position_in_range"`
	PriceDiff       int64            `json:"price_diff"`
	PriceDiffRatio  float64          `json:"price_diff_ratio"`
	RangeDiffRatio  float64          `json:"range_diff_ratio"`
	Details         *AnalysisDetails `json:"analysis_details,omitempty"`
}

// Analyze scores how well the predicted range and decision price anticipated
// the actual opening price. A non-positive range yields the zero score.
func Analyze(openPrice, decisionPrice, lowPrice, highPrice int64) Analysis {
	priceRange := highPrice - lowPrice
	if priceRange <= 0 || decisionPrice <= 0 {
		return Analysis{
			Score:           0,
			Level:           LevelVeryLow,
			PositionInRange: 0.5,
		}
	}

	// 시가의 예측 범위 내 위치 (0.0 ~ 1.0)
	var position float64
	switch {
	case openPrice <= lowPrice:
		position = 0.0
	case openPrice >= highPrice:
		position = 1.0
	default:
		position = float64(openPrice-lowPrice) / float64(priceRange)
	}

	priceDiff := openPrice - decisionPrice
	if priceDiff < 0 {
		priceDiff = -priceDiff
	}
	priceDiffRatio := float64(priceDiff) / float64(decisionPrice) * 100
	rangeDiffRatio := float64(priceDiff) / (float64(priceRange) / 2) * 100

	score := computeScore(priceDiffRatio, rangeDiffRatio, position)

	return Analysis{
		Score:           round2(score),
		Level:           LevelFor(score),
		PositionInRange: round3(position),
		PriceDiff:       priceDiff,
		PriceDiffRatio:  round2(priceDiffRatio),
		RangeDiffRatio:  round2(rangeDiffRatio),
		Details: &AnalysisDetails{
			OpenVsDecision: round2(float64(openPrice-decisionPrice) / float64(decisionPrice) * 100),
			DistanceToLow:  round2(float64(openPrice-lowPrice) / float64(lowPrice) * 100),
			DistanceToHigh: round2(float64(highPrice-openPrice) / float64(openPrice) * 100),
			RangeWidth:     round2(float64(priceRange) / float64(decisionPrice) * 100),
		},
	}
}

// computeScore blends accuracy, position and range-width scores 50/30/20
func computeScore(priceDiffRatio, rangeDiffRatio, position float64) float64 {
	var accuracy float64
	switch {
	case priceDiffRatio <= 1:
		accuracy = 100
	case priceDiffRatio <= 3:
		accuracy = 90 - (priceDiffRatio-1)*10
	case priceDiffRatio <= 5:
		accuracy = 70 - (priceDiffRatio-3)*15
	case priceDiffRatio <= 10:
		accuracy = 40 - (priceDiffRatio-5)*6
	default:
		accuracy = math.Max(0, 10-(priceDiffRatio-10)*0.5)
	}

	// 중앙에 가까울수록 높은 점수
	centerDistance := math.Abs(position-0.5) * 2
	positionScore := (1 - centerDistance) * 100

	var rangeScore float64
	switch {
	case rangeDiffRatio <= 50:
		rangeScore = 100
	case rangeDiffRatio <= 100:
		rangeScore = 80
	case rangeDiffRatio <= 200:
		rangeScore = 60
	default:
		rangeScore = 40
	}

	final := accuracy*0.5 + positionScore*0.3 + rangeScore*0.2
	return math.Max(0, math.Min(100, final))
}

// Interpretation renders a Korean one-liner for the level and in-range position
func Interpretation(level Level, position float64) string {
	var positionDesc string
	switch {
	case position < 0.2:
		positionDesc = "예측 범위 하단"
	case position < 0.4:
		positionDesc = "예측 범위 중하단"
	case position < 0.6:
		positionDesc = "예측 범위 중앙"
	case position < 0.8:
		positionDesc = "예측 범위 중상단"
	default:
		positionDesc = "예측 범위 상단"
	}

	base := "시가가 " + positionDesc + "에 위치하여 "
	switch level {
	case LevelVeryHigh:
		return base + "예측이 매우 정확했습니다. 높은 신뢰도로 거래 전략을 수립할 수 있습니다."
	case LevelHigh:
		return base + "예측이 상당히 정확했습니다. 신뢰할 만한 거래 신호입니다."
	case LevelMedium:
		return base + "예측이 보통 수준입니다. 추가 지표를 참고하여 신중한 거래가 필요합니다."
	case LevelLow:
		return base + "예측 정확도가 낮습니다. 거래 시 주의가 필요합니다."
	default:
		return base + "예측이 부정확했습니다. 거래 전략을 재검토해야 합니다."
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
