package confidence

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wonny/tradeassist/pkg/logger"
	"github.com/wonny/tradeassist/pkg/redis"
)

// ErrNotFound is returned when a stock has no opening price recorded today
var ErrNotFound = errors.New("no opening price recorded")

// ErrDisabled is returned when redis is turned off in config
var ErrDisabled = errors.New("opening price store disabled")

// OpenPriceData is one day's recorded opening price with its analysis,
// stored in redis under open_price:{code} for 12 hours.
type OpenPriceData struct {
	StockCode       string    `json:"stock_code"`
	OpenPrice       int64     `json:"open_price"`
	DecisionPrice   int64     `json:"baseline_decision_price"`
	LowPrice        int64     `json:"baseline_low_price"`
	HighPrice       int64     `json:"baseline_high_price"`
	RecordedAt      time.Time `json:"recorded_time"`
	Score           float64   `json:"confidence_score"`
	Level           Level     `json:"confidence_level"`
	PositionInRange float64   `json:"position_in_range"`
}

// Service records opening prices and serves confidence analyses
// ⭐ SSOT: 시가 기록은 이 서비스를 통해서만
type Service struct {
	cache  *redis.Cache
	logger *logger.Logger
}

// NewService creates a confidence service backed by the given cache
func NewService(cache *redis.Cache, log *logger.Logger) *Service {
	return &Service{cache: cache, logger: log}
}

// Record stores the first price seen today as the stock's opening price and
// analyzes it against the baseline prediction. First write wins: a second
// call returns the existing record with first=false.
func (s *Service) Record(ctx context.Context, stockCode string, currentPrice, decisionPrice, lowPrice, highPrice int64) (*OpenPriceData, bool, error) {
	if !s.cache.Enabled() {
		return nil, false, ErrDisabled
	}

	analysis := Analyze(currentPrice, decisionPrice, lowPrice, highPrice)

	data := &OpenPriceData{
		StockCode:       stockCode,
		OpenPrice:       currentPrice,
		DecisionPrice:   decisionPrice,
		LowPrice:        lowPrice,
		HighPrice:       highPrice,
		RecordedAt:      time.Now(),
		Score:           analysis.Score,
		Level:           analysis.Level,
		PositionInRange: analysis.PositionInRange,
	}

	written, err := s.cache.SetNX(ctx, redis.OpenPriceKey(stockCode), data, redis.TTLOpenPrice)
	if err != nil {
		return nil, false, fmt.Errorf("record open price %s: %w", stockCode, err)
	}
	if !written {
		existing, err := s.Get(ctx, stockCode)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	s.logger.WithFields(map[string]interface{}{
		"stock_code":       stockCode,
		"open_price":       currentPrice,
		"decision_price":   decisionPrice,
		"confidence_level": data.Level.Label(),
	}).Info("시가 기록 완료")

	return data, true, nil
}

// Get returns the recorded opening price for a stock, ErrNotFound when
// nothing is recorded today.
func (s *Service) Get(ctx context.Context, stockCode string) (*OpenPriceData, error) {
	if !s.cache.Enabled() {
		return nil, ErrDisabled
	}

	var data OpenPriceData
	found, err := s.cache.Get(ctx, redis.OpenPriceKey(stockCode), &data)
	if err != nil {
		return nil, fmt.Errorf("get open price %s: %w", stockCode, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, stockCode)
	}
	return &data, nil
}

// Delete removes a stock's opening price record
func (s *Service) Delete(ctx context.Context, stockCode string) error {
	return s.cache.Delete(ctx, redis.OpenPriceKey(stockCode))
}

// PriceRange is the predicted band inside a Summary
type PriceRange struct {
	Low   int64 `json:"low"`
	High  int64 `json:"high"`
	Width int64 `json:"width"`
}

// ConfidenceInfo is the score block inside a Summary
type ConfidenceInfo struct {
	Score           float64 `json:"score"`
	Level           Level   `json:"level"`
	LevelLabel      string  `json:"level_label"`
	PositionInRange float64 `json:"position_in_range"`
}

// SummaryAnalysis is the derived figures block inside a Summary
type SummaryAnalysis struct {
	PredictionAccuracy float64 `json:"prediction_accuracy"`
	PriceDifference    int64   `json:"price_difference"`
	ElapsedHours       float64 `json:"elapsed_hours"`
}

// Summary is the full confidence view for one stock
type Summary struct {
	StockCode      string          `json:"stock_code"`
	OpenPrice      int64           `json:"open_price"`
	PredictedPrice int64           `json:"predicted_price"`
	PriceRange     PriceRange      `json:"price_range"`
	Confidence     ConfidenceInfo  `json:"confidence"`
	Analysis       SummaryAnalysis `json:"analysis"`
	Interpretation string          `json:"interpretation"`
}

// Summarize builds the confidence summary for a stock's recorded opening price
func (s *Service) Summarize(ctx context.Context, stockCode string) (*Summary, error) {
	data, err := s.Get(ctx, stockCode)
	if err != nil {
		return nil, err
	}
	return buildSummary(data, time.Now()), nil
}

func buildSummary(data *OpenPriceData, now time.Time) *Summary {
	var accuracy float64
	if data.DecisionPrice > 0 {
		diff := data.OpenPrice - data.DecisionPrice
		if diff < 0 {
			diff = -diff
		}
		accuracy = round2((1 - float64(diff)/float64(data.DecisionPrice)) * 100)
	}

	return &Summary{
		StockCode:      data.StockCode,
		OpenPrice:      data.OpenPrice,
		PredictedPrice: data.DecisionPrice,
		PriceRange: PriceRange{
			Low:   data.LowPrice,
			High:  data.HighPrice,
			Width: data.HighPrice - data.LowPrice,
		},
		Confidence: ConfidenceInfo{
			Score:           data.Score,
			Level:           data.Level,
			LevelLabel:      data.Level.Label(),
			PositionInRange: data.PositionInRange,
		},
		Analysis: SummaryAnalysis{
			PredictionAccuracy: accuracy,
			PriceDifference:    data.OpenPrice - data.DecisionPrice,
			ElapsedHours:       round1(now.Sub(data.RecordedAt).Hours()),
		},
		Interpretation: Interpretation(data.Level, data.PositionInRange),
	}
}

// Overview aggregates every recorded stock's confidence summary
type Overview struct {
	TotalCount        int                 `json:"total_count"`
	Stocks            map[string]*Summary `json:"stocks"`
	Statistics        map[Level]int       `json:"statistics"`
	AverageConfidence float64             `json:"average_confidence"`
}

// All returns the confidence overview across every stock recorded today
func (s *Service) All(ctx context.Context) (*Overview, error) {
	if !s.cache.Enabled() {
		return nil, ErrDisabled
	}

	keys, err := s.cache.Keys(ctx, "open_price:*")
	if err != nil {
		return nil, fmt.Errorf("list open price keys: %w", err)
	}

	overview := &Overview{
		Stocks: make(map[string]*Summary),
		Statistics: map[Level]int{
			LevelVeryHigh: 0,
			LevelHigh:     0,
			LevelMedium:   0,
			LevelLow:      0,
			LevelVeryLow:  0,
		},
	}

	var scoreSum float64
	for _, key := range keys {
		// key is open_price:{code}
		code := key[len("open_price:"):]
		summary, err := s.Summarize(ctx, code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // expired between KEYS and GET
			}
			return nil, err
		}
		overview.Stocks[code] = summary
		overview.Statistics[summary.Confidence.Level]++
		scoreSum += summary.Confidence.Score
	}

	overview.TotalCount = len(overview.Stocks)
	if overview.TotalCount > 0 {
		overview.AverageConfidence = round2(scoreSum / float64(overview.TotalCount))
	}

	return overview, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
