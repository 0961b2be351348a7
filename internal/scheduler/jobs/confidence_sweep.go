package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/tradeassist/internal/baseline"
	"github.com/wonny/tradeassist/internal/confidence"
	"github.com/wonny/tradeassist/internal/tradingday"
	"github.com/wonny/tradeassist/pkg/logger"
)

// PriceFetcher supplies the current market price of a stock
type PriceFetcher interface {
	FetchCurrentPrice(ctx context.Context, stockCode string) (int64, error)
}

// ConfidenceSweep walks every stock with a baseline during market hours and
// records the first observed price as the day's opening price. Records are
// first-write-wins, so repeat runs are cheap.
type ConfidenceSweep struct {
	baselines  *baseline.Repository
	confidence *confidence.Service
	fetcher    PriceFetcher
	calendar   *tradingday.Calendar
	logger     *logger.Logger
}

// NewConfidenceSweep wires the hourly opening-price sweep
func NewConfidenceSweep(baselines *baseline.Repository, svc *confidence.Service, fetcher PriceFetcher, cal *tradingday.Calendar, log *logger.Logger) *ConfidenceSweep {
	return &ConfidenceSweep{
		baselines:  baselines,
		confidence: svc,
		fetcher:    fetcher,
		calendar:   cal,
		logger:     log,
	}
}

func (j *ConfidenceSweep) Name() string { return "confidence-sweep" }

// Schedule fires hourly at minute 5 so the 09:05 run catches the open
func (j *ConfidenceSweep) Schedule() string { return "0 5 * * * *" }

func (j *ConfidenceSweep) Run(ctx context.Context) error {
	if !j.calendar.IsMarketHours(ctx, time.Now()) {
		j.logger.Debug("장 시간이 아니므로 시가 스윕을 건너뜁니다")
		return nil
	}

	codes, err := j.baselines.StockCodes(ctx)
	if err != nil {
		return fmt.Errorf("list baseline stocks: %w", err)
	}

	var recorded, skipped, failed int
	for _, code := range codes {
		// already recorded today
		if _, err := j.confidence.Get(ctx, code); err == nil {
			skipped++
			continue
		} else if !errors.Is(err, confidence.ErrNotFound) {
			return err
		}

		first, err := j.baselines.GetByStep(ctx, code, 0)
		if err != nil || !first.HasPriceRange() {
			skipped++
			continue
		}

		price, err := j.fetcher.FetchCurrentPrice(ctx, code)
		if err != nil {
			j.logger.WithError(err).WithField("stock_code", code).Warn("현재가 조회 실패")
			failed++
			continue
		}

		_, isFirst, err := j.confidence.Record(ctx, code,
			price, first.DecisionPrice, *first.LowPrice, *first.HighPrice)
		if err != nil {
			j.logger.WithError(err).WithField("stock_code", code).Warn("시가 기록 실패")
			failed++
			continue
		}
		if isFirst {
			recorded++
		} else {
			skipped++
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"recorded": recorded,
		"skipped":  skipped,
		"failed":   failed,
	}).Info("시가 스윕 완료")

	if failed > 0 && recorded == 0 && skipped == 0 {
		return fmt.Errorf("confidence sweep failed for all %d stocks", failed)
	}
	return nil
}
