package confidence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradeassist/pkg/config"
	"github.com/wonny/tradeassist/pkg/logger"
	"github.com/wonny/tradeassist/pkg/redis"
)

// disabledService builds a service on a redis client that is turned off in
// config, so no server is needed.
func disabledService(t *testing.T) *Service {
	t.Helper()

	cfg := &config.Config{Env: "test", LogLevel: "error", LogFormat: "console"}
	client, err := redis.New(cfg)
	require.NoError(t, err)

	cache := redis.NewCache(client, "tradeassist-test")
	return NewService(cache, logger.New(cfg))
}

func TestService_DisabledStore(t *testing.T) {
	ctx := context.Background()
	svc := disabledService(t)

	_, _, err := svc.Record(ctx, "005930", 70500, 70000, 68000, 72000)
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = svc.Get(ctx, "005930")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = svc.Summarize(ctx, "005930")
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = svc.All(ctx)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestBuildSummary(t *testing.T) {
	data := &OpenPriceData{
		StockCode:       "005930",
		OpenPrice:       70500,
		DecisionPrice:   70000,
		LowPrice:        68000,
		HighPrice:       72000,
		Score:           85,
		Level:           LevelHigh,
		PositionInRange: 0.625,
	}
	data.RecordedAt = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	now := data.RecordedAt.Add(90 * time.Minute)
	summary := buildSummary(data, now)

	assert.Equal(t, "005930", summary.StockCode)
	assert.Equal(t, int64(70500), summary.OpenPrice)
	assert.Equal(t, int64(70000), summary.PredictedPrice)
	assert.Equal(t, int64(4000), summary.PriceRange.Width)
	assert.Equal(t, LevelHigh, summary.Confidence.Level)
	assert.InDelta(t, 99.29, summary.Analysis.PredictionAccuracy, 0.01)
	assert.Equal(t, int64(500), summary.Analysis.PriceDifference)
	assert.InDelta(t, 1.5, summary.Analysis.ElapsedHours, 0.001)
	assert.NotEmpty(t, summary.Interpretation)
}
