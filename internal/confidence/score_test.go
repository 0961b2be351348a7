package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{95, LevelVeryHigh},
		{90, LevelVeryHigh},
		{89.99, LevelHigh},
		{70, LevelHigh},
		{50, LevelMedium},
		{30, LevelMedium},
		{15, LevelLow},
		{10, LevelLow},
		{5, LevelVeryLow},
		{0, LevelVeryLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.score), "score %.2f", tt.score)
	}
}

func TestAnalyze_PerfectPrediction(t *testing.T) {
	// open exactly at decision price, dead center of the range
	a := Analyze(70000, 70000, 68000, 72000)

	// accuracy 100, position 100, range 100 -> 100
	assert.InDelta(t, 100, a.Score, 0.01)
	assert.Equal(t, LevelVeryHigh, a.Level)
	assert.InDelta(t, 0.5, a.PositionInRange, 0.001)
	assert.Equal(t, int64(0), a.PriceDiff)
}

func TestAnalyze_AccuracyBands(t *testing.T) {
	// decision 100000, range 90000-110000 keeps range_diff_ratio <= 50 for
	// small diffs so the range score stays at 100.
	tests := []struct {
		name      string
		openPrice int64
		wantScore float64
	}{
		// diff 1% -> accuracy 100; position (101000-90000)/20000 = 0.55,
		// centerDistance 0.1, position score 90; 100*.5+90*.3+100*.2 = 97
		{"within one percent", 101000, 97},
		// diff 2% -> accuracy 80; position 0.6 -> 80; 40+24+20 = 84
		{"two percent off", 102000, 84},
		// diff 4% -> accuracy 55; position 0.7 -> 60; range ratio 40% -> 100;
		// 27.5+18+20 = 65.5
		{"four percent off", 104000, 65.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analyze(tt.openPrice, 100000, 90000, 110000)
			assert.InDelta(t, tt.wantScore, a.Score, 0.01)
		})
	}
}

func TestAnalyze_PositionClamped(t *testing.T) {
	below := Analyze(60000, 70000, 68000, 72000)
	assert.InDelta(t, 0.0, below.PositionInRange, 0.001)

	above := Analyze(80000, 70000, 68000, 72000)
	assert.InDelta(t, 1.0, above.PositionInRange, 0.001)
}

func TestAnalyze_InvalidRange(t *testing.T) {
	a := Analyze(70000, 70000, 72000, 68000)
	assert.Equal(t, float64(0), a.Score)
	assert.Equal(t, LevelVeryLow, a.Level)
	assert.InDelta(t, 0.5, a.PositionInRange, 0.001)
	assert.Nil(t, a.Details)
}

func TestAnalyze_Details(t *testing.T) {
	a := Analyze(70000, 70000, 68000, 72000)
	require.NotNil(t, a.Details)
	assert.InDelta(t, 0, a.Details.OpenVsDecision, 0.01)
	assert.InDelta(t, 2.94, a.Details.DistanceToLow, 0.01)
	assert.InDelta(t, 2.86, a.Details.DistanceToHigh, 0.01)
	assert.InDelta(t, 5.71, a.Details.RangeWidth, 0.01)
}

func TestInterpretation(t *testing.T) {
	msg := Interpretation(LevelVeryHigh, 0.5)
	assert.Contains(t, msg, "예측 범위 중앙")
	assert.Contains(t, msg, "매우 정확")

	msg = Interpretation(LevelLow, 0.1)
	assert.Contains(t, msg, "예측 범위 하단")
	assert.Contains(t, msg, "주의")

	msg = Interpretation(LevelVeryLow, 0.9)
	assert.Contains(t, msg, "예측 범위 상단")
	assert.Contains(t, msg, "재검토")
}

func TestLevelLabel(t *testing.T) {
	assert.Equal(t, "매우 높음", LevelVeryHigh.Label())
	assert.Equal(t, "높음", LevelHigh.Label())
	assert.Equal(t, "보통", LevelMedium.Label())
	assert.Equal(t, "낮음", LevelLow.Label())
	assert.Equal(t, "매우 낮음", LevelVeryLow.Label())
}
