package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestBaseline_HasPriceRange(t *testing.T) {
	tests := []struct {
		name string
		low  *int64
		high *int64
		want bool
	}{
		{"both set", int64Ptr(68000), int64Ptr(72000), true},
		{"only low", int64Ptr(68000), nil, false},
		{"only high", nil, int64Ptr(72000), false},
		{"neither", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Baseline{LowPrice: tt.low, HighPrice: tt.high}
			assert.Equal(t, tt.want, b.HasPriceRange())
		})
	}
}

func TestBaseline_PriceRange(t *testing.T) {
	b := &Baseline{
		DecisionPrice: 70000,
		LowPrice:      int64Ptr(68000),
		HighPrice:     int64Ptr(72000),
	}

	spread := b.PriceRange()
	require.NotNil(t, spread)
	assert.Equal(t, int64(4000), *spread)

	pct := b.PriceRangePct()
	require.NotNil(t, pct)
	assert.InDelta(t, 5.71, *pct, 0.01)

	noRange := &Baseline{DecisionPrice: 70000}
	assert.Nil(t, noRange.PriceRange())
	assert.Nil(t, noRange.PriceRangePct())
}

func TestBaseline_IsPriceInRange(t *testing.T) {
	tests := []struct {
		name     string
		decision int64
		want     bool
	}{
		{"at low bound", 68000, true},
		{"mid", 70000, true},
		{"at high bound", 72000, true},
		{"below", 67999, false},
		{"above", 72001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Baseline{
				DecisionPrice: tt.decision,
				LowPrice:      int64Ptr(68000),
				HighPrice:     int64Ptr(72000),
			}
			in := b.IsPriceInRange()
			require.NotNil(t, in)
			assert.Equal(t, tt.want, *in)
		})
	}

	noRange := &Baseline{DecisionPrice: 70000}
	assert.Nil(t, noRange.IsPriceInRange())
}

func TestBaseline_Values(t *testing.T) {
	b := &Baseline{
		DecisionPrice: 70000,
		Quantity:      10,
		LowPrice:      int64Ptr(68000),
		HighPrice:     int64Ptr(72000),
	}

	assert.Equal(t, int64(700000), b.TotalValue())

	low := b.EstimatedLowValue()
	require.NotNil(t, low)
	assert.Equal(t, int64(680000), *low)

	high := b.EstimatedHighValue()
	require.NotNil(t, high)
	assert.Equal(t, int64(720000), *high)

	noRange := &Baseline{DecisionPrice: 70000, Quantity: 10}
	assert.Nil(t, noRange.EstimatedLowValue())
	assert.Nil(t, noRange.EstimatedHighValue())
}
