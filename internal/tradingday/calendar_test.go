package tradingday

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func kstDate(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, KST)
}

func TestCalendar_IsTradingDay(t *testing.T) {
	cal := NewCalendar()
	ctx := context.Background()

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"weekday", kstDate(2025, time.June, 20, 10, 0), true}, // Friday
		{"saturday", kstDate(2025, time.June, 21, 10, 0), false},
		{"sunday", kstDate(2025, time.June, 22, 10, 0), false},
		{"new year", kstDate(2025, time.January, 1, 10, 0), false},
		{"seollal", kstDate(2025, time.January, 29, 10, 0), false},
		{"chuseok", kstDate(2025, time.September, 17, 10, 0), false},
		{"christmas", kstDate(2025, time.December, 25, 10, 0), false},
		{"2026 seollal", kstDate(2026, time.February, 17, 10, 0), false},
		{"2026 weekday", kstDate(2026, time.August, 26, 10, 0), true}, // Wednesday
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsTradingDay(ctx, tt.date))
		})
	}
}

func TestCalendar_HolidayName(t *testing.T) {
	cal := NewCalendar()

	name, ok := cal.HolidayName(kstDate(2025, time.September, 17, 0, 0))
	assert.True(t, ok)
	assert.Equal(t, "추석", name)

	_, ok = cal.HolidayName(kstDate(2025, time.June, 20, 0, 0))
	assert.False(t, ok)
}

func TestCalendar_NextTradingDay(t *testing.T) {
	cal := NewCalendar()
	ctx := context.Background()

	// Friday -> Monday
	next := cal.NextTradingDay(ctx, kstDate(2025, time.June, 20, 10, 0))
	assert.Equal(t, "2025-06-23", next.Format("2006-01-02"))

	// Chuseok run 9/16-9/18 skipped from Monday 9/15
	next = cal.NextTradingDay(ctx, kstDate(2025, time.September, 15, 10, 0))
	assert.Equal(t, "2025-09-19", next.Format("2006-01-02"))
}

func TestCalendar_IsMarketHours(t *testing.T) {
	cal := NewCalendar()
	ctx := context.Background()

	assert.True(t, cal.IsMarketHours(ctx, kstDate(2025, time.June, 20, 9, 0)))
	assert.True(t, cal.IsMarketHours(ctx, kstDate(2025, time.June, 20, 12, 0)))
	assert.True(t, cal.IsMarketHours(ctx, kstDate(2025, time.June, 20, 15, 30)))
	assert.False(t, cal.IsMarketHours(ctx, kstDate(2025, time.June, 20, 8, 59)))
	assert.False(t, cal.IsMarketHours(ctx, kstDate(2025, time.June, 20, 15, 31)))
	// in hours but weekend
	assert.False(t, cal.IsMarketHours(ctx, kstDate(2025, time.June, 21, 12, 0)))
}

type fakeChecker struct {
	closed bool
	err    error
}

func (f *fakeChecker) IsClosed(ctx context.Context, date time.Time) (bool, error) {
	return f.closed, f.err
}

func TestCalendar_TemporaryClosure(t *testing.T) {
	ctx := context.Background()
	weekday := kstDate(2025, time.June, 20, 10, 0)

	closed := NewCalendar().WithChecker(&fakeChecker{closed: true})
	assert.False(t, closed.IsTradingDay(ctx, weekday))

	open := NewCalendar().WithChecker(&fakeChecker{closed: false})
	assert.True(t, open.IsTradingDay(ctx, weekday))

	// checker errors must not close the market
	failing := NewCalendar().WithChecker(&fakeChecker{closed: true, err: errors.New("timeout")})
	assert.True(t, failing.IsTradingDay(ctx, weekday))
}

func TestCalendar_StatusFor(t *testing.T) {
	cal := NewCalendar()
	status := cal.StatusFor(context.Background(), kstDate(2025, time.September, 17, 10, 0))

	assert.Equal(t, "2025-09-17", status.Date)
	assert.Equal(t, "Wednesday", status.Weekday)
	assert.False(t, status.IsTradingDay)
	assert.False(t, status.IsWeekend)
	assert.Equal(t, "추석", status.Holiday)
	assert.False(t, status.IsMarketHours)
	assert.Equal(t, "2025-09-19", status.NextTradingDay)
}
