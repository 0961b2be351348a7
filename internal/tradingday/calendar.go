package tradingday

import (
	"context"
	"time"
)

// KST is the exchange timezone
var KST = mustLoadKST()

func mustLoadKST() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// Regular KRX session hours
const (
	MarketOpenHour    = 9
	MarketOpenMinute  = 0
	MarketCloseHour   = 15
	MarketCloseMinute = 30
)

const dateLayout = "2006-01-02"

// 한국 공휴일 (거래소 휴장일)
var holidays = map[string]string{
	// 2025
	"2025-01-01": "신정",
	"2025-01-28": "설날연휴",
	"2025-01-29": "설날",
	"2025-01-30": "설날연휴",
	"2025-03-01": "삼일절",
	"2025-03-03": "삼일절 대체공휴일",
	"2025-05-01": "근로자의 날",
	"2025-05-05": "어린이날",
	"2025-05-06": "부처님오신날 대체공휴일",
	"2025-06-03": "현충일",
	"2025-08-15": "광복절",
	"2025-09-16": "추석연휴",
	"2025-09-17": "추석",
	"2025-09-18": "추석연휴",
	"2025-10-03": "개천절",
	"2025-10-08": "추석 대체공휴일",
	"2025-10-09": "한글날",
	"2025-12-25": "크리스마스",
	"2025-12-31": "연말 휴장일",

	// 2026
	"2026-01-01": "신정",
	"2026-02-16": "설날연휴",
	"2026-02-17": "설날",
	"2026-02-18": "설날연휴",
	"2026-03-02": "삼일절 대체공휴일",
	"2026-05-01": "근로자의 날",
	"2026-05-05": "어린이날",
	"2026-05-25": "부처님오신날 대체공휴일",
	"2026-08-17": "광복절 대체공휴일",
	"2026-09-24": "추석연휴",
	"2026-09-25": "추석",
	"2026-10-05": "개천절 대체공휴일",
	"2026-10-09": "한글날",
	"2026-12-25": "크리스마스",
	"2026-12-31": "연말 휴장일",
}

// ClosureChecker reports ad-hoc exchange closures not covered by the fixed
// holiday table.
type ClosureChecker interface {
	IsClosed(ctx context.Context, date time.Time) (bool, error)
}

// Calendar answers trading-day questions for the KRX. The optional checker
// catches temporary closures; checker errors are treated as "open" so a dead
// endpoint cannot halt the pipeline.
type Calendar struct {
	checker ClosureChecker
}

// NewCalendar creates a calendar without a closure checker
func NewCalendar() *Calendar {
	return &Calendar{}
}

// WithChecker attaches a temporary-closure checker
func (c *Calendar) WithChecker(checker ClosureChecker) *Calendar {
	c.checker = checker
	return c
}

// HolidayName returns the holiday name for a date, if any
func (c *Calendar) HolidayName(date time.Time) (string, bool) {
	name, ok := holidays[date.In(KST).Format(dateLayout)]
	return name, ok
}

// IsWeekend reports whether the date falls on Saturday or Sunday in KST
func (c *Calendar) IsWeekend(date time.Time) bool {
	wd := date.In(KST).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsTradingDay reports whether the exchange is open on the given date
func (c *Calendar) IsTradingDay(ctx context.Context, date time.Time) bool {
	if c.IsWeekend(date) {
		return false
	}
	if _, ok := c.HolidayName(date); ok {
		return false
	}
	if c.checker != nil {
		closed, err := c.checker.IsClosed(ctx, date)
		if err == nil && closed {
			return false
		}
	}
	return true
}

// NextTradingDay returns the first trading day strictly after the given date
func (c *Calendar) NextTradingDay(ctx context.Context, date time.Time) time.Time {
	d := date.In(KST)
	for {
		d = d.AddDate(0, 0, 1)
		if c.IsTradingDay(ctx, d) {
			return d
		}
	}
}

// IsMarketHours reports whether the time falls inside the regular session
// (09:00-15:30 KST) on a trading day.
func (c *Calendar) IsMarketHours(ctx context.Context, t time.Time) bool {
	if !c.IsTradingDay(ctx, t) {
		return false
	}
	kst := t.In(KST)
	minutes := kst.Hour()*60 + kst.Minute()
	open := MarketOpenHour*60 + MarketOpenMinute
	close := MarketCloseHour*60 + MarketCloseMinute
	return minutes >= open && minutes <= close
}

// Status is the calendar view for one date
type Status struct {
	Date           string `json:"date"`
	Weekday        string `json:"weekday"`
	IsTradingDay   bool   `json:"is_trading_day"`
	IsWeekend      bool   `json:"is_weekend"`
	Holiday        string `json:"holiday,omitempty"`
	IsMarketHours  bool   `json:"is_market_hours"`
	NextTradingDay string `json:"next_trading_day"`
}

// StatusFor builds the calendar status for a point in time
func (c *Calendar) StatusFor(ctx context.Context, t time.Time) Status {
	kst := t.In(KST)
	holiday, _ := c.HolidayName(kst)
	return Status{
		Date:           kst.Format(dateLayout),
		Weekday:        kst.Weekday().String(),
		IsTradingDay:   c.IsTradingDay(ctx, kst),
		IsWeekend:      c.IsWeekend(kst),
		Holiday:        holiday,
		IsMarketHours:  c.IsMarketHours(ctx, kst),
		NextTradingDay: c.NextTradingDay(ctx, kst).Format(dateLayout),
	}
}
