package tradingday

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wonny/tradeassist/pkg/httputil"
	"github.com/wonny/tradeassist/pkg/logger"
)

// KRXChecker asks an exchange-calendar endpoint whether a date is a
// temporary closure. Failures are reported as "open" by the caller, so a
// dead endpoint only loses closure detection.
type KRXChecker struct {
	client  *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewKRXChecker creates a checker against the given calendar endpoint
func NewKRXChecker(log *logger.Logger, baseURL string) *KRXChecker {
	return &KRXChecker{
		client:  httputil.NewWithTimeout(log, 5*time.Second),
		baseURL: baseURL,
		logger:  log,
	}
}

type calendarResponse struct {
	IsTradingDay bool `json:"is_trading_day"`
}

// IsClosed queries the endpoint for the date. A non-200 answer is an error.
func (k *KRXChecker) IsClosed(ctx context.Context, date time.Time) (bool, error) {
	url := fmt.Sprintf("%s/trading-calendar/%s", k.baseURL, date.In(KST).Format(dateLayout))

	resp, err := k.client.Get(ctx, url)
	if err != nil {
		k.logger.WithError(err).Warn("임시휴장 조회 실패")
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return false, fmt.Errorf("calendar endpoint returned %d", resp.StatusCode)
	}

	var body calendarResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode calendar response: %w", err)
	}
	return !body.IsTradingDay, nil
}
