package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/tradeassist/pkg/httputil"
	"github.com/wonny/tradeassist/pkg/logger"
	"github.com/wonny/tradeassist/pkg/redis"
)

// ErrNoQuote is returned when no price rows come back for a stock
var ErrNoQuote = errors.New("no quote data")

// Client fetches quotes from Naver Finance
// ⭐ SSOT: 네이버 금융 시세 조회는 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cache      *redis.Cache
	chartURL   string
	financeURL string
}

// NewClient creates a quote client. cache may be nil to skip caching.
func NewClient(httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		cache:      cache,
		chartURL:   "https://fchart.stock.naver.com",
		financeURL: "https://finance.naver.com",
	}
}

// DailyPrice is one day's OHLCV row
type DailyPrice struct {
	TradeDate  time.Time `json:"trade_date"`
	OpenPrice  int64     `json:"open_price"`
	HighPrice  int64     `json:"high_price"`
	LowPrice   int64     `json:"low_price"`
	ClosePrice int64     `json:"close_price"`
	Volume     int64     `json:"volume"`
}

// FetchDailyPrices fetches daily candles for a stock between from and to
func (c *Client) FetchDailyPrices(ctx context.Context, stockCode string, from, to time.Time) ([]DailyPrice, error) {
	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.chartURL, stockCode, from.Format("20060102"), to.Format("20060102"),
	)

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	prices, err := parseSiseJSON(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": stockCode,
		"count":      len(prices),
	}).Debug("시세 조회 완료")
	return prices, nil
}

// FetchCurrentPrice returns the opening price of the latest daily row for a
// stock, cached briefly so the hourly sweep does not hammer the endpoint.
// During market hours the latest row is today's, so this is today's open.
func (c *Client) FetchCurrentPrice(ctx context.Context, stockCode string) (int64, error) {
	cacheKey := "quote:" + stockCode
	if c.cache != nil {
		var cached int64
		if found, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return cached, nil
		}
	}

	now := time.Now()
	prices, err := c.FetchDailyPrices(ctx, stockCode, now.AddDate(0, 0, -7), now)
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoQuote, stockCode)
	}

	price := prices[len(prices)-1].OpenPrice
	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, price, redis.TTLShort); err != nil {
			c.logger.WithError(err).Debug("시세 캐시 저장 실패")
		}
	}
	return price, nil
}

// parseSiseJSON parses the siseJson payload: a quoted array of arrays,
// header row first.
func parseSiseJSON(body string) ([]DailyPrice, error) {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return parseSiseRows(rawData), nil
	}

	// Fallback to regex parsing
	return parseSiseRegex(body), nil
}

func parseSiseRows(rawData [][]interface{}) []DailyPrice {
	var prices []DailyPrice
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue // skip header
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		dateStr = strings.Trim(dateStr, "\"")
		if len(dateStr) == 8 {
			dateStr = dateStr[:4] + "-" + dateStr[4:6] + "-" + dateStr[6:8]
		}
		tradeDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		prices = append(prices, DailyPrice{
			TradeDate:  tradeDate,
			OpenPrice:  toInt64(row[1]),
			HighPrice:  toInt64(row[2]),
			LowPrice:   toInt64(row[3]),
			ClosePrice: toInt64(row[4]),
			Volume:     toInt64(row[5]),
		})
	}
	return prices
}

var siseRowRe = regexp.MustCompile(`\["(\d{8})",\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+)\]`)

func parseSiseRegex(body string) []DailyPrice {
	matches := siseRowRe.FindAllStringSubmatch(body, -1)

	var prices []DailyPrice
	for _, match := range matches {
		if len(match) < 7 {
			continue
		}

		dateStr := match[1][:4] + "-" + match[1][4:6] + "-" + match[1][6:8]
		tradeDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		open, _ := strconv.ParseInt(match[2], 10, 64)
		high, _ := strconv.ParseInt(match[3], 10, 64)
		low, _ := strconv.ParseInt(match[4], 10, 64)
		cls, _ := strconv.ParseInt(match[5], 10, 64)
		volume, _ := strconv.ParseInt(match[6], 10, 64)

		prices = append(prices, DailyPrice{
			TradeDate:  tradeDate,
			OpenPrice:  open,
			HighPrice:  high,
			LowPrice:   low,
			ClosePrice: cls,
			Volume:     volume,
		})
	}
	return prices
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i
	default:
		return 0
	}
}
