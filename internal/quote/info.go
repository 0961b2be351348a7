package quote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/tradeassist/pkg/redis"
)

// StockInfo is the scraped identity of a stock
type StockInfo struct {
	StockCode string `json:"stock_code"`
	Name      string `json:"name"`
	Market    string `json:"market"`
}

// FetchStockInfo scrapes the stock name and market from the Naver Finance
// item page. Results are cached for a while since they rarely change.
func (c *Client) FetchStockInfo(ctx context.Context, stockCode string) (*StockInfo, error) {
	cacheKey := "stock_info:" + stockCode
	if c.cache != nil {
		var cached StockInfo
		if found, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return &cached, nil
		}
	}

	fullURL := fmt.Sprintf("%s/item/main.naver?code=%s", c.financeURL, stockCode)
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

	info, err := parseStockInfo(string(body), stockCode)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, info, redis.TTLMedium); err != nil {
			c.logger.WithError(err).Debug("종목 정보 캐시 저장 실패")
		}
	}
	return info, nil
}

// parseStockInfo extracts name and market from the item page HTML
func parseStockInfo(html, stockCode string) (*StockInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}

	name := strings.TrimSpace(doc.Find("div.wrap_company h2 a").First().Text())
	if name == "" {
		name = strings.TrimSpace(doc.Find("div.wrap_company h2").First().Text())
	}
	if name == "" {
		return nil, fmt.Errorf("stock name not found for %s", stockCode)
	}

	// 코스피/코스닥 구분 이미지의 alt 텍스트
	market := "kospi"
	doc.Find("div.wrap_company img").EachWithBreak(func(i int, s *goquery.Selection) bool {
		alt, ok := s.Attr("alt")
		if !ok {
			return true
		}
		switch {
		case strings.Contains(alt, "코스닥"):
			market = "kosdaq"
			return false
		case strings.Contains(alt, "코스피"):
			market = "kospi"
			return false
		}
		return true
	})

	return &StockInfo{
		StockCode: stockCode,
		Name:      name,
		Market:    market,
	}, nil
}
