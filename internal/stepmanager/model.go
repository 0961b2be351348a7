package stepmanager

import (
	"encoding/json"
	"time"
)

// StepManager tracks the step-wise accumulation state for one stock. code is
// unique; trade_step must stay in sync with len(trade_prices).
type StepManager struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code"`
	Type          bool       `json:"type"`
	Market        string     `json:"market"`
	FinalPrice    int64      `json:"final_price"`
	TotalQty      int64      `json:"total_qty"`
	TradeQty      int64      `json:"trade_qty"`
	TradeStep     int        `json:"trade_step"`
	HoldQty       int64      `json:"hold_qty"`
	LastTradeTime *time.Time `json:"last_trade_time,omitempty"`
	TradePrices   []int64    `json:"last_trade_prices"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TotalValue is final price x total quantity
func (s *StepManager) TotalValue() int64 {
	return s.FinalPrice * s.TotalQty
}

// HoldValue is final price x held quantity
func (s *StepManager) HoldValue() int64 {
	return s.FinalPrice * s.HoldQty
}

// TradeValue is final price x traded quantity
func (s *StepManager) TradeValue() int64 {
	return s.FinalPrice * s.TradeQty
}

// IsFullyTraded reports whether the whole planned quantity has been traded
func (s *StepManager) IsFullyTraded() bool {
	return s.TradeQty >= s.TotalQty
}

// IsStepConsistent reports whether trade_step matches the recorded price count
func (s *StepManager) IsStepConsistent() bool {
	return s.TradeStep == len(s.TradePrices)
}

// AverageTradePrice returns the mean of the recorded trade prices, nil when
// no trades are recorded yet
func (s *StepManager) AverageTradePrice() *float64 {
	if len(s.TradePrices) == 0 {
		return nil
	}
	var sum int64
	for _, p := range s.TradePrices {
		sum += p
	}
	avg := float64(sum) / float64(len(s.TradePrices))
	return &avg
}

// LastTradePrice returns the most recent trade price, nil when no trades
// are recorded yet
func (s *StepManager) LastTradePrice() *int64 {
	if len(s.TradePrices) == 0 {
		return nil
	}
	p := s.TradePrices[len(s.TradePrices)-1]
	return &p
}

// LastTradeValue is last trade price x traded quantity, nil when no trades
// are recorded yet
func (s *StepManager) LastTradeValue() *int64 {
	last := s.LastTradePrice()
	if last == nil {
		return nil
	}
	v := *last * s.TradeQty
	return &v
}

// ProfitLoss is the traded quantity valued at the final price minus the same
// quantity valued at the last trade price. nil when no trades are recorded.
func (s *StepManager) ProfitLoss() *int64 {
	last := s.LastTradePrice()
	if last == nil {
		return nil
	}
	pl := s.FinalPrice*s.TradeQty - *last*s.TradeQty
	return &pl
}

// RemainingQty is the planned quantity not yet traded
func (s *StepManager) RemainingQty() int64 {
	return s.TotalQty - s.TradeQty
}

// PriceAtStep returns the trade price recorded for the given step index,
// nil when the index is out of range
func (s *StepManager) PriceAtStep(step int) *int64 {
	if step < 0 || step >= len(s.TradePrices) {
		return nil
	}
	p := s.TradePrices[step]
	return &p
}

// MarshalJSON includes the computed read metrics alongside the stored columns
// so every API response carries them.
func (s *StepManager) MarshalJSON() ([]byte, error) {
	type alias StepManager
	return json.Marshal(struct {
		*alias
		TotalValue     int64  `json:"total_value"`
		HoldValue      int64  `json:"hold_value"`
		TradeValue     int64  `json:"trade_value"`
		LastTradePrice *int64 `json:"last_trade_price"`
		LastTradeValue *int64 `json:"last_trade_value"`
		ProfitLoss     *int64 `json:"profit_loss"`
		RemainingQty   int64  `json:"remaining_qty"`
		IsFullyTraded  bool   `json:"is_fully_traded"`
	}{
		alias:          (*alias)(s),
		TotalValue:     s.TotalValue(),
		HoldValue:      s.HoldValue(),
		TradeValue:     s.TradeValue(),
		LastTradePrice: s.LastTradePrice(),
		LastTradeValue: s.LastTradeValue(),
		ProfitLoss:     s.ProfitLoss(),
		RemainingQty:   s.RemainingQty(),
		IsFullyTraded:  s.IsFullyTraded(),
	})
}
