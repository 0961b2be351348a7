package baseline

import "time"

// Baseline is one planned entry for a stock at a given accumulation step.
// (stock_code, step) is unique; steps count up from 0.
type Baseline struct {
	ID            int64     `json:"id"`
	StockCode     string    `json:"stock_code"`
	Step          int       `json:"step"`
	DecisionPrice int64     `json:"decision_price"`
	Quantity      int64     `json:"quantity"`
	LowPrice      *int64    `json:"low_price,omitempty"`
	HighPrice     *int64    `json:"high_price,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasPriceRange reports whether both prediction bounds are set
func (b *Baseline) HasPriceRange() bool {
	return b.LowPrice != nil && b.HighPrice != nil
}

// PriceRange returns high - low, or nil when the range is not set
func (b *Baseline) PriceRange() *int64 {
	if !b.HasPriceRange() {
		return nil
	}
	r := *b.HighPrice - *b.LowPrice
	return &r
}

// PriceRangePct returns the range width as a percentage of the decision price
func (b *Baseline) PriceRangePct() *float64 {
	if !b.HasPriceRange() || b.DecisionPrice <= 0 {
		return nil
	}
	pct := float64(*b.HighPrice-*b.LowPrice) / float64(b.DecisionPrice) * 100
	return &pct
}

// IsPriceInRange reports whether the decision price lies inside [low, high]
func (b *Baseline) IsPriceInRange() *bool {
	if !b.HasPriceRange() {
		return nil
	}
	in := *b.LowPrice <= b.DecisionPrice && b.DecisionPrice <= *b.HighPrice
	return &in
}

// TotalValue is decision price x quantity
func (b *Baseline) TotalValue() int64 {
	return b.DecisionPrice * b.Quantity
}

// EstimatedLowValue is low price x quantity, nil without a range
func (b *Baseline) EstimatedLowValue() *int64 {
	if b.LowPrice == nil {
		return nil
	}
	v := *b.LowPrice * b.Quantity
	return &v
}

// EstimatedHighValue is high price x quantity, nil without a range
func (b *Baseline) EstimatedHighValue() *int64 {
	if b.HighPrice == nil {
		return nil
	}
	v := *b.HighPrice * b.Quantity
	return &v
}
