package stepmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAlreadyExists is returned when a stock already has a step manager
var ErrAlreadyExists = errors.New("step manager already exists for stock")

// ErrNotFound is returned when no step manager matches the query
var ErrNotFound = errors.New("step manager not found")

// ErrNoTradePrices is returned when a price-list mutation targets an empty list
var ErrNoTradePrices = errors.New("no trade prices recorded")

// ErrInvalidIndex is returned when a price-list index is out of range
var ErrInvalidIndex = errors.New("trade price index out of range")

const stepManagerColumns = `id, code, type, market, final_price, total_qty, trade_qty, trade_step, hold_qty, last_trade_time, trade_prices, created_at, updated_at`

// Repository is the step manager store
// ⭐ SSOT: 스텝매니저 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new step manager repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanStepManager(row pgx.Row) (*StepManager, error) {
	var s StepManager
	err := row.Scan(&s.ID, &s.Code, &s.Type, &s.Market, &s.FinalPrice,
		&s.TotalQty, &s.TradeQty, &s.TradeStep, &s.HoldQty,
		&s.LastTradeTime, &s.TradePrices, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if s.TradePrices == nil {
		s.TradePrices = []int64{}
	}
	return &s, nil
}

func scanStepManagers(rows pgx.Rows) ([]*StepManager, error) {
	defer rows.Close()

	var managers []*StepManager
	for rows.Next() {
		var s StepManager
		if err := rows.Scan(&s.ID, &s.Code, &s.Type, &s.Market, &s.FinalPrice,
			&s.TotalQty, &s.TradeQty, &s.TradeStep, &s.HoldQty,
			&s.LastTradeTime, &s.TradePrices, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if s.TradePrices == nil {
			s.TradePrices = []int64{}
		}
		managers = append(managers, &s)
	}
	return managers, rows.Err()
}

// CreateParams carries the fields of a new step manager. HoldQty nil means
// total - traded; TradePrices nil means empty.
type CreateParams struct {
	Code          string     `json:"code"`
	Type          bool       `json:"type"`
	Market        string     `json:"market"`
	FinalPrice    int64      `json:"final_price"`
	TotalQty      int64      `json:"total_qty"`
	TradeQty      int64      `json:"trade_qty"`
	TradeStep     int        `json:"trade_step"`
	HoldQty       *int64     `json:"hold_qty,omitempty"`
	LastTradeTime *time.Time `json:"last_trade_time,omitempty"`
	TradePrices   []int64    `json:"last_trade_prices,omitempty"`
}

// Create inserts a new step manager. Fails with ErrAlreadyExists when the
// stock already has one.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*StepManager, error) {
	holdQty := p.TotalQty - p.TradeQty
	if p.HoldQty != nil {
		holdQty = *p.HoldQty
	}
	prices := p.TradePrices
	if prices == nil {
		prices = []int64{}
	}

	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM step_manager WHERE code = $1)`, p.Code).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check existing step manager: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, p.Code)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO step_manager
			(code, type, market, final_price, total_qty, trade_qty, trade_step, hold_qty, last_trade_time, trade_prices)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+stepManagerColumns,
		p.Code, p.Type, p.Market, p.FinalPrice, p.TotalQty, p.TradeQty,
		p.TradeStep, holdQty, p.LastTradeTime, prices)

	manager, err := scanStepManager(row)
	if err != nil {
		return nil, fmt.Errorf("create step manager %s: %w", p.Code, err)
	}
	return manager, nil
}

// GetByCode returns the step manager for a stock
func (r *Repository) GetByCode(ctx context.Context, code string) (*StepManager, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+stepManagerColumns+` FROM step_manager WHERE code = $1`, code)

	manager, err := scanStepManager(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("get step manager %s: %w", code, err)
	}
	return manager, nil
}

// GetAll returns every step manager ordered by code
func (r *Repository) GetAll(ctx context.Context) ([]*StepManager, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+stepManagerColumns+` FROM step_manager ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list step managers: %w", err)
	}
	return scanStepManagers(rows)
}

// GetByMarket returns step managers of one market; "all" returns everything
func (r *Repository) GetByMarket(ctx context.Context, market string) ([]*StepManager, error) {
	if strings.EqualFold(market, "all") {
		return r.GetAll(ctx)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+stepManagerColumns+` FROM step_manager WHERE market = $1 ORDER BY code`, market)
	if err != nil {
		return nil, fmt.Errorf("list step managers for market %s: %w", market, err)
	}
	return scanStepManagers(rows)
}

// GetByType returns step managers with the given type flag
func (r *Repository) GetByType(ctx context.Context, typeValue bool) ([]*StepManager, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+stepManagerColumns+` FROM step_manager WHERE type = $1 ORDER BY code`, typeValue)
	if err != nil {
		return nil, fmt.Errorf("list step managers by type: %w", err)
	}
	return scanStepManagers(rows)
}

// GetByTradeStep returns step managers currently at the given step
func (r *Repository) GetByTradeStep(ctx context.Context, tradeStep int) ([]*StepManager, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+stepManagerColumns+` FROM step_manager WHERE trade_step = $1 ORDER BY code`, tradeStep)
	if err != nil {
		return nil, fmt.Errorf("list step managers at step %d: %w", tradeStep, err)
	}
	return scanStepManagers(rows)
}

// UpdateParams carries optional field updates; nil fields are left untouched
type UpdateParams struct {
	FinalPrice    *int64     `json:"final_price,omitempty"`
	TotalQty      *int64     `json:"total_qty,omitempty"`
	TradeQty      *int64     `json:"trade_qty,omitempty"`
	TradeStep     *int       `json:"trade_step,omitempty"`
	HoldQty       *int64     `json:"hold_qty,omitempty"`
	LastTradeTime *time.Time `json:"last_trade_time,omitempty"`
	TradePrices   []int64    `json:"last_trade_prices,omitempty"`
}

// UpdateByCode applies a partial update to a stock's step manager
func (r *Repository) UpdateByCode(ctx context.Context, code string, p UpdateParams) (*StepManager, error) {
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.FinalPrice != nil {
		sets = append(sets, "final_price = "+arg(*p.FinalPrice))
	}
	if p.TotalQty != nil {
		sets = append(sets, "total_qty = "+arg(*p.TotalQty))
	}
	if p.TradeQty != nil {
		sets = append(sets, "trade_qty = "+arg(*p.TradeQty))
	}
	if p.TradeStep != nil {
		sets = append(sets, "trade_step = "+arg(*p.TradeStep))
	}
	if p.HoldQty != nil {
		sets = append(sets, "hold_qty = "+arg(*p.HoldQty))
	}
	if p.LastTradeTime != nil {
		sets = append(sets, "last_trade_time = "+arg(*p.LastTradeTime))
	}
	if p.TradePrices != nil {
		sets = append(sets, "trade_prices = "+arg(p.TradePrices))
	}
	if len(sets) == 0 {
		return r.GetByCode(ctx, code)
	}
	sets = append(sets, "updated_at = now()")

	query := fmt.Sprintf(`UPDATE step_manager SET %s WHERE code = %s RETURNING %s`,
		strings.Join(sets, ", "), arg(code), stepManagerColumns)

	manager, err := scanStepManager(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("update step manager %s: %w", code, err)
	}
	return manager, nil
}

// UpdateTradeInfo records a fill: sets traded quantity and step, recomputes
// held quantity, appends the trade price and stamps the trade time.
func (r *Repository) UpdateTradeInfo(ctx context.Context, code string, tradeQty int64, tradeStep int, tradePrice int64) (*StepManager, error) {
	manager, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	prices := append(manager.TradePrices, tradePrice)
	now := time.Now()
	holdQty := manager.TotalQty - tradeQty

	return r.UpdateByCode(ctx, code, UpdateParams{
		TradeQty:      &tradeQty,
		TradeStep:     &tradeStep,
		HoldQty:       &holdQty,
		LastTradeTime: &now,
		TradePrices:   prices,
	})
}

// AddTradePrice appends a trade price and advances the step by one
func (r *Repository) AddTradePrice(ctx context.Context, code string, tradePrice int64) (*StepManager, error) {
	manager, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	prices := append(manager.TradePrices, tradePrice)
	step := manager.TradeStep + 1

	return r.UpdateByCode(ctx, code, UpdateParams{
		TradeStep:   &step,
		TradePrices: prices,
	})
}

// PopTradePrice removes the last trade price and steps back by one (not
// below zero)
func (r *Repository) PopTradePrice(ctx context.Context, code string) (*StepManager, error) {
	manager, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(manager.TradePrices) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTradePrices, code)
	}

	prices := manager.TradePrices[:len(manager.TradePrices)-1]
	step := manager.TradeStep
	if step > 0 {
		step--
	}

	return r.UpdateByCode(ctx, code, UpdateParams{
		TradeStep:   &step,
		TradePrices: prices,
	})
}

// RemoveTradePriceAt removes the price at index and re-syncs the step to the
// remaining list length
func (r *Repository) RemoveTradePriceAt(ctx context.Context, code string, index int) (*StepManager, error) {
	manager, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(manager.TradePrices) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidIndex, index, len(manager.TradePrices))
	}

	prices := make([]int64, 0, len(manager.TradePrices)-1)
	prices = append(prices, manager.TradePrices[:index]...)
	prices = append(prices, manager.TradePrices[index+1:]...)
	step := len(prices)

	return r.UpdateByCode(ctx, code, UpdateParams{
		TradeStep:   &step,
		TradePrices: prices,
	})
}

// UpdateTradePriceAt replaces the price at index, step unchanged
func (r *Repository) UpdateTradePriceAt(ctx context.Context, code string, index int, newPrice int64) (*StepManager, error) {
	manager, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(manager.TradePrices) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidIndex, index, len(manager.TradePrices))
	}

	prices := make([]int64, len(manager.TradePrices))
	copy(prices, manager.TradePrices)
	prices[index] = newPrice

	return r.UpdateByCode(ctx, code, UpdateParams{TradePrices: prices})
}

// SyncTradeStep forces trade_step back to len(trade_prices)
func (r *Repository) SyncTradeStep(ctx context.Context, code string) (*StepManager, error) {
	manager, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	step := len(manager.TradePrices)
	return r.UpdateByCode(ctx, code, UpdateParams{TradeStep: &step})
}

// ResetTradePrices clears the price list and zeroes the step
func (r *Repository) ResetTradePrices(ctx context.Context, code string) (*StepManager, error) {
	step := 0
	return r.UpdateByCode(ctx, code, UpdateParams{
		TradeStep:   &step,
		TradePrices: []int64{},
	})
}

// DeleteByCode removes a stock's step manager
func (r *Repository) DeleteByCode(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM step_manager WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete step manager %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return nil
}

// DeleteAll removes every step manager and returns the count
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM step_manager`)
	if err != nil {
		return 0, fmt.Errorf("delete all step managers: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Codes returns every registered stock code
func (r *Repository) Codes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT code FROM step_manager ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list step manager codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ActivePositions returns step managers still holding quantity
func (r *Repository) ActivePositions(ctx context.Context) ([]*StepManager, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+stepManagerColumns+` FROM step_manager WHERE hold_qty > 0 ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list active positions: %w", err)
	}
	return scanStepManagers(rows)
}

// FullyTradedPositions returns step managers whose planned quantity is
// completely traded
func (r *Repository) FullyTradedPositions(ctx context.Context) ([]*StepManager, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+stepManagerColumns+` FROM step_manager WHERE trade_qty >= total_qty ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list fully traded positions: %w", err)
	}
	return scanStepManagers(rows)
}

// RecentTrades returns the most recently traded step managers
func (r *Repository) RecentTrades(ctx context.Context, limit int) ([]*StepManager, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+stepManagerColumns+` FROM step_manager
		 WHERE last_trade_time IS NOT NULL
		 ORDER BY last_trade_time DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent trades: %w", err)
	}
	return scanStepManagers(rows)
}
