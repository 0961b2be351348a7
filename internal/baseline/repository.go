package baseline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAlreadyExists is returned when a stock already has a baseline and a new
// step-0 create is attempted
var ErrAlreadyExists = errors.New("baseline already exists for stock")

// ErrNotFound is returned when no baseline matches the query
var ErrNotFound = errors.New("baseline not found")

const baselineColumns = `id, stock_code, step, decision_price, quantity, low_price, high_price, created_at, updated_at`

// Repository is the baseline store
// ⭐ SSOT: 베이스라인 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new baseline repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanBaseline(row pgx.Row) (*Baseline, error) {
	var b Baseline
	err := row.Scan(&b.ID, &b.StockCode, &b.Step, &b.DecisionPrice, &b.Quantity,
		&b.LowPrice, &b.HighPrice, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBaselines(rows pgx.Rows) ([]*Baseline, error) {
	defer rows.Close()

	var baselines []*Baseline
	for rows.Next() {
		var b Baseline
		if err := rows.Scan(&b.ID, &b.StockCode, &b.Step, &b.DecisionPrice, &b.Quantity,
			&b.LowPrice, &b.HighPrice, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		baselines = append(baselines, &b)
	}
	return baselines, rows.Err()
}

// Create inserts a step-0 baseline. Fails with ErrAlreadyExists when the
// stock already has one.
func (r *Repository) Create(ctx context.Context, stockCode string, decisionPrice, quantity int64, lowPrice, highPrice *int64) (*Baseline, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM baseline WHERE stock_code = $1`, stockCode).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("check existing baselines: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, stockCode)
	}

	return r.insert(ctx, stockCode, 0, decisionPrice, quantity, lowPrice, highPrice)
}

// AddStep inserts a baseline at the next step for the stock. The stock must
// already have at least one baseline.
func (r *Repository) AddStep(ctx context.Context, stockCode string, decisionPrice, quantity int64, lowPrice, highPrice *int64) (*Baseline, error) {
	lastStep, err := r.GetLastStep(ctx, stockCode)
	if err != nil {
		return nil, err
	}
	if lastStep == nil {
		return nil, fmt.Errorf("%w: %s (create a baseline first)", ErrNotFound, stockCode)
	}

	return r.insert(ctx, stockCode, *lastStep+1, decisionPrice, quantity, lowPrice, highPrice)
}

func (r *Repository) insert(ctx context.Context, stockCode string, step int, decisionPrice, quantity int64, lowPrice, highPrice *int64) (*Baseline, error) {
	query := `
		INSERT INTO baseline (stock_code, step, decision_price, quantity, low_price, high_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + baselineColumns

	b, err := scanBaseline(r.pool.QueryRow(ctx, query,
		stockCode, step, decisionPrice, quantity, lowPrice, highPrice))
	if err != nil {
		return nil, fmt.Errorf("insert baseline: %w", err)
	}
	return b, nil
}

// GetAllByCode retrieves all baselines for a stock ordered by step
func (r *Repository) GetAllByCode(ctx context.Context, stockCode string) ([]*Baseline, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+baselineColumns+` FROM baseline WHERE stock_code = $1 ORDER BY step ASC`,
		stockCode)
	if err != nil {
		return nil, err
	}
	return scanBaselines(rows)
}

// GetLastStep returns the highest step for a stock, nil when none exist
func (r *Repository) GetLastStep(ctx context.Context, stockCode string) (*int, error) {
	var step int
	err := r.pool.QueryRow(ctx,
		`SELECT step FROM baseline WHERE stock_code = $1 ORDER BY step DESC LIMIT 1`,
		stockCode).Scan(&step)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// GetLast returns the baseline at the highest step for a stock
func (r *Repository) GetLast(ctx context.Context, stockCode string) (*Baseline, error) {
	b, err := scanBaseline(r.pool.QueryRow(ctx,
		`SELECT `+baselineColumns+` FROM baseline WHERE stock_code = $1 ORDER BY step DESC LIMIT 1`,
		stockCode))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// GetByStep returns the baseline for a stock at a specific step
func (r *Repository) GetByStep(ctx context.Context, stockCode string, step int) (*Baseline, error) {
	b, err := scanBaseline(r.pool.QueryRow(ctx,
		`SELECT `+baselineColumns+` FROM baseline WHERE stock_code = $1 AND step = $2`,
		stockCode, step))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// UpdateByStep updates price, quantity and range for a stock's step in place
func (r *Repository) UpdateByStep(ctx context.Context, stockCode string, step int, decisionPrice, quantity int64, lowPrice, highPrice *int64) (*Baseline, error) {
	query := `
		UPDATE baseline
		SET decision_price = $3, quantity = $4, low_price = $5, high_price = $6, updated_at = now()
		WHERE stock_code = $1 AND step = $2
		RETURNING ` + baselineColumns

	b, err := scanBaseline(r.pool.QueryRow(ctx, query,
		stockCode, step, decisionPrice, quantity, lowPrice, highPrice))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// DeleteByStep removes one step. Returns ErrNotFound when nothing matched.
func (r *Repository) DeleteByStep(ctx context.Context, stockCode string, step int) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM baseline WHERE stock_code = $1 AND step = $2`, stockCode, step)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLastStep removes the highest step for a stock
func (r *Repository) DeleteLastStep(ctx context.Context, stockCode string) error {
	lastStep, err := r.GetLastStep(ctx, stockCode)
	if err != nil {
		return err
	}
	if lastStep == nil {
		return ErrNotFound
	}
	return r.DeleteByStep(ctx, stockCode, *lastStep)
}

// DeleteByCode removes all baselines for a stock, returning the count
func (r *Repository) DeleteByCode(ctx context.Context, stockCode string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM baseline WHERE stock_code = $1`, stockCode)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteAll removes every baseline, returning the count
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM baseline`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetAll retrieves every baseline
func (r *Repository) GetAll(ctx context.Context) ([]*Baseline, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+baselineColumns+` FROM baseline`)
	if err != nil {
		return nil, err
	}
	return scanBaselines(rows)
}

// GetAllOrdered retrieves every baseline ordered by stock code then step
func (r *Repository) GetAllOrdered(ctx context.Context) ([]*Baseline, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+baselineColumns+` FROM baseline ORDER BY stock_code ASC, step ASC`)
	if err != nil {
		return nil, err
	}
	return scanBaselines(rows)
}

// StockCodes returns the distinct stock codes holding baselines
func (r *Repository) StockCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT stock_code FROM baseline ORDER BY stock_code ASC`)
	if err != nil {
		return nil, err
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

// Count returns the total number of baselines
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM baseline`).Scan(&count)
	return count, err
}
