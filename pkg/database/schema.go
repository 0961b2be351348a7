package database

import (
	"context"
	"fmt"
)

// schemaStatements creates the tables this service owns. Statements are
// idempotent so EnsureSchema can run on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS baseline (
		id             BIGSERIAL PRIMARY KEY,
		stock_code     VARCHAR(10) NOT NULL,
		step           INTEGER     NOT NULL CHECK (step >= 0),
		decision_price BIGINT      NOT NULL CHECK (decision_price >= 0),
		quantity       BIGINT      NOT NULL CHECK (quantity >= 0),
		low_price      BIGINT      CHECK (low_price >= 0),
		high_price     BIGINT      CHECK (high_price >= 0),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_baseline_code_step
		ON baseline (stock_code, step)`,
	`CREATE INDEX IF NOT EXISTS idx_baseline_code ON baseline (stock_code)`,

	`CREATE TABLE IF NOT EXISTS step_manager (
		id               BIGSERIAL PRIMARY KEY,
		code             VARCHAR(10) NOT NULL,
		type             BOOLEAN     NOT NULL,
		market           VARCHAR(10) NOT NULL,
		final_price      BIGINT      NOT NULL CHECK (final_price >= 0),
		total_qty        BIGINT      NOT NULL CHECK (total_qty >= 0),
		trade_qty        BIGINT      NOT NULL CHECK (trade_qty >= 0),
		trade_step       INTEGER     NOT NULL CHECK (trade_step >= 0),
		hold_qty         BIGINT      NOT NULL CHECK (hold_qty >= 0),
		last_trade_time  TIMESTAMPTZ,
		trade_prices     JSONB       NOT NULL DEFAULT '[]'::jsonb,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_step_manager_code
		ON step_manager (code)`,
	`CREATE INDEX IF NOT EXISTS idx_step_manager_market ON step_manager (market)`,
	`CREATE INDEX IF NOT EXISTS idx_step_manager_trade_step ON step_manager (trade_step)`,
}

// EnsureSchema creates the service's tables and indexes if they do not exist
// ⭐ SSOT: DDL은 이 함수에서만 실행
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
