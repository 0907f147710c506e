package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// InitMigration creates the orders table and seller index when they are missing.
func InitMigration(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS marketplace_orders (
			seq BIGSERIAL PRIMARY KEY,
			id VARCHAR(64) NOT NULL UNIQUE,
			token_id TEXT NOT NULL,
			price JSONB NOT NULL,
			nft_contract TEXT NOT NULL,
			marketplace_contract TEXT NOT NULL,
			seller TEXT NOT NULL,
			seaport_order JSONB NOT NULL,
			order_hash TEXT,
			on_chain BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_marketplace_orders_seller ON marketplace_orders (lower(seller), seq)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}
