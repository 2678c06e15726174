package core

import (
	"context"
	"fmt"
)

// schemaStatements create the dashboard's tables and indexes. Statements are
// idempotent so EnsureSchema can run on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS datasets (
		id          UUID PRIMARY KEY,
		file_name   TEXT NOT NULL,
		sheet_name  TEXT,
		row_count   BIGINT NOT NULL DEFAULT 0,
		headers     TEXT[],
		mapping     JSONB,
		missing     TEXT[],
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS invoice_rows (
		id                 BIGSERIAL PRIMARY KEY,
		dataset_id         UUID NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
		invoice_number     TEXT,
		invoice_date       DATE,
		goods_recd_date    DATE,
		dispatch_date      DATE,
		delivery_date      DATE,
		customer_name      TEXT,
		station            TEXT,
		brand              TEXT,
		item_code          TEXT,
		description        TEXT,
		taxable_value      NUMERIC,
		purchase_value     NUMERIC,
		closing_balance    NUMERIC,
		in_qty             NUMERIC,
		out_qty            NUMERIC,
		unit_price         NUMERIC,
		amount             NUMERIC,
		delivery_time_days INTEGER,
		dispatch_day       TEXT,
		delivery_day       TEXT,
		invoice_day        TEXT,
		segment            TEXT NOT NULL DEFAULT 'other'
	)`,

	`CREATE INDEX IF NOT EXISTS invoice_rows_dataset_idx ON invoice_rows (dataset_id)`,
	`CREATE INDEX IF NOT EXISTS invoice_rows_invoice_date_idx ON invoice_rows (invoice_date)`,
	`CREATE INDEX IF NOT EXISTS invoice_rows_segment_idx ON invoice_rows (segment)`,
	`CREATE INDEX IF NOT EXISTS invoice_rows_customer_idx ON invoice_rows (customer_name)`,
	`CREATE INDEX IF NOT EXISTS invoice_rows_brand_idx ON invoice_rows (brand)`,
	`CREATE INDEX IF NOT EXISTS invoice_rows_item_idx ON invoice_rows (item_code)`,
}

// EnsureSchema creates the tables and indexes the service needs.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
