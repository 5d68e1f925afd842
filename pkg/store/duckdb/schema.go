package duckdb

import (
	"context"
	"fmt"
)

// CreateSalesRecordsTable stores raw per-title rows; seq keeps input order,
// which platform selection depends on
const CreateSalesRecordsTable = `
CREATE TABLE IF NOT EXISTS sales_records (
    dataset VARCHAR NOT NULL,
    seq INTEGER NOT NULL,
    sales_rank INTEGER,
    name VARCHAR,
    platform VARCHAR NOT NULL,
    year INTEGER NOT NULL,
    genre VARCHAR,
    publisher VARCHAR,
    na_sales DOUBLE NOT NULL DEFAULT 0,
    eu_sales DOUBLE NOT NULL DEFAULT 0,
    jp_sales DOUBLE NOT NULL DEFAULT 0,
    other_sales DOUBLE NOT NULL DEFAULT 0,
    global_sales DOUBLE NOT NULL DEFAULT 0,
    PRIMARY KEY (dataset, seq)
);

CREATE INDEX IF NOT EXISTS idx_sales_year_platform ON sales_records(dataset, year, platform);
`

// CreateFeatureRowsTable stores the dense yearly series in long format
const CreateFeatureRowsTable = `
CREATE TABLE IF NOT EXISTS feature_rows (
    run_id VARCHAR NOT NULL,
    year INTEGER NOT NULL,
    platform_index INTEGER NOT NULL,
    platform VARCHAR NOT NULL,
    feature INTEGER NOT NULL,
    sales DOUBLE NOT NULL,
    PRIMARY KEY (run_id, year, platform_index, feature)
);
`

// CreateRunsTable stores one summary row per training run
const CreateRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    run_id VARCHAR PRIMARY KEY,
    platforms VARCHAR NOT NULL,
    horizon INTEGER NOT NULL,
    train_windows INTEGER NOT NULL,
    test_windows INTEGER NOT NULL,
    epochs INTEGER NOT NULL,
    loss DOUBLE,
    accuracy DOUBLE,
    mean_platform_accuracy DOUBLE,
    created_at TIMESTAMP NOT NULL
);
`

// CreateTrainingProgressTable stores per-epoch metrics of a run
const CreateTrainingProgressTable = `
CREATE TABLE IF NOT EXISTS training_progress (
    run_id VARCHAR NOT NULL,
    epoch INTEGER NOT NULL,
    loss DOUBLE,
    accuracy DOUBLE,
    val_loss DOUBLE,
    val_accuracy DOUBLE,
    has_validation BOOLEAN NOT NULL DEFAULT false,
    duration_ms BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, epoch)
);
`

// CreatePlatformAccuracyTable stores the evaluator output of a run
const CreatePlatformAccuracyTable = `
CREATE TABLE IF NOT EXISTS platform_accuracy (
    run_id VARCHAR NOT NULL,
    platform VARCHAR NOT NULL,
    accuracy DOUBLE NOT NULL,
    rating VARCHAR NOT NULL,
    PRIMARY KEY (run_id, platform)
);
`

var tables = []string{"platform_accuracy", "training_progress", "runs", "feature_rows", "sales_records"}

// InitializeSchema creates all required tables
func InitializeSchema(c *Client) error {
	schemas := []string{
		CreateSalesRecordsTable,
		CreateFeatureRowsTable,
		CreateRunsTable,
		CreateTrainingProgressTable,
		CreatePlatformAccuracyTable,
	}

	for _, schema := range schemas {
		if err := c.Exec(context.Background(), schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// DropAllTables drops all tables (use with caution)
func DropAllTables(c *Client) error {
	for _, table := range tables {
		if err := c.Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
