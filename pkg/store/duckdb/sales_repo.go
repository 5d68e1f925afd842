package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tunogya/gametrend/pkg/feature"
	"github.com/tunogya/gametrend/pkg/model"
)

// DefaultDataset names the record set when the caller does not pick one
const DefaultDataset = "default"

// SalesRepo handles sales record persistence
type SalesRepo struct {
	client *Client
}

// NewSalesRepo creates a new sales record repository
func NewSalesRepo(client *Client) *SalesRepo {
	return &SalesRepo{client: client}
}

type seqRecord struct {
	seq int
	rec model.SalesRecord
}

// Replace stores records as the full contents of dataset, keeping input order
func (r *SalesRepo) Replace(ctx context.Context, dataset string, records []model.SalesRecord) error {
	if err := r.client.Exec(ctx, "DELETE FROM sales_records WHERE dataset = ?", dataset); err != nil {
		return fmt.Errorf("failed to clear dataset %s: %w", dataset, err)
	}
	return r.InsertBatch(ctx, dataset, 0, records)
}

// InsertBatch inserts records at positions offset, offset+1, ...
// Rows already stored at those positions are overwritten.
func (r *SalesRepo) InsertBatch(ctx context.Context, dataset string, offset int, records []model.SalesRecord) error {
	items := make([]seqRecord, len(records))
	for i, rec := range records {
		items[i] = seqRecord{seq: offset + i, rec: rec}
	}

	return batch(ctx, r.client, `
		INSERT INTO sales_records (dataset, seq, sales_rank, name, platform, year, genre, publisher,
			na_sales, eu_sales, jp_sales, other_sales, global_sales)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dataset, seq) DO UPDATE SET
			sales_rank = EXCLUDED.sales_rank,
			name = EXCLUDED.name,
			platform = EXCLUDED.platform,
			year = EXCLUDED.year,
			genre = EXCLUDED.genre,
			publisher = EXCLUDED.publisher,
			na_sales = EXCLUDED.na_sales,
			eu_sales = EXCLUDED.eu_sales,
			jp_sales = EXCLUDED.jp_sales,
			other_sales = EXCLUDED.other_sales,
			global_sales = EXCLUDED.global_sales
	`, items, func(stmt *sql.Stmt, it seqRecord) error {
		c := it.rec
		_, err := stmt.ExecContext(ctx,
			dataset, it.seq, c.Rank, c.Name, c.Platform, c.Year, c.Genre, c.Publisher,
			c.NASales, c.EUSales, c.JPSales, c.OtherSales, c.GlobalSales,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sales record %d: %w", it.seq, err)
		}
		return nil
	})
}

// GetAll returns the records of dataset in input order
func (r *SalesRepo) GetAll(ctx context.Context, dataset string) ([]model.SalesRecord, error) {
	rows, err := r.client.Query(ctx, `
		SELECT sales_rank, name, platform, year, genre, publisher,
			na_sales, eu_sales, jp_sales, other_sales, global_sales
		FROM sales_records
		WHERE dataset = ?
		ORDER BY seq ASC
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales records: %w", err)
	}
	defer rows.Close()

	var records []model.SalesRecord
	for rows.Next() {
		var c model.SalesRecord
		var rank sql.NullInt64
		var name, genre, publisher sql.NullString
		err := rows.Scan(
			&rank, &name, &c.Platform, &c.Year, &genre, &publisher,
			&c.NASales, &c.EUSales, &c.JPSales, &c.OtherSales, &c.GlobalSales,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sales record: %w", err)
		}
		c.Rank = int(rank.Int64)
		c.Name = name.String
		c.Genre = genre.String
		c.Publisher = publisher.String
		records = append(records, c)
	}

	return records, rows.Err()
}

// Count returns the number of records in dataset
func (r *SalesRepo) Count(ctx context.Context, dataset string) (int64, error) {
	var count int64
	row := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM sales_records WHERE dataset = ?", dataset)
	err := row.Scan(&count)
	return count, err
}

// Aggregate sums every feature and counts records per (year, platform) in SQL.
// The result matches feature.Accumulate over the same records.
func (r *SalesRepo) Aggregate(ctx context.Context, dataset string) ([]model.PlatformYearAggregate, error) {
	rows, err := r.client.Query(ctx, `
		SELECT year, platform,
			SUM(na_sales), SUM(eu_sales), SUM(jp_sales), SUM(other_sales), SUM(global_sales),
			COUNT(*)
		FROM sales_records
		WHERE dataset = ?
		GROUP BY year, platform
		ORDER BY year ASC, platform ASC
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales records: %w", err)
	}
	defer rows.Close()

	var aggs []model.PlatformYearAggregate
	for rows.Next() {
		var a model.PlatformYearAggregate
		s := &a.Sums
		err := rows.Scan(
			&a.Key.Year, &a.Key.Platform,
			&s[model.FeatureNA], &s[model.FeatureEU], &s[model.FeatureJP], &s[model.FeatureOther], &s[model.FeatureGlobal],
			&a.Count,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		aggs = append(aggs, a)
	}

	return aggs, rows.Err()
}

// Platforms returns the first k distinct platforms of dataset in input order
func (r *SalesRepo) Platforms(ctx context.Context, dataset string, k int) ([]string, error) {
	rows, err := r.client.Query(ctx, `
		SELECT platform
		FROM sales_records
		WHERE dataset = ?
		GROUP BY platform
		ORDER BY MIN(seq) ASC
		LIMIT ?
	`, dataset, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query platforms: %w", err)
	}
	defer rows.Close()

	var platforms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan platform: %w", err)
		}
		platforms = append(platforms, p)
	}

	return platforms, rows.Err()
}

// Series builds the yearly feature series of dataset from the SQL aggregation
func (r *SalesRepo) Series(ctx context.Context, dataset string, k int) (*feature.Series, error) {
	if k <= 0 {
		k = feature.DefaultPlatformCount
	}
	aggs, err := r.Aggregate(ctx, dataset)
	if err != nil {
		return nil, err
	}
	if len(aggs) == 0 {
		return nil, model.ErrEmptyInput
	}
	platforms, err := r.Platforms(ctx, dataset, k)
	if err != nil {
		return nil, err
	}
	return &feature.Series{
		Platforms: platforms,
		Rows:      feature.FromAggregates(feature.IndexAggregates(aggs), platforms),
	}, nil
}
