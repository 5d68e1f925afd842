package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tunogya/gametrend/pkg/feature"
	"github.com/tunogya/gametrend/pkg/model"
)

// FeatureRepo persists the dense yearly series of a run, one value per row
type FeatureRepo struct {
	client *Client
}

// NewFeatureRepo creates a new feature repository
func NewFeatureRepo(client *Client) *FeatureRepo {
	return &FeatureRepo{client: client}
}

type featureCell struct {
	year     int
	platform int
	feature  model.Feature
	value    float64
}

// SaveSeries replaces the stored series of runID
func (r *FeatureRepo) SaveSeries(ctx context.Context, runID string, s *feature.Series) error {
	if err := r.client.Exec(ctx, "DELETE FROM feature_rows WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear features of run %s: %w", runID, err)
	}

	cells := make([]featureCell, 0, len(s.Rows)*len(s.Platforms)*model.NumFeatures)
	for _, row := range s.Rows {
		for p := range s.Platforms {
			for _, f := range model.Features {
				cells = append(cells, featureCell{year: row.Year, platform: p, feature: f, value: row.Values[p][f]})
			}
		}
	}

	return batch(ctx, r.client, `
		INSERT INTO feature_rows (run_id, year, platform_index, platform, feature, sales)
		VALUES (?, ?, ?, ?, ?, ?)
	`, cells, func(stmt *sql.Stmt, c featureCell) error {
		_, err := stmt.ExecContext(ctx, runID, c.year, c.platform, s.Platforms[c.platform], int(c.feature), c.value)
		if err != nil {
			return fmt.Errorf("failed to insert feature %d/%d/%s: %w", c.year, c.platform, c.feature, err)
		}
		return nil
	})
}

// LoadSeries rebuilds the series stored for runID.
// It returns model.ErrEmptyInput when the run has no features.
func (r *FeatureRepo) LoadSeries(ctx context.Context, runID string) (*feature.Series, error) {
	rows, err := r.client.Query(ctx, `
		SELECT year, platform_index, platform, feature, sales
		FROM feature_rows
		WHERE run_id = ?
		ORDER BY year ASC, platform_index ASC, feature ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query features: %w", err)
	}
	defer rows.Close()

	var (
		cells     []featureCell
		platforms []string
	)
	for rows.Next() {
		var c featureCell
		var name string
		var f int
		if err := rows.Scan(&c.year, &c.platform, &name, &f, &c.value); err != nil {
			return nil, fmt.Errorf("failed to scan feature: %w", err)
		}
		if f < 0 || f >= model.NumFeatures {
			return nil, fmt.Errorf("feature index %d out of range", f)
		}
		c.feature = model.Feature(f)
		for len(platforms) <= c.platform {
			platforms = append(platforms, "")
		}
		platforms[c.platform] = name
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, model.ErrEmptyInput
	}

	s := &feature.Series{Platforms: platforms}
	for _, c := range cells {
		if n := len(s.Rows); n == 0 || s.Rows[n-1].Year != c.year {
			s.Rows = append(s.Rows, model.NewFeatureRow(c.year, len(platforms)))
		}
		s.Rows[len(s.Rows)-1].Values[c.platform][c.feature] = c.value
	}
	return s, nil
}

// LatestRun returns the most recently created run that has stored features
func (r *FeatureRepo) LatestRun(ctx context.Context) (string, error) {
	var runID string
	row := r.client.QueryRow(ctx, `
		SELECT r.run_id
		FROM runs r
		WHERE EXISTS (SELECT 1 FROM feature_rows f WHERE f.run_id = r.run_id)
		ORDER BY r.created_at DESC
		LIMIT 1
	`)
	if err := row.Scan(&runID); err != nil {
		return "", fmt.Errorf("failed to find latest run: %w", err)
	}
	return runID, nil
}
