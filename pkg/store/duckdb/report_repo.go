package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tunogya/gametrend/pkg/evaluate"
	"github.com/tunogya/gametrend/pkg/pipeline"
)

// platformSep joins platform names in the runs table
const platformSep = ","

// Run is the stored summary of one evaluated training run
type Run struct {
	RunID                string
	Platforms            []string
	Horizon              int
	TrainWindows         int
	TestWindows          int
	Epochs               int
	Loss                 float64
	Accuracy             float64
	MeanPlatformAccuracy float64
	CreatedAt            time.Time
}

// ReportRepo persists evaluation reports
type ReportRepo struct {
	client *Client
}

// NewReportRepo creates a new report repository
func NewReportRepo(client *Client) *ReportRepo {
	return &ReportRepo{client: client}
}

// Save stores the run summary and its per-platform accuracy in one transaction
func (r *ReportRepo) Save(ctx context.Context, rep *pipeline.Report) error {
	tx, err := r.client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := rep.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, platforms, horizon, train_windows, test_windows, epochs,
			loss, accuracy, mean_platform_accuracy, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			platforms = EXCLUDED.platforms,
			horizon = EXCLUDED.horizon,
			train_windows = EXCLUDED.train_windows,
			test_windows = EXCLUDED.test_windows,
			epochs = EXCLUDED.epochs,
			loss = EXCLUDED.loss,
			accuracy = EXCLUDED.accuracy,
			mean_platform_accuracy = EXCLUDED.mean_platform_accuracy,
			created_at = EXCLUDED.created_at
	`,
		rep.RunID, strings.Join(rep.Platforms, platformSep), rep.Horizon, rep.TrainWindows, rep.TestWindows, rep.Epochs,
		nullable(rep.Evaluation.Loss), nullable(rep.Evaluation.Accuracy), evaluate.Mean(rep.PlatformAccuracy), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO platform_accuracy (run_id, platform, accuracy, rating)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (run_id, platform) DO UPDATE SET
			accuracy = EXCLUDED.accuracy,
			rating = EXCLUDED.rating
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	ranking := rep.Ranking
	if ranking == nil {
		ranking = evaluate.Rank(rep.PlatformAccuracy)
	}
	for _, s := range ranking {
		if _, err := stmt.ExecContext(ctx, rep.RunID, s.Platform, s.Accuracy, string(s.Rating)); err != nil {
			return fmt.Errorf("failed to insert accuracy for %s: %w", s.Platform, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run summary by ID
func (r *ReportRepo) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := r.client.QueryRow(ctx, `
		SELECT run_id, platforms, horizon, train_windows, test_windows, epochs,
			loss, accuracy, mean_platform_accuracy, created_at
		FROM runs
		WHERE run_id = ?
	`, runID)

	var run Run
	var platforms string
	var loss, acc, mean sql.NullFloat64
	err := row.Scan(&run.RunID, &platforms, &run.Horizon, &run.TrainWindows, &run.TestWindows, &run.Epochs,
		&loss, &acc, &mean, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	if platforms != "" {
		run.Platforms = strings.Split(platforms, platformSep)
	}
	run.Loss = orNaN(loss)
	run.Accuracy = orNaN(acc)
	run.MeanPlatformAccuracy = orNaN(mean)
	return &run, nil
}

// Ranking returns the stored platform scores of runID, best first
func (r *ReportRepo) Ranking(ctx context.Context, runID string) ([]evaluate.PlatformScore, error) {
	rows, err := r.client.Query(ctx, `
		SELECT platform, accuracy, rating
		FROM platform_accuracy
		WHERE run_id = ?
		ORDER BY accuracy DESC, platform ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query platform accuracy: %w", err)
	}
	defer rows.Close()

	var out []evaluate.PlatformScore
	for rows.Next() {
		var s evaluate.PlatformScore
		var rating string
		if err := rows.Scan(&s.Platform, &s.Accuracy, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan platform accuracy: %w", err)
		}
		s.Rating = evaluate.Rating(rating)
		out = append(out, s)
	}

	return out, rows.Err()
}

// nullable maps non-finite metrics to NULL
func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
