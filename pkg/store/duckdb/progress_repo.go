package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tunogya/gametrend/pkg/model"
)

// ProgressRepo persists per-epoch training metrics
type ProgressRepo struct {
	client *Client
}

// NewProgressRepo creates a new progress repository
func NewProgressRepo(client *Client) *ProgressRepo {
	return &ProgressRepo{client: client}
}

const insertProgress = `
	INSERT INTO training_progress (run_id, epoch, loss, accuracy, val_loss, val_accuracy, has_validation, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (run_id, epoch) DO UPDATE SET
		loss = EXCLUDED.loss,
		accuracy = EXCLUDED.accuracy,
		val_loss = EXCLUDED.val_loss,
		val_accuracy = EXCLUDED.val_accuracy,
		has_validation = EXCLUDED.has_validation,
		duration_ms = EXCLUDED.duration_ms
`

func progressArgs(runID string, p model.Progress) []any {
	return []any{
		runID, p.Epoch,
		nullable(p.Loss), nullable(p.Accuracy), nullable(p.ValLoss), nullable(p.ValAccuracy),
		p.HasValidation, p.Duration.Milliseconds(),
	}
}

// Insert stores a single epoch, replacing an earlier record of the same epoch
func (r *ProgressRepo) Insert(ctx context.Context, runID string, p model.Progress) error {
	if err := r.client.Exec(ctx, insertProgress, progressArgs(runID, p)...); err != nil {
		return fmt.Errorf("failed to insert progress: %w", err)
	}
	return nil
}

// InsertBatch stores a full history in a transaction
func (r *ProgressRepo) InsertBatch(ctx context.Context, runID string, history model.History) error {
	return batch(ctx, r.client, insertProgress, history, func(stmt *sql.Stmt, p model.Progress) error {
		if _, err := stmt.ExecContext(ctx, progressArgs(runID, p)...); err != nil {
			return fmt.Errorf("failed to insert progress for epoch %d: %w", p.Epoch, err)
		}
		return nil
	})
}

// History returns the stored epochs of runID in order.
// NULL metrics read back as NaN.
func (r *ProgressRepo) History(ctx context.Context, runID string) (model.History, error) {
	rows, err := r.client.Query(ctx, `
		SELECT epoch, loss, accuracy, val_loss, val_accuracy, has_validation, duration_ms
		FROM training_progress
		WHERE run_id = ?
		ORDER BY epoch ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var h model.History
	for rows.Next() {
		var p model.Progress
		var loss, acc, valLoss, valAcc sql.NullFloat64
		var durationMS int64
		if err := rows.Scan(&p.Epoch, &loss, &acc, &valLoss, &valAcc, &p.HasValidation, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		p.Loss = orNaN(loss)
		p.Accuracy = orNaN(acc)
		p.ValLoss = orNaN(valLoss)
		p.ValAccuracy = orNaN(valAcc)
		p.Duration = time.Duration(durationMS) * time.Millisecond
		h = append(h, p)
	}

	return h, rows.Err()
}

// Count returns the number of stored epochs of runID
func (r *ProgressRepo) Count(ctx context.Context, runID string) (int64, error) {
	var count int64
	row := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM training_progress WHERE run_id = ?", runID)
	err := row.Scan(&count)
	return count, err
}
