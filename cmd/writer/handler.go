package main

import (
	"context"
	"fmt"

	"github.com/tunogya/gametrend/pkg/logging"
	"github.com/tunogya/gametrend/pkg/queue/nats"
	"github.com/tunogya/gametrend/pkg/store/duckdb"
)

// writer turns decoded messages into DuckDB rows
type writer struct {
	progress *duckdb.ProgressRepo
	reports  *duckdb.ReportRepo
}

func newWriter(c *duckdb.Client) *writer {
	return &writer{
		progress: duckdb.NewProgressRepo(c),
		reports:  duckdb.NewReportRepo(c),
	}
}

func (w *writer) handleProgress(ctx context.Context, data []byte) error {
	msg, err := nats.DecodeProgress(data)
	if err != nil {
		return nats.Permanent(fmt.Errorf("decode progress: %w", err))
	}
	if err := w.progress.Insert(ctx, msg.RunID, msg.Progress()); err != nil {
		logging.Error().Err(err).Str("run_id", msg.RunID).Msg("Failed to store progress")
		return err
	}
	logging.Debug().Str("run_id", msg.RunID).Int("epoch", msg.Epoch).Msg("Stored progress")
	return nil
}

func (w *writer) handleReport(ctx context.Context, data []byte) error {
	msg, err := nats.DecodeReport(data)
	if err != nil {
		return nats.Permanent(fmt.Errorf("decode report: %w", err))
	}
	if err := w.reports.Save(ctx, msg.Report()); err != nil {
		return fmt.Errorf("store report %s: %w", msg.RunID, err)
	}
	logging.Info().Str("run_id", msg.RunID).Int("platforms", len(msg.Ranking)).Msg("Stored report")
	return nil
}
