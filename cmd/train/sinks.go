package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tunogya/gametrend/pkg/config"
	"github.com/tunogya/gametrend/pkg/logging"
	"github.com/tunogya/gametrend/pkg/model"
	"github.com/tunogya/gametrend/pkg/pipeline"
	"github.com/tunogya/gametrend/pkg/queue/nats"
	"github.com/tunogya/gametrend/pkg/store/duckdb"
	"github.com/tunogya/gametrend/pkg/store/milvus"
)

// sinks are the optional outputs of a run; each is nil when not configured
type sinks struct {
	cfg       *config.Config
	runID     string
	duck      *duckdb.Client
	natsConn  *nats.Client
	publisher *nats.Publisher
	milvus    *milvus.Client
}

func openSinks(ctx context.Context, cfg *config.Config, runID string) (*sinks, error) {
	s := &sinks{cfg: cfg, runID: runID}

	if cfg.DuckDB.Path != "" {
		c, err := duckdb.Open(cfg.DuckDB.Path)
		if err != nil {
			return nil, err
		}
		s.duck = c
		logging.Info().Str("path", cfg.DuckDB.Path).Msg("DuckDB ready")
	}

	if cfg.NATS.URL != "" {
		natsCfg := nats.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.StreamName = cfg.NATS.Stream
		c, err := nats.NewClient(natsCfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := c.CreateStream(ctx); err != nil {
			c.Close()
			s.Close()
			return nil, err
		}
		s.natsConn = c
		s.publisher = nats.NewPublisher(c, runID)
		logging.Info().Str("url", cfg.NATS.URL).Str("stream", natsCfg.StreamName).Msg("NATS stream ready")
	}

	if cfg.Milvus.Address != "" {
		c, err := milvus.NewClient(ctx, milvus.Config{Address: cfg.Milvus.Address})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.milvus = c
	}

	return s, nil
}

// Progress publishes one epoch; failures are logged and training continues
func (s *sinks) Progress(ctx context.Context, pr model.Progress) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishProgress(ctx, pr); err != nil {
		logging.Warn().Err(err).Int("epoch", pr.Epoch).Msg("Failed to publish progress")
	}
}

// Finish persists, publishes and indexes the results of a completed run
func (s *sinks) Finish(ctx context.Context, dataset string, records []model.SalesRecord, p *pipeline.Pipeline, history model.History, rep *pipeline.Report) error {
	var errs []error

	if s.duck != nil {
		if err := persist(ctx, s.duck, dataset, records, p, history, rep); err != nil {
			errs = append(errs, err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishReport(ctx, rep); err != nil {
			errs = append(errs, fmt.Errorf("publish report: %w", err))
		} else {
			logging.Info().Str("subject", nats.SubjectReport).Msg("Report published")
		}
	}

	if s.milvus != nil {
		n, err := s.milvus.IndexDataset(ctx, s.cfg.Milvus.Collection, p.Dataset(), s.runID)
		if err != nil {
			errs = append(errs, fmt.Errorf("index windows: %w", err))
		} else {
			logging.Info().Int("windows", n).Str("collection", s.cfg.Milvus.Collection).Msg("Windows indexed")
		}
	}

	return errors.Join(errs...)
}

func persist(ctx context.Context, c *duckdb.Client, dataset string, records []model.SalesRecord, p *pipeline.Pipeline, history model.History, rep *pipeline.Report) error {
	if err := duckdb.NewSalesRepo(c).Replace(ctx, dataset, records); err != nil {
		return fmt.Errorf("persist records: %w", err)
	}
	if err := duckdb.NewFeatureRepo(c).SaveSeries(ctx, p.RunID(), p.Series()); err != nil {
		return fmt.Errorf("persist features: %w", err)
	}
	if err := duckdb.NewProgressRepo(c).InsertBatch(ctx, p.RunID(), history); err != nil {
		return fmt.Errorf("persist progress: %w", err)
	}
	if err := duckdb.NewReportRepo(c).Save(ctx, rep); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}
	logging.Info().
		Str("dataset", dataset).
		Int("records", len(records)).
		Int("epochs", len(history)).
		Msg("Run persisted to DuckDB")
	return nil
}

func (s *sinks) Close() {
	if s.milvus != nil {
		s.milvus.Close()
	}
	if s.natsConn != nil {
		s.natsConn.Close()
	}
	if s.duck != nil {
		s.duck.Close()
	}
}
