// Command writer consumes training progress and evaluation reports from
// JetStream and persists them to DuckDB.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tunogya/gametrend/pkg/config"
	"github.com/tunogya/gametrend/pkg/logging"
	"github.com/tunogya/gametrend/pkg/queue/nats"
	"github.com/tunogya/gametrend/pkg/store/duckdb"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	natsURL := flag.String("nats", "", "NATS server URL (default nats://localhost:4222)")
	duckPath := flag.String("duckdb", "", "DuckDB file path (default gametrend.duckdb)")
	flag.Parse()

	cfg, err := load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *natsURL != "" {
		cfg.NATS.URL = *natsURL
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = nats.DefaultConfig().URL
	}
	if *duckPath != "" {
		cfg.DuckDB.Path = *duckPath
	}
	if cfg.DuckDB.Path == "" {
		cfg.DuckDB.Path = "gametrend.duckdb"
	}
	logging.Init(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("Writer failed")
		os.Exit(1)
	}
}

func load(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(ctx context.Context, cfg *config.Config) error {
	logging.Info().Str("nats", cfg.NATS.URL).Str("duckdb", cfg.DuckDB.Path).Msg("Starting writer")

	duckClient, err := duckdb.Open(cfg.DuckDB.Path)
	if err != nil {
		return err
	}
	defer duckClient.Close()

	w := newWriter(duckClient)

	natsCfg := nats.DefaultConfig()
	natsCfg.URL = cfg.NATS.URL
	natsCfg.StreamName = cfg.NATS.Stream
	natsClient, err := nats.NewClient(natsCfg)
	if err != nil {
		return err
	}
	defer natsClient.Close()

	if err := natsClient.CreateStream(ctx); err != nil {
		return err
	}

	progressConsumer, err := natsClient.Subscribe(ctx, nats.SubjectProgress, cfg.NATS.Durable+"-progress", func(data []byte) error {
		return w.handleProgress(ctx, data)
	})
	if err != nil {
		return fmt.Errorf("subscribe to progress: %w", err)
	}
	defer progressConsumer.Stop()

	reportConsumer, err := natsClient.Subscribe(ctx, nats.SubjectReport, cfg.NATS.Durable+"-report", func(data []byte) error {
		return w.handleReport(ctx, data)
	})
	if err != nil {
		return fmt.Errorf("subscribe to reports: %w", err)
	}
	defer reportConsumer.Stop()

	logging.Info().Msg("Writer started, waiting for messages")
	<-ctx.Done()
	logging.Info().Msg("Shutting down writer")
	return nil
}
