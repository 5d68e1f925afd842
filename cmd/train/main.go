// Command train aggregates yearly platform sales, trains the GRU trend
// classifier and prints the per-platform evaluation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tunogya/gametrend/pkg/config"
	"github.com/tunogya/gametrend/pkg/data"
	"github.com/tunogya/gametrend/pkg/logging"
	"github.com/tunogya/gametrend/pkg/metrics"
	"github.com/tunogya/gametrend/pkg/model"
	"github.com/tunogya/gametrend/pkg/pipeline"
)

// Flags override the loaded configuration when set
type Flags struct {
	ConfigPath  string
	CSVPath     string
	DuckDBPath  string
	Dataset     string
	NATSUrl     string
	MilvusAddr  string
	MetricsAddr string
	Epochs      int
	LogLevel    string
}

func main() {
	flags := parseFlags()

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logging.Init(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flags); err != nil {
		if errors.Is(err, model.ErrTrainingCancelled) {
			logging.Warn().Err(err).Msg("Training interrupted")
			os.Exit(130)
		}
		logging.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

func parseFlags() Flags {
	var f Flags

	flag.StringVar(&f.ConfigPath, "config", "", "YAML config file (default: $GAMETREND_CONFIG or ./gametrend.yaml)")
	flag.StringVar(&f.CSVPath, "csv", "", "vgsales CSV file (default: built-in sample)")
	flag.StringVar(&f.DuckDBPath, "duckdb", "", "DuckDB file to persist records, features and results")
	flag.StringVar(&f.Dataset, "dataset", "", "DuckDB dataset name for the records")
	flag.StringVar(&f.NATSUrl, "nats", "", "NATS server URL for progress publication")
	flag.StringVar(&f.MilvusAddr, "milvus", "", "Milvus address for the window index")
	flag.StringVar(&f.MetricsAddr, "metrics-addr", "", "Address for the Prometheus /metrics endpoint")
	flag.IntVar(&f.Epochs, "epochs", 0, "Training epochs (overrides config)")
	flag.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	flag.Parse()
	return f
}

func loadConfig(f Flags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.ConfigPath != "" {
		cfg, err = config.LoadFile(f.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if f.CSVPath != "" {
		cfg.Data.CSVPath = f.CSVPath
	}
	if f.DuckDBPath != "" {
		cfg.DuckDB.Path = f.DuckDBPath
	}
	if f.NATSUrl != "" {
		cfg.NATS.URL = f.NATSUrl
	}
	if f.MilvusAddr != "" {
		cfg.Milvus.Address = f.MilvusAddr
	}
	if f.MetricsAddr != "" {
		cfg.Metrics.Addr = f.MetricsAddr
	}
	if f.Epochs > 0 {
		cfg.Training.Epochs = f.Epochs
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	return cfg, cfg.Validate()
}

func provider(cfg *config.Config) data.RecordProvider {
	if cfg.Data.CSVPath == "" {
		return data.NewSampleProvider()
	}
	return data.NewCSVProvider(cfg.Data.CSVPath)
}

func run(ctx context.Context, cfg *config.Config, f Flags) error {
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logging.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	records, err := provider(cfg).FetchRecords(ctx, cfg.Filter())
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	fmt.Println(data.Summarize(records))

	p := pipeline.New(pipeline.FromConfig(cfg))
	defer p.Close()
	log := logging.With().Str("run_id", p.RunID()).Logger()

	sinks, err := openSinks(ctx, cfg, p.RunID())
	if err != nil {
		return err
	}
	defer sinks.Close()
	p.OnEpoch = func(pr model.Progress) {
		fmt.Println(pr)
		sinks.Progress(ctx, pr)
	}

	if err := p.Prepare(records); err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	if err := p.BuildModel(); err != nil {
		return fmt.Errorf("build model: %w", err)
	}
	fmt.Print(p.Model().Summary())

	history, err := p.Train(ctx)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	rep, err := p.Evaluate()
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	fmt.Print(rep)
	fmt.Print(rep.Timeline)

	forecast, err := p.Forecast()
	if err != nil {
		log.Warn().Err(err).Msg("Forecast unavailable")
	} else {
		fmt.Print(forecast)
	}

	dataset := f.Dataset
	if dataset == "" {
		dataset = p.RunID()
	}
	if err := sinks.Finish(ctx, dataset, records, p, history, rep); err != nil {
		return err
	}

	log.Info().Int("epochs", len(history)).Msg("Run complete")
	return nil
}
