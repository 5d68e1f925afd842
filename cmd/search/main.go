// Command search finds the stored history windows most similar to the
// latest years of a persisted run and shows what followed them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tunogya/gametrend/pkg/config"
	"github.com/tunogya/gametrend/pkg/feature"
	"github.com/tunogya/gametrend/pkg/logging"
	"github.com/tunogya/gametrend/pkg/model"
	"github.com/tunogya/gametrend/pkg/rerank"
	"github.com/tunogya/gametrend/pkg/store/duckdb"
	"github.com/tunogya/gametrend/pkg/store/milvus"
	"github.com/tunogya/gametrend/pkg/window"
)

// Options holds search configuration
type Options struct {
	ConfigPath string
	DuckDBPath string
	MilvusAddr string
	RunID      string
	TopK       int
	Segments   bool
}

func main() {
	opts := parseFlags()

	cfg, err := load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if opts.DuckDBPath != "" {
		cfg.DuckDB.Path = opts.DuckDBPath
	}
	if opts.MilvusAddr != "" {
		cfg.Milvus.Address = opts.MilvusAddr
	}
	if opts.TopK > 0 {
		cfg.Milvus.TopK = opts.TopK
	}
	logging.Init(cfg.Logging)

	if cfg.DuckDB.Path == "" {
		fmt.Fprintln(os.Stderr, "Usage: search -duckdb <path> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		logging.Error().Err(err).Msg("Search failed")
		os.Exit(1)
	}
}

func parseFlags() Options {
	var o Options

	flag.StringVar(&o.ConfigPath, "config", "", "YAML config file")
	flag.StringVar(&o.DuckDBPath, "duckdb", "", "DuckDB path holding persisted runs")
	flag.StringVar(&o.MilvusAddr, "milvus", "", "Milvus address (default localhost:19530)")
	flag.StringVar(&o.RunID, "run", "", "Run to search (default: latest persisted run)")
	flag.IntVar(&o.TopK, "topk", 0, "Number of similar windows")
	flag.BoolVar(&o.Segments, "segments", false, "Use step weights instead of exponential recency decay")

	flag.Parse()
	return o
}

func load(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(ctx context.Context, cfg *config.Config, opts Options) error {
	duckClient, err := duckdb.Open(cfg.DuckDB.Path)
	if err != nil {
		return err
	}
	defer duckClient.Close()

	features := duckdb.NewFeatureRepo(duckClient)
	runID := opts.RunID
	if runID == "" {
		if runID, err = features.LatestRun(ctx); err != nil {
			return err
		}
	}
	series, err := features.LoadSeries(ctx, runID)
	if err != nil {
		return fmt.Errorf("load features of run %s: %w", runID, err)
	}

	wcfg := cfg.Window()
	if stored, err := duckdb.NewReportRepo(duckClient).GetRun(ctx, runID); err == nil {
		wcfg.Horizon = stored.Horizon
	}

	// rebuilding the dataset reproduces the window IDs and scaling of the run
	ds, err := window.Build(series.Rows, series.Platforms, wcfg)
	if err != nil {
		return fmt.Errorf("rebuild windows: %w", err)
	}
	defer ds.Release()

	latest, err := ds.Latest(series.Rows)
	if err != nil {
		return err
	}
	latestYear := series.Rows[len(series.Rows)-1].Year
	logging.Info().
		Str("run_id", runID).
		Int("latest_year", latestYear).
		Int("windows", ds.WindowCount()).
		Msg("Built query window")

	milvusClient, err := milvus.NewClient(ctx, milvus.Config{Address: cfg.Milvus.Address})
	if err != nil {
		return err
	}
	defer milvusClient.Close()

	collection := cfg.Milvus.Collection
	if collection == "" {
		collection = milvus.DefaultCollectionName
	}
	if err := milvusClient.LoadCollection(ctx, collection); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}

	results, err := milvusClient.Search(ctx, collection, milvus.Embedding(latest), milvus.RunFilter(runID), cfg.Milvus.TopK)
	if err != nil {
		return err
	}

	recency := rerank.DefaultRecencyConfig()
	if opts.Segments {
		recency = rerank.SegmentConfig()
	}
	ranked := rerank.NewReranker(recency).Rerank(results, latestYear)

	byID := make(map[string]*model.Window, len(ds.Windows))
	for _, w := range ds.Windows {
		byID[w.WindowID] = w
	}

	fmt.Printf("Windows most similar to %d-%d (run %s)\n", latestYear-wcfg.SequenceLength+1, latestYear, runID)
	fmt.Printf("%-5s %-8s %-6s %-8s %-8s %s\n", "Rank", "Anchor", "Split", "Sim", "Score", "Followed by")
	for i, r := range ranked {
		fmt.Printf("%-5d %-8d %-6s %-8.4f %-8.4f %s\n",
			i+1, r.AnchorYear, r.Split, r.Score, r.FinalScore, outcome(byID[r.WindowID], ds.Layout))
	}
	return nil
}

// outcome renders the label of w as one up/down run per platform
func outcome(w *model.Window, layout feature.Layout) string {
	if w == nil {
		return "(window not in rebuilt dataset)"
	}
	parts := make([]string, len(layout.Platforms))
	for p, name := range layout.Platforms {
		var b strings.Builder
		for o := 0; o < layout.Horizon; o++ {
			if w.Label[layout.LabelIndex(p, o)] == 1 {
				b.WriteByte('+')
			} else {
				b.WriteByte('-')
			}
		}
		parts[p] = name + ":" + b.String()
	}
	return strings.Join(parts, " ")
}
