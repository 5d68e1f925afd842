// Package config loads pipeline settings from defaults, an optional YAML
// file and GAMETREND_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tunogya/gametrend/pkg/data"
	"github.com/tunogya/gametrend/pkg/feature"
	"github.com/tunogya/gametrend/pkg/gru"
	"github.com/tunogya/gametrend/pkg/logging"
	"github.com/tunogya/gametrend/pkg/window"
)

// Config is the full set of tunables for a pipeline run
type Config struct {
	Data     DataConfig     `koanf:"data"`
	Features FeaturesConfig `koanf:"features"`
	Model    ModelConfig    `koanf:"model"`
	Training TrainingConfig `koanf:"training"`
	DuckDB   DuckDBConfig   `koanf:"duckdb"`
	NATS     NATSConfig     `koanf:"nats"`
	Milvus   MilvusConfig   `koanf:"milvus"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Logging  logging.Config `koanf:"logging"`
}

// DataConfig selects and filters the input records
type DataConfig struct {
	CSVPath   string   `koanf:"csv_path"` // empty uses the built-in sample
	Platforms []string `koanf:"platforms"`
	YearFrom  int      `koanf:"year_from"`
	YearTo    int      `koanf:"year_to"`
	KnownYear bool     `koanf:"known_year"`
}

// FeaturesConfig controls aggregation and windowing
type FeaturesConfig struct {
	PlatformCount  int     `koanf:"platform_count"`
	SequenceLength int     `koanf:"sequence_length"`
	Horizon        int     `koanf:"horizon"`
	SplitFraction  float64 `koanf:"split_fraction"`
	FeatureVersion int     `koanf:"feature_version"`
	Normalize      bool    `koanf:"normalize"`
}

// ModelConfig holds the network hyperparameters
type ModelConfig struct {
	Units        []int   `koanf:"units"`
	DropoutRate  float64 `koanf:"dropout_rate"`
	LearningRate float64 `koanf:"learning_rate"`
	Seed         int64   `koanf:"seed"`
}

// TrainingConfig holds the per-call training options
type TrainingConfig struct {
	Epochs    int  `koanf:"epochs"`
	BatchSize int  `koanf:"batch_size"`
	Shuffle   bool `koanf:"shuffle"`
}

// DuckDBConfig enables persistence when Path is set
type DuckDBConfig struct {
	Path string `koanf:"path"`
}

// NATSConfig enables progress publication when URL is set
type NATSConfig struct {
	URL     string `koanf:"url"`
	Stream  string `koanf:"stream"`
	Durable string `koanf:"durable"`
}

// MilvusConfig enables the window index when Address is set
type MilvusConfig struct {
	Address    string `koanf:"address"`
	Collection string `koanf:"collection"`
	TopK       int    `koanf:"top_k"`
}

// MetricsConfig enables the /metrics endpoint when Addr is set
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

func defaultConfig() *Config {
	return &Config{
		Features: FeaturesConfig{
			PlatformCount:  feature.DefaultPlatformCount,
			SequenceLength: 3,
			Horizon:        2,
			SplitFraction:  0.8,
			FeatureVersion: 1,
		},
		Model: ModelConfig{
			Units:        []int{32, 16},
			DropoutRate:  0.2,
			LearningRate: 0.001,
			Seed:         42,
		},
		Training: TrainingConfig{
			Epochs:    50,
			BatchSize: 8,
			Shuffle:   true,
		},
		NATS: NATSConfig{
			Stream:  "GAMETREND",
			Durable: "gametrend-writer",
		},
		Milvus: MilvusConfig{
			Collection: "gametrend_windows",
			TopK:       5,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the default configuration
func Default() *Config {
	return defaultConfig()
}

// Validate checks ranges that defaults cannot repair
func (c *Config) Validate() error {
	var errs []error
	f := c.Features
	if f.PlatformCount <= 0 {
		errs = append(errs, fmt.Errorf("features.platform_count must be positive, got %d", f.PlatformCount))
	}
	if f.SequenceLength <= 0 {
		errs = append(errs, fmt.Errorf("features.sequence_length must be positive, got %d", f.SequenceLength))
	}
	if f.Horizon <= 0 {
		errs = append(errs, fmt.Errorf("features.horizon must be positive, got %d", f.Horizon))
	}
	if f.SplitFraction <= 0 || f.SplitFraction > 1 {
		errs = append(errs, fmt.Errorf("features.split_fraction must be in (0, 1], got %v", f.SplitFraction))
	}

	m := c.Model
	if len(m.Units) != 2 || m.Units[0] <= 0 || m.Units[1] <= 0 {
		errs = append(errs, fmt.Errorf("model.units must hold two positive widths, got %v", m.Units))
	}
	if m.DropoutRate < 0 || m.DropoutRate >= 1 {
		errs = append(errs, fmt.Errorf("model.dropout_rate must be in [0, 1), got %v", m.DropoutRate))
	}
	if m.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("model.learning_rate must be positive, got %v", m.LearningRate))
	}

	if c.Training.Epochs <= 0 {
		errs = append(errs, fmt.Errorf("training.epochs must be positive, got %d", c.Training.Epochs))
	}
	if c.Training.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("training.batch_size must be positive, got %d", c.Training.BatchSize))
	}
	if c.Data.YearFrom != 0 && c.Data.YearTo != 0 && c.Data.YearFrom > c.Data.YearTo {
		errs = append(errs, fmt.Errorf("data.year_from %d is after data.year_to %d", c.Data.YearFrom, c.Data.YearTo))
	}
	if c.Milvus.Address != "" && c.Milvus.TopK <= 0 {
		errs = append(errs, fmt.Errorf("milvus.top_k must be positive, got %d", c.Milvus.TopK))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// Window returns the windowing configuration
func (c *Config) Window() window.Config {
	return window.Config{
		SequenceLength: c.Features.SequenceLength,
		Horizon:        c.Features.Horizon,
		SplitFraction:  c.Features.SplitFraction,
		FeatureVersion: c.Features.FeatureVersion,
		Normalize:      c.Features.Normalize,
	}
}

// GRU returns the model configuration
func (c *Config) GRU() gru.Config {
	cfg := gru.DefaultConfig()
	if len(c.Model.Units) == 2 {
		cfg.Units = [2]int{c.Model.Units[0], c.Model.Units[1]}
	}
	cfg.DropoutRate = c.Model.DropoutRate
	if cfg.DropoutRate == 0 {
		cfg.DropoutRate = gru.NoDropout
	}
	cfg.LearningRate = c.Model.LearningRate
	cfg.Seed = c.Model.Seed
	return cfg
}

// TrainOptions returns the options for one training call
func (c *Config) TrainOptions() gru.TrainOptions {
	return gru.TrainOptions{
		Epochs:    c.Training.Epochs,
		BatchSize: c.Training.BatchSize,
		NoShuffle: !c.Training.Shuffle,
	}
}

// Filter returns the record filter of the data section
func (c *Config) Filter() data.Filter {
	return data.Filter{
		Platforms: c.Data.Platforms,
		YearFrom:  c.Data.YearFrom,
		YearTo:    c.Data.YearTo,
		KnownYear: c.Data.KnownYear,
	}
}
