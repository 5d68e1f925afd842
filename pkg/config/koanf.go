package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when no path is given
var DefaultConfigPaths = []string{
	"gametrend.yaml",
	"gametrend.yml",
}

// ConfigPathEnvVar names the environment variable holding the config file path
const ConfigPathEnvVar = "GAMETREND_CONFIG"

const envPrefix = "GAMETREND_"

// Load layers defaults, the config file and the environment, then validates
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file path; empty skips the file layer
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps lower-cased variable names, prefix stripped, to koanf paths
var envMappings = map[string]string{
	"csv":                      "data.csv_path",
	"data_csv_path":            "data.csv_path",
	"data_platforms":           "data.platforms",
	"data_year_from":           "data.year_from",
	"data_year_to":             "data.year_to",
	"data_known_year":          "data.known_year",
	"features_platform_count":  "features.platform_count",
	"features_sequence_length": "features.sequence_length",
	"features_horizon":         "features.horizon",
	"features_split_fraction":  "features.split_fraction",
	"features_feature_version": "features.feature_version",
	"features_normalize":       "features.normalize",
	"model_units":              "model.units",
	"model_dropout_rate":       "model.dropout_rate",
	"model_learning_rate":      "model.learning_rate",
	"model_seed":               "model.seed",
	"training_epochs":          "training.epochs",
	"training_batch_size":      "training.batch_size",
	"training_shuffle":         "training.shuffle",
	"duckdb_path":              "duckdb.path",
	"nats_url":                 "nats.url",
	"nats_stream":              "nats.stream",
	"nats_durable":             "nats.durable",
	"milvus_address":           "milvus.address",
	"milvus_collection":        "milvus.collection",
	"milvus_top_k":             "milvus.top_k",
	"metrics_addr":             "metrics.addr",
	"log_level":                "logging.level",
	"log_format":               "logging.format",
	"log_caller":               "logging.caller",
}

// envTransformFunc maps GAMETREND_TRAINING_EPOCHS to training.epochs.
// Unknown variables, including GAMETREND_CONFIG, are ignored.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return envMappings[key]
}

var sliceConfigPaths = []string{
	"data.platforms",
}

var intSliceConfigPaths = []string{
	"model.units",
}

// processSliceFields splits comma-separated env values for slice fields
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		if parts, ok := splitString(k.Get(path)); ok {
			if err := k.Set(path, parts); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	for _, path := range intSliceConfigPaths {
		parts, ok := splitString(k.Get(path))
		if !ok {
			continue
		}
		ints := make([]int, len(parts))
		for i, p := range parts {
			v, err := strconv.Atoi(p)
			if err != nil {
				return fmt.Errorf("invalid %s entry %q: %w", path, p, err)
			}
			ints[i] = v
		}
		if err := k.Set(path, ints); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func splitString(val any) ([]string, bool) {
	s, ok := val.(string)
	if !ok || s == "" {
		return nil, false
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, len(out) > 0
}
