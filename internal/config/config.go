package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures the settings required to run the experiment workflow.
type Config struct {
	Experiment ExperimentConfig `yaml:"experiment"`
	Inference  InferenceConfig  `yaml:"inference"`
	Simulation SimulationConfig `yaml:"simulation"`
	Decision   DecisionConfig   `yaml:"decision"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ExperimentConfig controls the workflow loop.
type ExperimentConfig struct {
	Runs       int `yaml:"runs"`
	SampleSize int `yaml:"sampleSize"`
}

// InferenceConfig controls the Bayesian engine.
type InferenceConfig struct {
	Samples       int    `yaml:"samples"`
	Tune          int    `yaml:"tune"`
	FallbackDraws int    `yaml:"fallbackDraws"`
	BackendMode   string `yaml:"backendMode"`
}

// SimulationConfig controls the user-response simulator.
type SimulationConfig struct {
	BaseRate float64 `yaml:"baseRate"`
	// Seed pins all random sources for reproducible runs; zero leaves them
	// unseeded.
	Seed uint64 `yaml:"seed"`
}

// DecisionConfig holds the ship policy thresholds.
type DecisionConfig struct {
	ShipThreshold     float64 `yaml:"shipThreshold"`
	RollbackThreshold float64 `yaml:"rollbackThreshold"`
}

// StorageConfig controls experiment history persistence.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig controls the optional Prometheus endpoint.
type ServerConfig struct {
	MetricsAddress string `yaml:"metricsAddress"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from an optional YAML file, a .env file when
// present, and environment overrides.
func Load(path string) (*Config, error) {
	// A .env file is optional; missing is fine.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("LIFT_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Experiment: ExperimentConfig{
			Runs:       1,
			SampleSize: 1000,
		},
		Inference: InferenceConfig{
			Samples:       2000,
			Tune:          1000,
			FallbackDraws: 10000,
			BackendMode:   "fast-run",
		},
		Simulation: SimulationConfig{BaseRate: 0.08},
		Decision: DecisionConfig{
			ShipThreshold:     0.95,
			RollbackThreshold: 0.60,
		},
		Storage: StorageConfig{Path: "lift-engine.db"},
		Server:  ServerConfig{MetricsAddress: ""},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LIFT_ENGINE_RUNS"); v != "" {
		if runs, err := strconv.Atoi(v); err == nil {
			cfg.Experiment.Runs = runs
		}
	}
	if v := os.Getenv("LIFT_ENGINE_SAMPLE_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.Experiment.SampleSize = size
		}
	}
	if v := os.Getenv("LIFT_ENGINE_SAMPLES"); v != "" {
		if samples, err := strconv.Atoi(v); err == nil {
			cfg.Inference.Samples = samples
		}
	}
	if v := os.Getenv("LIFT_ENGINE_TUNE"); v != "" {
		if tune, err := strconv.Atoi(v); err == nil {
			cfg.Inference.Tune = tune
		}
	}
	if v := os.Getenv("LIFT_ENGINE_FALLBACK_DRAWS"); v != "" {
		if draws, err := strconv.Atoi(v); err == nil {
			cfg.Inference.FallbackDraws = draws
		}
	}
	if v := os.Getenv("LIFT_ENGINE_BACKEND_MODE"); v != "" {
		cfg.Inference.BackendMode = v
	}
	if v := os.Getenv("LIFT_ENGINE_BASE_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Simulation.BaseRate = rate
		}
	}
	if v := os.Getenv("LIFT_ENGINE_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Simulation.Seed = seed
		}
	}
	if v := os.Getenv("LIFT_ENGINE_SHIP_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Decision.ShipThreshold = threshold
		}
	}
	if v := os.Getenv("LIFT_ENGINE_ROLLBACK_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Decision.RollbackThreshold = threshold
		}
	}
	if v := os.Getenv("LIFT_ENGINE_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("LIFT_ENGINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("LIFT_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LIFT_ENGINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
