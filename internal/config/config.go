// Package config loads server configuration from a YAML file, with
// secrets overridable from the environment (a .env file is honored
// when present).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"airline_recovery/internal/api"
	"airline_recovery/internal/logging"
	"airline_recovery/internal/storage"
	"airline_recovery/internal/stream"
)

// Config is the top-level server configuration.
type Config struct {
	ScenarioDB string         `yaml:"scenario_db"` // path to the SQLite scenario store
	API        api.Config     `yaml:"api"`
	Storage    storage.Config `yaml:"storage"`
	Stream     stream.Config  `yaml:"stream"`
	Logging    logging.Config `yaml:"logging"`

	// PersistRuns enables the Postgres write-through sink.
	PersistRuns bool `yaml:"persist_runs"`
}

// Load reads the config file named by CONFIG_FILE (default
// config.yaml) and applies environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	cfg := &Config{
		ScenarioDB: "scenarios.db",
		API:        api.Config{Port: 8080},
		Storage:    storage.DefaultConfig(),
		Stream:     stream.DefaultConfig(),
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", configFile, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", configFile, err)
	}

	if v := os.Getenv("SCENARIO_DB"); v != "" {
		cfg.ScenarioDB = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Storage.Postgres.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		cfg.Storage.ClickHouse.Password = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.Stream.URL = v
	}
	if v := os.Getenv("API_KEYS"); v != "" {
		cfg.API.APIKeys = strings.Split(v, ",")
		cfg.API.AuthEnabled = true
	}

	return cfg, nil
}
