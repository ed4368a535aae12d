package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Default DWD open-data locations for the daily climate (KL) product.
const (
	DefaultHistoricalURL = "https://opendata.dwd.de/climate_environment/CDC/observations_germany/climate/daily/kl/historical/"
	DefaultRecentURL     = "https://opendata.dwd.de/climate_environment/CDC/observations_germany/climate/daily/kl/recent/"
)

// YAMLProvider implements Provider for YAML configuration files, with
// environment variables (optionally from a .env file) overriding selected
// fields.
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from the YAML file, applies
// environment overrides, and fills in defaults.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	cfg := &ConfigData{}
	if err := yaml.Unmarshal(cfgFile, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", y.filename, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if cfg.StationsFile == "" {
		return nil, fmt.Errorf("stations_file must be set in %s", y.filename)
	}

	return cfg, nil
}

// Close is a no-op for the YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// applyEnvOverrides overlays environment variables onto the loaded config.
// A .env file in the working directory is honored when present.
func applyEnvOverrides(cfg *ConfigData) {
	_ = godotenv.Load()

	if v := os.Getenv("RETROWETTER_STATIONS_FILE"); v != "" {
		cfg.StationsFile = v
	}
	if v := os.Getenv("RETROWETTER_HISTORICAL_URL"); v != "" {
		cfg.DWD.HistoricalURL = v
	}
	if v := os.Getenv("RETROWETTER_RECENT_URL"); v != "" {
		cfg.DWD.RecentURL = v
	}
	if v := os.Getenv("RETROWETTER_DATABASE"); v != "" {
		cfg.Cache.Database = v
	}
	if v := os.Getenv("RETROWETTER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Port = port
		}
	}
}

func applyDefaults(cfg *ConfigData) {
	if cfg.DWD.HistoricalURL == "" {
		cfg.DWD.HistoricalURL = DefaultHistoricalURL
	}
	if cfg.DWD.RecentURL == "" {
		cfg.DWD.RecentURL = DefaultRecentURL
	}
	if cfg.DWD.Timeout == 0 {
		cfg.DWD.Timeout = Duration(60 * time.Second)
	}
}
