// Package config defines the application configuration model and its
// providers.
package config

import "time"

// Duration wraps time.Duration so that YAML values like "30s" or "12h"
// parse directly into config fields.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for duration strings
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// AsDuration returns the wrapped time.Duration.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// Provider defines the interface for configuration data sources
type Provider interface {
	// LoadConfig loads the complete configuration
	LoadConfig() (*ConfigData, error)

	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	// StationsFile is the path to the local DWD station reference file.
	StationsFile string    `yaml:"stations_file"`
	HTTP         HTTPData  `yaml:"http,omitempty"`
	DWD          DWDData   `yaml:"dwd,omitempty"`
	Cache        CacheData `yaml:"cache,omitempty"`
}

// HTTPData holds configuration for the REST server
type HTTPData struct {
	ListenAddr  string `yaml:"listen_addr,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	TLSCertPath string `yaml:"tls_cert_path,omitempty"`
	TLSKeyPath  string `yaml:"tls_key_path,omitempty"`
}

// DWDData holds configuration for the remote DWD open-data endpoints
type DWDData struct {
	// HistoricalURL is the directory listing that carries the
	// tageswerte_KL_<id>_<from>_<to>_hist.zip archives.
	HistoricalURL string `yaml:"historical_url,omitempty"`
	// RecentURL is the directory that carries the tageswerte_KL_<id>_akt.zip
	// archives, tried when no historical archive exists for a station.
	RecentURL string   `yaml:"recent_url,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty"`
}

// CacheData holds configuration for the series cache layers
type CacheData struct {
	// Database is the path of the SQLite file backing the on-disk cache.
	// Empty disables persistence; the in-memory cache still operates.
	Database string `yaml:"database,omitempty"`
	// RefreshInterval, when set, re-fetches every cached station's series on
	// that interval. Zero disables the refresh job.
	RefreshInterval Duration `yaml:"refresh_interval,omitempty"`
}
