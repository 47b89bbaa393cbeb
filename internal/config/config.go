package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Source SourceConfig `json:"source" yaml:"source"`
	Model  ModelConfig  `json:"model" yaml:"model"`
	Server ServerConfig `json:"server" yaml:"server"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// SourceConfig selects and tunes the price backend
type SourceConfig struct {
	Name      string  `json:"name" yaml:"name"` // yahoo, tradier, csv or sqlite
	Timeout   string  `json:"timeout" yaml:"timeout"`
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"` // requests per second
	Burst     int     `json:"burst" yaml:"burst"`

	BreakerFailures int    `json:"breaker_failures" yaml:"breaker_failures"`
	BreakerTimeout  string `json:"breaker_timeout" yaml:"breaker_timeout"`

	YahooURL   string `json:"yahoo_url,omitempty" yaml:"yahoo_url,omitempty"`
	TradierURL string `json:"tradier_url,omitempty" yaml:"tradier_url,omitempty"`
	TradierKey string `json:"tradier_key,omitempty" yaml:"tradier_key,omitempty"`
	CSVDir     string `json:"csv_dir,omitempty" yaml:"csv_dir,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ModelConfig contains estimator parameters
type ModelConfig struct {
	Window          int `json:"window" yaml:"window"`
	MaxIterations   int `json:"max_iterations" yaml:"max_iterations"`
	MinObservations int `json:"min_observations" yaml:"min_observations"`
	Restarts        int `json:"restarts" yaml:"restarts"`
}

// ServerConfig contains HTTP dashboard parameters
type ServerConfig struct {
	Addr         string `json:"addr" yaml:"addr"`
	ReadTimeout  string `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout string `json:"write_timeout" yaml:"write_timeout"`
}

// LogConfig contains logging parameters
type LogConfig struct {
	Level   string `json:"level" yaml:"level"`
	Format  string `json:"format" yaml:"format"` // console or json
	NoColor bool   `json:"no_color" yaml:"no_color"`
}

// FetchTimeout parses source.timeout.
func (s SourceConfig) FetchTimeout() (time.Duration, error) {
	return parseDuration(s.Timeout)
}

// OpenTimeout parses source.breaker_timeout.
func (s SourceConfig) OpenTimeout() (time.Duration, error) {
	return parseDuration(s.BreakerTimeout)
}

// Timeouts parses the server read and write timeouts.
func (s ServerConfig) Timeouts() (read, write time.Duration, err error) {
	if read, err = parseDuration(s.ReadTimeout); err != nil {
		return 0, 0, err
	}
	if write, err = parseDuration(s.WriteTimeout); err != nil {
		return 0, 0, err
	}
	return read, write, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON).
// Fields missing from the file keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("VOLATILITY_SOURCE"); v != "" {
		c.Source.Name = v
	}
	if v := os.Getenv("TRADIER_KEY"); v != "" {
		c.Source.TradierKey = v
	}
	if v := os.Getenv("VOLATILITY_DB"); v != "" {
		c.Source.DBPath = v
	}
	if v := os.Getenv("VOLATILITY_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Source.Name {
	case "yahoo", "tradier", "csv", "sqlite":
	default:
		return fmt.Errorf("source.name must be one of yahoo, tradier, csv, sqlite (got %q)", c.Source.Name)
	}
	if d, err := c.Source.FetchTimeout(); err != nil || d <= 0 {
		return fmt.Errorf("source.timeout must be a positive duration")
	}
	if c.Source.RateLimit < 0 {
		return fmt.Errorf("source.rate_limit must not be negative")
	}
	if _, err := c.Source.OpenTimeout(); err != nil {
		return fmt.Errorf("source.breaker_timeout: %w", err)
	}
	if c.Source.Name == "tradier" && c.Source.TradierKey == "" {
		return fmt.Errorf("source.tradier_key required for tradier source")
	}
	if c.Source.Name == "csv" && c.Source.CSVDir == "" {
		return fmt.Errorf("source.csv_dir required for csv source")
	}
	if c.Source.Name == "sqlite" && c.Source.DBPath == "" {
		return fmt.Errorf("source.db_path required for sqlite source")
	}
	if c.Model.Window <= 0 {
		return fmt.Errorf("model.window must be positive")
	}
	if c.Model.MaxIterations < 0 || c.Model.MinObservations < 0 || c.Model.Restarts < 0 {
		return fmt.Errorf("model limits must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, _, err := c.Server.Timeouts(); err != nil {
		return fmt.Errorf("server timeouts: %w", err)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Name:            "yahoo",
			Timeout:         "30s",
			RateLimit:       2,
			Burst:           1,
			BreakerFailures: 3,
			BreakerTimeout:  "60s",
			YahooURL:        "https://query1.finance.yahoo.com",
			TradierURL:      "https://api.tradier.com",
			CSVDir:          "./data",
			DBPath:          "./prices.db",
		},
		Model: ModelConfig{
			Window:          22,
			MaxIterations:   20000,
			MinObservations: 30,
			Restarts:        2,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  "15s",
			WriteTimeout: "120s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
