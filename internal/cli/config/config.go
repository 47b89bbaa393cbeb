package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appconfig "github.com/rustyeddy/volatility/internal/config"
	"github.com/rustyeddy/volatility/internal/logging"
	"github.com/rustyeddy/volatility/internal/metrics"
	"github.com/rustyeddy/volatility/internal/pipeline"
	"github.com/rustyeddy/volatility/internal/prices"
	"github.com/rustyeddy/volatility/internal/volatility"
)

// RootConfig carries the persistent flags and the loaded configuration to
// every subcommand.
type RootConfig struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
	LogFormat  string
	NoColor    bool
	Source     string

	App *appconfig.Config
}

// Load reads the env file, the config file (or defaults), applies env and
// flag overrides and sets up logging.
func (rc *RootConfig) Load(cmd *cobra.Command) error {
	if err := godotenv.Load(rc.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", rc.EnvFile, err)
	}

	cfg := appconfig.Default()
	if rc.ConfigPath != "" {
		loaded, err := appconfig.LoadFromFile(rc.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source.Name = rc.Source
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = rc.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = rc.LogFormat
	}
	if flags.Changed("no-color") {
		cfg.Log.NoColor = rc.NoColor
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	rc.App = cfg
	return logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.NoColor, cmd.ErrOrStderr())
}

// Config returns the loaded configuration, or defaults before Load ran.
func (rc *RootConfig) Config() *appconfig.Config {
	if rc.App == nil {
		rc.App = appconfig.Default()
	}
	return rc.App
}

// Pipeline builds the compute pipeline for the configured source. The
// returned close func releases the source.
func (rc *RootConfig) Pipeline(m *metrics.Registry) (*pipeline.Pipeline, func() error, error) {
	cfg := rc.Config()

	src, err := prices.New(cfg.Source)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return nil }
	if c, ok := src.(interface{ Close() error }); ok {
		closeFn = c.Close
	}

	timeout, err := cfg.Source.FetchTimeout()
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	p := pipeline.New(src)
	p.FetchTimeout = timeout
	p.Metrics = m
	p.Fitter = volatility.GJRGARCH{
		MaxIterations:   cfg.Model.MaxIterations,
		MinObservations: cfg.Model.MinObservations,
		Restarts:        cfg.Model.Restarts,
	}
	return p, closeFn, nil
}
