package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/volatility/internal/cli/calc"
	"github.com/rustyeddy/volatility/internal/cli/config"
	"github.com/rustyeddy/volatility/internal/cli/configure"
	"github.com/rustyeddy/volatility/internal/cli/data"
	"github.com/rustyeddy/volatility/internal/cli/serve"
)

// Version is set at build time with -ldflags.
var Version = "dev"

func NewRootCmd() *cobra.Command {
	rc := &config.RootConfig{}

	cmd := &cobra.Command{
		Use:           "volatility",
		Short:         "Historical and GJR-GARCH volatility for a ticker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.EnvFile, "env-file", ".env", "dotenv file to load if present")
	cmd.PersistentFlags().StringVar(&rc.Source, "source", "", "Price source: yahoo|tradier|csv|sqlite")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.LogFormat, "log-format", "console", "Log format: console|json")
	cmd.PersistentFlags().BoolVar(&rc.NoColor, "no-color", false, "Disable colored output")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rc.Load(cmd)
	}

	// Subcommands
	cmd.AddCommand(
		calc.New(rc),
		serve.New(rc),
		data.New(rc),
		configure.New(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "volatility (%s)\n", Version)
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
