package configure

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/volatility/internal/cli/config"
	appconfig "github.com/rustyeddy/volatility/internal/config"
)

// New returns the config command group.
func New(rc *config.RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  volatility config init --output volatility.yaml
  volatility config validate --file volatility.yaml`,
	}

	cmd.AddCommand(newInitCmd(), newValidateCmd(rc))

	return cmd
}

func newInitCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appconfig.Default()
			if err := cfg.SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created default configuration: %s\n", output)
			fmt.Fprintln(out, "\nEdit the file and run with:")
			fmt.Fprintf(out, "  volatility --config %s calc PETR4.SA\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "volatility.yaml", "output config file path")

	return cmd
}

func newValidateCmd(rc *config.RootConfig) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = rc.ConfigPath
			}
			if path == "" {
				return fmt.Errorf("missing --file (or --config)")
			}
			cfg, err := appconfig.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration valid: %s\n", path)
			fmt.Fprintf(out, "  Source: %s (timeout %s)\n", cfg.Source.Name, cfg.Source.Timeout)
			fmt.Fprintf(out, "  Model: window %d, max iterations %d\n", cfg.Model.Window, cfg.Model.MaxIterations)
			fmt.Fprintf(out, "  Server: %s\n", cfg.Server.Addr)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "path to config file (default: --config)")

	return cmd
}
