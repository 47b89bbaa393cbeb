package data

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/volatility/internal/cli/config"
)

// New returns the data command group.
func New(rc *config.RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Price dataset tools",
	}

	cmd.AddCommand(
		newYahooCmd(rc),
		newImportCmd(rc),
		newListCmd(rc),
	)

	return cmd
}

func dbPath(rc *config.RootConfig, flag string) string {
	if flag != "" {
		return flag
	}
	return rc.Config().Source.DBPath
}
