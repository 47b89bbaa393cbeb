package data

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/volatility/internal/cli/config"
	"github.com/rustyeddy/volatility/internal/prices"
)

func newImportCmd(rc *config.RootConfig) *cobra.Command {
	var (
		ticker  string
		csvPath string
		db      string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a date,adj_close CSV into the SQLite price store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if csvPath == "" {
				return fmt.Errorf("missing --csv")
			}
			if ticker == "" {
				// VALE3.SA.csv -> VALE3.SA
				ticker = strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
			}

			f, err := os.Open(csvPath)
			if err != nil {
				return err
			}
			defer f.Close()

			series, err := prices.ReadCSV(f)
			if err != nil {
				return fmt.Errorf("%s: %w", csvPath, err)
			}

			store, err := prices.OpenSQLite(dbPath(rc, db))
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Import(context.Background(), ticker, series)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d prices for %s into %s\n", n, ticker, dbPath(rc, db))
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "Ticker to store under (default: CSV file name)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Input CSV path")
	cmd.Flags().StringVar(&db, "db", "", "SQLite price store (default from config)")

	return cmd
}
