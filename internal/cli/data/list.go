package data

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/volatility/internal/cli/config"
	"github.com/rustyeddy/volatility/internal/prices"
	"github.com/rustyeddy/volatility/market"
)

func newListCmd(rc *config.RootConfig) *cobra.Command {
	var db string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickers held in the SQLite price store",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := prices.OpenSQLite(dbPath(rc, db))
			if err != nil {
				return err
			}
			defer store.Close()

			tickers, err := store.Tickers(context.Background())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TICKER\tFIRST\tLAST\tPRICES")
			for _, t := range tickers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", t.Ticker,
					market.FormatDate(t.First), market.FormatDate(t.Last), t.Count)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "SQLite price store (default from config)")

	return cmd
}
