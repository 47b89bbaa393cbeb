package data

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/volatility/internal/cli/config"
	"github.com/rustyeddy/volatility/internal/prices"
	"github.com/rustyeddy/volatility/market"
)

func newYahooCmd(rc *config.RootConfig) *cobra.Command {
	var (
		ticker   string
		startStr string
		endStr   string
		outPath  string
		baseURL  string
	)

	cmd := &cobra.Command{
		Use:   "yahoo",
		Short: "Download daily adjusted closes from Yahoo Finance to CSV (date,adj_close)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticker == "" {
				return fmt.Errorf("missing --ticker")
			}

			end := market.Day(time.Now())
			var err error
			if endStr != "" {
				if end, err = market.ParseDate(endStr); err != nil {
					return fmt.Errorf("bad --end: %w", err)
				}
			}
			start := end.AddDate(0, 0, -365)
			if startStr != "" {
				if start, err = market.ParseDate(startStr); err != nil {
					return fmt.Errorf("bad --start: %w", err)
				}
			}

			srcCfg := rc.Config().Source
			srcCfg.Name = "yahoo"
			if baseURL != "" {
				srcCfg.YahooURL = baseURL
			}
			src, err := prices.New(srcCfg)
			if err != nil {
				return err
			}
			timeout, err := srcCfg.FetchTimeout()
			if err != nil || timeout <= 0 {
				timeout = 30 * time.Second
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			series, err := src.Prices(ctx, ticker, start, end)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			n, err := prices.WriteCSV(w, series)
			if err != nil {
				return err
			}
			if outPath != "" && outPath != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d prices to %s\n", n, outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "Ticker symbol (e.g. PETR4.SA)")
	cmd.Flags().StringVar(&startStr, "start", "", "Start date YYYY-MM-DD (default: one year before end)")
	cmd.Flags().StringVar(&endStr, "end", "", "End date YYYY-MM-DD, inclusive (default: today)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output CSV path (default: stdout)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Override Yahoo base URL (for testing)")

	return cmd
}

