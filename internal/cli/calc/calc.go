package calc

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/volatility/internal/cli/config"
	"github.com/rustyeddy/volatility/internal/pipeline"
	"github.com/rustyeddy/volatility/internal/report"
	"github.com/rustyeddy/volatility/market"
)

// New returns the calc command.
func New(rc *config.RootConfig) *cobra.Command {
	var (
		startStr  string
		endStr    string
		window    int
		format    string
		csvPath   string
		chartsDir string
	)

	cmd := &cobra.Command{
		Use:   "calc [ticker]",
		Short: "Compute historical and GARCH volatility for a ticker",
		Long: `Fetch daily adjusted closes, compute returns, rolling historical
volatility and a GJR-GARCH(1,1,1) fit, then print a report.

Examples:
  volatility calc PETR4.SA
  volatility calc AAPL --start 2023-01-01 --end 2023-12-31 --window 22
  volatility calc VALE3.SA --format json --csv vale.csv --charts ./charts`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := pipeline.Request{Window: window}
			if len(args) == 1 {
				req.Ticker = args[0]
			}
			if req.Window == 0 {
				req.Window = rc.Config().Model.Window
			}

			var err error
			if startStr != "" {
				if req.Start, err = market.ParseDate(startStr); err != nil {
					return fmt.Errorf("bad --start: %w", err)
				}
			}
			if endStr != "" {
				if req.End, err = market.ParseDate(endStr); err != nil {
					return fmt.Errorf("bad --end: %w", err)
				}
			}
			switch format {
			case "text", "org", "json":
			default:
				return fmt.Errorf("bad --format %q: want text|org|json", format)
			}

			p, closeSource, err := rc.Pipeline(nil)
			if err != nil {
				return err
			}
			defer closeSource()

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := p.Compute(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				if err := report.WriteJSON(out, res); err != nil {
					return err
				}
			case "org":
				fmt.Fprint(out, report.FormatResultOrg(res))
			default:
				report.PrintResult(out, res)
			}

			if csvPath != "" {
				if err := writeSeries(csvPath, res); err != nil {
					return err
				}
			}
			if chartsDir != "" {
				paths, err := report.WriteCharts(chartsDir, res)
				if err != nil {
					return err
				}
				for _, p := range paths {
					log.Info().Str("path", p).Msg("wrote chart")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "Start date YYYY-MM-DD (default: one year before end)")
	cmd.Flags().StringVar(&endStr, "end", "", "End date YYYY-MM-DD, inclusive (default: today)")
	cmd.Flags().IntVar(&window, "window", 0, "Historical volatility window in trading days (default from config, 22)")
	cmd.Flags().StringVar(&format, "format", "text", "Report format: text|org|json")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Also write the aligned series to this CSV file")
	cmd.Flags().StringVar(&chartsDir, "charts", "", "Also write returns/historical/garch SVG charts to this directory")

	return cmd
}

func writeSeries(path string, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := report.WriteSeriesCSV(f, res)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Int("rows", n).Msg("wrote series")
	return f.Close()
}

// contextOrBackground covers commands run outside Execute.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
