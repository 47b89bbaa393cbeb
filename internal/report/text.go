package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rustyeddy/volatility/internal/pipeline"
	"github.com/rustyeddy/volatility/market"
)

// Pct formats a fraction as a percentage with two decimals, or "n/a".
func Pct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// Coef formats a model coefficient with four decimals, or "n/a".
func Coef(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

func date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return market.FormatDate(t)
}

// PrintResult writes a plain-text report of res.
func PrintResult(w io.Writer, res *pipeline.Result) {
	s := Summarize(res)

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Volatility Report: %s\n", s.Ticker)
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", s.RunID)
	fmt.Fprintf(w, "Computed:      %s\n", s.Computed.Format(time.RFC3339))
	fmt.Fprintf(w, "Source:        %s\n", s.Source)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Requested:     %s to %s\n", date(s.Start), date(s.End))
	fmt.Fprintf(w, "Data:          %s to %s\n", date(s.FirstDate), date(s.LastDate))
	fmt.Fprintf(w, "Prices:        %d\n", s.Prices)
	fmt.Fprintf(w, "Returns:       %d\n", s.Observations)
	fmt.Fprintf(w, "Window:        %d days\n", s.Window)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Volatility")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Historical Volatility (annualized): %s\n", Pct(s.LastHistorical))
	fmt.Fprintf(w, "GARCH Alpha:                        %s\n", Coef(s.Alpha))
	fmt.Fprintf(w, "GARCH Beta:                         %s\n", Coef(s.Beta))
	fmt.Fprintf(w, "GARCH Volatility (daily):           %s\n", Pct(s.LastGARCH))
	fmt.Fprintf(w, "GARCH Volatility (annualized):      %s\n", Pct(s.LastGARCHAnnual))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Means")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Return:        %s\n", Pct(s.MeanReturn))
	fmt.Fprintf(w, "Historical:    %s\n", Pct(s.MeanHistorical))
	fmt.Fprintf(w, "GARCH (daily): %s\n", Pct(s.MeanGARCH))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Model Diagnostics (GJR-GARCH(1,1,1))")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Mu:            %.6g\n", s.Mu)
	fmt.Fprintf(w, "Omega:         %.6g\n", s.Omega)
	fmt.Fprintf(w, "Gamma:         %s\n", Coef(s.Gamma))
	fmt.Fprintf(w, "Persistence:   %s\n", Coef(s.Persistence))
	fmt.Fprintf(w, "Log-Lik:       %.2f\n", s.LogLikelihood)
	fmt.Fprintf(w, "Iterations:    %d\n", s.Iterations)
}
