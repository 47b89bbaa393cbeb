package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/volatility/internal/pipeline"
)

// FormatResultOrg renders res as an Org-mode entry with the figures in a
// PROPERTIES drawer.
func FormatResultOrg(res *pipeline.Result) string {
	s := Summarize(res)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("** Volatility: %s (%s)\n", s.Ticker, shortID(s.RunID)))
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":RUN_ID: %s\n", s.RunID))
	b.WriteString(fmt.Sprintf(":TICKER: %s\n", s.Ticker))
	b.WriteString(fmt.Sprintf(":SOURCE: %s\n", s.Source))
	b.WriteString(fmt.Sprintf(":START: %s\n", date(s.Start)))
	b.WriteString(fmt.Sprintf(":END: %s\n", date(s.End)))
	b.WriteString(fmt.Sprintf(":WINDOW: %d\n", s.Window))
	b.WriteString(fmt.Sprintf(":OBSERVATIONS: %d\n", s.Observations))
	b.WriteString(fmt.Sprintf(":HIST_VOL: %s\n", Pct(s.LastHistorical)))
	b.WriteString(fmt.Sprintf(":ALPHA: %s\n", Coef(s.Alpha)))
	b.WriteString(fmt.Sprintf(":BETA: %s\n", Coef(s.Beta)))
	b.WriteString(fmt.Sprintf(":GAMMA: %s\n", Coef(s.Gamma)))
	b.WriteString(fmt.Sprintf(":GARCH_VOL_DAILY: %s\n", Pct(s.LastGARCH)))
	b.WriteString(fmt.Sprintf(":GARCH_VOL_ANNUAL: %s\n", Pct(s.LastGARCHAnnual)))
	b.WriteString(fmt.Sprintf(":COMPUTED: %s\n", s.Computed.UTC().Format(time.RFC3339)))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Notes\n- \n")

	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
