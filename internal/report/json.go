package report

import (
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/rustyeddy/volatility/internal/pipeline"
	"github.com/rustyeddy/volatility/internal/volatility"
	"github.com/rustyeddy/volatility/market"
)

// Document is the JSON form of a run. Undefined figures are null.
type Document struct {
	RunID    string    `json:"run_id"`
	Ticker   string    `json:"ticker"`
	Source   string    `json:"source"`
	Start    string    `json:"start"`
	End      string    `json:"end"`
	Window   int       `json:"window"`
	Computed time.Time `json:"computed"`

	Metrics DocumentMetrics `json:"metrics"`

	Prices          market.PriceSeries      `json:"prices"`
	Returns         market.ReturnSeries     `json:"returns"`
	Historical      market.VolatilitySeries `json:"historical_volatility"`
	GARCH           *volatility.ModelFit    `json:"garch"`
	GARCHAnnualized market.VolatilitySeries `json:"garch_volatility_annualized"`
}

// DocumentMetrics are the headline figures, fractions not percentages.
type DocumentMetrics struct {
	HistoricalVolatility  *float64 `json:"historical_volatility"`
	Alpha                 *float64 `json:"alpha"`
	Beta                  *float64 `json:"beta"`
	Gamma                 *float64 `json:"gamma"`
	Persistence           *float64 `json:"persistence"`
	GARCHVolatility       *float64 `json:"garch_volatility"`
	GARCHVolatilityAnnual *float64 `json:"garch_volatility_annualized"`
	MeanReturn            *float64 `json:"mean_return"`
	MeanHistorical        *float64 `json:"mean_historical_volatility"`
	MeanGARCH             *float64 `json:"mean_garch_volatility"`
}

// NewDocument builds the JSON document for res.
func NewDocument(res *pipeline.Result) Document {
	s := Summarize(res)
	doc := Document{
		RunID:      s.RunID,
		Ticker:     s.Ticker,
		Source:     s.Source,
		Start:      date(s.Start),
		End:        date(s.End),
		Window:     s.Window,
		Computed:   s.Computed,
		Prices:     res.Prices,
		Returns:    res.Returns,
		Historical: res.Historical,
		GARCH:      res.GARCH,
		Metrics: DocumentMetrics{
			HistoricalVolatility:  opt(s.LastHistorical),
			Alpha:                 opt(s.Alpha),
			Beta:                  opt(s.Beta),
			Gamma:                 opt(s.Gamma),
			Persistence:           opt(s.Persistence),
			GARCHVolatility:       opt(s.LastGARCH),
			GARCHVolatilityAnnual: opt(s.LastGARCHAnnual),
			MeanReturn:            opt(s.MeanReturn),
			MeanHistorical:        opt(s.MeanHistorical),
			MeanGARCH:             opt(s.MeanGARCH),
		},
	}
	if res.GARCH != nil {
		doc.GARCHAnnualized = res.GARCH.Annualized()
	}
	return doc
}

// WriteJSON writes the indented JSON document for res.
func WriteJSON(w io.Writer, res *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(res))
}

func opt(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
