package report

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/rustyeddy/volatility/internal/pipeline"
	"github.com/rustyeddy/volatility/market"
)

// SeriesHeader is the column layout written by WriteSeriesCSV.
var SeriesHeader = []string{"date", "adj_close", "return", "historical_vol", "garch_vol", "garch_vol_annualized"}

// WriteSeriesCSV writes one row per return date. Undefined values are
// left empty.
func WriteSeriesCSV(w io.Writer, res *pipeline.Result) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(SeriesHeader); err != nil {
		return 0, err
	}

	var cond, annual market.VolatilitySeries
	if res.GARCH != nil {
		cond = res.GARCH.ConditionalVolatility
		annual = res.GARCH.Annualized()
	}

	written := 0
	for i, r := range res.Returns {
		row := []string{
			market.FormatDate(r.Date),
			cell(res.Prices, i+1),
			num(r.Return),
			volCell(res.Historical, i),
			volCell(cond, i),
			volCell(annual, i),
		}
		if err := cw.Write(row); err != nil {
			return written, err
		}
		written++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, err
	}
	return written, nil
}

func cell(ps market.PriceSeries, i int) string {
	if i >= len(ps) {
		return ""
	}
	return num(ps[i].Close)
}

func volCell(vs market.VolatilitySeries, i int) string {
	if !vs.Defined(i) {
		return ""
	}
	return num(vs[i].Value)
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', 10, 64)
}
