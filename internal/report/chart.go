package report

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/rustyeddy/volatility/internal/pipeline"
	"github.com/rustyeddy/volatility/market"
)

// Chart size for rendered output.
const (
	ChartWidth  = 8 * vg.Inch
	ChartHeight = 4 * vg.Inch
)

var (
	seriesColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	meanColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Chart is one rendered-ready plot.
type Chart struct {
	Name  string // file stem
	Title string
	Plot  *plot.Plot
}

type point struct {
	date  time.Time
	value float64
}

// Charts builds the returns, historical volatility and GARCH volatility
// charts for res, values in percent, each with a dashed mean line.
func Charts(res *pipeline.Result) ([]Chart, error) {
	rets := make([]point, len(res.Returns))
	for i, r := range res.Returns {
		rets[i] = point{r.Date, r.Return * 100}
	}

	var garch market.VolatilitySeries
	if res.GARCH != nil {
		garch = res.GARCH.ConditionalVolatility
	}

	specs := []struct {
		name, title, ylabel string
		points              []point
	}{
		{"returns", "Returns", "Return (%)", rets},
		{"historical", "Historical Volatility", "Volatility (%)", volPoints(res.Historical)},
		{"garch", "GARCH(1,1) Volatility", "Volatility (%)", volPoints(garch)},
	}

	charts := make([]Chart, 0, len(specs))
	for _, sp := range specs {
		title := fmt.Sprintf("%s: %s", res.Request.Ticker, sp.title)
		p, err := linePlot(title, sp.ylabel, sp.points, res.Request.Start, res.Request.End)
		if err != nil {
			return nil, fmt.Errorf("%s chart: %w", sp.name, err)
		}
		charts = append(charts, Chart{Name: sp.name, Title: sp.title, Plot: p})
	}
	return charts, nil
}

// volPoints keeps only defined values, in percent.
func volPoints(vs market.VolatilitySeries) []point {
	out := make([]point, 0, len(vs))
	for _, v := range vs {
		if v.Defined() {
			out = append(out, point{v.Date, v.Value * 100})
		}
	}
	return out
}

func linePlot(title, ylabel string, pts []point, start, end time.Time) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = ylabel
	p.X.Tick.Marker = plot.TimeTicks{Format: market.DateLayout}
	p.Add(plotter.NewGrid())

	if len(pts) == 0 {
		// nothing defined yet; keep the axes on the requested range
		p.X.Min, p.X.Max = float64(start.Unix()), float64(end.Unix())
		p.Y.Min, p.Y.Max = 0, 1
		return p, nil
	}

	xys := make(plotter.XYs, len(pts))
	sum := 0.0
	for i, pt := range pts {
		xys[i].X = float64(pt.date.Unix())
		xys[i].Y = pt.value
		sum += pt.value
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = seriesColor
	line.Width = vg.Points(1)
	p.Add(line)

	mean := sum / float64(len(pts))
	if !math.IsNaN(mean) {
		fn := plotter.NewFunction(func(float64) float64 { return mean })
		fn.Color = meanColor
		fn.Width = vg.Points(1)
		fn.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		fn.XMin, fn.XMax = xys[0].X, xys[len(xys)-1].X
		p.Add(fn)
		p.Legend.Add("Mean", fn)
	}
	p.Legend.Top = true
	return p, nil
}

// WriteSVG renders c as SVG.
func (c Chart) WriteSVG(w io.Writer) error {
	wt, err := c.Plot.WriterTo(ChartWidth, ChartHeight, "svg")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SVG renders c to a byte slice.
func (c Chart) SVG() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.WriteSVG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCharts renders every chart of res into dir as <name>.svg and
// returns the written paths.
func WriteCharts(dir string, res *pipeline.Result) ([]string, error) {
	charts, err := Charts(res)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		path := filepath.Join(dir, c.Name+".svg")
		f, err := os.Create(path)
		if err != nil {
			return paths, err
		}
		if err := c.WriteSVG(f); err != nil {
			_ = f.Close()
			return paths, fmt.Errorf("render %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
