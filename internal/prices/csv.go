package prices

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/volatility/market"
)

// CSVDir reads <Dir>/<TICKER>.csv files of date,adj_close rows.
type CSVDir struct {
	Dir string
}

func (c *CSVDir) Name() string { return "csv" }

// Path returns the file backing ticker.
func (c *CSVDir) Path(ticker string) string {
	return filepath.Join(c.Dir, ticker+".csv")
}

// Prices implements Source.
func (c *CSVDir) Prices(ctx context.Context, ticker string, start, end time.Time) (market.PriceSeries, error) {
	if err := checkRequest(ticker, start, end); err != nil {
		return nil, err
	}
	if strings.ContainsAny(ticker, `/\`) {
		return nil, fmt.Errorf("%w: bad ticker %q", ErrDataUnavailable, ticker)
	}

	f, err := os.Open(c.Path(ticker))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no csv for %s in %s", ErrDataUnavailable, ticker, c.Dir)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	series, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Path(ticker), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, timeoutErr(ctx, err)
	}
	return finish(ticker, series, start, end)
}

// ReadCSV parses date,adj_close rows. A single header row is allowed and
// empty rows are skipped.
func ReadCSV(r io.Reader) (market.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out market.PriceSeries
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		// Allow a single header row
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("line %d: want date,adj_close", line)
		}

		date, err := market.ParseDate(row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad adj_close %q", line, row[1])
		}
		out = append(out, market.PricePoint{Date: date, Close: v})
	}
}

// WriteCSV writes series as date,adj_close rows with a header.
func WriteCSV(w io.Writer, series market.PriceSeries) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "adj_close"}); err != nil {
		return 0, err
	}

	written := 0
	for _, p := range series {
		row := []string{
			market.FormatDate(p.Date),
			strconv.FormatFloat(p.Close, 'f', -1, 64),
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
