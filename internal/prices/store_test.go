package prices

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/volatility/internal/config"
	"github.com/rustyeddy/volatility/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSeries(t *testing.T) market.PriceSeries {
	t.Helper()
	return market.PriceSeries{
		{Date: mustDay(t, "2024-01-02"), Close: 10},
		{Date: mustDay(t, "2024-01-03"), Close: 10.5},
		{Date: mustDay(t, "2024-01-04"), Close: 10.25},
	}
}

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "prices.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, path
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteCSV(&buf, sampleSeries(t))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, strings.HasPrefix(buf.String(), "date,adj_close\n2024-01-02,10\n"))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleSeries(t), back)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		msg  string
	}{
		{"bad date", "date,adj_close\n02/01/2024,10\n", "line 2"},
		{"bad value", "2024-01-02,ten\n", "bad adj_close"},
		{"short row", "2024-01-02\n", "want date,adj_close"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCSVDirPrices(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "VALE3.SA.csv"))
	require.NoError(t, err)
	_, err = WriteCSV(f, sampleSeries(t))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	src := &CSVDir{Dir: dir}
	ps, err := src.Prices(context.Background(), "VALE3.SA", mustDay(t, "2024-01-03"), mustDay(t, "2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, []float64{10.5, 10.25}, ps.Closes())

	_, err = src.Prices(context.Background(), "MISSING", mustDay(t, "2024-01-01"), mustDay(t, "2024-01-31"))
	assert.ErrorIs(t, err, ErrDataUnavailable)

	_, err = src.Prices(context.Background(), "../etc/passwd", mustDay(t, "2024-01-01"), mustDay(t, "2024-01-31"))
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestSQLiteImportAndPrices(t *testing.T) {
	s, _ := newTestSQLite(t)
	ctx := context.Background()

	n, err := s.Import(ctx, "PETR4.SA", sampleSeries(t))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// re-import overwrites
	_, err = s.Import(ctx, "PETR4.SA", market.PriceSeries{{Date: mustDay(t, "2024-01-04"), Close: 11}})
	require.NoError(t, err)

	ps, err := s.Prices(ctx, "PETR4.SA", mustDay(t, "2024-01-03"), mustDay(t, "2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, []float64{10.5, 11}, ps.Closes())

	_, err = s.Prices(ctx, "VALE3.SA", mustDay(t, "2024-01-01"), mustDay(t, "2024-01-31"))
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestSQLiteRejectsInvalidSeries(t *testing.T) {
	s, _ := newTestSQLite(t)
	_, err := s.Import(context.Background(), "X", market.PriceSeries{{Date: time.Now(), Close: -1}})
	assert.Error(t, err)
}

func TestSQLiteTickers(t *testing.T) {
	s, _ := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.Import(ctx, "B", sampleSeries(t))
	require.NoError(t, err)
	_, err = s.Import(ctx, "A", sampleSeries(t)[:1])
	require.NoError(t, err)

	got, err := s.Tickers(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Ticker)
	assert.Equal(t, 1, got[0].Count)
	assert.Equal(t, "B", got[1].Ticker)
	assert.Equal(t, 3, got[1].Count)
	assert.Equal(t, "2024-01-02", market.FormatDate(got[1].First))
	assert.Equal(t, "2024-01-04", market.FormatDate(got[1].Last))
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default().Source

	src, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", src.Name())

	cfg.Name = "tradier"
	src, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "tradier", src.Name())

	cfg.Name = "csv"
	src, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "csv", src.Name())

	cfg.Name = "sqlite"
	cfg.DBPath = filepath.Join(t.TempDir(), "p.db")
	src, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", src.Name())
	require.NoError(t, src.(*SQLite).Close())

	cfg.Name = "nope"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestFinishDeduplicatesAndSorts(t *testing.T) {
	in := market.PriceSeries{
		{Date: mustDay(t, "2024-01-03"), Close: 2},
		{Date: mustDay(t, "2024-01-02"), Close: 1},
		{Date: mustDay(t, "2024-01-03"), Close: 3},
		{Date: mustDay(t, "2024-01-04"), Close: 0},
	}
	out, err := finish("X", in, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, out.Closes())
}
