package cli

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/rustyeddy/volatility/internal/config"
	"github.com/rustyeddy/volatility/internal/prices"
	"github.com/rustyeddy/volatility/market"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"VOLATILITY_SOURCE", "TRADIER_KEY", "VOLATILITY_DB", "VOLATILITY_ADDR"} {
		t.Setenv(k, "")
	}

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writePrices(t *testing.T, path string, n int) market.PriceSeries {
	t.Helper()
	rng := rand.New(rand.NewSource(5))
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 30.0
	series := make(market.PriceSeries, 0, n)
	for i := 0; i < n; i++ {
		series = append(series, market.PricePoint{Date: day.AddDate(0, 0, i), Close: price})
		price *= math.Exp(0.015 * rng.NormFloat64())
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = prices.WriteCSV(f, series)
	require.NoError(t, err)
	return series
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "volatility (dev)\n", out)
}

func TestCalcFromCSVSource(t *testing.T) {
	dir := t.TempDir()
	writePrices(t, filepath.Join(dir, "TEST.csv"), 250)

	cfg := appconfig.Default()
	cfg.Source.Name = "csv"
	cfg.Source.CSVDir = dir
	cfgPath := filepath.Join(dir, "volatility.yaml")
	require.NoError(t, cfg.SaveToFile(cfgPath))

	seriesPath := filepath.Join(dir, "series.csv")
	out, err := run(t, "--config", cfgPath, "calc", "TEST",
		"--start", "2023-01-02", "--end", "2023-09-08", "--format", "json", "--csv", seriesPath)
	require.NoError(t, err)

	var doc struct {
		Ticker  string `json:"ticker"`
		Source  string `json:"source"`
		Window  int    `json:"window"`
		Returns []any  `json:"returns"`
		Metrics struct {
			HistoricalVolatility *float64 `json:"historical_volatility"`
			Alpha                *float64 `json:"alpha"`
			Beta                 *float64 `json:"beta"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "TEST", doc.Ticker)
	assert.Equal(t, "csv", doc.Source)
	assert.Equal(t, 22, doc.Window)
	assert.Len(t, doc.Returns, 249)
	require.NotNil(t, doc.Metrics.HistoricalVolatility)
	assert.Greater(t, *doc.Metrics.HistoricalVolatility, 0.0)
	require.NotNil(t, doc.Metrics.Alpha)
	require.NotNil(t, doc.Metrics.Beta)

	b, err := os.ReadFile(seriesPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.Len(t, lines, 250)
	assert.True(t, strings.HasPrefix(lines[0], "date,adj_close,return"))
}

func TestCalcRejectsBadFormat(t *testing.T) {
	_, err := run(t, "calc", "TEST", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad --format")
}

func TestCalcMissingTickerFile(t *testing.T) {
	_, err := run(t, "--source", "csv", "calc", "NOPE", "--start", "2023-01-01", "--end", "2023-02-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval failed")
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volatility.yaml")

	out, err := run(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	out, err = run(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "Source: yahoo")

	_, err = run(t, "config", "validate")
	require.Error(t, err)
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  window: -1\n"), 0o644))

	_, err := run(t, "config", "validate", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestDataImportAndList(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "VALE3.SA.csv")
	writePrices(t, csvPath, 10)
	db := filepath.Join(dir, "prices.db")

	out, err := run(t, "data", "import", "--csv", csvPath, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 10 prices for VALE3.SA")

	out, err = run(t, "data", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "TICKER")
	assert.Contains(t, out, "VALE3.SA")
	assert.Contains(t, out, "2023-01-02")
	assert.Contains(t, out, "2023-01-11")
}

func TestDataYahooWritesCSV(t *testing.T) {
	body := `{"chart":{"result":[{"meta":{"gmtoffset":0},"timestamp":[1704200400,1704286800],
		"indicators":{"quote":[{"close":[10.0,11.0]}],"adjclose":[{"adjclose":[9.5,10.5]}]}}],"error":null}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/PETR4.SA", r.URL.Path)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	out, err := run(t, "data", "yahoo", "--ticker", "PETR4.SA",
		"--start", "2024-01-01", "--end", "2024-01-05", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "date,adj_close\n2024-01-02,9.5\n2024-01-03,10.5\n", out)
}
