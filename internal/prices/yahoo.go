package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/volatility/market"
)

// Yahoo reads daily adjusted closes from the Yahoo Finance chart API.
type Yahoo struct {
	BaseURL string // e.g. https://query1.finance.yahoo.com
	Guard   *Guard
}

func (y *Yahoo) Name() string { return "yahoo" }

// yahooChart is the subset of the v8 chart response we use. Values are
// pointers because Yahoo emits null for halted sessions.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				Currency  string `json:"currency"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Prices implements Source.
func (y *Yahoo) Prices(ctx context.Context, ticker string, start, end time.Time) (market.PriceSeries, error) {
	if err := checkRequest(ticker, start, end); err != nil {
		return nil, err
	}
	if y.BaseURL == "" {
		return nil, fmt.Errorf("yahoo: missing base url")
	}

	u, err := url.Parse(strings.TrimRight(y.BaseURL, "/"))
	if err != nil {
		return nil, err
	}
	u.Path += "/v8/finance/chart/" + url.PathEscape(ticker)

	q := u.Query()
	q.Set("period1", strconv.FormatInt(market.Day(start).Unix(), 10))
	// period2 is exclusive upstream; end is inclusive here
	q.Set("period2", strconv.FormatInt(market.Day(end).AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", "1d")
	q.Set("includeAdjustedClose", "true")
	q.Set("events", "div,splits")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	guard := y.Guard
	if guard == nil {
		guard = NewGuard(GuardOptions{Name: "yahoo"})
	}
	body, err := guard.Do(ctx, req)
	if err != nil {
		// 404 bodies still carry the chart error description
		var chart yahooChart
		if len(body) > 0 && json.Unmarshal(body, &chart) == nil && chart.Chart.Error != nil {
			return nil, fmt.Errorf("%w: yahoo %s: %s", ErrDataUnavailable, ticker, chart.Chart.Error.Description)
		}
		return nil, err
	}

	series, err := parseYahooChart(ticker, body)
	if err != nil {
		return nil, err
	}
	return finish(ticker, series, start, end)
}

func parseYahooChart(ticker string, body []byte) (market.PriceSeries, error) {
	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo %s: %s", ErrDataUnavailable, ticker, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no data for %s", ErrDataUnavailable, ticker)
	}

	result := chart.Chart.Result[0]
	var closes []*float64
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) > 0 {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}

	series := make(market.PriceSeries, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		// exchange-local calendar day
		date := market.Day(time.Unix(ts+result.Meta.GMTOffset, 0).UTC())
		series = append(series, market.PricePoint{Date: date, Close: *closes[i]})
	}
	return series, nil
}
