package prices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rustyeddy/volatility/market"
)

// Tradier reads daily bars from the Tradier market history endpoint.
// Tradier history closes are not dividend adjusted.
type Tradier struct {
	BaseURL string // e.g. https://api.tradier.com
	Token   string
	Guard   *Guard
}

func (t *Tradier) Name() string { return "tradier" }

type tradierDay struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

type tradierHistory struct {
	History json.RawMessage `json:"history"`
}

// Prices implements Source.
func (t *Tradier) Prices(ctx context.Context, ticker string, start, end time.Time) (market.PriceSeries, error) {
	if err := checkRequest(ticker, start, end); err != nil {
		return nil, err
	}
	if t.Token == "" {
		return nil, fmt.Errorf("tradier: missing token")
	}
	if t.BaseURL == "" {
		return nil, fmt.Errorf("tradier: missing base url")
	}

	u, err := url.Parse(strings.TrimRight(t.BaseURL, "/"))
	if err != nil {
		return nil, err
	}
	u.Path += "/v1/markets/history"

	q := u.Query()
	q.Set("symbol", ticker)
	q.Set("interval", "daily")
	if !start.IsZero() {
		q.Set("start", market.FormatDate(start))
	}
	if !end.IsZero() {
		q.Set("end", market.FormatDate(end))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+t.Token)
	req.Header.Set("Accept", "application/json")

	guard := t.Guard
	if guard == nil {
		guard = NewGuard(GuardOptions{Name: "tradier"})
	}
	body, err := guard.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	days, err := parseTradierHistory(body)
	if err != nil {
		return nil, err
	}

	series := make(market.PriceSeries, 0, len(days))
	for _, d := range days {
		date, err := market.ParseDate(d.Date)
		if err != nil {
			return nil, fmt.Errorf("tradier %s: %w", ticker, err)
		}
		series = append(series, market.PricePoint{Date: date, Close: d.Close})
	}
	return finish(ticker, series, start, end)
}

// parseTradierHistory handles the three shapes Tradier uses: "history":
// "null" when empty, "day" as an object for one bar, and an array otherwise.
func parseTradierHistory(body []byte) ([]tradierDay, error) {
	var resp tradierHistory
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tradier decode: %w", err)
	}
	raw := bytes.TrimSpace(resp.History)
	if len(raw) == 0 || string(raw) == "null" || string(raw) == `"null"` {
		return nil, nil
	}

	var history struct {
		Day json.RawMessage `json:"day"`
	}
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("tradier decode history: %w", err)
	}
	day := bytes.TrimSpace(history.Day)
	if len(day) == 0 || string(day) == "null" {
		return nil, nil
	}

	if day[0] == '[' {
		var days []tradierDay
		if err := json.Unmarshal(day, &days); err != nil {
			return nil, fmt.Errorf("tradier decode days: %w", err)
		}
		return days, nil
	}
	var one tradierDay
	if err := json.Unmarshal(day, &one); err != nil {
		return nil, fmt.Errorf("tradier decode day: %w", err)
	}
	return []tradierDay{one}, nil
}
