package quotes

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// AlphaVantageProvider implements Provider and HistoryProvider using the
// Alpha Vantage query API
type AlphaVantageProvider struct {
	APIKey string
	Client *resty.Client
	now    func() time.Time
}

// NewAlphaVantageProvider creates an Alpha Vantage provider. Every call is bounded by timeout.
func NewAlphaVantageProvider(baseURL, apiKey string, timeout time.Duration) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		APIKey: apiKey,
		Client: resty.New().
			SetHostURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		now: time.Now,
	}
}

func (a *AlphaVantageProvider) Name() string { return "alphavantage" }

func (a *AlphaVantageProvider) query(ctx context.Context, params map[string]string, result interface{}) error {
	if IsPlaceholderKey(a.APIKey) {
		return NotConfiguredError
	}
	params["apikey"] = a.APIKey

	resp, err := a.Client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetQueryParams(params).
		SetResult(result).
		Get("/query")
	if err != nil {
		return fmt.Errorf("alphavantage %s: %w", params["function"], err)
	}
	if resp.IsError() {
		return fmt.Errorf("alphavantage %s: status %d", params["function"], resp.StatusCode())
	}
	return nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
}

func (a *AlphaVantageProvider) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	// rate limited responses carry a "Note" or "Information" instead of the quote
	var result struct {
		GlobalQuote map[string]string `json:"Global Quote"`
	}
	err := a.query(ctx, map[string]string{
		"function": "GLOBAL_QUOTE",
		"symbol":   symbol,
	}, &result)
	if err != nil {
		return nil, err
	}

	gq := result.GlobalQuote
	price, err := parseFloat(gq["05. price"])
	if err != nil || price == 0 {
		return nil, NoDataError
	}

	q := &Quote{
		Symbol: symbol,
		Name:   NameFor(symbol),
		Price:  price,
	}
	q.Change, _ = parseFloat(gq["09. change"])
	q.ChangePercent, _ = parseFloat(gq["10. change percent"])
	q.High, _ = parseFloat(gq["03. high"])
	q.Low, _ = parseFloat(gq["04. low"])
	if v, err := strconv.ParseInt(strings.TrimSpace(gq["06. volume"]), 10, 64); err == nil {
		q.Volume = v
	}
	q.normalize()
	return q, nil
}

func (a *AlphaVantageProvider) FetchDailyBars(ctx context.Context, symbol string, days int) ([]Bar, error) {
	outputSize := "compact" // last 100 data points
	if days > 100 {
		outputSize = "full"
	}

	var result struct {
		Series map[string]map[string]string `json:"Time Series (Daily)"`
	}
	err := a.query(ctx, map[string]string{
		"function":   "TIME_SERIES_DAILY",
		"symbol":     symbol,
		"outputsize": outputSize,
	}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.Series) == 0 {
		return nil, NoDataError
	}

	cutoff := a.now().AddDate(0, 0, -days).Format("2006-01-02")
	dates := make([]string, 0, len(result.Series))
	for date := range result.Series {
		if date >= cutoff {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)

	bars := make([]Bar, 0, len(dates))
	for _, date := range dates {
		day := result.Series[date]
		bar := Bar{Time: date}
		var err error
		if bar.Open, err = parseFloat(day["1. open"]); err != nil {
			return nil, fmt.Errorf("alphavantage %s open: %w", date, err)
		}
		if bar.High, err = parseFloat(day["2. high"]); err != nil {
			return nil, fmt.Errorf("alphavantage %s high: %w", date, err)
		}
		if bar.Low, err = parseFloat(day["3. low"]); err != nil {
			return nil, fmt.Errorf("alphavantage %s low: %w", date, err)
		}
		if bar.Close, err = parseFloat(day["4. close"]); err != nil {
			return nil, fmt.Errorf("alphavantage %s close: %w", date, err)
		}
		bar.Volume, _ = strconv.ParseInt(strings.TrimSpace(day["5. volume"]), 10, 64)
		bars = append(bars, bar)
	}
	return bars, nil
}
