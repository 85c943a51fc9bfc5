package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// FinnhubProvider implements Provider using the Finnhub REST API
type FinnhubProvider struct {
	APIKey string
	Client *resty.Client
}

// NewFinnhubProvider creates a Finnhub provider. Every call is bounded by timeout.
func NewFinnhubProvider(baseURL, apiKey string, timeout time.Duration) *FinnhubProvider {
	return &FinnhubProvider{
		APIKey: apiKey,
		Client: resty.New().
			SetHostURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (f *FinnhubProvider) Name() string { return "finnhub" }

// finnhubQuote is the response of the /quote endpoint. Optional fields are
// pointers since Finnhub sends null for them on illiquid symbols.
type finnhubQuote struct {
	Current       float64  `json:"c"`
	Change        *float64 `json:"d"`
	ChangePercent *float64 `json:"dp"`
	High          *float64 `json:"h"`
	Low           *float64 `json:"l"`
	Open          *float64 `json:"o"`
	PreviousClose *float64 `json:"pc"`
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func (f *FinnhubProvider) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	if IsPlaceholderKey(f.APIKey) {
		return nil, NotConfiguredError
	}

	var result finnhubQuote
	resp, err := f.Client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"token":  f.APIKey,
		}).
		SetResult(&result).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("finnhub quote: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("finnhub quote: status %d", resp.StatusCode())
	}
	if result.Current == 0 {
		return nil, NoDataError
	}

	q := &Quote{
		Symbol:        symbol,
		Name:          NameFor(symbol),
		Price:         result.Current,
		Change:        valueOr(result.Change, 0),
		ChangePercent: valueOr(result.ChangePercent, 0),
		High:          valueOr(result.High, result.Current),
		Low:           valueOr(result.Low, result.Current),
	}
	q.normalize()
	return q, nil
}

// finnhubArticle is one entry of the /company-news response
type finnhubArticle struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	Datetime int64  `json:"datetime"`
}

// FetchCompanyNews returns the headlines of the news about symbol published
// between from and to, newest first as ordered by Finnhub
func (f *FinnhubProvider) FetchCompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]string, error) {
	if IsPlaceholderKey(f.APIKey) {
		return nil, NotConfiguredError
	}

	var articles []finnhubArticle
	resp, err := f.Client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   from.Format("2006-01-02"),
			"to":     to.Format("2006-01-02"),
			"token":  f.APIKey,
		}).
		SetResult(&articles).
		Get("/company-news")
	if err != nil {
		return nil, fmt.Errorf("finnhub company news: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("finnhub company news: status %d", resp.StatusCode())
	}

	headlines := make([]string, 0, len(articles))
	for _, a := range articles {
		if a.Headline != "" {
			headlines = append(headlines, a.Headline)
		}
	}
	return headlines, nil
}
