// Package quotes fetches stock and crypto quotes and price history from
// external providers. Every lookup succeeds: when no provider can answer, a
// deterministic mock derived from the symbol is returned instead.
package quotes

import (
	"context"
	"errors"
)

var (
	NoDataError        = errors.New("Provider returned no data")
	NotConfiguredError = errors.New("Provider not configured")
)

// Quote is a snapshot of a symbol's current price and daily range
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        int64   `json:"volume"`
	MarketCap     *int64  `json:"marketCap,omitempty"`
}

// Bar is one daily OHLCV candle
type Bar struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Provider fetches live quotes from one external API
type Provider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
}

// HistoryProvider fetches daily candles from one external API
type HistoryProvider interface {
	Name() string
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]Bar, error)
}

// normalize makes sure high and low bracket the price. Missing values
// default to the price.
func (q *Quote) normalize() {
	if q.High == 0 {
		q.High = q.Price
	}
	if q.Low == 0 {
		q.Low = q.Price
	}
	if q.High < q.Low {
		q.High, q.Low = q.Low, q.High
	}
	if q.Price > q.High {
		q.High = q.Price
	}
	if q.Price < q.Low {
		q.Low = q.Price
	}
}

func (q *Quote) copy() *Quote {
	c := *q
	if q.MarketCap != nil {
		mc := *q.MarketCap
		c.MarketCap = &mc
	}
	return &c
}
