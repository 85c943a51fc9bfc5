package watchlistsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/abhivicks22/stockpulse/quotes"
)

// APIError is a non 2xx answer of the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// HTTPBackend implements Store and QuoteSource against the StockPulse HTTP
// API, authenticated by a session id
type HTTPBackend struct {
	Client *resty.Client
}

// NewHTTPBackend creates a backend for the server at baseURL. sid is the
// value of the sid cookie of a signed in session.
func NewHTTPBackend(baseURL, sid string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		Client: resty.New().
			SetHostURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json").
			SetCookie(&http.Cookie{Name: "sid", Value: sid}),
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func checkResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	e := &APIError{Status: resp.StatusCode(), Message: resp.Status()}
	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		e.Message = body.Error
	}
	return e
}

func (b *HTTPBackend) List(ctx context.Context) ([]Item, error) {
	var items []Item
	resp, err := b.Client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&items).
		Get("/watchlist")
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return items, nil
}

func (b *HTTPBackend) Add(ctx context.Context, symbol, name string) (Item, error) {
	var item Item
	resp, err := b.Client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetBody(map[string]string{"symbol": symbol, "name": name}).
		SetResult(&item).
		Post("/watchlist")
	if err != nil {
		return Item{}, fmt.Errorf("add %s: %w", symbol, err)
	}
	if err := checkResponse(resp); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (b *HTTPBackend) Remove(ctx context.Context, itemId string) error {
	resp, err := b.Client.R().
		SetContext(ctx).
		SetBody(map[string]string{"itemId": itemId}).
		Delete("/watchlist")
	if err != nil {
		return fmt.Errorf("remove %s: %w", itemId, err)
	}
	return checkResponse(resp)
}

// GetQuotes calls /stocks, which answers a single symbol with an object and
// several with an array
func (b *HTTPBackend) GetQuotes(ctx context.Context, symbols []string) (map[string]*quotes.Quote, error) {
	resp, err := b.Client.R().
		SetContext(ctx).
		SetQueryParam("symbols", strings.Join(symbols, ",")).
		Get("/stocks")
	if err != nil {
		return nil, fmt.Errorf("get quotes: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var list []*quotes.Quote
	body := bytes.TrimSpace(resp.Body())
	if len(body) > 0 && body[0] == '{' {
		q := &quotes.Quote{}
		if err := json.Unmarshal(body, q); err != nil {
			return nil, fmt.Errorf("decode quote: %w", err)
		}
		list = append(list, q)
	} else if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode quotes: %w", err)
	}

	bySymbol := make(map[string]*quotes.Quote, len(list))
	for _, q := range list {
		if q != nil {
			bySymbol[q.Symbol] = q
		}
	}
	return bySymbol, nil
}
