package quotes

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinnhubFetchQuote(t *testing.T) {
	f := newMockedFinnhub(t)

	httpmock.RegisterResponder("GET", "https://finnhub.test/api/v1/quote",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "AAPL", req.URL.Query().Get("symbol"))
			assert.Equal(t, "test-key", req.URL.Query().Get("token"))
			return httpmock.NewStringResponse(200, `{"c":191.5,"d":1.5,"dp":0.79,"h":192,"l":189.25,"o":190,"pc":190}`), nil
		})

	q, err := f.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, &Quote{
		Symbol:        "AAPL",
		Name:          "Apple Inc.",
		Price:         191.5,
		Change:        1.5,
		ChangePercent: 0.79,
		High:          192,
		Low:           189.25,
	}, q)
}

func TestFinnhubFetchQuoteNullFields(t *testing.T) {
	f := newMockedFinnhub(t)

	httpmock.RegisterResponder("GET", "https://finnhub.test/api/v1/quote",
		httpmock.NewStringResponder(200, `{"c":12.5,"d":null,"dp":null,"h":null,"l":null}`))

	q, err := f.FetchQuote(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Equal(t, 12.5, q.High)
	assert.Equal(t, 12.5, q.Low)
	assert.Equal(t, 0.0, q.Change)
}

func TestFinnhubFetchQuoteErrors(t *testing.T) {
	f := newMockedFinnhub(t)

	httpmock.RegisterResponder("GET", "https://finnhub.test/api/v1/quote",
		func(req *http.Request) (*http.Response, error) {
			switch req.URL.Query().Get("symbol") {
			case "EMPTY":
				return httpmock.NewStringResponse(200, `{"c":0,"d":null,"dp":null,"h":0,"l":0}`), nil
			case "LIMITED":
				return httpmock.NewStringResponse(429, `{"error":"API limit reached"}`), nil
			default:
				return nil, errors.New("connection reset")
			}
		})

	_, err := f.FetchQuote(context.Background(), "EMPTY")
	assert.True(t, errors.Is(err, NoDataError), "got %v", err)

	_, err = f.FetchQuote(context.Background(), "LIMITED")
	assert.Error(t, err)

	_, err = f.FetchQuote(context.Background(), "BROKEN")
	assert.Error(t, err)

	f.APIKey = "your_finnhub_key_here"
	_, err = f.FetchQuote(context.Background(), "AAPL")
	assert.True(t, errors.Is(err, NotConfiguredError), "got %v", err)
}

func TestFinnhubFetchCompanyNews(t *testing.T) {
	f := newMockedFinnhub(t)

	httpmock.RegisterResponder("GET", "https://finnhub.test/api/v1/company-news",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "2024-02-28", req.URL.Query().Get("from"))
			assert.Equal(t, "2024-03-06", req.URL.Query().Get("to"))
			return httpmock.NewStringResponse(200, `[
				{"headline":"Apple shares surge on record profit","datetime":1709700000},
				{"headline":"","datetime":1709600000},
				{"headline":"Analysts fear weak iPhone demand","datetime":1709500000}
			]`), nil
		})

	headlines, err := f.FetchCompanyNews(context.Background(), "AAPL", fixedNow.AddDate(0, 0, -7), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Apple shares surge on record profit",
		"Analysts fear weak iPhone demand",
	}, headlines)
}

func TestAlphaVantageFetchQuote(t *testing.T) {
	a := newMockedAlphaVantage(t)

	httpmock.RegisterResponder("GET", "https://alphavantage.test/query",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "GLOBAL_QUOTE", req.URL.Query().Get("function"))
			assert.Equal(t, "test-key", req.URL.Query().Get("apikey"))
			if req.URL.Query().Get("symbol") == "LIMITED" {
				return httpmock.NewStringResponse(200, `{"Note":"Thank you for using Alpha Vantage!"}`), nil
			}
			return httpmock.NewStringResponse(200, `{"Global Quote":{
				"01. symbol":"MSFT","03. high":"421.00","04. low":"415.50","05. price":"418.20",
				"06. volume":"21000000","09. change":"-1.80","10. change percent":"-0.4286%"}}`), nil
		})

	q, err := a.FetchQuote(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "Microsoft Corporation", q.Name)
	assert.Equal(t, 418.2, q.Price)
	assert.Equal(t, -1.8, q.Change)
	assert.Equal(t, -0.4286, q.ChangePercent)
	assert.Equal(t, 421.0, q.High)
	assert.Equal(t, 415.5, q.Low)
	assert.Equal(t, int64(21000000), q.Volume)

	_, err = a.FetchQuote(context.Background(), "LIMITED")
	assert.True(t, errors.Is(err, NoDataError), "got %v", err)
}

func TestAlphaVantageFetchDailyBars(t *testing.T) {
	a := newMockedAlphaVantage(t)

	httpmock.RegisterResponder("GET", "https://alphavantage.test/query",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "TIME_SERIES_DAILY", req.URL.Query().Get("function"))
			assert.Equal(t, "compact", req.URL.Query().Get("outputsize"))
			return httpmock.NewStringResponse(200, `{"Time Series (Daily)":{
				"2024-03-05":{"1. open":"10","2. high":"12","3. low":"9","4. close":"11","5. volume":"100"},
				"2024-03-01":{"1. open":"9","2. high":"10","3. low":"8","4. close":"10","5. volume":"200"},
				"2024-01-02":{"1. open":"5","2. high":"6","3. low":"4","4. close":"5","5. volume":"300"}
			}}`), nil
		})

	bars, err := a.FetchDailyBars(context.Background(), "IBM", 7)
	require.NoError(t, err)
	assert.Equal(t, []Bar{
		{Time: "2024-03-01", Open: 9, High: 10, Low: 8, Close: 10, Volume: 200},
		{Time: "2024-03-05", Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
	}, bars)
}
