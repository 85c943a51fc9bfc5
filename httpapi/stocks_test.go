package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhivicks22/stockpulse/quotes"
	"github.com/abhivicks22/stockpulse/sentiment"
)

func TestGetQuotesShape(t *testing.T) {
	rr := do(http.MethodGet, "/stocks?symbols=aapl", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	q := &quotes.Quote{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), q))
	assert.Equal(t, "AAPL", q.Symbol)
	assert.True(t, q.High >= q.Low)

	rr = do(http.MethodGet, "/stocks", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	q = &quotes.Quote{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), q))
	assert.Equal(t, "AAPL", q.Symbol)

	rr = do(http.MethodGet, "/stocks?symbols=TSLA,%20aapl,TSLA", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := []*quotes.Quote{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "TSLA", list[0].Symbol)
	assert.Equal(t, "AAPL", list[1].Symbol)
}

func TestGetSentiment(t *testing.T) {
	rr := do(http.MethodGet, "/stocks/sentiment?symbol=aapl", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	r := &sentiment.Result{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), r))
	assert.Equal(t, sentiment.Mock("AAPL"), r)
	assert.Equal(t, sentiment.LabelFor(r.Score), r.Label)
}

func TestGetTickerAndSearch(t *testing.T) {
	rr := do(http.MethodGet, "/stocks/ticker", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := []*quotes.Quote{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, len(quotes.PopularSymbols))

	rr = do(http.MethodGet, "/stocks/search?q=tesla", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	results := []quotes.SearchResult{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "TSLA", results[0].Symbol)
}

func TestGetHistory(t *testing.T) {
	rr := do(http.MethodGet, "/stocks/tsla?range=1m", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	bars := []quotes.Bar{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &bars))
	require.NotEmpty(t, bars)
	for _, b := range bars {
		date, err := time.Parse("2006-01-02", b.Time)
		require.NoError(t, err)
		assert.NotEqual(t, time.Saturday, date.Weekday())
		assert.NotEqual(t, time.Sunday, date.Weekday())
	}
}

func TestCORSPreflight(t *testing.T) {
	req, _ := http.NewRequest(http.MethodOptions, "/watchlist", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr := newRecorder(req)
	assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
