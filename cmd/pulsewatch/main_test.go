package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhivicks22/stockpulse/watchlistsync"
)

const testServer = "https://stockpulse.test"

func newMockedController(t *testing.T) *watchlistsync.Controller {
	b := watchlistsync.NewHTTPBackend(testServer, "session-1", time.Second)
	httpmock.ActivateNonDefault(b.Client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return watchlistsync.NewController(b, b)
}

func TestRunList(t *testing.T) {
	c := newMockedController(t)
	httpmock.RegisterResponder("GET", testServer+"/watchlist",
		httpmock.NewStringResponder(200, `[{"id":"a1","symbol":"AAPL","name":"Apple Inc.","type":"stock"}]`))
	httpmock.RegisterResponder("GET", testServer+"/stocks",
		httpmock.NewStringResponder(200, `{"symbol":"AAPL","price":190.5,"change":-1.25,"changePercent":-0.65}`))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), c, []string{"list"}, time.Second, &out))

	assert.Contains(t, out.String(), "AAPL")
	assert.Contains(t, out.String(), "190.50")
	assert.Contains(t, out.String(), "-1.25")
}

func TestRunEmptyList(t *testing.T) {
	c := newMockedController(t)
	httpmock.RegisterResponder("GET", testServer+"/watchlist", httpmock.NewStringResponder(200, `[]`))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), c, nil, time.Second, &out))
	assert.Equal(t, "Watchlist is empty\n", out.String())
}

func TestRunAddRejected(t *testing.T) {
	c := newMockedController(t)
	httpmock.RegisterResponder("GET", testServer+"/watchlist", httpmock.NewStringResponder(200, `[]`))
	httpmock.RegisterResponder("POST", testServer+"/watchlist",
		httpmock.NewStringResponder(400, `{"error":"Max 20 items allowed"}`))

	var out bytes.Buffer
	err := run(context.Background(), c, []string{"add", "TSLA", "Tesla", "Inc."}, time.Second, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Max 20 items allowed")
	assert.Empty(t, c.Snapshot().Items)
}

func TestRunUsageErrors(t *testing.T) {
	c := newMockedController(t)
	var out bytes.Buffer

	assert.Error(t, run(context.Background(), c, []string{"add", "TSLA"}, time.Second, &out))
	assert.Error(t, run(context.Background(), c, []string{"remove"}, time.Second, &out))
	assert.Error(t, run(context.Background(), c, []string{"frobnicate"}, time.Second, &out))
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}
