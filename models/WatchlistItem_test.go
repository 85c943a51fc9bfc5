package models

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddWatchlistItemThenList(t *testing.T) {
	cleanTables(t)
	u := makeUser(t, "add@test.com")

	item, err := AddWatchlistItem(u.Id, " aapl ", "Apple Inc.", "")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", item.Symbol)
	assert.Equal(t, DefaultInstrumentType, item.Type)
	assert.NotEmpty(t, item.Id)

	items, err := GetWatchlist(u.Id)
	require.NoError(t, err)

	found := 0
	for _, it := range items {
		if it.Symbol == "AAPL" {
			found++
			assert.Equal(t, item.Id, it.Id)
			assert.Equal(t, "Apple Inc.", it.Name)
		}
	}
	assert.Equal(t, 1, found, "AAPL should be listed exactly once")
}

func TestAddWatchlistItemInvalidArguments(t *testing.T) {
	cleanTables(t)
	u := makeUser(t, "invalid@test.com")

	var testcases = []struct {
		symbol string
		name   string
	}{
		{"", "Apple Inc."},
		{"AAPL", ""},
		{"   ", "  "},
	}

	for _, tc := range testcases {
		_, err := AddWatchlistItem(u.Id, tc.symbol, tc.name, "stock")
		assert.True(t, errors.Is(err, InvalidArgumentError), "AddWatchlistItem(%q, %q) = %v", tc.symbol, tc.name, err)
	}

	count, err := CountWatchlistItems(u.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAddWatchlistItemLimit(t *testing.T) {
	cleanTables(t)
	u := makeUser(t, "limit@test.com")

	for i := 0; i < MaxWatchlistItems; i++ {
		_, err := AddWatchlistItem(u.Id, fmt.Sprintf("SYM%d", i), fmt.Sprintf("Symbol %d", i), "stock")
		require.NoError(t, err)
	}

	_, err := AddWatchlistItem(u.Id, "ONEMORE", "One More", "stock")
	assert.True(t, errors.Is(err, LimitExceededError), "expected LimitExceededError, got %v", err)
	assert.Equal(t, "Max 20 items allowed", err.Error())

	count, err := CountWatchlistItems(u.Id)
	require.NoError(t, err)
	assert.Equal(t, MaxWatchlistItems, count)

	// the limit is per user
	other := makeUser(t, "limit-other@test.com")
	_, err = AddWatchlistItem(other.Id, "ONEMORE", "One More", "stock")
	assert.NoError(t, err)
}

func TestAddWatchlistItemDuplicate(t *testing.T) {
	cleanTables(t)
	u := makeUser(t, "dup@test.com")

	_, err := AddWatchlistItem(u.Id, "TSLA", "Tesla Inc.", "stock")
	require.NoError(t, err)

	_, err = AddWatchlistItem(u.Id, "tsla", "Tesla Inc.", "stock")
	assert.True(t, errors.Is(err, AlreadyExistsError), "expected AlreadyExistsError, got %v", err)

	// a different user can track the same symbol
	other := makeUser(t, "dup-other@test.com")
	_, err = AddWatchlistItem(other.Id, "TSLA", "Tesla Inc.", "stock")
	assert.NoError(t, err)
}

func TestAddWatchlistItemConcurrentDuplicate(t *testing.T) {
	cleanTables(t)
	u := makeUser(t, "race@test.com")

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = AddWatchlistItem(u.Id, "NVDA", "NVIDIA Corporation", "stock")
		}(i)
	}
	wg.Wait()

	succeeded, duplicates := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, AlreadyExistsError):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, duplicates)

	count, err := CountWatchlistItems(u.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddWatchlistItemConcurrentLastSlot(t *testing.T) {
	cleanTables(t)
	u := makeUser(t, "lastslot@test.com")

	for i := 0; i < MaxWatchlistItems-1; i++ {
		_, err := AddWatchlistItem(u.Id, fmt.Sprintf("SYM%d", i), fmt.Sprintf("Symbol %d", i), "stock")
		require.NoError(t, err)
	}

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = AddWatchlistItem(u.Id, fmt.Sprintf("LAST%d", i), "Last slot", "stock")
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, LimitExceededError):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, rejected)

	count, err := CountWatchlistItems(u.Id)
	require.NoError(t, err)
	assert.Equal(t, MaxWatchlistItems, count)
}

func TestAddWatchlistItemUnknownUser(t *testing.T) {
	cleanTables(t)

	_, err := AddWatchlistItem(987654, "AAPL", "Apple Inc.", "stock")
	assert.True(t, errors.Is(err, UserNotFoundError), "expected UserNotFoundError, got %v", err)

	count, err := CountWatchlistItems(987654)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRowLockOption(t *testing.T) {
	var testcases = []struct {
		dialect string
		want    string
	}{
		{"mysql", "FOR UPDATE"},
		{"postgres", "FOR UPDATE"},
		{"sqlite3", ""},
	}

	for _, tc := range testcases {
		assert.Equal(t, tc.want, rowLockOption(tc.dialect), "rowLockOption(%q)", tc.dialect)
	}
}

func TestGetWatchlistNewestFirst(t *testing.T) {
	cleanTables(t)
	useTickingClock(t)
	u := makeUser(t, "order@test.com")

	for _, s := range []string{"AAPL", "MSFT", "AMZN"} {
		_, err := AddWatchlistItem(u.Id, s, s+" name", "stock")
		require.NoError(t, err)
	}

	items, err := GetWatchlist(u.Id)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "AMZN", items[0].Symbol)
	assert.Equal(t, "MSFT", items[1].Symbol)
	assert.Equal(t, "AAPL", items[2].Symbol)
}

func TestGetWatchlistScopedToUser(t *testing.T) {
	cleanTables(t)
	u := makeUser(t, "scope-u@test.com")
	v := makeUser(t, "scope-v@test.com")

	_, err := AddWatchlistItem(v.Id, "META", "Meta Platforms Inc.", "stock")
	require.NoError(t, err)

	items, err := GetWatchlist(u.Id)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRemoveWatchlistItemNonexistent(t *testing.T) {
	cleanTables(t)
	u := makeUser(t, "remove-none@test.com")

	_, err := AddWatchlistItem(u.Id, "AMD", "Advanced Micro Devices", "stock")
	require.NoError(t, err)

	assert.NoError(t, RemoveWatchlistItem(u.Id, "no-such-id", ""))
	assert.NoError(t, RemoveWatchlistItem(u.Id, "", ""))

	count, err := CountWatchlistItems(u.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRemoveWatchlistItemNeverCrossesUsers(t *testing.T) {
	cleanTables(t)
	u := makeUser(t, "remove-u@test.com")
	v := makeUser(t, "remove-v@test.com")

	vItem, err := AddWatchlistItem(v.Id, "JPM", "JPMorgan Chase & Co.", "stock")
	require.NoError(t, err)

	assert.NoError(t, RemoveWatchlistItem(u.Id, vItem.Id, ""))
	assert.NoError(t, RemoveWatchlistItem(u.Id, "", "JPM"))

	items, err := GetWatchlist(v.Id)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, vItem.Id, items[0].Id)
}

func TestRemoveWatchlistItem(t *testing.T) {
	cleanTables(t)
	u := makeUser(t, "remove@test.com")

	byId, err := AddWatchlistItem(u.Id, "NFLX", "Netflix Inc.", "stock")
	require.NoError(t, err)
	_, err = AddWatchlistItem(u.Id, "BTC-USD", "Bitcoin", "crypto")
	require.NoError(t, err)

	require.NoError(t, RemoveWatchlistItem(u.Id, byId.Id, ""))
	require.NoError(t, RemoveWatchlistItem(u.Id, "", "btc-usd"))

	count, err := CountWatchlistItems(u.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetTrackedSymbols(t *testing.T) {
	cleanTables(t)
	u := makeUser(t, "tracked-u@test.com")
	v := makeUser(t, "tracked-v@test.com")

	for _, s := range []string{"TSLA", "AAPL"} {
		_, err := AddWatchlistItem(u.Id, s, s, "stock")
		require.NoError(t, err)
	}
	_, err := AddWatchlistItem(v.Id, "AAPL", "Apple Inc.", "stock")
	require.NoError(t, err)

	symbols, err := GetTrackedSymbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "TSLA"}, symbols)
}
