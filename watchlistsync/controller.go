// Package watchlistsync keeps a local copy of a user's watchlist in sync with
// the server and merges live quotes into it. Adds and removes are applied
// locally first and rolled back when the server rejects them.
package watchlistsync

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/quotes"
	"github.com/abhivicks22/stockpulse/utils"
)

// PlaceholderPrefix starts the id of items that are not persisted yet
const PlaceholderPrefix = "temp-"

// Item is one watchlist entry as seen by the client
type Item struct {
	Id      string    `json:"id"`
	Symbol  string    `json:"symbol"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	AddedAt time.Time `json:"addedAt"`
}

// IsPlaceholder reports whether the item only exists locally
func (it Item) IsPlaceholder() bool {
	return strings.HasPrefix(it.Id, PlaceholderPrefix)
}

// Store is the watchlist of one user on the server
type Store interface {
	List(ctx context.Context) ([]Item, error)
	Add(ctx context.Context, symbol, name string) (Item, error)
	Remove(ctx context.Context, itemId string) error
}

// QuoteSource answers batched quote lookups
type QuoteSource interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]*quotes.Quote, error)
}

// State is a snapshot of the controller
type State struct {
	Items   []Item
	Quotes  map[string]*quotes.Quote
	Loading bool
	// Err is the last failure of a refresh or mutation
	Err error
}

// Controller reconciles the local watchlist with a Store. It is safe for
// concurrent use.
type Controller struct {
	store  Store
	quotes QuoteSource
	logger *logrus.Entry

	mu       sync.Mutex
	items    []Item
	prices   map[string]*quotes.Quote
	inflight int
	lastErr  error

	startedSeq   uint64 // sequence number of the latest started refresh
	completedSeq uint64 // sequence number of the latest applied refresh

	pendingAdds    map[string]Item     // placeholder id -> placeholder
	pendingRemoves map[string]struct{} // ids removed locally but not yet on the server

	listeners []func(State)
	wg        sync.WaitGroup
}

// NewController creates a Controller with an empty watchlist. Call Refresh to load it.
func NewController(store Store, qs QuoteSource) *Controller {
	return &Controller{
		store:  store,
		quotes: qs,
		logger: utils.Logger.WithFields(logrus.Fields{
			"module": "watchlistsync.Controller",
		}),
		prices:         make(map[string]*quotes.Quote),
		pendingAdds:    make(map[string]Item),
		pendingRemoves: make(map[string]struct{}),
	}
}

// OnChange registers fn to be called with a snapshot after every change
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	items := make([]Item, len(c.items))
	copy(items, c.items)

	prices := make(map[string]*quotes.Quote, len(c.prices))
	for symbol, q := range c.prices {
		prices[symbol] = q
	}

	return State{
		Items:   items,
		Quotes:  prices,
		Loading: c.inflight > 0,
		Err:     c.lastErr,
	}
}

// notify calls the listeners. Must be called without holding mu.
func (c *Controller) notify() {
	c.mu.Lock()
	state := c.snapshotLocked()
	listeners := append([]func(State){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// Wait blocks until every mutation started so far has finished
func (c *Controller) Wait() {
	c.wg.Wait()
}

// reapplyPending lays the optimistic operations still in flight over a list
// fresh from the server. Must be called with mu held.
func (c *Controller) reapplyPending(list []Item) []Item {
	present := make(map[string]bool, len(list))
	for _, it := range list {
		present[it.Symbol] = true
	}

	items := make([]Item, 0, len(list)+len(c.pendingAdds))
	for _, it := range c.items {
		if _, pending := c.pendingAdds[it.Id]; pending && !present[it.Symbol] {
			items = append(items, it)
		}
	}
	for _, it := range list {
		if _, removed := c.pendingRemoves[it.Id]; removed {
			continue
		}
		items = append(items, it)
	}
	return items
}

// Refresh reloads the watchlist from the store and then the quotes of its
// symbols. When the store fails, the current items are kept and the error is
// returned. A refresh overtaken by a newer one that already completed is
// discarded.
func (c *Controller) Refresh(ctx context.Context) error {
	var l = c.logger.WithFields(logrus.Fields{
		"method": "Refresh",
	})

	c.mu.Lock()
	c.startedSeq++
	seq := c.startedSeq
	c.inflight++
	c.mu.Unlock()
	c.notify()

	defer func() {
		c.mu.Lock()
		c.inflight--
		c.mu.Unlock()
		c.notify()
	}()

	list, err := c.store.List(ctx)

	c.mu.Lock()
	if seq < c.completedSeq {
		c.mu.Unlock()
		l.Debugf("Refresh %d overtaken by %d. Discarding", seq, c.completedSeq)
		return nil
	}
	if err != nil {
		c.lastErr = err
		stale := len(c.items)
		c.mu.Unlock()
		l.Warnf("Listing watchlist failed. Keeping %d stale items: '%+v'", stale, err)
		return err
	}
	c.completedSeq = seq
	c.items = c.reapplyPending(list)
	c.lastErr = nil
	symbols := make([]string, 0, len(c.items))
	for _, it := range c.items {
		symbols = append(symbols, it.Symbol)
	}
	c.mu.Unlock()
	c.notify()

	if len(symbols) == 0 || c.quotes == nil {
		return nil
	}

	fetched, err := c.quotes.GetQuotes(ctx, symbols)
	if err != nil {
		l.Warnf("Fetching quotes failed. Keeping old quotes: '%+v'", err)
		return nil
	}

	c.mu.Lock()
	if seq == c.completedSeq {
		for symbol, q := range fetched {
			c.prices[utils.NormalizeSymbol(symbol)] = q
		}
	}
	c.mu.Unlock()

	l.Debugf("Refreshed %d items and %d quotes", len(list), len(fetched))
	return nil
}

// AddSymbol shows a placeholder item at the top of the watchlist right away
// and adds symbol to the store in the background. On success the watchlist
// is refreshed; on failure the placeholder is removed. The outcome is sent on
// the returned channel, which callers may ignore.
func (c *Controller) AddSymbol(ctx context.Context, symbol, name string) <-chan error {
	var l = c.logger.WithFields(logrus.Fields{
		"method":       "AddSymbol",
		"param_symbol": symbol,
	})

	placeholder := Item{
		Id:      PlaceholderPrefix + uuid.New().String(),
		Symbol:  utils.NormalizeSymbol(symbol),
		Name:    strings.TrimSpace(name),
		Type:    "stock",
		AddedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	c.items = append([]Item{placeholder}, c.items...)
	c.pendingAdds[placeholder.Id] = placeholder
	c.mu.Unlock()
	c.notify()

	result := make(chan error, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		_, err := c.store.Add(ctx, placeholder.Symbol, placeholder.Name)

		c.mu.Lock()
		delete(c.pendingAdds, placeholder.Id)
		if err != nil {
			c.items = removeItem(c.items, placeholder.Id)
			c.lastErr = err
		}
		c.mu.Unlock()

		if err != nil {
			l.Warnf("Add failed. Rolled back: '%+v'", err)
			c.notify()
			result <- err
			return
		}

		l.Debugf("Added. Refreshing")
		c.Refresh(ctx)
		result <- nil
	}()

	return result
}

// RemoveSymbol removes the item from the local watchlist right away and from
// the store in the background. If the store fails, the watchlist is
// refreshed so the item shows up again.
func (c *Controller) RemoveSymbol(ctx context.Context, itemId string) <-chan error {
	var l = c.logger.WithFields(logrus.Fields{
		"method":       "RemoveSymbol",
		"param_itemId": itemId,
	})

	c.mu.Lock()
	c.items = removeItem(c.items, itemId)
	c.pendingRemoves[itemId] = struct{}{}
	c.mu.Unlock()
	c.notify()

	result := make(chan error, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		err := c.store.Remove(ctx, itemId)

		c.mu.Lock()
		delete(c.pendingRemoves, itemId)
		if err != nil {
			c.lastErr = err
		}
		c.mu.Unlock()

		if err != nil {
			l.Warnf("Remove failed. Refreshing: '%+v'", err)
			c.Refresh(ctx)
		}
		result <- err
	}()

	return result
}

func removeItem(items []Item, id string) []Item {
	out := items[:0:0]
	for _, it := range items {
		if it.Id != id {
			out = append(out, it)
		}
	}
	return out
}
