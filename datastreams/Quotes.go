package datastreams

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/quotes"
	"github.com/abhivicks22/stockpulse/utils"
)

// QuotesUpdate is sent to quotes listeners. It holds the quotes that changed
// since the previous update, keyed by symbol.
type QuotesUpdate struct {
	Quotes map[string]*quotes.Quote `json:"quotes"`
}

// QuotesStream interface defines the interface to interact with the Quotes stream
type QuotesStream interface {
	Run(ctx context.Context)
	SendQuotes(qs []*quotes.Quote)
	AddListener(done <-chan struct{}, updates chan interface{}, sessionId string)
	RemoveListener(sessionId string)
}

// quotesStream implements QuotesStream interface
type quotesStream struct {
	logger          *logrus.Entry
	broadcastStream BroadcastStream
	interval        time.Duration

	quotesMutex    sync.Mutex
	dirtyQuotes    map[string]*quotes.Quote // quotes we haven't sent yet
	lastSentPrices map[string]float64       // last price queued per symbol
}

// newQuotesStream creates a new QuotesStream flushing every interval
func newQuotesStream(interval time.Duration) *quotesStream {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &quotesStream{
		logger: utils.Logger.WithFields(logrus.Fields{
			"module": "datastreams.QuotesStream",
		}),
		broadcastStream: NewBroadcastStream(),
		interval:        interval,
		dirtyQuotes:     make(map[string]*quotes.Quote),
		lastSentPrices:  make(map[string]float64),
	}
}

// Run flushes the dirty quotes to all listeners every interval, until ctx is
// done. Call in a goroutine.
func (qs *quotesStream) Run(ctx context.Context) {
	var l = qs.logger.WithFields(logrus.Fields{
		"method": "Run",
	})

	defer func() {
		if r := recover(); r != nil {
			l.Errorf("Error! Stack trace: %s", string(debug.Stack()))
		}
	}()

	ticker := time.NewTicker(qs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Infof("Stopping")
			return
		case <-ticker.C:
			qs.flush()
		}
	}
}

// flush broadcasts the dirty quotes, if any. Returns whether anything was sent.
func (qs *quotesStream) flush() bool {
	var l = qs.logger.WithFields(logrus.Fields{
		"method": "flush",
	})

	qs.quotesMutex.Lock()
	if len(qs.dirtyQuotes) == 0 {
		qs.quotesMutex.Unlock()
		return false
	}
	update := &QuotesUpdate{Quotes: qs.dirtyQuotes}
	qs.dirtyQuotes = make(map[string]*quotes.Quote)
	qs.quotesMutex.Unlock()

	sent := qs.broadcastStream.BroadcastUpdate(update)

	l.Debugf("Sent %d quotes to %d listeners", len(update.Quotes), sent)
	return true
}

// SendQuotes queues the quotes whose price moved for the next update. It
// doesn't send them immediately. That's done by Run.
func (qs *quotesStream) SendQuotes(batch []*quotes.Quote) {
	var l = qs.logger.WithFields(logrus.Fields{
		"method":      "SendQuotes",
		"param_count": len(batch),
	})

	queued := 0
	qs.quotesMutex.Lock()
	for _, q := range batch {
		if q == nil {
			continue
		}
		if last, ok := qs.lastSentPrices[q.Symbol]; ok && last == q.Price {
			continue
		}
		qs.lastSentPrices[q.Symbol] = q.Price
		qs.dirtyQuotes[q.Symbol] = q
		queued++
	}
	qs.quotesMutex.Unlock()

	l.Debugf("Queued %d quotes for the next update", queued)
}

// AddListener adds a listener to the QuotesStream
func (qs *quotesStream) AddListener(done <-chan struct{}, update chan interface{}, sessionId string) {
	var l = qs.logger.WithFields(logrus.Fields{
		"method":          "AddListener",
		"param_sessionId": sessionId,
	})

	qs.broadcastStream.AddListener(sessionId, &listener{
		update: update,
		done:   done,
	})

	l.Infof("Added")
}

// RemoveListener removes a listener from the QuotesStream
func (qs *quotesStream) RemoveListener(sessionId string) {
	var l = qs.logger.WithFields(logrus.Fields{
		"method":          "RemoveListener",
		"param_sessionId": sessionId,
	})

	qs.broadcastStream.RemoveListener(sessionId)

	l.Infof("Removed")
}
