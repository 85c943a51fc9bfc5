// Package scheduler runs the periodic market ticker job.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/datastreams"
	"github.com/abhivicks22/stockpulse/models"
	"github.com/abhivicks22/stockpulse/quotes"
	"github.com/abhivicks22/stockpulse/utils"
)

var logger = utils.Logger.WithFields(logrus.Fields{
	"module": "scheduler",
})

var getTrackedSymbols = models.GetTrackedSymbols

// QuoteSource is the part of quotes.Service the ticker needs
type QuoteSource interface {
	GetQuoteList(ctx context.Context, symbols []string) []*quotes.Quote
}

// Scheduler owns the cron jobs of the server
type Scheduler struct {
	Cron    *cron.Cron
	Quotes  QuoteSource
	Stream  datastreams.QuotesStream
	Timeout time.Duration
}

// NewScheduler creates a Scheduler. Nothing runs before Start.
func NewScheduler(qs QuoteSource, stream datastreams.QuotesStream, timeout time.Duration) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Quotes:  qs,
		Stream:  stream,
		Timeout: timeout,
	}
}

// RegisterAll registers the ticker job on tickerCron, a six field cron spec
func (s *Scheduler) RegisterAll(tickerCron string) error {
	if _, err := s.Cron.AddFunc(tickerCron, s.tickerTask); err != nil {
		return fmt.Errorf("register ticker task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Infof("Scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Infof("Scheduler stopped")
}

// RunTickerNow runs the ticker job immediately. Used on startup.
func (s *Scheduler) RunTickerNow() int {
	return s.tick()
}

func (s *Scheduler) tickerTask() {
	s.tick()
}

// tick refreshes the quotes of the catalog and of every watched symbol and
// queues them on the quotes stream. Returns how many quotes were fetched.
func (s *Scheduler) tick() int {
	var l = logger.WithFields(logrus.Fields{
		"method": "tick",
	})

	defer func() {
		if r := recover(); r != nil {
			l.Errorf("Error! Stack trace: %s", string(debug.Stack()))
		}
	}()

	symbols := quotes.PopularSymbolList()
	tracked, err := getTrackedSymbols()
	if err != nil {
		l.Warnf("Couldn't load watched symbols. Ticking the catalog only: '%+v'", err)
	}
	symbols = utils.UniqueSymbols(append(symbols, tracked...))

	ctx := context.Background()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	list := s.Quotes.GetQuoteList(ctx, symbols)
	if s.Stream != nil {
		s.Stream.SendQuotes(list)
	}

	l.Debugf("Refreshed %d quotes", len(list))
	return len(list)
}
