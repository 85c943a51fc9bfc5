package quotes

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/utils"
)

// rangeDays maps the chart ranges to a number of days
var rangeDays = map[string]int{
	"1d": 1, "1w": 7, "1m": 30, "3m": 90, "1y": 365, "all": 730,
}

// DefaultHistoryDays is used for unknown ranges
const DefaultHistoryDays = 90

// mockWindow is how long a mock quote stays the same
const mockWindow = time.Minute

// maxParallelFetches bounds the concurrent provider calls of one GetQuotes
const maxParallelFetches = 4

// DaysForRange returns the number of days a chart range covers
func DaysForRange(r string) int {
	if days, ok := rangeDays[strings.ToLower(r)]; ok {
		return days
	}
	return DefaultHistoryDays
}

// Service answers quote and history lookups from its providers, falling back
// to mock data, and caches the answers for a short while
type Service struct {
	providers    []Provider
	history      HistoryProvider
	quoteCache   *utils.TTLCache
	historyCache *utils.TTLCache
	now          func() time.Time
	logger       *logrus.Entry
}

// NewService creates a Service. Providers are tried in order. history may be nil.
func NewService(providers []Provider, history HistoryProvider, cacheSize int, quoteTTL, historyTTL time.Duration) *Service {
	return &Service{
		providers:    providers,
		history:      history,
		quoteCache:   utils.NewTTLCache(cacheSize, quoteTTL),
		historyCache: utils.NewTTLCache(cacheSize, historyTTL),
		now:          time.Now,
		logger: utils.Logger.WithFields(logrus.Fields{
			"module": "quotes.Service",
		}),
	}
}

// NewServiceFromConfig wires the Finnhub and Alpha Vantage providers that have
// an API key configured
func NewServiceFromConfig(config *utils.Config) *Service {
	timeout := time.Duration(config.HttpTimeoutSeconds) * time.Second

	var providers []Provider
	if !IsPlaceholderKey(config.FinnhubApiKey) {
		providers = append(providers, NewFinnhubProvider(config.FinnhubBaseUrl, config.FinnhubApiKey, timeout))
	}

	var history HistoryProvider
	if !IsPlaceholderKey(config.AlphaVantageApiKey) {
		av := NewAlphaVantageProvider(config.AlphaVantageBaseUrl, config.AlphaVantageApiKey, timeout)
		providers = append(providers, av)
		history = av
	}

	s := NewService(
		providers,
		history,
		config.CacheSize,
		time.Duration(config.QuoteCacheSeconds)*time.Second,
		time.Duration(config.HistoryCacheSeconds)*time.Second,
	)
	s.logger.Infof("Quote service started with %d live providers", len(providers))
	return s
}

// SetClock replaces the clock used for caching and mock data. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.quoteCache.SetClock(now)
	s.historyCache.SetClock(now)
}

// GetQuote returns the quote of one symbol. It never fails.
func (s *Service) GetQuote(ctx context.Context, symbol string) *Quote {
	var l = s.logger.WithFields(logrus.Fields{
		"method":       "GetQuote",
		"param_symbol": symbol,
	})

	symbol = normalize(symbol)

	if cached, ok := s.quoteCache.Get(symbol); ok {
		l.Debugf("Serving cached quote")
		return cached.(*Quote).copy()
	}

	var q *Quote
	for _, p := range s.providers {
		live, err := p.FetchQuote(ctx, symbol)
		if err != nil {
			l.Warnf("Provider %s failed: '%+v'", p.Name(), err)
			continue
		}
		q = live
		break
	}
	if q == nil {
		l.Debugf("No live quote. Using mock data")
		q = MockQuote(symbol, s.now(), mockWindow)
	}

	s.quoteCache.Set(symbol, q)
	return q.copy()
}

// GetQuotes returns one quote per distinct requested symbol, keyed by the
// normalized symbol. It never fails.
func (s *Service) GetQuotes(ctx context.Context, symbols []string) map[string]*Quote {
	symbols = utils.UniqueSymbols(symbols)
	result := make(map[string]*Quote, len(symbols))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, maxParallelFetches)
	)
	for _, symbol := range symbols {
		wg.Add(1)
		sem <- struct{}{}
		go func(symbol string) {
			defer func() {
				<-sem
				wg.Done()
			}()
			q := s.GetQuote(ctx, symbol)
			mu.Lock()
			result[symbol] = q
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	return result
}

// GetQuoteList is GetQuotes keeping the order of the requested symbols
func (s *Service) GetQuoteList(ctx context.Context, symbols []string) []*Quote {
	symbols = utils.UniqueSymbols(symbols)
	bySymbol := s.GetQuotes(ctx, symbols)

	list := make([]*Quote, 0, len(symbols))
	for _, symbol := range symbols {
		list = append(list, bySymbol[symbol])
	}
	return list
}

// GetHistory returns the daily candles of symbol over the given chart range
// ("1d", "1w", "1m", "3m", "1y" or "all"). It never fails.
func (s *Service) GetHistory(ctx context.Context, symbol, chartRange string) []Bar {
	var l = s.logger.WithFields(logrus.Fields{
		"method":       "GetHistory",
		"param_symbol": symbol,
		"param_range":  chartRange,
	})

	symbol = normalize(symbol)
	days := DaysForRange(chartRange)
	key := symbol + "|" + strings.ToLower(chartRange)

	if cached, ok := s.historyCache.Get(key); ok {
		l.Debugf("Serving cached history")
		return copyBars(cached.([]Bar))
	}

	var bars []Bar
	if s.history != nil {
		live, err := s.history.FetchDailyBars(ctx, symbol, days)
		if err != nil {
			l.Warnf("Provider %s failed: '%+v'", s.history.Name(), err)
		} else {
			bars = live
		}
	}
	if bars == nil {
		l.Debugf("No live history. Using mock data")
		bars = MockHistory(symbol, days, s.now())
	}

	s.historyCache.Set(key, bars)
	return copyBars(bars)
}

func copyBars(bars []Bar) []Bar {
	out := make([]Bar, len(bars))
	copy(out, bars)
	return out
}
