// Package sentiment estimates a bullish/bearish signal for a symbol from the
// headlines of its recent news.
package sentiment

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/quotes"
	"github.com/abhivicks22/stockpulse/utils"
)

const (
	Bullish = "Bullish"
	Bearish = "Bearish"
	Neutral = "Neutral"
)

const (
	newsWindowDays = 7
	maxHeadlines   = 20
	maxReported    = 5
)

var positiveWords = wordSet(
	"surge", "rally", "beat", "growth", "upgrade", "bullish", "record", "gains", "profit", "outperform",
	"buy", "strong", "soar", "boom", "rise", "high", "up", "positive", "win", "success",
)

var negativeWords = wordSet(
	"crash", "decline", "miss", "downgrade", "bearish", "loss", "sell", "weak", "warning", "risk",
	"drop", "fall", "plunge", "fear", "low", "down", "negative", "fail", "concern", "worry",
)

var nonWord = regexp.MustCompile(`\W+`)

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Result is the sentiment of one symbol
type Result struct {
	Symbol    string   `json:"symbol"`
	Score     int      `json:"score"`
	Label     string   `json:"label"`
	Summary   string   `json:"summary"`
	Headlines []string `json:"headlines"`
}

// NewsSource returns the headlines about a symbol published between from and to
type NewsSource interface {
	FetchCompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]string, error)
}

// ScoreHeadline scores text from 0 (only negative words) to 100 (only
// positive words). Text without any listed word scores 50.
func ScoreHeadline(text string) int {
	var pos, neg int
	for _, w := range nonWord.Split(strings.ToLower(text), -1) {
		if positiveWords[w] {
			pos++
		}
		if negativeWords[w] {
			neg++
		}
	}
	if pos+neg == 0 {
		return 50
	}
	return int(math.Round(float64(pos) / float64(pos+neg) * 100))
}

// LabelFor maps a score to Bullish (above 60), Bearish (below 40) or Neutral
func LabelFor(score int) string {
	switch {
	case score > 60:
		return Bullish
	case score < 40:
		return Bearish
	default:
		return Neutral
	}
}

// FromHeadlines aggregates the scores of the given headlines. It returns nil
// when there are none.
func FromHeadlines(symbol string, headlines []string) *Result {
	if len(headlines) == 0 {
		return nil
	}
	if len(headlines) > maxHeadlines {
		headlines = headlines[:maxHeadlines]
	}

	total := 0
	for _, h := range headlines {
		total += ScoreHeadline(h)
	}
	score := int(math.Round(float64(total) / float64(len(headlines))))

	reported := headlines
	if len(reported) > maxReported {
		reported = reported[:maxReported]
	}

	return &Result{
		Symbol:    symbol,
		Score:     score,
		Label:     LabelFor(score),
		Summary:   headlines[0],
		Headlines: append([]string{}, reported...),
	}
}

// Mock returns the deterministic sentiment used when no news is available
func Mock(symbol string) *Result {
	hash := 0
	for _, c := range symbol {
		hash += int(c)
	}
	score := 30 + hash%50

	pick := func(threshold int, above, otherwise string) string {
		if score > threshold {
			return above
		}
		return otherwise
	}

	return &Result{
		Symbol:  symbol,
		Score:   score,
		Label:   LabelFor(score),
		Summary: fmt.Sprintf("%s shows %s market signals based on recent activity.", symbol, pick(55, "positive", "mixed")),
		Headlines: []string{
			fmt.Sprintf("%s reports %s quarterly performance", symbol, pick(55, "strong", "mixed")),
			fmt.Sprintf("Analysts %s %s amid market shifts", pick(55, "upgrade", "watch"), symbol),
			fmt.Sprintf("%s trading volume %s on sector news", symbol, pick(50, "rises", "stabilizes")),
		},
	}
}

// Estimator computes and caches sentiment results
type Estimator struct {
	news   NewsSource
	cache  *utils.TTLCache
	now    func() time.Time
	logger *logrus.Entry
}

// NewEstimator creates an Estimator. A nil news source always yields the mock.
func NewEstimator(news NewsSource, cacheSize int, ttl time.Duration) *Estimator {
	return &Estimator{
		news:  news,
		cache: utils.NewTTLCache(cacheSize, ttl),
		now:   time.Now,
		logger: utils.Logger.WithFields(logrus.Fields{
			"module": "sentiment.Estimator",
		}),
	}
}

// NewEstimatorFromConfig uses Finnhub company news when a Finnhub key is configured
func NewEstimatorFromConfig(config *utils.Config) *Estimator {
	var news NewsSource
	if !quotes.IsPlaceholderKey(config.FinnhubApiKey) {
		news = quotes.NewFinnhubProvider(
			config.FinnhubBaseUrl,
			config.FinnhubApiKey,
			time.Duration(config.HttpTimeoutSeconds)*time.Second,
		)
	}
	return NewEstimator(news, config.CacheSize, time.Duration(config.SentimentCacheSeconds)*time.Second)
}

// SetClock replaces the clock used for the news window and caching. Used by tests.
func (e *Estimator) SetClock(now func() time.Time) {
	e.now = now
	e.cache.SetClock(now)
}

// GetSentiment returns the sentiment of symbol. It never fails: upstream
// errors and empty news fall back to Mock.
func (e *Estimator) GetSentiment(ctx context.Context, symbol string) *Result {
	var l = e.logger.WithFields(logrus.Fields{
		"method":       "GetSentiment",
		"param_symbol": symbol,
	})

	symbol = utils.NormalizeSymbol(symbol)

	if cached, ok := e.cache.Get(symbol); ok {
		l.Debugf("Serving cached sentiment")
		return copyResult(cached.(*Result))
	}

	var result *Result
	if e.news != nil {
		to := e.now()
		from := to.AddDate(0, 0, -newsWindowDays)
		headlines, err := e.news.FetchCompanyNews(ctx, symbol, from, to)
		if err != nil {
			l.Warnf("Fetching news failed: '%+v'", err)
		} else {
			result = FromHeadlines(symbol, headlines)
		}
	}
	if result == nil {
		l.Debugf("No news. Using mock sentiment")
		result = Mock(symbol)
	}

	e.cache.Set(symbol, result)
	return copyResult(result)
}

func copyResult(r *Result) *Result {
	c := *r
	c.Headlines = append([]string{}, r.Headlines...)
	return &c
}
