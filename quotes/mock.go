package quotes

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// seededRandom returns a linear congruential generator yielding values in [0, 1]
func seededRandom(seed uint32) func() float64 {
	s := seed
	return func() float64 {
		s = s*1664525 + 1013904223
		return float64(s) / 0xffffffff
	}
}

// symbolSeed is the sum of the character codes of symbol
func symbolSeed(symbol string) uint32 {
	var sum uint32
	for _, c := range symbol {
		sum += uint32(c)
	}
	return sum
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// MockQuote returns a synthetic quote for symbol. The result only depends on
// the symbol and on which window of the given length now falls into, so
// repeated calls within a window agree.
func MockQuote(symbol string, now time.Time, window time.Duration) *Quote {
	base := basePrice(symbol)

	seed := symbolSeed(symbol)
	if window > 0 {
		seed += uint32((now.UnixNano() / int64(window)) % 1000)
	}
	rand := seededRandom(seed)

	change := (rand() - 0.5) * base * 0.04
	price := base + change
	volume := int64(math.Floor(5000000 + rand()*45000000))
	marketCap := int64(math.Floor(price * 1000000000 * (rand()*10 + 1)))

	return &Quote{
		Symbol:        symbol,
		Name:          NameFor(symbol),
		Price:         round2(price),
		Change:        round2(change),
		ChangePercent: round2(change / base * 100),
		High:          round2(price * 1.015),
		Low:           round2(price * 0.985),
		Volume:        volume,
		MarketCap:     &marketCap,
	}
}

// MockHistory returns synthetic daily candles for the trading days among the
// last days days before now. The price path only depends on the symbol.
func MockHistory(symbol string, days int, now time.Time) []Bar {
	rand := seededRandom(symbolSeed(symbol))
	price := basePrice(symbol)
	bars := make([]Bar, 0, days)

	for i := days; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		changePercent := (rand() - 0.48) * 0.04
		open := price
		price = math.Max(1, price*(1+changePercent))
		high := math.Max(open, price) * (1 + rand()*0.015)
		low := math.Min(open, price) * (1 - rand()*0.015)
		volume := int64(math.Floor(1000000 + rand()*49000000))

		bars = append(bars, Bar{
			Time:   date.Format("2006-01-02"),
			Open:   round2(open),
			High:   round2(high),
			Low:    round2(low),
			Close:  round2(price),
			Volume: volume,
		})
	}
	return bars
}
