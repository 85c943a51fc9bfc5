package quotes

import (
	"strings"

	"github.com/abhivicks22/stockpulse/utils"
)

// SearchResult describes a symbol users can add to their watchlist
type SearchResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Region string `json:"region"`
}

// PopularSymbols is the catalog shown in the market ticker and searched by Search
var PopularSymbols = []SearchResult{
	{Symbol: "AAPL", Name: "Apple Inc.", Type: "Stock", Region: "US"},
	{Symbol: "TSLA", Name: "Tesla Inc.", Type: "Stock", Region: "US"},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Type: "Stock", Region: "US"},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Type: "Stock", Region: "US"},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", Type: "Stock", Region: "US"},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", Type: "Stock", Region: "US"},
	{Symbol: "META", Name: "Meta Platforms Inc.", Type: "Stock", Region: "US"},
	{Symbol: "NFLX", Name: "Netflix Inc.", Type: "Stock", Region: "US"},
	{Symbol: "AMD", Name: "Advanced Micro Devices", Type: "Stock", Region: "US"},
	{Symbol: "JPM", Name: "JPMorgan Chase & Co.", Type: "Stock", Region: "US"},
	{Symbol: "BTC-USD", Name: "Bitcoin", Type: "Crypto", Region: "Global"},
	{Symbol: "ETH-USD", Name: "Ethereum", Type: "Crypto", Region: "Global"},
	{Symbol: "SOL-USD", Name: "Solana", Type: "Crypto", Region: "Global"},
}

// basePrices anchor the mock data of well known symbols. Others start at 100.
var basePrices = map[string]float64{
	"AAPL": 190, "TSLA": 250, "GOOGL": 175, "MSFT": 420, "AMZN": 185,
	"NVDA": 875, "META": 510, "NFLX": 620, "AMD": 165, "JPM": 200,
	"BTC-USD": 65000, "ETH-USD": 3500, "SOL-USD": 180,
}

func basePrice(symbol string) float64 {
	if p, ok := basePrices[symbol]; ok {
		return p
	}
	return 100
}

// NameFor returns the display name of a catalog symbol, or the symbol itself
func NameFor(symbol string) string {
	for _, s := range PopularSymbols {
		if s.Symbol == symbol {
			return s.Name
		}
	}
	return symbol
}

// PopularSymbolList returns the symbols of the catalog
func PopularSymbolList() []string {
	symbols := make([]string, len(PopularSymbols))
	for i, s := range PopularSymbols {
		symbols[i] = s.Symbol
	}
	return symbols
}

// Search returns the catalog entries whose symbol or name contains query,
// ignoring case. An empty query returns the whole catalog.
func Search(query string) []SearchResult {
	query = strings.ToLower(strings.TrimSpace(query))
	results := []SearchResult{}
	for _, s := range PopularSymbols {
		if query == "" ||
			strings.Contains(strings.ToLower(s.Symbol), query) ||
			strings.Contains(strings.ToLower(s.Name), query) {
			results = append(results, s)
		}
	}
	return results
}

// IsPlaceholderKey reports whether an API key is unset or still the sample value
func IsPlaceholderKey(key string) bool {
	key = strings.TrimSpace(key)
	return key == "" || (strings.HasPrefix(key, "your_") && strings.HasSuffix(key, "_here"))
}

func normalize(symbol string) string {
	return utils.NormalizeSymbol(symbol)
}
