package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhivicks22/stockpulse/quotes"
	"github.com/abhivicks22/stockpulse/utils"
)

const (
	defaultSymbol = "AAPL"
	defaultRange  = "3m"
)

// handleGetQuotes serves /stocks?symbols=A,B. A single symbol is answered
// with an object, several with an array.
func handleGetQuotes(w http.ResponseWriter, r *http.Request) {
	symbols := utils.SplitSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		symbols = []string{defaultSymbol}
	}

	list := quoteService.GetQuoteList(r.Context(), symbols)
	if len(list) == 1 {
		writeJSON(w, http.StatusOK, list[0])
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func handleGetSentiment(w http.ResponseWriter, r *http.Request) {
	symbol := utils.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if symbol == "" {
		symbol = defaultSymbol
	}
	writeJSON(w, http.StatusOK, sentimentService.GetSentiment(r.Context(), symbol))
}

// handleGetTicker serves the quotes of the whole popular symbol catalog
func handleGetTicker(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, quoteService.GetQuoteList(r.Context(), quotes.PopularSymbolList()))
}

func handleSearch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, quotes.Search(r.URL.Query().Get("q")))
}

// handleGetHistory serves /stocks/{symbol}?range=3m
func handleGetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := utils.NormalizeSymbol(chi.URLParam(r, "symbol"))
	chartRange := strings.TrimSpace(r.URL.Query().Get("range"))
	if chartRange == "" {
		chartRange = defaultRange
	}
	writeJSON(w, http.StatusOK, quoteService.GetHistory(r.Context(), symbol, chartRange))
}
