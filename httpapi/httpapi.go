// Package httpapi serves the JSON API of the dashboard: the signed in user's
// watchlist, quotes, price history, sentiment and the auth callback.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/datastreams"
	"github.com/abhivicks22/stockpulse/quotes"
	"github.com/abhivicks22/stockpulse/sentiment"
	"github.com/abhivicks22/stockpulse/socketapi"
	"github.com/abhivicks22/stockpulse/utils"
)

var logger = utils.Logger.WithFields(logrus.Fields{
	"module": "httpapi",
})

var config *utils.Config

// QuoteService is the part of quotes.Service the API needs
type QuoteService interface {
	GetQuoteList(ctx context.Context, symbols []string) []*quotes.Quote
	GetHistory(ctx context.Context, symbol, chartRange string) []quotes.Bar
}

// SentimentService is the part of sentiment.Estimator the API needs
type SentimentService interface {
	GetSentiment(ctx context.Context, symbol string) *sentiment.Result
}

var (
	quoteService     QuoteService
	sentimentService SentimentService
	streams          datastreams.Manager
)

// Init configures the httpapi package
func Init(conf *utils.Config, qs QuoteService, ss SentimentService, dsm datastreams.Manager) {
	logger = utils.Logger.WithFields(logrus.Fields{
		"module": "httpapi",
	})

	config = conf
	quoteService = qs
	sentimentService = ss
	streams = dsm
}

// NewRouter returns the handler serving every route of the API
func NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/callback", handleAuthCallback)
		r.Post("/signout", handleSignOut)
	})

	r.Route("/watchlist", func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/", handleGetWatchlist)
		r.Post("/", handleAddWatchlistItem)
		r.Delete("/", handleRemoveWatchlistItem)
	})

	r.Route("/stocks", func(r chi.Router) {
		r.Get("/", handleGetQuotes)
		r.Get("/sentiment", handleGetSentiment)
		r.Get("/ticker", handleGetTicker)
		r.Get("/search", handleSearch)
		r.Get("/{symbol}", handleGetHistory)
	})

	r.Get("/ws", socketapi.Handle)

	return r
}

func corsHandler() *cors.Cors {
	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}

// requestLogger logs one line per request
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.WithFields(logrus.Fields{
			"http_method": r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration":    time.Since(start).String(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Infof("Served request")
	})
}
