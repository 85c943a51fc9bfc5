package httpapi

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/datastreams"
	"github.com/abhivicks22/stockpulse/models"
	"github.com/abhivicks22/stockpulse/utils"
)

var (
	getWatchlist        = models.GetWatchlist
	addWatchlistItem    = models.AddWatchlistItem
	removeWatchlistItem = models.RemoveWatchlistItem
)

type addWatchlistItemRequest struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

type removeWatchlistItemRequest struct {
	ItemId string `json:"itemId"`
	Symbol string `json:"symbol"`
}

// publishWatchlistEvent tells the user's open dashboards about a change
func publishWatchlistEvent(userId uint32, ev *datastreams.WatchlistEvent) {
	if streams == nil {
		return
	}
	go streams.GetWatchlistEventsStream().SendEvent(userId, ev)
}

func handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	userId := userIdFrom(r.Context())

	items, err := getWatchlist(userId)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"method":       "handleGetWatchlist",
			"param_userId": userId,
		}).Errorf("Error loading watchlist: '%+v'", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch watchlist")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func handleAddWatchlistItem(w http.ResponseWriter, r *http.Request) {
	userId := userIdFrom(r.Context())
	var l = logger.WithFields(logrus.Fields{
		"method":       "handleAddWatchlistItem",
		"param_userId": userId,
	})

	var req addWatchlistItemRequest
	if err := readJSON(r, &req); err != nil {
		l.Debugf("Malformed body. Treating as empty: '%+v'", err)
		req = addWatchlistItemRequest{}
	}

	item, err := addWatchlistItem(userId, req.Symbol, req.Name, req.Type)
	switch {
	case err == nil:
	case errors.Is(err, models.InvalidArgumentError),
		errors.Is(err, models.LimitExceededError),
		errors.Is(err, models.AlreadyExistsError):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, models.UserNotFoundError):
		writeError(w, http.StatusUnauthorized, models.UnauthenticatedError.Error())
		return
	default:
		l.Errorf("Error adding item: '%+v'", err)
		writeError(w, http.StatusInternalServerError, "Failed to add item")
		return
	}

	publishWatchlistEvent(userId, &datastreams.WatchlistEvent{
		Action: datastreams.WatchlistItemAdded,
		Symbol: item.Symbol,
		ItemId: item.Id,
	})
	writeJSON(w, http.StatusOK, item)
}

func handleRemoveWatchlistItem(w http.ResponseWriter, r *http.Request) {
	userId := userIdFrom(r.Context())
	var l = logger.WithFields(logrus.Fields{
		"method":       "handleRemoveWatchlistItem",
		"param_userId": userId,
	})

	var req removeWatchlistItemRequest
	if err := readJSON(r, &req); err != nil {
		l.Debugf("Malformed body. Treating as empty: '%+v'", err)
		req = removeWatchlistItemRequest{}
	}

	if err := removeWatchlistItem(userId, req.ItemId, req.Symbol); err != nil {
		l.Errorf("Error removing item: '%+v'", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete item")
		return
	}

	if req.ItemId != "" || utils.NormalizeSymbol(req.Symbol) != "" {
		publishWatchlistEvent(userId, &datastreams.WatchlistEvent{
			Action: datastreams.WatchlistItemRemoved,
			Symbol: utils.NormalizeSymbol(req.Symbol),
			ItemId: req.ItemId,
		})
	}
	writeJSON(w, http.StatusOK, &successResponse{Success: true})
}
