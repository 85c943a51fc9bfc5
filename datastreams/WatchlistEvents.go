package datastreams

import (
	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/utils"
)

const (
	WatchlistItemAdded   = "added"
	WatchlistItemRemoved = "removed"
)

// WatchlistEvent tells a user's open dashboards that their watchlist changed
type WatchlistEvent struct {
	Action string `json:"action"`
	Symbol string `json:"symbol,omitempty"`
	ItemId string `json:"itemId,omitempty"`
}

// WatchlistEventsStream defines the interface for interacting with the WatchlistEvents datastream
type WatchlistEventsStream interface {
	SendEvent(userId uint32, ev *WatchlistEvent)
	AddListener(done <-chan struct{}, update chan interface{}, userId uint32, sessionId string)
	RemoveListener(userId uint32, sessionId string)
}

// watchlistEventsStream implements the WatchlistEventsStream interface
type watchlistEventsStream struct {
	logger          *logrus.Entry
	multicastStream MulticastStream
}

// newWatchlistEventsStream creates a new WatchlistEventsStream
func newWatchlistEventsStream() WatchlistEventsStream {
	return &watchlistEventsStream{
		logger: utils.Logger.WithFields(logrus.Fields{
			"module": "datastreams.WatchlistEventsStream",
		}),
		multicastStream: NewMulticastStream(),
	}
}

// SendEvent sends a watchlist event to every session of the given user
func (ws *watchlistEventsStream) SendEvent(userId uint32, ev *WatchlistEvent) {
	var l = ws.logger.WithFields(logrus.Fields{
		"method":       "SendEvent",
		"param_userId": userId,
		"param_ev":     ev,
	})

	sent := ws.multicastStream.BroadcastUpdateToGroup(userId, ev)

	l.Infof("Sent to %d sessions", sent)
}

// AddListener adds a listener to the WatchlistEvents stream
func (ws *watchlistEventsStream) AddListener(done <-chan struct{}, update chan interface{}, userId uint32, sessionId string) {
	var l = ws.logger.WithFields(logrus.Fields{
		"method":          "AddListener",
		"param_userId":    userId,
		"param_sessionId": sessionId,
	})

	ws.multicastStream.AddListener(userId, sessionId, &listener{
		update: update,
		done:   done,
	})

	l.Infof("Added")
}

// RemoveListener removes a listener from the WatchlistEvents stream
func (ws *watchlistEventsStream) RemoveListener(userId uint32, sessionId string) {
	var l = ws.logger.WithFields(logrus.Fields{
		"method":          "RemoveListener",
		"param_userId":    userId,
		"param_sessionId": sessionId,
	})

	ws.multicastStream.RemoveListener(userId, sessionId)

	l.Infof("Removed")
}
