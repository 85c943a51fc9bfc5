// Package socketapi serves the /ws endpoint. A connected dashboard receives
// the live quotes of the symbols on its user's watchlist and an event
// whenever that watchlist changes.
package socketapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/datastreams"
	"github.com/abhivicks22/stockpulse/models"
	"github.com/abhivicks22/stockpulse/session"
	"github.com/abhivicks22/stockpulse/utils"
)

var socketApiLogger = utils.Logger.WithFields(logrus.Fields{
	"module": "socketapi",
})
var upgrader websocket.Upgrader

var (
	getManager   = datastreams.GetManager
	getWatchlist = models.GetWatchlist
)

// Init configures the socketapi package
func Init(config *utils.Config) {
	socketApiLogger = utils.Logger.WithFields(logrus.Fields{
		"module": "socketapi",
	})

	allowed := make(map[string]bool, len(config.AllowedOrigins))
	for _, o := range config.AllowedOrigins {
		allowed[o] = true
	}

	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if !utils.IsProdEnv() || len(allowed) == 0 {
				return true
			}
			return allowed[r.Header.Get("Origin")]
		},
	}
}

// loadSession loads the session named by the sid cookie of the request
func loadSession(r *http.Request) (session.Session, error) {
	var l = socketApiLogger.WithFields(logrus.Fields{
		"method": "loadSession",
	})

	sidCookie, err := r.Cookie("sid")
	if err != nil {
		l.Debugf("No sid cookie")
		return nil, session.InvalidSessionError
	}

	s, err := session.Load(sidCookie.Value)
	if err != nil {
		l.Debugf("Error loading session data: '%s'", err)
		return nil, err
	}

	l.Debugf("Loaded session")
	return s, nil
}

// Handle handles an HTTP request meant for a websocket connection. Only
// signed in users may connect.
func Handle(w http.ResponseWriter, r *http.Request) {
	var l = socketApiLogger.WithFields(logrus.Fields{
		"method": "Handle",
	})

	l.Infof("Connection from %+v", r.RemoteAddr)

	sess, err := loadSession(r)
	if err != nil {
		http.Error(w, models.UnauthenticatedError.Error(), http.StatusUnauthorized)
		return
	}
	userId, ok := session.GetUserId(sess)
	if !ok {
		http.Error(w, models.UnauthenticatedError.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Errorf("Could not upgrade connection: '%s'", err)
		return
	}
	l.Debugf("Upgraded to websocket protocol")

	c := NewClient(conn, userId)
	if err := c.reloadSymbols(); err != nil {
		l.Warnf("Couldn't load watchlist of user %d: '%+v'", userId, err)
	}

	streams := getManager()
	streams.GetQuotesStream().AddListener(c.done, c.updates, c.id)
	streams.GetWatchlistEventsStream().AddListener(c.done, c.updates, userId, c.id)
	defer func() {
		streams.GetQuotesStream().RemoveListener(c.id)
		streams.GetWatchlistEventsStream().RemoveListener(userId, c.id)
	}()

	go c.WritePump()
	c.ReadPump()
	<-c.done
}
