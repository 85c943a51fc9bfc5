package socketapi

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/datastreams"
	"github.com/abhivicks22/stockpulse/quotes"
)

const (
	maxMessageSize = 512
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

// Message is what the server writes on the socket
type Message struct {
	Type   string                      `json:"type"`
	Quotes map[string]*quotes.Quote    `json:"quotes,omitempty"`
	Event  *datastreams.WatchlistEvent `json:"event,omitempty"`
}

const (
	QuotesMessage    = "quotes"
	WatchlistMessage = "watchlist"
	PongMessage      = "pong"
)

// Client is one websocket connection of a signed in user
type Client struct {
	conn   *websocket.Conn
	userId uint32
	id     string

	// updates receives from the data streams
	updates chan interface{}
	// pongs is filled by ReadPump when the client pings
	pongs chan struct{}
	// quit is closed by ReadPump when the connection is gone
	quit chan struct{}
	// done is closed by WritePump. It tells the streams to stop sending.
	done chan struct{}

	symbolsMutex sync.RWMutex
	symbols      map[string]bool
}

// NewClient creates a Client for conn
func NewClient(conn *websocket.Conn, userId uint32) *Client {
	return &Client{
		conn:    conn,
		userId:  userId,
		id:      uuid.New().String(),
		updates: make(chan interface{}, 20),
		pongs:   make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		symbols: make(map[string]bool),
	}
}

// reloadSymbols refreshes the set of symbols whose quotes are forwarded
func (c *Client) reloadSymbols() error {
	items, err := getWatchlist(c.userId)
	if err != nil {
		return err
	}

	symbols := make(map[string]bool, len(items))
	for _, it := range items {
		symbols[it.Symbol] = true
	}

	c.symbolsMutex.Lock()
	c.symbols = symbols
	c.symbolsMutex.Unlock()
	return nil
}

// filterQuotes keeps the quotes of watched symbols
func (c *Client) filterQuotes(all map[string]*quotes.Quote) map[string]*quotes.Quote {
	c.symbolsMutex.RLock()
	defer c.symbolsMutex.RUnlock()

	mine := make(map[string]*quotes.Quote)
	for symbol, q := range all {
		if c.symbols[symbol] {
			mine[symbol] = q
		}
	}
	return mine
}

// toMessage turns a stream update into the message for this client. It
// returns nil if there's nothing to send.
func (c *Client) toMessage(update interface{}) *Message {
	var l = socketApiLogger.WithFields(logrus.Fields{
		"method":       "client.toMessage",
		"param_userId": c.userId,
	})

	switch u := update.(type) {
	case *datastreams.QuotesUpdate:
		mine := c.filterQuotes(u.Quotes)
		if len(mine) == 0 {
			return nil
		}
		return &Message{Type: QuotesMessage, Quotes: mine}
	case *datastreams.WatchlistEvent:
		if err := c.reloadSymbols(); err != nil {
			l.Warnf("Couldn't reload watchlist: '%+v'", err)
		}
		return &Message{Type: WatchlistMessage, Event: u}
	default:
		l.Errorf("Unexpected update type %T", update)
		return nil
	}
}

// ReadPump reads until the connection fails. Clients may send "ping" text
// messages; anything else is ignored.
func (c *Client) ReadPump() {
	var l = socketApiLogger.WithFields(logrus.Fields{
		"method":       "client.ReadPump",
		"param_userId": c.userId,
	})

	defer func() {
		l.Debugf("Closing connection")
		close(c.quit)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, bytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Errorf("Error in receiving from websocket: '%v'", err)
			}
			return
		}

		if msgType == websocket.TextMessage && string(bytes) == "ping" {
			select {
			case c.pongs <- struct{}{}:
			default:
			}
		}
	}
}

// WritePump writes stream updates and keepalive pings until the connection
// fails or ReadPump quits
func (c *Client) WritePump() {
	var l = socketApiLogger.WithFields(logrus.Fields{
		"method":       "client.WritePump",
		"param_userId": c.userId,
	})

	pingTicker := time.NewTicker(pingPeriod)

	defer func() {
		l.Debugf("Closing connection")
		pingTicker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case <-c.quit:
			return

		case update := <-c.updates:
			msg := c.toMessage(update)
			if msg == nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				l.Errorf("Error writing message. Stopping. '%v'", err)
				return
			}

		case <-c.pongs:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(&Message{Type: PongMessage}); err != nil {
				l.Errorf("Error writing pong. Stopping. '%v'", err)
				return
			}

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				l.Errorf("Error sending ping message. Stopping. '%v'", err)
				return
			}
		}
	}
}
