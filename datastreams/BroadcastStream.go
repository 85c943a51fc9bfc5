package datastreams

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/utils"
)

// BroadcastStream sends every update to all of its listeners, one per session
type BroadcastStream interface {
	AddListener(sessionId string, lis *listener)
	RemoveListener(sessionId string)
	BroadcastUpdate(update interface{}) int
	GetListenersCount() int
}

type broadcastStream struct {
	logger *logrus.Entry

	mu        sync.RWMutex
	listeners map[string]*listener
}

// NewBroadcastStream creates an empty BroadcastStream
func NewBroadcastStream() BroadcastStream {
	return newBroadcastStream()
}

func newBroadcastStream() *broadcastStream {
	return &broadcastStream{
		logger: utils.Logger.WithFields(logrus.Fields{
			"module": "datastreams.BroadcastStream",
		}),
		listeners: make(map[string]*listener),
	}
}

// AddListener registers lis for the session, replacing an earlier listener
// of the same session
func (bs *broadcastStream) AddListener(sessionId string, lis *listener) {
	bs.mu.Lock()
	bs.listeners[sessionId] = lis
	bs.mu.Unlock()

	bs.logger.WithFields(logrus.Fields{
		"method":          "AddListener",
		"param_sessionId": sessionId,
	}).Debugf("Added")
}

func (bs *broadcastStream) RemoveListener(sessionId string) {
	bs.mu.Lock()
	delete(bs.listeners, sessionId)
	bs.mu.Unlock()
}

// BroadcastUpdate hands update to every listener and returns how many took
// it. Sending happens outside the lock, so a slow listener only delays this
// update. Listeners whose done channel is closed are unregistered.
func (bs *broadcastStream) BroadcastUpdate(update interface{}) int {
	var l = bs.logger.WithFields(logrus.Fields{
		"method": "BroadcastUpdate",
	})

	bs.mu.RLock()
	targets := make(map[string]*listener, len(bs.listeners))
	for sessionId, lis := range bs.listeners {
		targets[sessionId] = lis
	}
	bs.mu.RUnlock()

	sent, slow := 0, 0
	var gone []string
	for sessionId, lis := range targets {
		switch lis.send(update, sendTimeout) {
		case delivered:
			sent++
		case timedOut:
			slow++
		case listenerGone:
			gone = append(gone, sessionId)
		}
	}

	if len(gone) > 0 {
		bs.mu.Lock()
		for _, sessionId := range gone {
			// the session may have registered a new listener meanwhile
			if bs.listeners[sessionId] == targets[sessionId] {
				delete(bs.listeners, sessionId)
			}
		}
		bs.mu.Unlock()
	}

	if slow > 0 {
		l.Warnf("%d listeners too slow. Skipped them for this update", slow)
	}
	l.Debugf("Sent to %d of %d listeners. Dropped %d", sent, len(targets), len(gone))
	return sent
}

func (bs *broadcastStream) GetListenersCount() int {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return len(bs.listeners)
}
