// Package datastreams pushes live updates to connected dashboards. Streams
// are either broadcast (every listener gets every update) or multicast (per
// user).
package datastreams

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/utils"
)

var logger = utils.Logger.WithFields(logrus.Fields{
	"module": "datastreams",
})

// sendTimeout is how long a stream waits on one listener whose update
// channel is full
const sendTimeout = 250 * time.Millisecond

// listener represents a single listener in the stream
type listener struct {
	update chan interface{}
	done   <-chan struct{}
}

type delivery int

const (
	delivered delivery = iota
	timedOut
	listenerGone
)

// send hands update to the listener, giving up after timeout
func (lis *listener) send(update interface{}, timeout time.Duration) delivery {
	select {
	case <-lis.done:
		return listenerGone
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-lis.done:
		return listenerGone
	case lis.update <- update:
		return delivered
	case <-timer.C:
		return timedOut
	}
}

var config *utils.Config

// Init initalizes and configures the datastreams module
func Init(conf *utils.Config) {
	logger = utils.Logger.WithFields(logrus.Fields{
		"module": "datastreams",
	})
	config = conf
}

// Manager manages access to all data streams
type Manager interface {
	GetQuotesStream() QuotesStream
	GetWatchlistEventsStream() WatchlistEventsStream
}

// dataStreamsManager implements the Manager interface
type dataStreamsManager struct {
	quotesStreamInstance          QuotesStream
	watchlistEventsStreamInstance WatchlistEventsStream
}

var (
	managerOnce     sync.Once
	managerInstance Manager
)

// GetManager returns the singleton instance of Manager
func GetManager() Manager {
	managerOnce.Do(func() {
		managerInstance = NewManager(streamInterval())
		logger.Debugf("Created data streams manager")
	})
	return managerInstance
}

// NewManager creates a Manager whose quotes stream flushes every interval.
// Most callers want GetManager.
func NewManager(interval time.Duration) Manager {
	return &dataStreamsManager{
		quotesStreamInstance:          newQuotesStream(interval),
		watchlistEventsStreamInstance: newWatchlistEventsStream(),
	}
}

func streamInterval() time.Duration {
	if config == nil || config.StreamIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(config.StreamIntervalSeconds) * time.Second
}

// GetQuotesStream returns the Quotes stream
func (dsm *dataStreamsManager) GetQuotesStream() QuotesStream {
	return dsm.quotesStreamInstance
}

// GetWatchlistEventsStream returns the WatchlistEvents stream
func (dsm *dataStreamsManager) GetWatchlistEventsStream() WatchlistEventsStream {
	return dsm.watchlistEventsStreamInstance
}
