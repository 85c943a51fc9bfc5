package datastreams

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/utils"
)

// MulticastStream keeps one group of listeners per user and sends each
// update to a single group
type MulticastStream interface {
	AddListener(groupId uint32, sessionId string, lis *listener)
	RemoveListener(groupId uint32, sessionId string)
	BroadcastUpdateToGroup(groupId uint32, update interface{}) int
	GetGroupsCount() int
}

type multicastStream struct {
	logger *logrus.Entry

	mu     sync.Mutex
	groups map[uint32]*broadcastStream
}

// NewMulticastStream creates a MulticastStream without groups
func NewMulticastStream() MulticastStream {
	return &multicastStream{
		logger: utils.Logger.WithFields(logrus.Fields{
			"module": "datastreams.MulticastStream",
		}),
		groups: make(map[uint32]*broadcastStream),
	}
}

// AddListener adds lis to the group, creating the group on first use
func (ms *multicastStream) AddListener(groupId uint32, sessionId string, lis *listener) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	group, ok := ms.groups[groupId]
	if !ok {
		group = newBroadcastStream()
		ms.groups[groupId] = group
		ms.logger.WithFields(logrus.Fields{
			"method":        "AddListener",
			"param_groupId": groupId,
		}).Debugf("Created group")
	}
	group.AddListener(sessionId, lis)
}

func (ms *multicastStream) RemoveListener(groupId uint32, sessionId string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if group, ok := ms.groups[groupId]; ok {
		group.RemoveListener(sessionId)
		ms.pruneLocked(groupId)
	}
}

// BroadcastUpdateToGroup sends update to the listeners of one group and
// returns how many took it. Groups nobody listens to are ignored.
func (ms *multicastStream) BroadcastUpdateToGroup(groupId uint32, update interface{}) int {
	ms.mu.Lock()
	group, ok := ms.groups[groupId]
	ms.mu.Unlock()

	if !ok {
		ms.logger.WithFields(logrus.Fields{
			"method":        "BroadcastUpdateToGroup",
			"param_groupId": groupId,
		}).Debugf("Nobody listening")
		return 0
	}

	sent := group.BroadcastUpdate(update)

	ms.mu.Lock()
	ms.pruneLocked(groupId)
	ms.mu.Unlock()

	return sent
}

// pruneLocked drops the group if it has no listeners left. mu must be held.
func (ms *multicastStream) pruneLocked(groupId uint32) {
	if group, ok := ms.groups[groupId]; ok && group.GetListenersCount() == 0 {
		delete(ms.groups, groupId)
	}
}

func (ms *multicastStream) GetGroupsCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.groups)
}
