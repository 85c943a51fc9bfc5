package session

import "sync"

// ephemeralSession is a Session that lives only for one request and is never
// written to the sessions table or the cache
type ephemeralSession struct {
	id    string
	mutex sync.RWMutex
	m     map[string]string
}

// NewEphemeral returns a session of the given user that is never persisted.
// Requests authenticated by a bearer token carry one instead of a stored
// session.
func NewEphemeral(userId uint32) (Session, error) {
	id, err := newSessionId()
	if err != nil {
		return nil, err
	}

	sess := &ephemeralSession{
		id: id,
		m:  make(map[string]string),
	}
	if err := SetUserId(sess, userId); err != nil {
		return nil, err
	}
	return sess, nil
}

func (sess *ephemeralSession) GetID() string {
	return sess.id
}

func (sess *ephemeralSession) Get(k string) (string, bool) {
	sess.mutex.RLock()
	defer sess.mutex.RUnlock()
	v, ok := sess.m[k]
	return v, ok
}

func (sess *ephemeralSession) Set(k, v string) error {
	sess.mutex.Lock()
	sess.m[k] = v
	sess.mutex.Unlock()
	return nil
}

func (sess *ephemeralSession) Delete(k string) error {
	sess.mutex.Lock()
	delete(sess.m, k)
	sess.mutex.Unlock()
	return nil
}

func (sess *ephemeralSession) Destroy() error {
	sess.mutex.Lock()
	sess.m = make(map[string]string)
	sess.mutex.Unlock()
	return nil
}
