package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/utils"
)

// sidLen is the number of random bytes in a session id
const sidLen = 32

var (
	InvalidSessionError = errors.New("Invalid session id")
)

var logger = utils.Logger.WithFields(logrus.Fields{
	"module": "session",
})
var getDB = utils.GetDB

// cache keeps recently used sessions in memory so that most requests don't
// hit the database
var cache *lru.Cache

// Session is a server side key value store tied to a random id handed to the
// client in the sid cookie
type Session interface {
	GetID() string
	Get(string) (string, bool)
	Set(string, string) error
	Delete(string) error
	Destroy() error
}

// sessionEntry is one key of one session as stored in the database
type sessionEntry struct {
	SessionId string `gorm:"primary_key;size:64"`
	Key       string `gorm:"column:session_key;primary_key;size:64"`
	Value     string `gorm:"column:session_value;not null"`
}

func (sessionEntry) TableName() string {
	return "sessions"
}

// session implements Session on top of the sessions table
type session struct {
	Id    string
	mutex sync.RWMutex
	m     map[string]string
}

// Init configures the session package and migrates the sessions table
func Init(config *utils.Config) error {
	logger = utils.Logger.WithFields(logrus.Fields{
		"module": "session",
	})

	var err error
	cache, err = lru.New(config.CacheSize)
	if err != nil {
		return err
	}

	return getDB().AutoMigrate(&sessionEntry{}).Error
}

func newSessionId() (string, error) {
	rb := make([]byte, sidLen)
	if _, err := rand.Read(rb); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(rb), nil
}

// New creates an empty session. It is persisted on the first Set.
func New() (Session, error) {
	id, err := newSessionId()
	if err != nil {
		logger.Errorf("Unable to generate session id: '%+v'", err)
		return nil, err
	}

	sess := &session{
		Id: id,
		m:  make(map[string]string),
	}
	cache.Add(id, sess)

	return sess, nil
}

// Load returns the session with the given id. Fails with InvalidSessionError
// if no such session exists.
func Load(id string) (Session, error) {
	var l = logger.WithFields(logrus.Fields{
		"method": "Load",
	})

	if id == "" {
		return nil, InvalidSessionError
	}

	if sess, ok := cache.Get(id); ok {
		l.Debugf("Found session in cache")
		return sess.(*session), nil
	}

	var entries []sessionEntry
	if err := getDB().Where("session_id = ?", id).Find(&entries).Error; err != nil {
		l.Errorf("Error loading session: '%+v'", err)
		return nil, err
	}
	if len(entries) == 0 {
		l.Debugf("Session not found")
		return nil, InvalidSessionError
	}

	sess := &session{
		Id: id,
		m:  make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		sess.m[e.Key] = e.Value
	}
	cache.Add(id, sess)

	l.Debugf("Loaded session with %d keys", len(entries))
	return sess, nil
}

func (sess *session) GetID() string {
	return sess.Id
}

// Get the value providing key to the get function
func (sess *session) Get(k string) (string, bool) {
	sess.mutex.RLock()
	value, ok := sess.m[k] // return value if found or ok=false if not found
	sess.mutex.RUnlock()
	return value, ok
}

// Set a key value pair in the session
func (sess *session) Set(k string, v string) error {
	entry := &sessionEntry{
		SessionId: sess.Id,
		Key:       k,
		Value:     v,
	}
	if err := getDB().Save(entry).Error; err != nil {
		return err
	}

	sess.mutex.Lock()
	sess.m[k] = v
	sess.mutex.Unlock()
	return nil
}

// Delete a key from the session
func (sess *session) Delete(k string) error {
	err := getDB().Where("session_id = ? AND session_key = ?", sess.Id, k).Delete(&sessionEntry{}).Error
	if err != nil {
		return err
	}

	sess.mutex.Lock()
	delete(sess.m, k)
	sess.mutex.Unlock()
	return nil
}

// Destroy deletes the entire session from the database
func (sess *session) Destroy() error {
	cache.Remove(sess.Id)

	err := getDB().Where("session_id = ?", sess.Id).Delete(&sessionEntry{}).Error
	if err != nil {
		return err
	}

	sess.mutex.Lock()
	sess.m = make(map[string]string)
	sess.mutex.Unlock()
	return nil
}

// UserIdKey is the session key holding the id of the signed in user
const UserIdKey = "UserId"

// GetUserId returns the id of the user signed in on sess
func GetUserId(sess Session) (uint32, bool) {
	if sess == nil {
		return 0, false
	}
	v, ok := sess.Get(UserIdKey)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint32(id), true
}

// SetUserId signs the user in on sess
func SetUserId(sess Session, userId uint32) error {
	return sess.Set(UserIdKey, strconv.FormatUint(uint64(userId), 10))
}
