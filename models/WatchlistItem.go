package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/utils"
)

// MaxWatchlistItems is the maximum number of items a single user may track
const MaxWatchlistItems = 20

// DefaultInstrumentType is used when an add request doesn't name a type
const DefaultInstrumentType = "stock"

var (
	InvalidArgumentError  = errors.New("Symbol and name required")
	LimitExceededError    = fmt.Errorf("Max %d items allowed", MaxWatchlistItems)
	AlreadyExistsError    = errors.New("Already in watchlist")
	StoreUnavailableError = errors.New("Watchlist store unavailable")
)

// WatchlistItem is one symbol tracked by one user
type WatchlistItem struct {
	Id      string    `gorm:"primary_key" json:"id"`
	Symbol  string    `gorm:"not null;unique_index:idx_watchlist_user_symbol" json:"symbol"`
	Name    string    `gorm:"not null" json:"name"`
	Type    string    `gorm:"not null;default:'stock'" json:"type"`
	UserId  uint32    `gorm:"not null;index;unique_index:idx_watchlist_user_symbol" json:"userId"`
	AddedAt time.Time `gorm:"not null" json:"addedAt"`
}

func (WatchlistItem) TableName() string {
	return "watchlist_items"
}

func storeError(err error) error {
	return fmt.Errorf("%w: %v", StoreUnavailableError, err)
}

// GetWatchlist returns the items of the user, newest first
func GetWatchlist(userId uint32) ([]*WatchlistItem, error) {
	var l = logger.WithFields(logrus.Fields{
		"method":       "GetWatchlist",
		"param_userId": userId,
	})

	l.Debugf("Loading watchlist")

	items := []*WatchlistItem{}
	if err := getDB().Where("user_id = ?", userId).Order("added_at desc").Find(&items).Error; err != nil {
		l.Errorf("Error loading watchlist: '%+v'", err)
		return nil, storeError(err)
	}

	l.Debugf("Loaded %d items", len(items))
	return items, nil
}

// AddWatchlistItem adds symbol to the watchlist of the user. The symbol is
// stored uppercased. Fails with LimitExceededError once the user tracks
// MaxWatchlistItems symbols and with AlreadyExistsError if the symbol is
// already tracked. Fails with UserNotFoundError if the user doesn't exist.
func AddWatchlistItem(userId uint32, symbol, name, instrumentType string) (*WatchlistItem, error) {
	var l = logger.WithFields(logrus.Fields{
		"method":       "AddWatchlistItem",
		"param_userId": userId,
		"param_symbol": symbol,
	})

	symbol = utils.NormalizeSymbol(symbol)
	name = strings.TrimSpace(name)
	if symbol == "" || name == "" {
		return nil, InvalidArgumentError
	}
	instrumentType = strings.TrimSpace(instrumentType)
	if instrumentType == "" {
		instrumentType = DefaultInstrumentType
	}

	tx := getDB().Begin()
	if tx.Error != nil {
		l.Errorf("Error starting transaction: '%+v'", tx.Error)
		return nil, storeError(tx.Error)
	}

	if err := lockOwner(tx, userId); err != nil {
		tx.Rollback()
		if gorm.IsRecordNotFoundError(err) {
			l.Infof("User doesn't exist")
			return nil, UserNotFoundError
		}
		l.Errorf("Error locking user: '%+v'", err)
		return nil, storeError(err)
	}

	var count int
	if err := tx.Model(&WatchlistItem{}).Where("user_id = ?", userId).Count(&count).Error; err != nil {
		tx.Rollback()
		l.Errorf("Error counting items: '%+v'", err)
		return nil, storeError(err)
	}
	if count >= MaxWatchlistItems {
		tx.Rollback()
		l.Infof("User already tracks %d items", count)
		return nil, LimitExceededError
	}

	item := &WatchlistItem{
		Id:      uuid.New().String(),
		Symbol:  symbol,
		Name:    name,
		Type:    instrumentType,
		UserId:  userId,
		AddedAt: now().UTC(),
	}
	if err := tx.Create(item).Error; err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			l.Infof("Symbol already in watchlist")
			return nil, AlreadyExistsError
		}
		l.Errorf("Error inserting item: '%+v'", err)
		return nil, storeError(err)
	}

	if err := tx.Commit().Error; err != nil {
		if isUniqueViolation(err) {
			return nil, AlreadyExistsError
		}
		l.Errorf("Error committing item: '%+v'", err)
		return nil, storeError(err)
	}

	l.Infof("Added item %s", item.Id)
	return item, nil
}

// rowLockOption returns the query suffix that locks selected rows until the
// transaction ends. SQLite has none and serializes writers on its own.
func rowLockOption(dialect string) string {
	switch dialect {
	case "mysql", "postgres":
		return "FOR UPDATE"
	}
	return ""
}

// lockOwner locks the users row of userId so that concurrent adds of the same
// user count and insert one after the other
func lockOwner(tx *gorm.DB, userId uint32) error {
	q := tx
	if opt := rowLockOption(tx.Dialect().GetName()); opt != "" {
		q = tx.Set("gorm:query_option", opt)
	}
	return q.Select("id").Where("id = ?", userId).First(&User{}).Error
}

// RemoveWatchlistItem deletes at most one item of the user, matched by itemId
// if given, else by symbol. The owner is always part of the predicate, so ids
// of other users' items match nothing. Matching nothing is not an error.
func RemoveWatchlistItem(userId uint32, itemId, symbol string) error {
	var l = logger.WithFields(logrus.Fields{
		"method":       "RemoveWatchlistItem",
		"param_userId": userId,
		"param_itemId": itemId,
		"param_symbol": symbol,
	})

	itemId = strings.TrimSpace(itemId)
	symbol = utils.NormalizeSymbol(symbol)

	db := getDB().Where("user_id = ?", userId)
	switch {
	case itemId != "":
		db = db.Where("id = ?", itemId)
	case symbol != "":
		db = db.Where("symbol = ?", symbol)
	default:
		l.Debugf("Neither itemId nor symbol given. Nothing to do")
		return nil
	}

	result := db.Delete(&WatchlistItem{})
	if result.Error != nil {
		l.Errorf("Error deleting item: '%+v'", result.Error)
		return storeError(result.Error)
	}

	l.Infof("Deleted %d items", result.RowsAffected)
	return nil
}

// CountWatchlistItems returns how many items the user tracks
func CountWatchlistItems(userId uint32) (int, error) {
	var count int
	if err := getDB().Model(&WatchlistItem{}).Where("user_id = ?", userId).Count(&count).Error; err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

// GetTrackedSymbols returns every symbol tracked by at least one user
func GetTrackedSymbols() ([]string, error) {
	var symbols []string
	if err := getDB().Model(&WatchlistItem{}).Order("symbol").Pluck("distinct symbol", &symbols).Error; err != nil {
		logger.WithFields(logrus.Fields{
			"method": "GetTrackedSymbols",
		}).Errorf("Error loading symbols: '%+v'", err)
		return nil, storeError(err)
	}
	return symbols, nil
}
