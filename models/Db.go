// Package models handles everything between the database and the API.
// All watchlist rules (uniqueness, the per-user limit, owner scoping) are
// enforced in this package, so callers only need to pass the user id.
package models

import (
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/utils"
)

var logger = utils.Logger.WithFields(logrus.Fields{
	"module": "models",
})
var getDB = utils.GetDB
var now = time.Now

// Init configures the models package and migrates its tables
func Init(conf *utils.Config) error {
	logger = utils.Logger.WithFields(logrus.Fields{
		"module": "models",
	})

	logger.Debugf("Using %s database", conf.DbDialect)
	return Migrate()
}

// Migrate creates or updates the Users and WatchlistItems tables
func Migrate() error {
	db := getDB()
	if err := db.AutoMigrate(&User{}, &WatchlistItem{}).Error; err != nil {
		logger.Errorf("Migration failed: '%+v'", err)
		return err
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint violation of
// any of the supported databases
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errs, ok := err.(gorm.Errors); ok {
		for _, e := range errs {
			if isUniqueViolation(e) {
				return true
			}
		}
		return false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
