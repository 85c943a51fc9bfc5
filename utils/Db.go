package utils

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

var db *gorm.DB

// DbOpen returns a database connection object by opening one based
// on the configuration
func DbOpen(config *Config) (*gorm.DB, error) {
	user := config.DbUser
	pwd := config.DbPassword
	host := config.DbHost
	dbname := config.DbName

	var connstr string
	switch config.DbDialect {
	case "postgres":
		connstr = fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable", host, user, pwd, dbname)
	case "sqlite3":
		connstr = dbname
	default:
		connstr = fmt.Sprintf("%s:%s@%s/%s?charset=utf8&parseTime=true", user, pwd, host, dbname)
	}

	conn, err := gorm.Open(config.DbDialect, connstr)
	if err != nil {
		return nil, err
	}

	// every connection to an in-memory sqlite database sees a different database
	if config.DbDialect == "sqlite3" && dbname == ":memory:" {
		conn.DB().SetMaxOpenConns(1)
	}

	return conn, nil
}

// GetDB returns the shared database handle opened by Init
func GetDB() *gorm.DB {
	return db
}

func initDbHelper(config *Config) error {
	if db != nil {
		db.Close()
	}

	conn, err := DbOpen(config)
	if err != nil {
		return fmt.Errorf("open %s database: %w", config.DbDialect, err)
	}
	db = conn

	Logger.WithFields(logrus.Fields{
		"module":  "utils",
		"dialect": config.DbDialect,
	}).Info("Database opened")
	return nil
}
