package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mbolis/survey-intake/config"
)

// foreign keys and busy timeout are per connection in SQLite, so they
// go in the DSN where every pooled connection picks them up
const dsnOptions = "_foreign_keys=on&_busy_timeout=5000"

func Open(cfg config.Config) (db *sql.DB, err error) {
	db, err = sql.Open("sqlite3", dsn(cfg.DBUrl))
	if err != nil {
		return
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	err = migrateDB(db)
	if err != nil {
		db.Close()
		return
	}

	return
}

func dsn(url string) string {
	if strings.Contains(url, "?") {
		return url + "&" + dsnOptions
	}
	return "file:" + url + "?" + dsnOptions
}
