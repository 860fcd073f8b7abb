package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

func openDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func setProgress(db *sql.DB, key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO progress (key, value) VALUES (?, ?);`, key, value)
	return err
}

func getProgress(db *sql.DB, key string) (string, bool) {
	var value string
	err := db.QueryRow(`SELECT value FROM progress WHERE key = ?;`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}
