// Package sqlite
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"bandmon-server/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

func NewDB(dbPath string, log logger.Logger) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("database not responding: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Info("sqlite connection established", "path", dbPath)

	if err := runMigration(db); err != nil {
		return nil, err
	}

	return db, nil
}

func runMigration(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS monthly_usage (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		month TEXT NOT NULL,
		bytes_sent INTEGER NOT NULL,
		bytes_recv INTEGER NOT NULL
	);
	`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to migrate monthly_usage table: %w", err)
	}
	return nil
}
