// Package eventlog persists a durable ledger of motion events,
// independent of the clip file itself, adapted from the teacher's
// internal/database package (trimmed to the one table the core needs).
package eventlog

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Log wraps a sqlite-backed append-mostly table of motion events.
type Log struct {
	db  *sql.DB
	log *log.Logger
}

// Open opens (creating if needed) the sqlite database at path and
// ensures the schema exists.
func Open(path string, logger *log.Logger) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("eventlog: set WAL mode: %w", err)
	}
	l := &Log{db: db, log: logger}
	if err := l.migrate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Log) migrate() error {
	_, err := l.db.Exec(`
CREATE TABLE IF NOT EXISTS motion_events (
	id TEXT PRIMARY KEY,
	camera_id TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	clip_path TEXT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("eventlog: migrate: %w", err)
	}
	return nil
}

// RecordEvent implements motion.EventRecorder: one row per confirmed
// and closed motion event. A crash between clip-close and the next
// retention sweep no longer loses the fact the event happened.
func (l *Log) RecordEvent(cameraID string, start, end time.Time, clipPath string) {
	_, err := l.db.Exec(
		`INSERT INTO motion_events (id, camera_id, start_time, end_time, clip_path) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), cameraID, start, end, clipPath,
	)
	if err != nil {
		l.log.Printf("eventlog: insert failed: %v", err)
	}
}

// Close closes the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}
