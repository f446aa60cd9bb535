package eventlog

import (
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestOpenCreatesSchemaAndRecordsEvent(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(filepath.Join(dir, "events.db"), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	start := time.Now().Add(-time.Minute)
	end := time.Now()
	l.RecordEvent("front_door", start, end, "/clips/front_door/clip.mp4")

	var count int
	row := l.db.QueryRow("SELECT COUNT(*) FROM motion_events WHERE camera_id = ?", "front_door")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}
