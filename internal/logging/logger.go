// Package logging builds the component-prefixed loggers used throughout
// sentrycam, following the teacher's plain *log.Logger plumbing.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// New builds a logger writing to stderr with a bracketed component
// prefix, e.g. "[camera:front_door] ". If file is non-nil the logger
// also writes to it.
func New(component string, file io.Writer) *log.Logger {
	prefix := fmt.Sprintf("[%s] ", component)
	if file == nil {
		return log.New(os.Stderr, prefix, log.LstdFlags)
	}
	return log.New(io.MultiWriter(os.Stderr, file), prefix, log.LstdFlags)
}

// RotatingFile is an io.Writer wrapping an on-disk log file that rolls
// over to a fresh file once it exceeds maxSizeMB, keeping at most
// maxFiles total (current + numbered backups), mirroring
// logger_setup.py's RotatingFileHandler. No log-rotation library appears
// anywhere in the retrieved example pack (see DESIGN.md), so this is a
// small hand-rolled writer rather than an invented dependency.
type RotatingFile struct {
	mu        sync.Mutex
	dir       string
	base      string
	maxBytes  int64
	maxFiles  int
	file      *os.File
	written   int64
}

// NewRotatingFile opens (creating if needed) the log file <dir>/<base>.
func NewRotatingFile(dir, base string, maxSizeMB, maxFiles int) (*RotatingFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: create dir %s: %w", dir, err)
	}
	rf := &RotatingFile{
		dir:      dir,
		base:     base,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		maxFiles: maxFiles,
	}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *RotatingFile) path() string {
	return filepath.Join(rf.dir, rf.base)
}

func (rf *RotatingFile) open() error {
	f, err := os.OpenFile(rf.path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logging: open %s: %w", rf.path(), err)
	}
	info, err := f.Stat()
	if err == nil {
		rf.written = info.Size()
	}
	rf.file = f
	return nil
}

func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.maxBytes > 0 && rf.written+int64(len(p)) > rf.maxBytes {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := rf.file.Write(p)
	rf.written += int64(n)
	return n, err
}

// rotate renames the current file with a numeric suffix, shifting
// existing backups up by one slot, and opens a fresh current file.
func (rf *RotatingFile) rotate() error {
	rf.file.Close()

	for i := rf.maxFiles - 1; i >= 1; i-- {
		src := rf.backupPath(i)
		dst := rf.backupPath(i + 1)
		if _, err := os.Stat(src); err == nil {
			if i+1 >= rf.maxFiles {
				os.Remove(src)
				continue
			}
			os.Rename(src, dst)
		}
	}
	if rf.maxFiles > 1 {
		os.Rename(rf.path(), rf.backupPath(1))
	}
	rf.written = 0
	return rf.open()
}

func (rf *RotatingFile) backupPath(n int) string {
	return fmt.Sprintf("%s.%d", rf.path(), n)
}

// Close closes the underlying file.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.file.Close()
}
