// Package ledger records the page URLs that were fully processed.
//
// The ledger file holds one key per line and is only ever appended to. A key is
// complete when it appears on any line.
package ledger

import (
	"fmt"
	"os"
	"sync"

	"miyuki-dl/pkg/fsutil"
	"miyuki-dl/pkg/models"
)

// DefaultFile is the ledger used when none is configured
const DefaultFile = "downloaded_urls_miyuki.txt"

// Ledger is the completion record shared by one batch run
type Ledger struct {
	path   string
	mu     sync.Mutex
	loaded bool
	keys   map[string]struct{}
}

// Open returns a ledger backed by path. Nothing is read until the first lookup.
func Open(path string) *Ledger {
	if path == "" {
		path = DefaultFile
	}
	return &Ledger{path: path}
}

// Path returns the backing file
func (l *Ledger) Path() string {
	return l.path
}

// IsComplete reports whether key was recorded, loading the file on first use
func (l *Ledger) IsComplete(key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.load(); err != nil {
		return false, err
	}
	_, ok := l.keys[key]
	return ok, nil
}

// MarkComplete appends key to the file and the in-memory set
func (l *Ledger) MarkComplete(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := fsutil.AppendFile(l.path)
	if err != nil {
		return models.FileError{Path: l.path, Op: "append", Message: err.Error()}
	}
	if _, err := fmt.Fprintln(f, key); err != nil {
		f.Close()
		return models.FileError{Path: l.path, Op: "append", Message: err.Error()}
	}
	if err := f.Close(); err != nil {
		return models.FileError{Path: l.path, Op: "close", Message: err.Error()}
	}

	if l.loaded {
		l.keys[key] = struct{}{}
	}
	return nil
}

func (l *Ledger) load() error {
	if l.loaded {
		return nil
	}

	l.keys = make(map[string]struct{})
	lines, err := fsutil.ReadTxtFile(l.path)
	if err != nil && !os.IsNotExist(err) {
		return models.FileError{Path: l.path, Op: "read", Message: err.Error()}
	}
	for _, line := range lines {
		l.keys[line] = struct{}{}
	}
	l.loaded = true
	return nil
}
