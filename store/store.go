// Package store persists the run-id → notification mapping as a single JSON file.
// The on-disk shape ({"<run id>": {"MessageId": ..., "Status": ...}}) predates this
// service and must stay readable by it; extend the record, never break it.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Record tracks one run's notification handle and last-known status.
// The handle never changes once set; only Status does.
type Record struct {
	MessageID string `json:"MessageId"`
	Status    Status `json:"Status"`
}

// Store is the durable run mapping. Mutations save the full mapping to disk
// immediately, so a crash loses at most the in-progress record. The mutex exists
// for the HTTP status handler, which reads while the engine writes.
type Store struct {
	path string

	mu   sync.RWMutex
	runs map[string]Record
}

// Open loads the mapping at path, creating an empty one if the file is absent.
// A file that fails to parse is reset to empty and rewritten: losing prior
// tracking beats refusing to start, since posted notifications stay visible.
func Open(path string) (*Store, error) {
	s := &Store{path: path, runs: make(map[string]Record)}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		slog.Info("run store created", slog.String("path", path))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &s.runs); err != nil {
		slog.Error("run store corrupt; resetting to empty (prior tracking lost)",
			slog.String("path", path), slog.Any("err", err))
		s.runs = make(map[string]Record)
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("rewrite %s: %w", path, err)
		}
		return s, nil
	}
	slog.Info("run store loaded", slog.String("path", path), slog.Int("tracked", len(s.runs)))
	return s, nil
}

// Get returns the record for a run id, if tracked.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	return rec, ok
}

// Put records a run and persists the full mapping before returning.
func (s *Store) Put(id string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = rec
	return s.save()
}

// ActiveIDs returns a sorted snapshot of run ids whose status is non-terminal.
// Callers iterate the snapshot, so records inserted afterwards (e.g. during the
// same sync cycle) are not visited.
func (s *Store) ActiveIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.runs))
	for id, rec := range s.runs {
		if !rec.Status.Terminal() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of tracked runs, terminal included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// StatusCounts returns the number of tracked runs per status.
func (s *Store) StatusCounts() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int)
	for _, rec := range s.runs {
		counts[rec.Status]++
	}
	return counts
}

// save writes the mapping atomically: temp file in the same directory, then rename.
// Callers must hold mu (Open calls it before the store is shared).
func (s *Store) save() error {
	raw, err := json.MarshalIndent(s.runs, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".run_messages-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
