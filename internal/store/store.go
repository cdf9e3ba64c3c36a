package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"

	appLog "calagent/internal/log"
	"calagent/internal/model"
)

// Store owns the persisted event list. It is an explicit object: callers
// hold a reference, there is no process-wide singleton. Events keep their
// insertion order, and every mutation rewrites the whole backing file
// synchronously.
//
// The store is shared between HTTP request goroutines and the reminder
// loop, so an RWMutex guards the event list: mutations (and their file
// write) hold the write lock, readers hold the read lock.
//
// The file is a two-space-indented JSON array of event objects. A missing
// file is an empty calendar, not an error.
type Store struct {
	path string

	mu     sync.RWMutex
	events []model.Event
}

// Open loads the event list from path. If the file does not exist the
// store starts empty; any other read or decode failure is returned.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("calendar file path is empty")
	}

	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Info("calendar file not found, starting empty", "path", path)
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, &s.events); err != nil {
		return nil, err
	}

	appLog.Info("calendar loaded", "path", path, "event_count", len(s.events))
	return s, nil
}

// Save serializes the full event list back to the backing file,
// overwriting it in place. The file carries 0600 permissions.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.save()
}

// save writes the current list to disk. Callers must hold the lock.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.events, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Add validates ev, appends it and persists immediately. On a validation
// error the stored sequence is untouched.
func (s *Store) Add(ev model.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
	if err := s.save(); err != nil {
		return err
	}

	appLog.Info("event added", "title", ev.Title, "date", ev.Date, "time", ev.Time)
	return nil
}

// Remove filters out every event whose title equals title exactly
// (case-sensitive) and persists the result. Removing a title that matches
// nothing is not an error; the returned count says how many went away.
func (s *Store) Remove(title string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0:0]
	for _, ev := range s.events {
		if ev.Title != title {
			kept = append(kept, ev)
		}
	}

	removed := len(s.events) - len(kept)
	s.events = kept
	if err := s.save(); err != nil {
		return removed, err
	}

	appLog.Info("event removed", "title", title, "removed_count", removed)
	return removed, nil
}

// EventsOn returns the events whose date field string-equals date, in
// stored order. No date parsing or normalization happens.
func (s *Store) EventsOn(date string) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if ev.Date == date {
			out = append(out, ev)
		}
	}
	return out
}

// Events returns a copy of the full event list in stored order.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len reports the current number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
