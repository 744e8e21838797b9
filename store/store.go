// Package store holds the in-memory transcript state for the single user.
// Entries live only for the lifetime of the process; the durable record of a
// day is the archived article written after a successful publish.
package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNothingToCompile is returned when a day has no transcript entries.
	ErrNothingToCompile = errors.New("nothing to compile")
	// ErrCompileInProgress is returned when a compile is already running for the day.
	ErrCompileInProgress = errors.New("compile already in progress")
)

// Entry is a single transcribed voice note.
type Entry struct {
	Timestamp time.Time
	Text      string
}

// Store maps calendar days (YYYY-MM-DD in the configured timezone) to ordered
// transcript entries. All mutation goes through the Store; callers only ever
// see copies.
type Store struct {
	location *time.Location

	mu        sync.Mutex
	days      map[string][]Entry
	compiling map[string]bool
}

// New creates an empty store keyed in the given timezone.
func New(loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		location:  loc,
		days:      make(map[string][]Entry),
		compiling: make(map[string]bool),
	}
}

// Location returns the timezone the store keys days in.
func (s *Store) Location() *time.Location {
	return s.location
}

// DayKey returns the bucket key for the given instant.
func (s *Store) DayKey(t time.Time) string {
	return t.In(s.location).Format("2006-01-02")
}

// Today returns the bucket key for the current instant.
func (s *Store) Today() string {
	return s.DayKey(time.Now())
}

// Append records one entry under the day derived from its timestamp and
// returns the entry count for that day. The bucket is created on first use.
func (s *Store) Append(e Entry) int {
	day := s.DayKey(e.Timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.days[day] = append(s.days[day], e)
	return len(s.days[day])
}

// Count returns the number of entries recorded for the day.
func (s *Store) Count(day string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.days[day])
}

// BeginCompile marks the day as compiling and returns a copy of its entries.
// It fails with ErrNothingToCompile if the bucket is empty or absent, and
// with ErrCompileInProgress if another compile for the day has not finished.
// Every successful call must be paired with EndCompile.
func (s *Store) BeginCompile(day string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.compiling[day] {
		return nil, ErrCompileInProgress
	}
	entries := s.days[day]
	if len(entries) == 0 {
		return nil, ErrNothingToCompile
	}

	s.compiling[day] = true
	snapshot := make([]Entry, len(entries))
	copy(snapshot, entries)
	return snapshot, nil
}

// EndCompile releases the day's compile flag. With clear=true the first
// compiled entries are removed; entries appended while the compile was
// running are preserved for the next one.
func (s *Store) EndCompile(day string, clear bool, compiled int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.compiling, day)
	if !clear {
		return
	}

	entries := s.days[day]
	if compiled >= len(entries) {
		delete(s.days, day)
		return
	}
	remaining := make([]Entry, len(entries)-compiled)
	copy(remaining, entries[compiled:])
	s.days[day] = remaining
}
