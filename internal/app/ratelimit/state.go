// Package ratelimit provides the per-requester cooldown state.
package ratelimit

import (
	"sync"
	"time"
)

// Entry records a requester's most recent successful request.
type Entry struct {
	LastRequestTime time.Time
	LastTrackID     string
}

// State maps case-folded requester identities to their last request.
// In-memory only: entries live for the process lifetime and the whole map
// resets on restart. The mutex makes the single-writer assumption explicit
// rather than implicit in the dispatch model.
type State struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewState creates empty cooldown state.
func NewState() *State {
	return &State{entries: make(map[string]Entry)}
}

// Get returns the entry for a requester key.
func (s *State) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Record stores the request, replacing any prior entry for the key.
func (s *State) Record(key, trackID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{LastRequestTime: at, LastTrackID: trackID}
}

// Len returns the number of tracked requesters.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
