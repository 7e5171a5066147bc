// Package blacklist provides the song and user blacklist entities.
package blacklist

import (
	"sort"
	"strings"
	"sync"
)

// trackURIPrefix is stripped before storing song IDs so the persisted set
// contains bare Spotify track IDs only.
const trackURIPrefix = "spotify:track:"

// NormalizeSongID strips the Spotify URI scheme prefix from a track reference.
func NormalizeSongID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), trackURIPrefix)
}

// NormalizeUser folds a requester identity for case-insensitive matching.
func NormalizeUser(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Songs is the set of blacklisted track IDs.
type Songs struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewSongs creates a song blacklist from persisted entries.
// IDs are normalized on the way in, so a stored "spotify:track:x" and a
// stored "x" are the same entry.
func NewSongs(entries []string) *Songs {
	s := &Songs{ids: make(map[string]struct{}, len(entries))}
	for _, id := range entries {
		s.ids[NormalizeSongID(id)] = struct{}{}
	}
	return s
}

// Contains checks membership for a track ID (prefix tolerated).
func (s *Songs) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[NormalizeSongID(id)]
	return ok
}

// Add inserts a track ID. Returns false if it was already present.
func (s *Songs) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = NormalizeSongID(id)
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Remove deletes a track ID. Returns false if it was not present.
func (s *Songs) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = NormalizeSongID(id)
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	return true
}

// Entries returns the stored IDs in sorted order for persistence.
func (s *Songs) Entries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Users is the set of blacklisted requester identities.
type Users struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

// NewUsers creates a user blacklist from persisted entries.
func NewUsers(entries []string) *Users {
	u := &Users{names: make(map[string]struct{}, len(entries))}
	for _, name := range entries {
		u.names[NormalizeUser(name)] = struct{}{}
	}
	return u
}

// Contains checks membership case-insensitively.
func (u *Users) Contains(name string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.names[NormalizeUser(name)]
	return ok
}

// Add inserts a user. Returns false if already present.
func (u *Users) Add(name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	name = NormalizeUser(name)
	if _, ok := u.names[name]; ok {
		return false
	}
	u.names[name] = struct{}{}
	return true
}

// Remove deletes a user. Returns false if not present.
func (u *Users) Remove(name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	name = NormalizeUser(name)
	if _, ok := u.names[name]; !ok {
		return false
	}
	delete(u.names, name)
	return true
}

// Entries returns the stored names in sorted order for persistence.
func (u *Users) Entries() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]string, 0, len(u.names))
	for name := range u.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
