// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"
)

// Track represents a resolved Spotify track.
// Contains only information retrieved from the Spotify API; immutable once
// constructed by the resolver.
type Track struct {
	ID        string        // Spotify track ID, scheme prefix stripped
	Title     string        // Track name
	Artists   []string      // Artist names, in catalog order
	Duration  time.Duration // Track duration
	URL       string        // Spotify permalink
	SourceURI string        // Spotify URI (spotify:track:...)
}

// ArtistLine returns the artist names joined for chat output.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Requester represents the chat user who issued a command.
type Requester struct {
	Name    string   // Display name as delivered by the chat layer
	Badges  []string // Badge names held by the user
	IsMod   bool     // Channel moderator
	IsOwner bool     // Channel owner (broadcaster)
}

// Key returns the case-folded identity used for blacklists and cooldowns.
func (r Requester) Key() string {
	return strings.ToLower(r.Name)
}

// HasBadge checks whether the requester holds the given badge.
func (r Requester) HasBadge(badge string) bool {
	for _, b := range r.Badges {
		if strings.EqualFold(b, badge) {
			return true
		}
	}
	return false
}

// RequestEvent records a successful song request.
// Ephemeral; only used to update cooldown state, never persisted.
type RequestEvent struct {
	Requester string    // Case-folded requester identity
	Timestamp time.Time // Time of admission
	Track     Track     // Admitted track
}
