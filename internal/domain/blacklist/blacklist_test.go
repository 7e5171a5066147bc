package blacklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSongs_PrefixStripping(t *testing.T) {
	s := NewSongs([]string{"spotify:track:abc123", "def456"})

	// Stored without scheme prefix
	assert.Equal(t, []string{"abc123", "def456"}, s.Entries())

	// Lookups tolerate either form
	assert.True(t, s.Contains("abc123"))
	assert.True(t, s.Contains("spotify:track:abc123"))
	assert.True(t, s.Contains("spotify:track:def456"))
	assert.False(t, s.Contains("ghi789"))
}

func TestSongs_AddRemove(t *testing.T) {
	s := NewSongs(nil)

	assert.True(t, s.Add("spotify:track:abc123"))
	assert.False(t, s.Add("abc123"), "same ID in bare form is a duplicate")

	assert.True(t, s.Remove("abc123"))
	assert.False(t, s.Remove("abc123"))
	assert.Empty(t, s.Entries())
}

func TestUsers_CaseInsensitive(t *testing.T) {
	u := NewUsers([]string{"StreamViewer"})

	assert.True(t, u.Contains("streamviewer"))
	assert.True(t, u.Contains("STREAMVIEWER"))
	assert.False(t, u.Contains("other"))

	assert.False(t, u.Add("StreamViewer"), "case variants are the same entry")
	assert.True(t, u.Remove("sTrEaMvIeWeR"))
	assert.Empty(t, u.Entries())
}
