package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_RecordReplacesEntry(t *testing.T) {
	s := NewState()

	_, ok := s.Get("viewer")
	assert.False(t, ok)

	t1 := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.Record("viewer", "track1", t1)

	e, ok := s.Get("viewer")
	require.True(t, ok)
	assert.Equal(t, "track1", e.LastTrackID)
	assert.Equal(t, t1, e.LastRequestTime)

	// One entry per identity: a later request replaces, never appends.
	t2 := t1.Add(10 * time.Minute)
	s.Record("viewer", "track2", t2)

	e, ok = s.Get("viewer")
	require.True(t, ok)
	assert.Equal(t, "track2", e.LastTrackID)
	assert.Equal(t, t2, e.LastRequestTime)
	assert.Equal(t, 1, s.Len())
}
