package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Send(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(Config{
		URL:      srv.URL,
		Username: "ScryptTunes",
		Mention:  "@ops",
	}, srv.Client())

	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	n.Send(context.Background(), Alert{
		Requester: "viewer",
		Channel:   "teststreamer",
		Title:     "Song Request Error in teststreamer's Channel",
		ErrorText: "connection reset",
		Trace:     "trace line",
		Timestamp: ts,
	})

	assert.Equal(t, "@ops", got.Content)
	assert.Equal(t, "ScryptTunes", got.Username)
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "viewer", got.Embeds[0].Author.Name)
	assert.Contains(t, got.Embeds[0].Description, "connection reset")
	assert.Contains(t, got.Embeds[0].Description, "trace line")
	assert.Equal(t, "2026-08-30T12:00:00Z", got.Embeds[0].Timestamp)
}

func TestNotifier_DisabledAndFailures(t *testing.T) {
	// Disabled notifier never panics.
	New(Config{}, nil).Send(context.Background(), Alert{ErrorText: "x"})

	// Delivery failure is swallowed.
	n := New(Config{URL: "http://127.0.0.1:1/webhook"}, nil)
	n.Send(context.Background(), Alert{ErrorText: "x"})
}
