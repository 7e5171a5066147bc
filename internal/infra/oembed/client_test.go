package oembed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_LookupTitle(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		w.Write([]byte(`{"title": "Never Gonna Give You Up", "author_name": "Rick Astley"}`))
	}))
	defer srv.Close()

	c := NewWithBaseURL(srv.URL, srv.Client())

	info, err := c.LookupTitle(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", info.Title)
	assert.Equal(t, "Rick Astley", info.AuthorName)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", gotURL)
}

func TestClient_LookupTitle_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "no matching providers found"}`))
	}))
	defer srv.Close()

	c := NewWithBaseURL(srv.URL, srv.Client())

	_, err := c.LookupTitle(context.Background(), "https://example.com/clip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no matching providers")
}

func TestClient_LookupTitle_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewWithBaseURL(srv.URL, srv.Client())

	_, err := c.LookupTitle(context.Background(), "https://youtu.be/x")
	assert.Error(t, err)
}
