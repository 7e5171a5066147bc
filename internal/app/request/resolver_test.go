package request

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypt-tech/scrypttunes/internal/app/invoker"
	"github.com/scrypt-tech/scrypttunes/internal/domain/track"
	"github.com/scrypt-tech/scrypttunes/internal/infra/oembed"
	"github.com/scrypt-tech/scrypttunes/internal/infra/spotify"
)

type fakeCatalog struct {
	searchCalls []string
	getCalls    []string
	searchTrack *track.Track
	searchErr   error
	getTrack    *track.Track
	getErr      error
}

func (f *fakeCatalog) SearchTrack(_ context.Context, query string) (*track.Track, error) {
	f.searchCalls = append(f.searchCalls, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchTrack, nil
}

func (f *fakeCatalog) GetTrack(_ context.Context, id string) (*track.Track, error) {
	f.getCalls = append(f.getCalls, id)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getTrack, nil
}

type fakeRedirects struct {
	calls    []string
	finalURL string
	err      error
}

func (f *fakeRedirects) ResolveRedirect(_ context.Context, rawURL string) (string, error) {
	f.calls = append(f.calls, rawURL)
	return f.finalURL, f.err
}

type fakeTitles struct {
	calls []string
	info  *oembed.TitleInfo
	err   error
}

func (f *fakeTitles) LookupTitle(_ context.Context, mediaURL string) (*oembed.TitleInfo, error) {
	f.calls = append(f.calls, mediaURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func testInvoker() *invoker.Invoker {
	return invoker.New(
		spotify.IsTransient,
		func(context.Context) error { return nil },
		invoker.WithPassthrough(func(err error) bool {
			return errors.Is(err, spotify.ErrTrackNotFound) || errors.Is(err, ErrNotFound)
		}),
	)
}

func sampleTrack(id string) *track.Track {
	return &track.Track{
		ID:        id,
		Title:     "Never Gonna Give You Up",
		Artists:   []string{"Rick Astley"},
		Duration:  213 * time.Second,
		URL:       "https://open.spotify.com/track/" + id,
		SourceURI: "spotify:track:" + id,
	}
}

func TestResolver_PlainTextSearch(t *testing.T) {
	catalog := &fakeCatalog{searchTrack: sampleTrack("abc123")}
	r := NewResolver(catalog, &fakeRedirects{}, &fakeTitles{}, testInvoker())

	got, err := r.Resolve(context.Background(), "never gonna give you up", nil)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.ID)
	assert.Equal(t, []string{"never gonna give you up"}, catalog.searchCalls)
	assert.Empty(t, catalog.getCalls)
}

func TestResolver_SearchNoResults(t *testing.T) {
	catalog := &fakeCatalog{searchErr: errors.Wrap(spotify.ErrTrackNotFound, "no results")}
	r := NewResolver(catalog, &fakeRedirects{}, &fakeTitles{}, testInvoker())

	_, err := r.Resolve(context.Background(), "xxxxxxxx zzzzzzz", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResolver_TrackLinkSkipsSearch(t *testing.T) {
	catalog := &fakeCatalog{getTrack: sampleTrack("abc123")}
	r := NewResolver(catalog, &fakeRedirects{}, &fakeTitles{}, testInvoker())

	got, err := r.Resolve(context.Background(), "https://open.spotify.com/track/abc123", nil)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.ID)
	assert.Equal(t, []string{"https://open.spotify.com/track/abc123"}, catalog.getCalls)
	assert.Empty(t, catalog.searchCalls, "direct links must not trigger a search")
}

func TestResolver_TrackLinkNotFound(t *testing.T) {
	catalog := &fakeCatalog{getErr: errors.Wrap(spotify.ErrTrackNotFound, "track gone")}
	r := NewResolver(catalog, &fakeRedirects{}, &fakeTitles{}, testInvoker())

	_, err := r.Resolve(context.Background(), "spotify:track:gone123", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, fatal := invoker.AsFatal(err)
	assert.False(t, fatal, "not-found is a result, not an outage")
}

func TestResolver_ShortLinkFollowsOneRedirect(t *testing.T) {
	catalog := &fakeCatalog{getTrack: sampleTrack("abc123")}
	redirects := &fakeRedirects{finalURL: "https://open.spotify.com/track/abc123"}
	r := NewResolver(catalog, redirects, &fakeTitles{}, testInvoker())

	var notices []string
	got, err := r.Resolve(context.Background(), "https://spotify.link/AbCdEf123", func(s string) {
		notices = append(notices, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.ID)
	assert.Equal(t, []string{"https://spotify.link/AbCdEf123"}, redirects.calls)
	assert.Equal(t, []string{"https://open.spotify.com/track/abc123"}, catalog.getCalls)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "Mobile link detected")
}

func TestResolver_VideoLinkFallsBackToSearch(t *testing.T) {
	catalog := &fakeCatalog{searchTrack: sampleTrack("abc123")}
	titles := &fakeTitles{info: &oembed.TitleInfo{Title: "Never Gonna Give You Up", AuthorName: "Rick Astley"}}
	r := NewResolver(catalog, &fakeRedirects{}, titles, testInvoker())

	var notices []string
	got, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ", func(s string) {
		notices = append(notices, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.ID)
	assert.Equal(t, []string{"https://youtu.be/dQw4w9WgXcQ"}, titles.calls)
	assert.Equal(t, []string{"Never Gonna Give You Up Rick Astley"}, catalog.searchCalls)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "Searching song name on Spotify as fallback")
}

func TestResolver_VideoLinkTitleLookupFails(t *testing.T) {
	titles := &fakeTitles{err: errors.New("no matching providers found")}
	catalog := &fakeCatalog{}
	r := NewResolver(catalog, &fakeRedirects{}, titles, testInvoker())

	_, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Empty(t, catalog.searchCalls, "failed lookups must not enqueue anything")
}

func TestResolver_RejectedLinks(t *testing.T) {
	r := NewResolver(&fakeCatalog{}, &fakeRedirects{}, &fakeTitles{}, testInvoker())

	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{name: "artist URL", input: "https://open.spotify.com/artist/xyz", reason: "artist URLs are not supported."},
		{name: "album URL", input: "https://open.spotify.com/album/xyz", reason: "album URLs are not supported."},
		{name: "bad spotify URL", input: "https://open.spotify.com/show/xyz", reason: "invalid or unsupported"},
		{name: "bad youtube URL", input: "https://www.youtube.com/@channel", reason: "invalid or unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.input, nil)
			var invalid *InvalidURLError
			require.ErrorAs(t, err, &invalid)
			assert.Contains(t, invalid.Reason, tt.reason)
		})
	}
}
