// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/scrypt-tech/scrypttunes/internal/domain/track"
)

// ErrTrackNotFound is returned when a lookup or search matches nothing.
// Callers must not treat it as a transient failure.
var ErrTrackNotFound = errors.New("track not found")

// requestsPerSecond caps outbound Spotify API calls.
const requestsPerSecond = 10

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// Client is a Spotify API client.
//
// Recreate rebuilds the underlying session in place; the mutex keeps that
// safe if commands are ever dispatched concurrently.
type Client struct {
	mu      sync.RWMutex
	api     *spotify.Client
	cfg     Config
	market  string
	limiter *rate.Limiter
}

// PlaybackState describes the currently playing track.
type PlaybackState struct {
	Track    track.Track
	Progress time.Duration
	Playing  bool
}

// New creates a new Spotify client using refresh-token auth.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	market := cfg.Market
	if market == "" {
		market = "US"
	}

	c := &Client{
		cfg:     cfg,
		market:  market,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
	c.api = newAPIClient(ctx, cfg)
	return c, nil
}

// newAPIClient builds a fresh zmb3 client from the refresh token. Any cached
// access token from a previous session is discarded.
func newAPIClient(ctx context.Context, cfg Config) *spotify.Client {
	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserModifyPlaybackState,
			spotifyauth.ScopeUserReadCurrentlyPlaying,
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserReadRecentlyPlayed,
		),
	)
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	return spotify.New(auth.Client(ctx, token))
}

// Recreate replaces the underlying session with a freshly authenticated one.
// Used by the retry layer after transient upstream failures.
func (c *Client) Recreate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.api = newAPIClient(ctx, c.cfg)
	return nil
}

func (c *Client) client() *spotify.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.api
}

// SearchTrack searches the catalog and returns the top match.
// Returns ErrTrackNotFound when the search yields no tracks.
func (c *Client) SearchTrack(ctx context.Context, query string) (*track.Track, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.client().Search(ctx, query, spotify.SearchTypeTrack,
		spotify.Limit(1),
		spotify.Market(c.market),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}
	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return nil, errors.Wrapf(ErrTrackNotFound, "no results for %q", query)
	}

	return convertTrack(&result.Tracks.Tracks[0]), nil
}

// GetTrack retrieves track metadata by ID, URL, or URI.
// Returns ErrTrackNotFound for IDs the service does not know.
func (c *Client) GetTrack(ctx context.Context, trackID string) (*track.Track, error) {
	id := ExtractTrackID(trackID)
	if id == "" {
		return nil, errors.Wrap(ErrTrackNotFound, "empty track id")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	t, err := c.client().GetTrack(ctx, spotify.ID(id), spotify.Market(c.market))
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Wrapf(ErrTrackNotFound, "track %s", id)
		}
		return nil, errors.Wrap(err, "failed to get track")
	}
	return convertTrack(t), nil
}

// QueueTrack adds a track to the playback queue.
func (c *Client) QueueTrack(ctx context.Context, trackID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := c.client().QueueSong(ctx, spotify.ID(ExtractTrackID(trackID))); err != nil {
		return errors.Wrap(err, "failed to queue track")
	}
	return nil
}

// CurrentlyPlaying returns the current playback state, or nil if nothing is
// playing.
func (c *Client) CurrentlyPlaying(ctx context.Context) (*PlaybackState, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	cp, err := c.client().PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playback state")
	}
	if cp == nil || cp.Item == nil {
		return nil, nil
	}

	return &PlaybackState{
		Track:    *convertTrack(cp.Item),
		Progress: time.Duration(int(cp.Progress)) * time.Millisecond,
		Playing:  cp.Playing,
	}, nil
}

// convertTrack converts a Spotify FullTrack to the domain Track.
func convertTrack(t *spotify.FullTrack) *track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return &track.Track{
		ID:        string(t.ID),
		Title:     t.Name,
		Artists:   artists,
		Duration:  time.Duration(int(t.Duration)) * time.Millisecond,
		URL:       TrackURL(string(t.ID)),
		SourceURI: string(t.URI),
	}
}

// TrackURL returns the Spotify permalink for a track.
func TrackURL(trackID string) string {
	return "https://open.spotify.com/track/" + trackID
}

// ExtractTrackID extracts the track ID from a Spotify track URL or URI.
func ExtractTrackID(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	// Assume it's already a track ID.
	return input
}

// isNotFound reports whether the API rejected the track reference itself.
func isNotFound(err error) bool {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == 400 || apiErr.Status == 404
	}
	return false
}

// IsTransient reports whether an upstream failure is worth retrying after
// recreating the session: connection failures, protocol-level errors, and
// service-side errors. Not-found results are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTrackNotFound) {
		return false
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == 429 || apiErr.Status >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return false
}
