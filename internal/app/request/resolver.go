package request

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/scrypt-tech/scrypttunes/internal/app/invoker"
	"github.com/scrypt-tech/scrypttunes/internal/domain/track"
	"github.com/scrypt-tech/scrypttunes/internal/infra/oembed"
	"github.com/scrypt-tech/scrypttunes/internal/infra/spotify"
)

// ErrNotFound is returned when no matching track exists.
var ErrNotFound = errors.New("no matching track found")

// InvalidURLError is returned for malformed or unsupported link input. The
// Reason is the user-facing explanation.
type InvalidURLError struct {
	Reason string
}

func (e *InvalidURLError) Error() string {
	return "invalid url: " + e.Reason
}

// maxDepth bounds the fallback chain: a video link resolves to at most one
// further text search.
const maxDepth = 2

// Catalog is the subset of the music service the resolver needs.
type Catalog interface {
	SearchTrack(ctx context.Context, query string) (*track.Track, error)
	GetTrack(ctx context.Context, id string) (*track.Track, error)
}

// RedirectFollower resolves short-links to canonical URLs.
type RedirectFollower interface {
	ResolveRedirect(ctx context.Context, rawURL string) (string, error)
}

// TitleLookup fetches title metadata for a video link.
type TitleLookup interface {
	LookupTitle(ctx context.Context, mediaURL string) (*oembed.TitleInfo, error)
}

// Notify reports resolution progress back to the requester. May be nil.
type Notify func(text string)

// Resolver turns free-form request input into a canonical track.
type Resolver struct {
	catalog   Catalog
	redirects RedirectFollower
	titles    TitleLookup
	inv       *invoker.Invoker
}

// NewResolver creates a Resolver. All upstream calls go through inv.
func NewResolver(catalog Catalog, redirects RedirectFollower, titles TitleLookup, inv *invoker.Invoker) *Resolver {
	return &Resolver{
		catalog:   catalog,
		redirects: redirects,
		titles:    titles,
		inv:       inv,
	}
}

// Resolve classifies the input and resolves it to a track.
// Returns *InvalidURLError for unusable links, ErrNotFound when nothing
// matches, and *invoker.FatalError when the upstream gave up.
func (r *Resolver) Resolve(ctx context.Context, input string, notify Notify) (*track.Track, error) {
	query := input
	for depth := 0; depth < maxDepth; depth++ {
		c := Classify(query)

		switch c.Kind {
		case KindUnsupported:
			zlog.Info().Str("input", c.Input).Msg("rejected unsupported URL")
			return nil, &InvalidURLError{Reason: c.Reason}

		case KindMusicOtherLink:
			zlog.Info().Str("segment", c.Segment).Msg("rejected non-track Spotify URL")
			return nil, &InvalidURLError{Reason: c.Reason}

		case KindPlainText:
			return r.search(ctx, c.Input)

		case KindMusicTrackLink:
			return r.lookup(ctx, c, notify)

		case KindVideoLink:
			phrase, err := r.videoPhrase(ctx, c.URL, notify)
			if err != nil {
				return nil, err
			}
			query = phrase
		}
	}
	return nil, errors.Wrap(ErrNotFound, "fallback depth exhausted")
}

// search runs a top-1 catalog search for the phrase.
func (r *Resolver) search(ctx context.Context, phrase string) (*track.Track, error) {
	var t *track.Track
	err := r.inv.Do(ctx, "search", func(ctx context.Context) error {
		found, err := r.catalog.SearchTrack(ctx, phrase)
		if err != nil {
			return err
		}
		t = found
		return nil
	})
	if err != nil {
		if errors.Is(err, spotify.ErrTrackNotFound) {
			return nil, errors.Mark(err, ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

// lookup resolves a direct track link, following one redirect hop first for
// mobile short-links.
func (r *Resolver) lookup(ctx context.Context, c Classified, notify Notify) (*track.Track, error) {
	var t *track.Track
	err := r.inv.Do(ctx, "track lookup", func(ctx context.Context) error {
		ref := c.URL
		if c.ShortLink {
			send(notify, "Mobile link detected, attempting to get full url.")
			finalURL, err := r.redirects.ResolveRedirect(ctx, c.URL)
			if err != nil {
				return err
			}
			zlog.Debug().Str("short", c.URL).Str("resolved", finalURL).Msg("short-link resolved")
			ref = finalURL
		}
		found, err := r.catalog.GetTrack(ctx, ref)
		if err != nil {
			return err
		}
		t = found
		return nil
	})
	if err != nil {
		if errors.Is(err, spotify.ErrTrackNotFound) {
			return nil, errors.Mark(err, ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

// videoPhrase turns a video link into a search phrase via title lookup.
// Lookup failures that are not retryable mean the video has no usable
// metadata, which is a not-found result rather than an outage.
func (r *Resolver) videoPhrase(ctx context.Context, videoURL string, notify Notify) (string, error) {
	var info *oembed.TitleInfo
	err := r.inv.Do(ctx, "title lookup", func(ctx context.Context) error {
		found, err := r.titles.LookupTitle(ctx, videoURL)
		if err != nil {
			if spotify.IsTransient(err) {
				return err
			}
			return errors.Mark(err, ErrNotFound)
		}
		info = found
		return nil
	})
	if err != nil {
		return "", err
	}

	zlog.Info().Str("url", videoURL).Str("title", info.Title).Msg("video link detected, falling back to search")
	send(notify, "YouTube Link Detected - Searching song name on Spotify as fallback")

	return info.Title + " " + info.AuthorName, nil
}

func send(notify Notify, text string) {
	if notify != nil {
		notify(text)
	}
}
