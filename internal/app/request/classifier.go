// Package request provides song request resolution: URL classification and
// the lookup chain that turns free-form chat input into a canonical track.
package request

import (
	"regexp"
	"strings"
)

// Kind is the classification of a raw request input.
type Kind int

const (
	// KindPlainText is a search phrase (including URL-shaped input that
	// matches no supported platform).
	KindPlainText Kind = iota
	// KindMusicTrackLink is a Spotify track URL, URI, or mobile short-link.
	KindMusicTrackLink
	// KindMusicOtherLink is a Spotify artist or album URL.
	KindMusicOtherLink
	// KindVideoLink is a YouTube watch or short URL.
	KindVideoLink
	// KindUnsupported is a recognized platform URL in an unusable form.
	KindUnsupported
)

// Classified is the result of classifying one input string.
type Classified struct {
	Kind      Kind
	Input     string // trimmed input
	URL       string // the link, for link kinds
	ShortLink bool   // track link uses the mobile sharing domain
	Segment   string // "artist" or "album" for KindMusicOtherLink
	Reason    string // user-facing rejection reason for unusable links
}

var (
	// Generic URL shape, ported from the bot's original pattern.
	urlRegex = regexp.MustCompile(`(?i)\b((?:https?://|www\d{0,3}[.]|[a-z0-9.\-]+[.][a-z]{2,4}/)(?:[^\s()<>]+|\(([^\s()<>]+|(\([^\s()<>]+\)))*\))+(?:\(([^\s()<>]+|(\([^\s()<>]+\)))*\)|[^\s` + "`" + `!()\[\]{};:'".,<>?«»“”‘’]))`)

	spotifyTrackRegex = regexp.MustCompile(`^(https://open\.spotify\.com/track/|spotify:track:)([a-zA-Z0-9]+)(\?.*)?$`)
	youtubeVideoRegex = regexp.MustCompile(`^(https?://)?(www\.|m\.)?(youtube\.com/watch\?v=|youtu\.be/)([\w\-]+)(\?.*)?$`)
)

// Classify maps any input string to exactly one classification.
func Classify(input string) Classified {
	input = strings.TrimSpace(input)
	c := Classified{Input: input}

	// The URI form is a valid track reference but not URL-shaped, so it is
	// checked before the generic URL test.
	if spotifyTrackRegex.MatchString(input) {
		c.Kind = KindMusicTrackLink
		c.URL = input
		return c
	}

	if !urlRegex.MatchString(input) {
		c.Kind = KindPlainText
		return c
	}

	if strings.Contains(input, "spotify") {
		if strings.Contains(input, ".link/") {
			c.Kind = KindMusicTrackLink
			c.URL = input
			c.ShortLink = true
			return c
		}
		for _, segment := range []string{"artist", "album"} {
			if strings.Contains(input, segment) {
				c.Kind = KindMusicOtherLink
				c.URL = input
				c.Segment = segment
				c.Reason = segment + " URLs are not supported."
				return c
			}
		}
		c.Kind = KindUnsupported
		c.URL = input
		c.Reason = "the provided Spotify track URL is invalid or unsupported."
		return c
	}

	if strings.Contains(input, "youtu") {
		if youtubeVideoRegex.MatchString(input) {
			c.Kind = KindVideoLink
			c.URL = input
			return c
		}
		c.Kind = KindUnsupported
		c.URL = input
		c.Reason = "the provided YouTube url is invalid or unsupported."
		return c
	}

	// Any other URL-shaped input falls back to a literal search phrase.
	c.Kind = KindPlainText
	return c
}
