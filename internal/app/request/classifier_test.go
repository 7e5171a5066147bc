package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Kind
	}{
		{name: "plain search phrase", input: "Never Gonna Give You Up - Rick Astley", want: KindPlainText},
		{name: "empty input", input: "", want: KindPlainText},
		{name: "spotify track URL", input: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", want: KindMusicTrackLink},
		{name: "spotify track URL with query", input: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc", want: KindMusicTrackLink},
		{name: "spotify track URI", input: "spotify:track:4uLU6hMCjMI75M1A2tKUQC", want: KindMusicTrackLink},
		{name: "spotify mobile short-link", input: "https://spotify.link/AbCdEf123", want: KindMusicTrackLink},
		{name: "spotify artist URL", input: "https://open.spotify.com/artist/0gxyHStUsqpMadRV0Di1Qt", want: KindMusicOtherLink},
		{name: "spotify album URL", input: "https://open.spotify.com/album/5Z9iiGl2FcIfa3BMiv6OIw", want: KindMusicOtherLink},
		{name: "spotify playlist URL", input: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", want: KindUnsupported},
		{name: "youtube watch URL", input: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: KindVideoLink},
		{name: "youtube short URL", input: "https://youtu.be/dQw4w9WgXcQ", want: KindVideoLink},
		{name: "youtube mobile URL", input: "https://m.youtube.com/watch?v=dQw4w9WgXcQ", want: KindVideoLink},
		{name: "youtube channel URL", input: "https://www.youtube.com/@somechannel", want: KindUnsupported},
		{name: "unrelated URL falls back to search", input: "https://example.com/some-song", want: KindPlainText},
		{name: "whitespace around link", input: "  https://youtu.be/dQw4w9WgXcQ  ", want: KindVideoLink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input)
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}

func TestClassify_Details(t *testing.T) {
	short := Classify("https://spotify.link/AbCdEf123")
	assert.True(t, short.ShortLink)

	long := Classify("https://open.spotify.com/track/abc123")
	assert.False(t, long.ShortLink)
	assert.Equal(t, "https://open.spotify.com/track/abc123", long.URL)

	artist := Classify("https://open.spotify.com/artist/xyz")
	assert.Equal(t, "artist", artist.Segment)
	assert.Contains(t, artist.Reason, "artist URLs are not supported")

	album := Classify("https://open.spotify.com/album/xyz")
	assert.Equal(t, "album", album.Segment)

	badSpotify := Classify("https://open.spotify.com/show/xyz")
	assert.Equal(t, KindUnsupported, badSpotify.Kind)
	assert.Contains(t, badSpotify.Reason, "Spotify track URL is invalid")

	badVideo := Classify("https://youtube.com/playlist?list=PLx")
	assert.Equal(t, KindUnsupported, badVideo.Kind)
	assert.Contains(t, badVideo.Reason, "YouTube url is invalid")
}
