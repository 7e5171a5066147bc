// Package resolve provides the short-link redirect follower.
package resolve

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// Mobile share links refuse requests without a browser user agent.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"

// maxHops caps redirect following. Short-links need exactly one hop to reach
// the canonical resource URL.
const maxHops = 1

// Follower resolves short-links to their canonical URLs.
type Follower struct {
	httpClient *http.Client
}

// New creates a Follower. httpClient may be nil, in which case a default
// client with a 10s timeout is used; a CheckRedirect hop cap is installed
// either way.
func New(httpClient *http.Client) *Follower {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxHops {
			return http.ErrUseLastResponse
		}
		return nil
	}
	return &Follower{httpClient: httpClient}
}

// ResolveRedirect follows at most one redirect and returns the final URL.
func (f *Follower) ResolveRedirect(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "invalid short-link")
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve short-link")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.Request.URL.String(), nil
}
