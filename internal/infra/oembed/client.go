// Package oembed provides video title lookup via the noembed.com service.
package oembed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
)

const defaultBaseURL = "https://noembed.com/embed"

// TitleInfo is the subset of the oEmbed response the resolver needs.
type TitleInfo struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// Client is a noembed.com API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client. httpClient may be nil.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: defaultBaseURL, httpClient: httpClient}
}

// NewWithBaseURL creates a Client against a custom endpoint, for tests.
func NewWithBaseURL(baseURL string, httpClient *http.Client) *Client {
	c := New(httpClient)
	c.baseURL = baseURL
	return c
}

// LookupTitle fetches the title and author of a media URL.
// The target URL is query-encoded, which covers the percent-encoding the
// upstream expects.
func (c *Client) LookupTitle(ctx context.Context, mediaURL string) (*TitleInfo, error) {
	params := url.Values{"url": {mediaURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build oembed request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "oembed request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("oembed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read oembed response")
	}

	// noembed reports failures as {"error": "..."} with status 200.
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, errors.Wrap(err, "failed to parse oembed response")
	}
	if probe.Error != "" {
		return nil, errors.Newf("oembed error: %s", probe.Error)
	}

	var info TitleInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, errors.Wrap(err, "failed to parse oembed response")
	}
	if info.Title == "" {
		return nil, errors.New("oembed response has no title")
	}
	return &info, nil
}
