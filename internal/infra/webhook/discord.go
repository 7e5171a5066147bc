// Package webhook provides the outbound incident alert channel.
//
// Alerts go to a Discord-compatible webhook. Sending is fire-and-forget:
// delivery failures are logged and never propagated to the caller.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Alert carries the incident context reported to the operator.
type Alert struct {
	Requester string
	Channel   string
	Title     string
	ErrorText string
	Trace     string
	Timestamp time.Time
}

// Notifier posts alerts to a webhook URL.
type Notifier struct {
	url        string
	username   string
	avatarURL  string
	mention    string
	httpClient *http.Client
}

// Config represents webhook configuration.
type Config struct {
	URL       string
	Username  string
	AvatarURL string
	Mention   string
}

// New creates a Notifier. With an empty URL alerting is disabled and Send
// becomes a no-op.
func New(cfg Config, httpClient *http.Client) *Notifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{
		url:        cfg.URL,
		username:   cfg.Username,
		avatarURL:  cfg.AvatarURL,
		mention:    cfg.Mention,
		httpClient: httpClient,
	}
}

type embedAuthor struct {
	Name string `json:"name"`
}

type embed struct {
	Author      embedAuthor `json:"author"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Timestamp   string      `json:"timestamp"`
}

type payload struct {
	Content   string  `json:"content,omitempty"`
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []embed `json:"embeds"`
}

// Send posts the alert. Errors are swallowed after logging so an unreachable
// webhook can never break command handling.
func (n *Notifier) Send(ctx context.Context, a Alert) {
	if n.url == "" {
		return
	}

	eventID := uuid.New().String()
	description := "Error: " + a.ErrorText
	if a.Trace != "" {
		description += "\nStack trace:\n" + a.Trace
	}

	body, err := json.Marshal(payload{
		Content:   n.mention,
		Username:  n.username,
		AvatarURL: n.avatarURL,
		Embeds: []embed{{
			Author:      embedAuthor{Name: a.Requester},
			Title:       a.Title,
			Description: description,
			Timestamp:   a.Timestamp.UTC().Format(time.RFC3339),
		}},
	})
	if err != nil {
		zlog.Error().Err(err).Str("event_id", eventID).Msg("failed to encode alert")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		zlog.Error().Err(err).Str("event_id", eventID).Msg("failed to build alert request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		zlog.Error().Err(err).Str("event_id", eventID).Msg("failed to deliver alert")
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		zlog.Error().Int("status", resp.StatusCode).Str("event_id", eventID).Msg("alert webhook rejected")
		return
	}
	zlog.Debug().Str("event_id", eventID).Str("channel", a.Channel).Msg("alert delivered")
}
