// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Bot         Bot                         `yaml:"bot"`
	Spotify     Spotify                     `yaml:"spotify"`
	Alert       Alert                       `yaml:"alert"`
	Storage     Storage                     `yaml:"storage"`
	Filters     map[string]FilterConfig     `yaml:"filters"`
	Permissions map[string]PermissionConfig `yaml:"permissions"`
	Messages    Messages                    `yaml:"messages"`
}

// Bot represents chat-side configuration.
type Bot struct {
	Channel        string `yaml:"channel" validate:"required"`
	Nickname       string `yaml:"nickname"`
	Prefix         string `yaml:"prefix" default:"!"`
	WelcomeMessage string `yaml:"welcome_message"`
	RateLimit      bool   `yaml:"rate_limit"`
}

// Spotify represents Spotify API configuration.
type Spotify struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" validate:"required"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// Alert represents the incident webhook configuration.
// An empty URL disables alerting.
type Alert struct {
	WebhookURL string `yaml:"webhook_url"`
	Username   string `yaml:"username" default:"ScryptTunes"`
	AvatarURL  string `yaml:"avatar_url"`
	Mention    string `yaml:"mention"`
}

// Storage represents file persistence configuration.
type Storage struct {
	Dir string `yaml:"dir" default:"data"`
}

// FilterConfig represents an admission filter's configuration.
type FilterConfig struct {
	Settings map[string]any `yaml:"settings,omitempty"`
}

// PermissionConfig represents the permission entry for one command.
// A command is permitted when Everyone is set, or when any badge the
// requester holds maps to true.
type PermissionConfig struct {
	Everyone bool            `yaml:"everyone"`
	Badges   map[string]bool `yaml:"badges"`
}

// Messages represents user-facing reply texts.
// Defaults match the original bot's wording.
type Messages struct {
	TooLong         string `yaml:"too_long" default:"Send a shorter song please! :3"`
	RateLimited     string `yaml:"rate_limited" default:"You need to wait 5 minutes between requests!"`
	SongBlacklisted string `yaml:"song_blacklisted" default:"That song is blacklisted."`
	UserBlacklisted string `yaml:"user_blacklisted" default:"You are blacklisted from requesting songs."`
	NotFound        string `yaml:"not_found" default:"Couldn't find that song on Spotify."`
	DefaultError    string `yaml:"default_error" default:"there was an error with your request!"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("ALERT_WEBHOOK_URL"); v != "" {
		c.Alert.WebhookURL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// FilterSettings returns the settings map for a filter, or nil if the filter
// has no configuration entry.
func (c *Config) FilterSettings(name string) map[string]any {
	if f, ok := c.Filters[name]; ok {
		return f.Settings
	}
	return nil
}
