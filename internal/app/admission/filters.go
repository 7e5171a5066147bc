package admission

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/scrypt-tech/scrypttunes/internal/app/ratelimit"
	"github.com/scrypt-tech/scrypttunes/internal/domain/blacklist"
	"github.com/scrypt-tech/scrypttunes/internal/domain/track"
)

// decodeSettings fills config from a settings map, applying defaults and
// validation.
func decodeSettings(settings map[string]any, config any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           config,
		TagName:          "mapstructure",
		WeaklyTypedInput: true, // YAML integers decode into float fields
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

// UserBlacklistFilter rejects requests from blacklisted users.
type UserBlacklistFilter struct {
	users *blacklist.Users
}

// NewUserBlacklistFilter creates a user blacklist filter.
func NewUserBlacklistFilter(users *blacklist.Users) *UserBlacklistFilter {
	return &UserBlacklistFilter{users: users}
}

func (f *UserBlacklistFilter) Name() string { return "user_blacklist" }

func (f *UserBlacklistFilter) ValidateConfig(settings map[string]any) error { return nil }

func (f *UserBlacklistFilter) Check(ctx context.Context, t track.Track, requester track.Requester) Result {
	if f.users.Contains(requester.Name) {
		zlog.Warn().Str("user", requester.Key()).Str("track", t.ID).Msg("blacklisted user attempted request")
		return Reject(CodeRequesterBlacklisted)
	}
	return Accept()
}

// SongBlacklistFilter rejects blacklisted tracks.
type SongBlacklistFilter struct {
	songs *blacklist.Songs
}

// NewSongBlacklistFilter creates a song blacklist filter.
func NewSongBlacklistFilter(songs *blacklist.Songs) *SongBlacklistFilter {
	return &SongBlacklistFilter{songs: songs}
}

func (f *SongBlacklistFilter) Name() string { return "song_blacklist" }

func (f *SongBlacklistFilter) ValidateConfig(settings map[string]any) error { return nil }

func (f *SongBlacklistFilter) Check(ctx context.Context, t track.Track, requester track.Requester) Result {
	if f.songs.Contains(t.ID) {
		zlog.Warn().Str("user", requester.Key()).Str("track", t.ID).Msg("blacklisted song requested")
		return Reject(CodeTrackBlacklisted)
	}
	return Accept()
}

// DurationLimitConfig represents the configuration for DurationLimitFilter.
type DurationLimitConfig struct {
	MaxMinutes float64 `mapstructure:"max_minutes" default:"17" validate:"gt=0"`
}

// DurationLimitFilter rejects tracks over the duration ceiling.
type DurationLimitFilter struct {
	config DurationLimitConfig
}

// NewDurationLimitFilter creates a duration limit filter with defaults.
func NewDurationLimitFilter() *DurationLimitFilter {
	f := &DurationLimitFilter{}
	// Defaults apply even when the filter has no config entry.
	_ = defaults.Set(&f.config)
	return f
}

func (f *DurationLimitFilter) Name() string { return "duration_limit" }

func (f *DurationLimitFilter) ValidateConfig(settings map[string]any) error {
	var config DurationLimitConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.config = config
	zlog.Info().Float64("max_minutes", config.MaxMinutes).Msg("duration limit configured")
	return nil
}

func (f *DurationLimitFilter) Check(ctx context.Context, t track.Track, requester track.Requester) Result {
	// A track of exactly the ceiling is admitted.
	if t.Duration.Minutes() > f.config.MaxMinutes {
		return Reject(CodeTooLong)
	}
	return Accept()
}

// CooldownConfig represents the configuration for CooldownFilter.
type CooldownConfig struct {
	CooldownSeconds int `mapstructure:"cooldown_seconds" default:"300" validate:"gt=0"`
}

// CooldownFilter enforces the per-requester interval between successful
// requests. The channel owner is exempt.
type CooldownFilter struct {
	config  CooldownConfig
	state   *ratelimit.State
	channel string
	now     func() time.Time
}

// NewCooldownFilter creates a cooldown filter with defaults.
func NewCooldownFilter(state *ratelimit.State, channel string, now func() time.Time) *CooldownFilter {
	if now == nil {
		now = time.Now
	}
	f := &CooldownFilter{state: state, channel: channel, now: now}
	_ = defaults.Set(&f.config)
	return f
}

func (f *CooldownFilter) Name() string { return "cooldown" }

func (f *CooldownFilter) ValidateConfig(settings map[string]any) error {
	var config CooldownConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.config = config
	zlog.Info().Int("cooldown_seconds", config.CooldownSeconds).Msg("cooldown configured")
	return nil
}

// Window returns the configured cooldown interval.
func (f *CooldownFilter) Window() time.Duration {
	return time.Duration(f.config.CooldownSeconds) * time.Second
}

func (f *CooldownFilter) Check(ctx context.Context, t track.Track, requester track.Requester) Result {
	if requester.IsOwner || strings.EqualFold(requester.Name, f.channel) {
		return Accept()
	}

	entry, ok := f.state.Get(requester.Key())
	if !ok {
		return Accept()
	}

	elapsed := f.now().Sub(entry.LastRequestTime)
	window := f.Window()
	if elapsed >= window {
		return Accept()
	}
	return Result{
		Accepted:   false,
		Code:       CodeRateLimited,
		RetryAfter: window - elapsed,
	}
}
