// Package bot implements the chat command handlers.
//
// The chat connection itself is an external collaborator: it delivers a
// parsed command name, the raw argument string, the requester, and a reply
// capability. Everything behind that boundary lives here.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/scrypt-tech/scrypttunes/internal/app/admission"
	"github.com/scrypt-tech/scrypttunes/internal/app/invoker"
	"github.com/scrypt-tech/scrypttunes/internal/app/permission"
	"github.com/scrypt-tech/scrypttunes/internal/app/request"
	"github.com/scrypt-tech/scrypttunes/internal/domain/blacklist"
	"github.com/scrypt-tech/scrypttunes/internal/domain/track"
	"github.com/scrypt-tech/scrypttunes/internal/infra/config"
	"github.com/scrypt-tech/scrypttunes/internal/infra/spotify"
	"github.com/scrypt-tech/scrypttunes/internal/infra/store"
	"github.com/scrypt-tech/scrypttunes/internal/infra/webhook"
)

// Version is reported by the ping command.
const Version = "0.4"

// Replier sends a reply back to the chat channel.
type Replier interface {
	Reply(ctx context.Context, text string) error
}

// ReplierFunc adapts a function to the Replier interface.
type ReplierFunc func(ctx context.Context, text string) error

// Reply implements Replier.
func (f ReplierFunc) Reply(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Player exposes the playback-state lookup used by the nowplaying command.
type Player interface {
	CurrentlyPlaying(ctx context.Context) (*spotify.PlaybackState, error)
}

// Catalog is the track lookup used when blacklisting by URL.
type Catalog interface {
	GetTrack(ctx context.Context, id string) (*track.Track, error)
}

// Bot holds the command handlers and their collaborators.
type Bot struct {
	cfg        *config.Config
	gate       *permission.Gate
	resolver   *request.Resolver
	controller *admission.Controller
	player     Player
	catalog    Catalog
	inv        *invoker.Invoker
	alerts     *webhook.Notifier
	songs      *blacklist.Songs
	users      *blacklist.Users
	store      *store.BlacklistStore
	now        func() time.Time
}

// Deps bundles the Bot's collaborators.
type Deps struct {
	Config     *config.Config
	Gate       *permission.Gate
	Resolver   *request.Resolver
	Controller *admission.Controller
	Player     Player
	Catalog    Catalog
	Invoker    *invoker.Invoker
	Alerts     *webhook.Notifier
	Songs      *blacklist.Songs
	Users      *blacklist.Users
	Store      *store.BlacklistStore
	Now        func() time.Time
}

// New creates a Bot.
func New(d Deps) *Bot {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Bot{
		cfg:        d.Config,
		gate:       d.Gate,
		resolver:   d.Resolver,
		controller: d.Controller,
		player:     d.Player,
		catalog:    d.Catalog,
		inv:        d.Invoker,
		alerts:     d.Alerts,
		songs:      d.Songs,
		users:      d.Users,
		store:      d.Store,
		now:        now,
	}
}

// Dispatch routes a parsed command to its handler. Returns false when the
// command name is not one of the bot's commands or their aliases.
func (b *Bot) Dispatch(ctx context.Context, requester track.Requester, command, args string, reply Replier) bool {
	switch strings.ToLower(command) {
	case "ping", "ding":
		b.HandlePing(ctx, requester, reply)
	case "srhelp":
		b.HandleHelp(ctx, reply)
	case "songrequest", "sr", "addsong":
		b.HandleSongRequest(ctx, requester, args, reply)
	case "np", "nowplaying", "song":
		b.HandleNowPlaying(ctx, requester, reply)
	case "blacklist", "blacklistsong", "blacklistadd":
		b.HandleBlacklistSong(ctx, requester, args, reply)
	case "unblacklist", "unblacklistsong", "blacklistremove":
		b.HandleUnblacklistSong(ctx, requester, args, reply)
	case "blacklistuser":
		b.HandleBlacklistUser(ctx, requester, args, reply)
	case "unblacklistuser":
		b.HandleUnblacklistUser(ctx, requester, args, reply)
	default:
		return false
	}
	return true
}

func (b *Bot) say(ctx context.Context, reply Replier, text string) {
	if err := reply.Reply(ctx, text); err != nil {
		zlog.Error().Err(err).Msg("failed to send reply")
	}
}

func (b *Bot) denied(ctx context.Context, requester track.Requester, reply Replier) {
	b.say(ctx, reply, fmt.Sprintf("@%s You don't have permission to do that!", requester.Name))
}

// HandlePing replies with the bot version.
func (b *Bot) HandlePing(ctx context.Context, requester track.Requester, reply Replier) {
	if !b.gate.Allowed(permission.CommandPing, requester) {
		b.denied(ctx, requester, reply)
		return
	}
	b.say(ctx, reply, fmt.Sprintf(":) ScryptTunes v%s is online!", Version))
}

// HandleHelp replies with request usage.
func (b *Bot) HandleHelp(ctx context.Context, reply Replier) {
	b.say(ctx, reply, "!sr <song name and artist> | or !sr <Spotify URL> - "+
		"Request a song to be added to the queue. "+
		"Example: !sr Never Gonna Give You Up - Rick Astley")
}

// HandleSongRequest resolves the request input and admits it to the queue.
func (b *Bot) HandleSongRequest(ctx context.Context, requester track.Requester, args string, reply Replier) {
	if !b.gate.Allowed(permission.CommandSongRequest, requester) {
		b.denied(ctx, requester, reply)
		return
	}
	if strings.TrimSpace(args) == "" {
		b.HandleHelp(ctx, reply)
		return
	}

	notify := func(text string) { b.say(ctx, reply, text) }

	t, err := b.resolver.Resolve(ctx, args, notify)
	if err != nil {
		b.replyResolutionError(ctx, requester, err, reply)
		return
	}

	receipt, err := b.controller.Admit(ctx, *t, requester)
	if err != nil {
		b.replyAdmissionError(ctx, requester, err, reply)
		return
	}

	zlog.Info().Str("user", requester.Key()).Str("track", receipt.Track.ID).Msg("song request successful")
	b.say(ctx, reply, fmt.Sprintf("@%s, Your song (%s by %s) [ %s ] has been added to the queue!",
		requester.Name, receipt.Track.Title, receipt.Track.ArtistLine(), receipt.Track.URL))
}

func (b *Bot) replyResolutionError(ctx context.Context, requester track.Requester, err error, reply Replier) {
	var invalid *request.InvalidURLError
	switch {
	case errors.As(err, &invalid):
		b.say(ctx, reply, fmt.Sprintf("@%s, %s", requester.Name, invalid.Reason))
	case errors.Is(err, request.ErrNotFound):
		b.say(ctx, reply, fmt.Sprintf("@%s, %s", requester.Name, b.cfg.Messages.NotFound))
	default:
		b.replyFatal(ctx, requester, err, "Song Request Error", reply)
	}
}

func (b *Bot) replyAdmissionError(ctx context.Context, requester track.Requester, err error, reply Replier) {
	if ae, ok := admission.AsError(err); ok {
		m := b.cfg.Messages
		switch ae.Code {
		case admission.CodeRequesterBlacklisted:
			b.say(ctx, reply, m.UserBlacklisted)
		case admission.CodeTrackBlacklisted:
			b.say(ctx, reply, fmt.Sprintf("@%s %s", requester.Name, m.SongBlacklisted))
		case admission.CodeTooLong:
			b.say(ctx, reply, fmt.Sprintf("@%s %s", requester.Name, m.TooLong))
		case admission.CodeRateLimited:
			b.say(ctx, reply, fmt.Sprintf("@%s %s", requester.Name, m.RateLimited))
		}
		return
	}
	b.replyFatal(ctx, requester, err, "Song Request Error", reply)
}

// replyFatal tells the requester something broke and alerts the operator
// with the full trace.
func (b *Bot) replyFatal(ctx context.Context, requester track.Requester, err error, kind string, reply Replier) {
	zlog.Error().Err(err).Str("user", requester.Key()).Msg("upstream failure")
	b.say(ctx, reply, fmt.Sprintf("@%s, %s", requester.Name, b.cfg.Messages.DefaultError))

	trace := ""
	if fe, ok := invoker.AsFatal(err); ok {
		trace = fe.Trace()
	}
	b.alerts.Send(ctx, webhook.Alert{
		Requester: requester.Name,
		Channel:   b.cfg.Bot.Channel,
		Title:     fmt.Sprintf("%s in %s's Channel", kind, b.cfg.Bot.Channel),
		ErrorText: err.Error(),
		Trace:     trace,
		Timestamp: b.now(),
	})
}

// HandleNowPlaying replies with the currently playing track and progress.
func (b *Bot) HandleNowPlaying(ctx context.Context, requester track.Requester, reply Replier) {
	if !b.gate.Allowed(permission.CommandNowPlaying, requester) {
		b.denied(ctx, requester, reply)
		return
	}

	var state *spotify.PlaybackState
	err := b.inv.Do(ctx, "currently playing", func(ctx context.Context) error {
		s, err := b.player.CurrentlyPlaying(ctx)
		if err != nil {
			return err
		}
		state = s
		return nil
	})
	if err != nil {
		b.replyFatal(ctx, requester, err, "Now Playing Error", reply)
		return
	}
	if state == nil {
		b.say(ctx, reply, "No song is currently playing on Spotify!")
		return
	}

	text := fmt.Sprintf("Now Playing - %s by %s | Link: %s | %s - %s",
		state.Track.Title, state.Track.ArtistLine(), state.Track.URL,
		formatPlaybackTime(state.Progress), formatPlaybackTime(state.Track.Duration))
	zlog.Info().Msg(text)
	b.say(ctx, reply, text)
}

// formatPlaybackTime renders a duration as "M mins, S secs".
func formatPlaybackTime(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%d mins, %d secs", (total/60)%60, total%60)
}

// HandleBlacklistSong adds a track to the song blacklist. Mod only.
func (b *Bot) HandleBlacklistSong(ctx context.Context, requester track.Requester, args string, reply Replier) {
	if !requester.IsMod {
		b.say(ctx, reply, "You are not authorized to use this command.")
		return
	}
	ref := blacklist.NormalizeSongID(args)
	if ref == "" {
		b.HandleHelp(ctx, reply)
		return
	}

	// Resolve through the catalog so URLs canonicalize and the reply can
	// name the track.
	var t *track.Track
	err := b.inv.Do(ctx, "blacklist lookup", func(ctx context.Context) error {
		found, err := b.catalog.GetTrack(ctx, ref)
		if err != nil {
			return err
		}
		t = found
		return nil
	})
	if err != nil {
		if errors.Is(err, spotify.ErrTrackNotFound) {
			b.say(ctx, reply, fmt.Sprintf("@%s, %s", requester.Name, b.cfg.Messages.NotFound))
			return
		}
		b.replyFatal(ctx, requester, err, "Blacklist Error", reply)
		return
	}

	if !b.songs.Add(t.ID) {
		b.say(ctx, reply, "Song is already blacklisted.")
		return
	}
	if !b.persistSongs(ctx, requester, reply) {
		return
	}
	b.say(ctx, reply, fmt.Sprintf("Added %s to blacklist.", t.Title))
}

// HandleUnblacklistSong removes a track from the song blacklist. Mod only.
func (b *Bot) HandleUnblacklistSong(ctx context.Context, requester track.Requester, args string, reply Replier) {
	if !requester.IsMod {
		b.say(ctx, reply, "You are not authorized to use this command.")
		return
	}

	// URL forms canonicalize locally; no catalog call needed for removal.
	id := blacklist.NormalizeSongID(spotify.ExtractTrackID(args))
	if !b.songs.Remove(id) {
		b.say(ctx, reply, "Song is not blacklisted.")
		return
	}
	if !b.persistSongs(ctx, requester, reply) {
		return
	}
	b.say(ctx, reply, "Removed that song from the blacklist.")
}

// HandleBlacklistUser adds a user to the user blacklist. Mod only.
func (b *Bot) HandleBlacklistUser(ctx context.Context, requester track.Requester, args string, reply Replier) {
	if !requester.IsMod {
		b.say(ctx, reply, "You don't have permission to do that.")
		return
	}
	name := blacklist.NormalizeUser(args)
	if name == "" {
		return
	}
	if !b.users.Add(name) {
		b.say(ctx, reply, fmt.Sprintf("%s is already blacklisted", name))
		return
	}
	if !b.persistUsers(ctx, requester, reply) {
		return
	}
	b.say(ctx, reply, fmt.Sprintf("%s added to blacklist", name))
}

// HandleUnblacklistUser removes a user from the user blacklist. Mod only.
func (b *Bot) HandleUnblacklistUser(ctx context.Context, requester track.Requester, args string, reply Replier) {
	if !requester.IsMod {
		b.say(ctx, reply, "You don't have permission to do that.")
		return
	}
	name := blacklist.NormalizeUser(args)
	if !b.users.Remove(name) {
		b.say(ctx, reply, fmt.Sprintf("%s is not blacklisted", name))
		return
	}
	if !b.persistUsers(ctx, requester, reply) {
		return
	}
	b.say(ctx, reply, fmt.Sprintf("%s removed from blacklist", name))
}

func (b *Bot) persistSongs(ctx context.Context, requester track.Requester, reply Replier) bool {
	if err := b.store.Write(store.KindSong, b.songs.Entries()); err != nil {
		zlog.Error().Err(err).Msg("failed to persist song blacklist")
		b.say(ctx, reply, fmt.Sprintf("@%s, %s", requester.Name, b.cfg.Messages.DefaultError))
		return false
	}
	return true
}

func (b *Bot) persistUsers(ctx context.Context, requester track.Requester, reply Replier) bool {
	if err := b.store.Write(store.KindUser, b.users.Entries()); err != nil {
		zlog.Error().Err(err).Msg("failed to persist user blacklist")
		b.say(ctx, reply, fmt.Sprintf("@%s, %s", requester.Name, b.cfg.Messages.DefaultError))
		return false
	}
	return true
}
