// Package main provides the bot entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/scrypt-tech/scrypttunes/internal/app/admission"
	"github.com/scrypt-tech/scrypttunes/internal/app/bot"
	"github.com/scrypt-tech/scrypttunes/internal/app/invoker"
	"github.com/scrypt-tech/scrypttunes/internal/app/permission"
	"github.com/scrypt-tech/scrypttunes/internal/app/ratelimit"
	"github.com/scrypt-tech/scrypttunes/internal/app/request"
	"github.com/scrypt-tech/scrypttunes/internal/domain/blacklist"
	"github.com/scrypt-tech/scrypttunes/internal/domain/track"
	"github.com/scrypt-tech/scrypttunes/internal/infra/config"
	"github.com/scrypt-tech/scrypttunes/internal/infra/logger"
	"github.com/scrypt-tech/scrypttunes/internal/infra/oembed"
	"github.com/scrypt-tech/scrypttunes/internal/infra/resolve"
	"github.com/scrypt-tech/scrypttunes/internal/infra/spotify"
	"github.com/scrypt-tech/scrypttunes/internal/infra/store"
	"github.com/scrypt-tech/scrypttunes/internal/infra/webhook"
)

var (
	app        = kingpin.New("scrypttunes", "ScryptTunes song request bot")
	configPath = app.Flag("config", "Path to config file").Default("config/bot.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Bot error: %v", err)
		os.Exit(1)
	}
}

// run executes the bot. Using a separate function ensures defer statements
// run even when returning with an error.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spotifyClient, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		Market:       cfg.Spotify.Market,
	})
	if err != nil {
		return fmt.Errorf("failed to create Spotify client: %w", err)
	}

	inv := invoker.New(spotify.IsTransient, spotifyClient.Recreate,
		invoker.WithPassthrough(func(err error) bool {
			return errors.Is(err, spotify.ErrTrackNotFound) || errors.Is(err, request.ErrNotFound)
		}))

	blacklistStore, err := store.NewBlacklistStore(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("failed to open blacklist store: %w", err)
	}
	songEntries, err := blacklistStore.Read(store.KindSong)
	if err != nil {
		return fmt.Errorf("failed to read song blacklist: %w", err)
	}
	userEntries, err := blacklistStore.Read(store.KindUser)
	if err != nil {
		return fmt.Errorf("failed to read user blacklist: %w", err)
	}
	songs := blacklist.NewSongs(songEntries)
	users := blacklist.NewUsers(userEntries)
	zlog.Info().Int("songs", len(songEntries)).Int("users", len(userEntries)).Msg("Blacklists loaded")

	state := ratelimit.NewState()
	chain, err := buildChain(cfg, songs, users, state)
	if err != nil {
		return fmt.Errorf("invalid filter config: %w", err)
	}

	gate, err := permission.NewGate(cfg.Permissions)
	if err != nil {
		return fmt.Errorf("invalid permission config: %w", err)
	}

	alerts := webhook.New(webhook.Config{
		URL:       cfg.Alert.WebhookURL,
		Username:  cfg.Alert.Username,
		AvatarURL: cfg.Alert.AvatarURL,
		Mention:   cfg.Alert.Mention,
	}, nil)

	b := bot.New(bot.Deps{
		Config:     cfg,
		Gate:       gate,
		Resolver:   request.NewResolver(spotifyClient, resolve.New(nil), oembed.New(nil), inv),
		Controller: admission.NewController(chain, spotifyClient, inv, state, nil),
		Player:     spotifyClient,
		Catalog:    spotifyClient,
		Invoker:    inv,
		Alerts:     alerts,
		Songs:      songs,
		Users:      users,
		Store:      blacklistStore,
	})

	if cfg.Bot.WelcomeMessage != "" {
		fmt.Println(cfg.Bot.WelcomeMessage)
	}
	zlog.Info().Str("channel", cfg.Bot.Channel).Str("prefix", cfg.Bot.Prefix).Msg("Bot ready")

	return consoleSession(ctx, cfg, b)
}

func buildChain(cfg *config.Config, songs *blacklist.Songs, users *blacklist.Users, state *ratelimit.State) (*admission.Chain, error) {
	chain := admission.NewChain()
	chain.Add(admission.NewUserBlacklistFilter(users))
	chain.Add(admission.NewSongBlacklistFilter(songs))
	chain.Add(admission.NewDurationLimitFilter())
	if cfg.Bot.RateLimit {
		chain.Add(admission.NewCooldownFilter(state, cfg.Bot.Channel, nil))
	}

	for _, f := range chain.Filters() {
		if err := f.ValidateConfig(cfg.FilterSettings(f.Name())); err != nil {
			return nil, fmt.Errorf("filter %s: %w", f.Name(), err)
		}
	}
	return chain, nil
}

// consoleSession reads chat lines from stdin for local operation.
//
// Lines are plain chat messages from the channel owner. A line may be
// prefixed with "@name " to impersonate another chatter, or "@name:mod "
// to give them the moderator badge.
func consoleSession(ctx context.Context, cfg *config.Config, b *bot.Bot) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	reply := bot.ReplierFunc(func(_ context.Context, text string) error {
		_, err := fmt.Println(text)
		return err
	})

	for {
		select {
		case <-ctx.Done():
			zlog.Info().Msg("Shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			requester, message := parseLine(cfg.Bot.Channel, line)
			if !strings.HasPrefix(message, cfg.Bot.Prefix) {
				continue
			}
			command, args, _ := strings.Cut(strings.TrimPrefix(message, cfg.Bot.Prefix), " ")
			if command == "" {
				continue
			}
			if !b.Dispatch(ctx, requester, command, strings.TrimSpace(args), reply) {
				zlog.Debug().Str("command", command).Msg("unknown command")
			}
		}
	}
}

// parseLine splits an optional "@name[:badge,badge]" identity prefix from a
// chat line. Without one the line is attributed to the channel owner.
func parseLine(channel, line string) (track.Requester, string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "@") {
		return track.Requester{
			Name:    channel,
			Badges:  []string{"broadcaster"},
			IsMod:   true,
			IsOwner: true,
		}, line
	}

	identity, message, _ := strings.Cut(strings.TrimPrefix(line, "@"), " ")
	name, badgeList, _ := strings.Cut(identity, ":")
	var badges []string
	if badgeList != "" {
		badges = strings.Split(badgeList, ",")
	}

	requester := track.Requester{Name: name, Badges: badges}
	for _, badge := range badges {
		if strings.EqualFold(badge, "mod") || strings.EqualFold(badge, "moderator") {
			requester.IsMod = true
			requester.Badges = append(requester.Badges, "moderator")
		}
		if strings.EqualFold(badge, "broadcaster") {
			requester.IsMod = true
			requester.IsOwner = true
		}
	}
	if strings.EqualFold(name, channel) {
		requester.IsMod = true
		requester.IsOwner = true
	}
	return requester, strings.TrimSpace(message)
}
