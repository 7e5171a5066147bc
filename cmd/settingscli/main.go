// Package main provides the settings CLI entry point.
//
// Operates directly on the bot's config and blacklist files, so run it
// while the bot is stopped.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/scrypt-tech/scrypttunes/internal/app/permission"
	"github.com/scrypt-tech/scrypttunes/internal/domain/blacklist"
	"github.com/scrypt-tech/scrypttunes/internal/infra/config"
	"github.com/scrypt-tech/scrypttunes/internal/infra/spotify"
	"github.com/scrypt-tech/scrypttunes/internal/infra/store"
)

var (
	app        = kingpin.New("scrypttunes-settings", "ScryptTunes settings manager")
	configPath = app.Flag("config", "Path to config file").Default("config/bot.yaml").String()

	// song blacklist commands
	songCmd       = app.Command("song", "Manage the song blacklist")
	songAddCmd    = songCmd.Command("add", "Blacklist a song")
	songAddRef    = songAddCmd.Arg("track", "Track ID, URI, or URL").Required().String()
	songRemoveCmd = songCmd.Command("remove", "Remove a song from the blacklist")
	songRemoveRef = songRemoveCmd.Arg("track", "Track ID, URI, or URL").Required().String()
	songListCmd   = songCmd.Command("list", "List blacklisted songs")

	// user blacklist commands
	userCmd        = app.Command("user", "Manage the user blacklist")
	userAddCmd     = userCmd.Command("add", "Blacklist a user")
	userAddName    = userAddCmd.Arg("name", "Chat username").Required().String()
	userRemoveCmd  = userCmd.Command("remove", "Remove a user from the blacklist")
	userRemoveName = userRemoveCmd.Arg("name", "Chat username").Required().String()
	userListCmd    = userCmd.Command("list", "List blacklisted users")

	// permissions command
	permsCmd = app.Command("permissions", "Show the command permission matrix").Alias("perms")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("Failed to load config: %v", err)
	}

	blacklistStore, err := store.NewBlacklistStore(cfg.Storage.Dir)
	if err != nil {
		fatal("Failed to open blacklist store: %v", err)
	}

	ctx := context.Background()

	switch command {
	case songAddCmd.FullCommand():
		songAdd(ctx, cfg, blacklistStore, *songAddRef)
	case songRemoveCmd.FullCommand():
		songRemove(blacklistStore, *songRemoveRef)
	case songListCmd.FullCommand():
		songList(blacklistStore)
	case userAddCmd.FullCommand():
		userAdd(blacklistStore, *userAddName)
	case userRemoveCmd.FullCommand():
		userRemove(blacklistStore, *userRemoveName)
	case userListCmd.FullCommand():
		userList(blacklistStore)
	case permsCmd.FullCommand():
		showPermissions(cfg)
	}
}

func fatal(format string, args ...any) {
	fmt.Printf("Error: "+format+"\n", args...)
	os.Exit(1)
}

func loadSongs(s *store.BlacklistStore) *blacklist.Songs {
	entries, err := s.Read(store.KindSong)
	if err != nil {
		fatal("Failed to read song blacklist: %v", err)
	}
	return blacklist.NewSongs(entries)
}

func loadUsers(s *store.BlacklistStore) *blacklist.Users {
	entries, err := s.Read(store.KindUser)
	if err != nil {
		fatal("Failed to read user blacklist: %v", err)
	}
	return blacklist.NewUsers(entries)
}

// songAdd resolves the reference through the Spotify API so URLs
// canonicalize and the output can name the track.
func songAdd(ctx context.Context, cfg *config.Config, s *store.BlacklistStore, ref string) {
	client, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		Market:       cfg.Spotify.Market,
	})
	if err != nil {
		fatal("Failed to create Spotify client: %v", err)
	}

	t, err := client.GetTrack(ctx, blacklist.NormalizeSongID(ref))
	if err != nil {
		fatal("Failed to look up track: %v", err)
	}

	songs := loadSongs(s)
	if !songs.Add(t.ID) {
		fmt.Printf("%s (%s) is already blacklisted\n", t.Title, t.ID)
		return
	}
	if err := s.Write(store.KindSong, songs.Entries()); err != nil {
		fatal("Failed to write song blacklist: %v", err)
	}
	fmt.Printf("Blacklisted %s by %s (%s)\n", t.Title, t.ArtistLine(), t.ID)
}

func songRemove(s *store.BlacklistStore, ref string) {
	id := blacklist.NormalizeSongID(spotify.ExtractTrackID(ref))
	songs := loadSongs(s)
	if !songs.Remove(id) {
		fmt.Printf("%s is not blacklisted\n", id)
		return
	}
	if err := s.Write(store.KindSong, songs.Entries()); err != nil {
		fatal("Failed to write song blacklist: %v", err)
	}
	fmt.Printf("Removed %s from the blacklist\n", id)
}

func songList(s *store.BlacklistStore) {
	entries := loadSongs(s).Entries()
	if len(entries) == 0 {
		fmt.Println("No blacklisted songs")
		return
	}
	fmt.Printf("Blacklisted songs (%d):\n", len(entries))
	for _, id := range entries {
		fmt.Printf("  %s  %s\n", id, spotify.TrackURL(id))
	}
}

func userAdd(s *store.BlacklistStore, name string) {
	name = blacklist.NormalizeUser(name)
	users := loadUsers(s)
	if !users.Add(name) {
		fmt.Printf("%s is already blacklisted\n", name)
		return
	}
	if err := s.Write(store.KindUser, users.Entries()); err != nil {
		fatal("Failed to write user blacklist: %v", err)
	}
	fmt.Printf("Blacklisted %s\n", name)
}

func userRemove(s *store.BlacklistStore, name string) {
	name = blacklist.NormalizeUser(name)
	users := loadUsers(s)
	if !users.Remove(name) {
		fmt.Printf("%s is not blacklisted\n", name)
		return
	}
	if err := s.Write(store.KindUser, users.Entries()); err != nil {
		fatal("Failed to write user blacklist: %v", err)
	}
	fmt.Printf("Removed %s from the blacklist\n", name)
}

func userList(s *store.BlacklistStore) {
	entries := loadUsers(s).Entries()
	if len(entries) == 0 {
		fmt.Println("No blacklisted users")
		return
	}
	fmt.Printf("Blacklisted users (%d):\n", len(entries))
	for _, name := range entries {
		fmt.Printf("  %s\n", name)
	}
}

func showPermissions(cfg *config.Config) {
	if _, err := permission.NewGate(cfg.Permissions); err != nil {
		fatal("Invalid permission config: %v", err)
	}

	names := make([]string, 0, len(cfg.Permissions))
	for name := range cfg.Permissions {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\n=== COMMAND PERMISSIONS ===")
	for _, name := range names {
		p := cfg.Permissions[name]
		if p.Everyone {
			fmt.Printf("%-16s everyone\n", name)
			continue
		}
		badges := make([]string, 0, len(p.Badges))
		for badge, allowed := range p.Badges {
			if allowed {
				badges = append(badges, badge)
			}
		}
		sort.Strings(badges)
		if len(badges) == 0 {
			fmt.Printf("%-16s nobody\n", name)
			continue
		}
		fmt.Printf("%-16s %v\n", name, badges)
	}
	fmt.Println()
}
