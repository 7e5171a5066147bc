// Package permission evaluates per-command permissions against a
// requester's badge set.
package permission

import (
	"github.com/cockroachdb/errors"

	"github.com/scrypt-tech/scrypttunes/internal/domain/track"
	"github.com/scrypt-tech/scrypttunes/internal/infra/config"
)

// Command identifies a gated chat command.
// Commands are a closed set so a renamed command cannot silently leave a
// dead permission entry behind: unknown config keys fail at load.
type Command string

const (
	CommandPing        Command = "ping"
	CommandNowPlaying  Command = "nowplaying"
	CommandSongRequest Command = "songrequest"
)

// KnownCommands returns every gated command.
func KnownCommands() []Command {
	return []Command{CommandPing, CommandNowPlaying, CommandSongRequest}
}

// Gate decides whether a requester may invoke a command.
type Gate struct {
	perms map[Command]config.PermissionConfig
}

// NewGate builds a Gate from the configured permission matrix.
// Entries for unknown commands are rejected. Commands without an entry
// default to deny.
func NewGate(perms map[string]config.PermissionConfig) (*Gate, error) {
	known := make(map[Command]bool, len(KnownCommands()))
	for _, cmd := range KnownCommands() {
		known[cmd] = true
	}

	g := &Gate{perms: make(map[Command]config.PermissionConfig, len(perms))}
	for name, pc := range perms {
		cmd := Command(name)
		if !known[cmd] {
			return nil, errors.Newf("permission entry for unknown command: %q", name)
		}
		g.perms[cmd] = pc
	}
	return g, nil
}

// Allowed reports whether the requester may invoke the command: permitted
// when the command is open to everyone, or when any badge the requester
// holds is set to true.
func (g *Gate) Allowed(cmd Command, requester track.Requester) bool {
	pc, ok := g.perms[cmd]
	if !ok {
		return false
	}
	if pc.Everyone {
		return true
	}
	for badge, allowed := range pc.Badges {
		if allowed && requester.HasBadge(badge) {
			return true
		}
	}
	return false
}
