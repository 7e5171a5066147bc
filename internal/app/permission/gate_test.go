package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypt-tech/scrypttunes/internal/domain/track"
	"github.com/scrypt-tech/scrypttunes/internal/infra/config"
)

func TestNewGate_RejectsUnknownCommands(t *testing.T) {
	_, err := NewGate(map[string]config.PermissionConfig{
		"songrequest_cmd": {Everyone: true},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestGate_Allowed(t *testing.T) {
	gate, err := NewGate(map[string]config.PermissionConfig{
		"ping":        {Everyone: true},
		"songrequest": {Badges: map[string]bool{"subscriber": true, "vip": false}},
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		cmd       Command
		requester track.Requester
		want      bool
	}{
		{
			name:      "everyone flag admits badgeless user",
			cmd:       CommandPing,
			requester: track.Requester{Name: "viewer"},
			want:      true,
		},
		{
			name:      "allowed badge",
			cmd:       CommandSongRequest,
			requester: track.Requester{Name: "viewer", Badges: []string{"subscriber"}},
			want:      true,
		},
		{
			name:      "badge set to false does not admit",
			cmd:       CommandSongRequest,
			requester: track.Requester{Name: "viewer", Badges: []string{"vip"}},
			want:      false,
		},
		{
			name:      "no matching badge",
			cmd:       CommandSongRequest,
			requester: track.Requester{Name: "viewer", Badges: []string{"moderator"}},
			want:      false,
		},
		{
			name:      "command without entry defaults to deny",
			cmd:       CommandNowPlaying,
			requester: track.Requester{Name: "viewer", Badges: []string{"subscriber"}},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.Allowed(tt.cmd, tt.requester))
		})
	}
}
