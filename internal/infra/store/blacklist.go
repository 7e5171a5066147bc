// Package store provides JSON file persistence for the blacklists.
//
// The file formats are shared with the settings editor, so they stay exactly
// as written by it: {"blacklist": [...]} for songs and {"users": [...]} for
// users.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Kind selects which blacklist file an operation targets.
type Kind string

const (
	KindSong Kind = "song"
	KindUser Kind = "user"
)

type songFile struct {
	Blacklist []string `json:"blacklist"`
}

type userFile struct {
	Users []string `json:"users"`
}

// BlacklistStore reads and writes the blacklist files in a directory.
type BlacklistStore struct {
	dir string
}

// NewBlacklistStore creates a store rooted at dir, creating it if needed.
func NewBlacklistStore(dir string) (*BlacklistStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create blacklist directory")
	}
	return &BlacklistStore{dir: dir}, nil
}

func (s *BlacklistStore) path(kind Kind) (string, error) {
	switch kind {
	case KindSong:
		return filepath.Join(s.dir, "blacklist.json"), nil
	case KindUser:
		return filepath.Join(s.dir, "blacklist_user.json"), nil
	default:
		return "", errors.Newf("unknown blacklist kind: %q", kind)
	}
}

// Read loads the entries for the given kind.
// A missing file is an empty blacklist, matching the settings editor which
// creates the file on first save.
func (s *BlacklistStore) Read(kind Kind) ([]string, error) {
	path, err := s.path(kind)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "failed to read blacklist file")
	}

	switch kind {
	case KindSong:
		var f songFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, errors.Wrap(err, "failed to parse song blacklist")
		}
		return f.Blacklist, nil
	default:
		var f userFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, errors.Wrap(err, "failed to parse user blacklist")
		}
		return f.Users, nil
	}
}

// Write persists the entries for the given kind.
// Writes go through a temp file and rename so a crash mid-write cannot
// truncate the shared file.
func (s *BlacklistStore) Write(kind Kind, entries []string) error {
	path, err := s.path(kind)
	if err != nil {
		return err
	}

	if entries == nil {
		entries = []string{}
	}

	var payload any
	switch kind {
	case KindSong:
		payload = songFile{Blacklist: entries}
	default:
		payload = userFile{Users: entries}
	}

	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return errors.Wrap(err, "failed to encode blacklist")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write blacklist file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "failed to replace blacklist file")
	}
	return nil
}
