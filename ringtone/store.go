// Package ringtone manages the on-disk ringtone files the resolver
// plays as greetings. Layout: <root>/<guild_name>/<user_name>.mp3.
package ringtone

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const ext = ".mp3"

// ErrNoRingtone means there is no file to delete for that guild/user.
var ErrNoRingtone = errors.New("no ringtone file exists")

// Store is the ringtone file tree rooted at Root.
type Store struct {
	root   string
	client *http.Client
}

func NewStore(root string) *Store {
	return &Store{
		root:   root,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Path returns where a user's ringtone lives (whether or not it
// exists yet).
func (s *Store) Path(guildName, userName string) string {
	return filepath.Join(s.root, guildName, userName+ext)
}

// relPath is the path shown in user-facing replies.
func relPath(guildName, userName string) string {
	return guildName + "/" + userName + ext
}

// Save writes a ringtone from r, creating the guild directory as
// needed. It returns the path relative to the root, for replies.
func (s *Store) Save(guildName, userName string, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, guildName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create guild directory %s: %w", dir, err)
	}

	f, err := os.Create(s.Path(guildName, userName))
	if err != nil {
		return "", fmt.Errorf("could not create ringtone file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("could not write ringtone file: %w", err)
	}
	return relPath(guildName, userName), nil
}

// SaveFromURL downloads an attachment and stores it as the user's
// ringtone.
func (s *Store) SaveFromURL(ctx context.Context, guildName, userName, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("could not build download request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not download attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("could not download attachment: status %s", resp.Status)
	}
	return s.Save(guildName, userName, resp.Body)
}

// Delete removes a user's ringtone. Returns ErrNoRingtone when there
// is nothing to remove.
func (s *Store) Delete(guildName, userName string) (string, error) {
	path := s.Path(guildName, userName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoRingtone
		}
		return "", fmt.Errorf("could not stat ringtone file: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("could not delete ringtone file: %w", err)
	}
	return relPath(guildName, userName), nil
}
