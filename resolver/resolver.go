// Package resolver turns logical audio identifiers into playable Opus
// streams. Two identifier forms exist: greeting references
// ("greeting:<guild_name>/<user_name>"), which map to files under the
// ringtone directory, and remote http(s) URLs. The rest of the service
// depends only on the Resolver contract, not on how audio is decoded.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the identifier has no backing audio (no
	// ringtone file for that guild/user, or a 404 behind a URL).
	ErrNotFound = errors.New("audio source not found")
	// ErrNetworkFailure covers transport errors and resolve timeouts.
	ErrNetworkFailure = errors.New("audio source network failure")
	// ErrUnsupportedFormat means the source exists but cannot be
	// decoded into Opus.
	ErrUnsupportedFormat = errors.New("audio source format not supported")
)

const greetingPrefix = "greeting:"

// StreamHandle is a live Opus stream. NextFrame returns one Opus
// packet at a time and io.EOF when the stream ends.
type StreamHandle interface {
	NextFrame() ([]byte, error)
	Close() error
}

// Resolver resolves an identifier to a playable stream or fails with
// one of the sentinel errors above.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (StreamHandle, error)
}

// GreetingID builds the identifier for a user's personal ringtone.
// The mapping is deterministic: the same guild and user names always
// yield the same identifier.
func GreetingID(guildName, userName string) string {
	return greetingPrefix + guildName + "/" + userName
}

// ParseGreetingID splits a greeting identifier back into guild and
// user names. ok is false when id is not a greeting identifier.
func ParseGreetingID(id string) (guildName, userName string, ok bool) {
	if !strings.HasPrefix(id, greetingPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(id, greetingPrefix)
	i := strings.LastIndex(rest, "/")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// IsRemoteURL reports whether an identifier is a remote source
// reference. Remote references must carry an explicit http scheme
// marker; anything else is rejected before any registry or resolver
// work happens.
func IsRemoteURL(id string) bool {
	return strings.HasPrefix(id, "http")
}

// classify maps a context error onto the resolver taxonomy.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrNetworkFailure, ctx.Err())
	}
	return err
}
