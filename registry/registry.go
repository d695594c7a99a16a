// Package registry holds the per-guild voice session records. It is
// the only shared mutable state in the service; every read and write
// goes through one mutex, and nothing inside the critical section may
// block or perform I/O. Dialing, membership snapshots, and resolver
// calls all happen in the callers, after the lock is released.
package registry

import "sync"

// PlaybackState says whether a session is currently feeding audio.
type PlaybackState int

const (
	PlaybackIdle PlaybackState = iota
	PlaybackPlaying
)

// Playback describes what, if anything, a session is playing.
type Playback struct {
	State  PlaybackState
	Source string
}

// Session is the bot's connection state to one voice channel in one
// guild. It exists only while connected.
type Session struct {
	ChannelID string
	Muted     bool
	Playback  Playback
}

// Registry maps guild IDs to their active voice session. At most one
// session exists per guild at any time.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func New() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Join records a session for the guild on the given channel. If a
// session already exists it is moved: the channel is always updated,
// mute is preserved, and playback resets to idle (the old channel's
// audio target is meaningless on the new channel). Returns true when a
// new session was created, false when an existing one was moved.
func (r *Registry) Join(guildID, channelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok {
		s.ChannelID = channelID
		s.Playback = Playback{}
		return false
	}
	r.sessions[guildID] = &Session{ChannelID: channelID}
	return true
}

// Leave removes the guild's session. Returns whether one was removed.
func (r *Registry) Leave(guildID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[guildID]; !ok {
		return false
	}
	delete(r.sessions, guildID)
	return true
}

// Get returns a copy of the guild's session. The copy cannot be used
// to mutate registry state; use Update for that.
func (r *Registry) Get(guildID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[guildID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Update runs fn on the guild's session under the registry lock.
// fn must not block or perform I/O. Returns false when the guild has
// no session, in which case fn is not called.
func (r *Registry) Update(guildID string, fn func(*Session)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[guildID]
	if !ok {
		return false
	}
	fn(s)
	return true
}

// Restore reinstates a previous session snapshot for the guild,
// overwriting whatever is there. Used to roll back a provisional Join
// when the voice dial fails.
func (r *Registry) Restore(guildID string, prev Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := prev
	r.sessions[guildID] = &s
}

// Len reports how many guilds currently have a session.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// GuildIDs returns the guilds with an active session. Used for the
// shutdown sweep and the status report.
func (r *Registry) GuildIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
