// Package voice contains the per-guild session state machine: the
// logic that decides, from a presence event or a command, whether the
// bot joins, moves, leaves, mutes, or replaces playback. All decisions
// go through the session registry; all I/O (dialing, membership
// snapshots, audio resolution) happens outside its lock.
package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EasterCompany/dex-ringtone-service/cache"
	"github.com/EasterCompany/dex-ringtone-service/log"
	"github.com/EasterCompany/dex-ringtone-service/player"
	"github.com/EasterCompany/dex-ringtone-service/presence"
	"github.com/EasterCompany/dex-ringtone-service/registry"
	"github.com/EasterCompany/dex-ringtone-service/resolver"
	"github.com/EasterCompany/dex-ringtone-service/worker"
)

var (
	// ErrJoinFailed wraps transport failures while connecting.
	ErrJoinFailed = errors.New("could not join the voice channel")
	// ErrNotConnected means the operation needs a session that does
	// not exist (or a concurrent leave won the race).
	ErrNotConnected = errors.New("not connected to a voice channel")
	// ErrInvalidURL means a play argument without an http scheme
	// marker. Raised before the registry or resolver are touched.
	ErrInvalidURL = errors.New("not a valid remote source URL")
	// ErrInvariant indicates a broken internal invariant, e.g. an
	// active session without a live transport connection. It is a
	// programming defect, reported as an alarm.
	ErrInvariant = errors.New("voice session invariant violated")
)

// MuteResult tells the dispatcher which reply a mute command earned.
type MuteResult int

const (
	MuteApplied MuteResult = iota
	MuteAlready
	MuteNoSession
)

// StateEvent is one user's voice-channel transition, as delivered by
// the gateway. Empty channel IDs mean "no channel". The event carries
// display names because greeting identifiers are derived from them.
type StateEvent struct {
	GuildID      string
	GuildName    string
	UserID       string
	UserName     string
	UserIsBot    bool
	OldChannelID string
	NewChannelID string
}

// Machine drives all voice session transitions for every guild.
type Machine struct {
	BotUserID string

	registry  *registry.Registry
	connector Connector
	resolver  resolver.Resolver
	snapshots presence.Snapshotter
	player    *player.Player
	greetings cache.Cache
	pool      *worker.Pool
	logger    log.Logger

	resolveTimeout   time.Duration
	greetingCooldown time.Duration
}

// Options carries the tunables the machine needs from configuration.
type Options struct {
	ResolveTimeout   time.Duration
	GreetingCooldown time.Duration
}

// NewMachine wires the state machine to its collaborators. greetings
// may be nil, which disables duplicate-greeting suppression.
func NewMachine(
	reg *registry.Registry,
	conn Connector,
	res resolver.Resolver,
	snap presence.Snapshotter,
	pl *player.Player,
	greetings cache.Cache,
	pool *worker.Pool,
	logger log.Logger,
	opts Options,
) *Machine {
	return &Machine{
		registry:         reg,
		connector:        conn,
		resolver:         res,
		snapshots:        snap,
		player:           pl,
		greetings:        greetings,
		pool:             pool,
		logger:           logger,
		resolveTimeout:   opts.ResolveTimeout,
		greetingCooldown: opts.GreetingCooldown,
	}
}

// HandlePresence applies one gateway voice-state transition:
// a human entering or moving into a channel makes the bot follow and
// play their ringtone; a channel emptying of humans makes the bot
// leave. The bot's own updates and same-channel updates do nothing.
func (m *Machine) HandlePresence(ev StateEvent) {
	if ev.UserID == m.BotUserID {
		return
	}
	if ev.OldChannelID == ev.NewChannelID {
		return
	}

	if ev.NewChannelID != "" {
		if ev.UserIsBot {
			return
		}
		if err := m.Join(ev.GuildID, ev.NewChannelID); err != nil {
			m.logger.Error(fmt.Sprintf("following %s into channel %s in guild %s", ev.UserName, ev.NewChannelID, ev.GuildID), err)
			return
		}
		m.greet(ev)
		return
	}

	m.handleChannelVacated(ev.GuildID, ev.OldChannelID)
}

// Join connects the bot to a channel, creating or moving the guild's
// session. The registry entry is written first and rolled back when
// the dial fails, so no observer ever sees a session without the dial
// at least in flight.
func (m *Machine) Join(guildID, channelID string) error {
	prev, existed := m.registry.Get(guildID)
	m.registry.Join(guildID, channelID)
	if existed && prev.ChannelID != channelID {
		// Leaving a channel invalidates its playback target.
		m.player.Stop(guildID)
	}

	if err := m.connector.Dial(guildID, channelID, existed && prev.Muted); err != nil {
		if existed {
			m.registry.Restore(guildID, prev)
		} else {
			m.registry.Leave(guildID)
		}
		return fmt.Errorf("%w: %v", ErrJoinFailed, err)
	}
	return nil
}

// Leave tears the guild's session down. Returns false when there was
// nothing to tear down.
func (m *Machine) Leave(guildID string) bool {
	if !m.registry.Leave(guildID) {
		return false
	}
	m.player.Stop(guildID)
	if err := m.connector.Hangup(guildID); err != nil {
		m.logger.Error("disconnecting from voice in guild "+guildID, err)
	}
	return true
}

// Mute sets the session's mute flag. Muting an already muted session
// is a reply-only no-op.
func (m *Machine) Mute(guildID string) (MuteResult, error) {
	sess, ok := m.registry.Get(guildID)
	if !ok {
		return MuteNoSession, nil
	}
	if sess.Muted {
		return MuteAlready, nil
	}
	if !m.registry.Update(guildID, func(s *registry.Session) { s.Muted = true }) {
		// A concurrent leave won; the caller observes Disconnected.
		return MuteNoSession, nil
	}
	if err := m.connector.SetMute(guildID, sess.ChannelID, true); err != nil {
		m.registry.Update(guildID, func(s *registry.Session) { s.Muted = false })
		return MuteApplied, err
	}
	return MuteApplied, nil
}

// Unmute clears the session's mute flag.
func (m *Machine) Unmute(guildID string) error {
	sess, ok := m.registry.Get(guildID)
	if !ok {
		return ErrNotConnected
	}
	if !m.registry.Update(guildID, func(s *registry.Session) { s.Muted = false }) {
		return ErrNotConnected
	}
	if err := m.connector.SetMute(guildID, sess.ChannelID, false); err != nil {
		m.registry.Update(guildID, func(s *registry.Session) { s.Muted = sess.Muted })
		return err
	}
	return nil
}

// Play validates the URL, resolves it, and replaces the session's
// playback. Validation happens before any registry or resolver work;
// a resolve failure leaves the previous playback untouched.
func (m *Machine) Play(guildID, url string) error {
	if !resolver.IsRemoteURL(url) {
		return ErrInvalidURL
	}
	if _, ok := m.registry.Get(guildID); !ok {
		return ErrNotConnected
	}

	out, ok := m.connector.Output(guildID)
	if !ok {
		err := fmt.Errorf("%w: session for guild %s has no live connection", ErrInvariant, guildID)
		m.logger.Alarm("play", err)
		return err
	}

	ctx, cancel := m.resolveContext()
	defer cancel()
	stream, err := m.resolver.Resolve(ctx, url)
	if err != nil {
		return err
	}

	m.startPlayback(guildID, url, out, stream)
	return nil
}

// greet queues the joining user's ringtone, unless they were greeted
// moments ago (the gateway delivers events at-least-once).
func (m *Machine) greet(ev StateEvent) {
	if m.greetings != nil {
		if m.greetings.RecentlyGreeted(ev.GuildID, ev.UserID) {
			return
		}
		if err := m.greetings.MarkGreeted(ev.GuildID, ev.UserID, m.greetingCooldown); err != nil {
			m.logger.Error("recording greeting cooldown for "+ev.UserName, err)
		}
	}

	id := resolver.GreetingID(ev.GuildName, ev.UserName)
	job := worker.GreetJob{
		GuildID:    ev.GuildID,
		Identifier: id,
		Timeout:    m.resolveTimeout,
		Resolve:    m.resolver.Resolve,
		Play: func(stream resolver.StreamHandle) {
			out, ok := m.connector.Output(ev.GuildID)
			if !ok {
				// The session ended between resolve and play.
				_ = stream.Close()
				return
			}
			m.startPlayback(ev.GuildID, id, out, stream)
		},
		OnError: func(err error) {
			if errors.Is(err, resolver.ErrNotFound) {
				// No ringtone uploaded for this user. Not an error.
				return
			}
			m.logger.Error("resolving ringtone "+id, err)
		},
	}
	if !m.pool.Submit(job) {
		m.logger.Error("queueing greeting for "+ev.UserName, errors.New("playback queue full"))
	}
}

// startPlayback marks the session as playing and hands the stream to
// the player. The registry write is skipped (and the stream dropped)
// when the session disappeared in the meantime.
func (m *Machine) startPlayback(guildID, source string, out player.Output, stream resolver.StreamHandle) {
	ok := m.registry.Update(guildID, func(s *registry.Session) {
		s.Playback = registry.Playback{State: registry.PlaybackPlaying, Source: source}
	})
	if !ok {
		_ = stream.Close()
		return
	}

	m.player.Play(guildID, out, stream, func() {
		m.registry.Update(guildID, func(s *registry.Session) {
			if s.Playback.State == registry.PlaybackPlaying && s.Playback.Source == source {
				s.Playback = registry.Playback{}
			}
		})
	})
}

// handleChannelVacated recomputes the channel's human occupancy from a
// fresh snapshot and leaves when nobody human remains. Duplicate or
// reordered leave events are harmless: the snapshot, not the event,
// decides.
func (m *Machine) handleChannelVacated(guildID, channelID string) {
	sess, ok := m.registry.Get(guildID)
	if !ok || sess.ChannelID != channelID {
		return
	}

	members, err := m.snapshots.ChannelMembers(guildID, channelID)
	if err != nil {
		m.logger.Error("snapshotting members of channel "+channelID, err)
		return
	}
	if presence.HumanOccupants(members) > 0 {
		return
	}

	if m.Leave(guildID) {
		m.logger.Info(fmt.Sprintf("left empty channel %s in guild %s", channelID, guildID))
	}
}

// DisconnectAll leaves every guild. Used during shutdown.
func (m *Machine) DisconnectAll() {
	for _, guildID := range m.registry.GuildIDs() {
		m.Leave(guildID)
	}
}

func (m *Machine) resolveContext() (context.Context, context.CancelFunc) {
	if m.resolveTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), m.resolveTimeout)
}
