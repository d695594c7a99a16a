// Package commands routes prefix commands into the voice state machine
// and turns every outcome, success or failure, into exactly one reply.
// Nothing here raises an error to the caller: user mistakes get a
// reply, internal failures get a reply plus a log record.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/EasterCompany/dex-ringtone-service/log"
	"github.com/EasterCompany/dex-ringtone-service/ringtone"
	"github.com/EasterCompany/dex-ringtone-service/voice"
)

// Message is one inbound command message, already stripped of
// transport details.
type Message struct {
	GuildID     string
	GuildName   string
	ChannelID   string
	AuthorID    string
	AuthorName  string
	Content     string
	Attachments []Attachment
}

// Attachment is a file attached to a command message.
type Attachment struct {
	URL      string
	Filename string
}

// Platform is what the dispatcher needs from the chat platform:
// best-effort replies and a voice-state lookup for the issuing user.
type Platform interface {
	// Reply sends text to a channel. Failures are logged by the
	// implementation and never retried or surfaced.
	Reply(channelID, content string)
	// UserVoiceChannel reports which voice channel a user currently
	// occupies, if any.
	UserVoiceChannel(guildID, userID string) (string, bool)
}

// Dispatcher parses command messages and drives the state machine.
type Dispatcher struct {
	Prefix    string
	Machine   *voice.Machine
	Ringtones *ringtone.Store
	Platform  Platform
	Logger    log.Logger
	// StatusReport builds the ~status reply. Optional.
	StatusReport func() string
}

// Handle processes one message. Messages without the command prefix
// are ignored; everything else yields exactly one reply.
func (d *Dispatcher) Handle(m Message) {
	if !strings.HasPrefix(m.Content, d.Prefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, d.Prefix))
	if len(fields) == 0 {
		// A bare prefix is still addressed at the bot.
		d.Platform.Reply(m.ChannelID, fmt.Sprintf("`%s` is not a valid command.", strings.TrimSpace(m.Content)))
		return
	}
	command, args := fields[0], fields[1:]

	switch command {
	case "join":
		d.join(m)
	case "leave":
		d.leave(m)
	case "mute":
		d.mute(m)
	case "unmute":
		d.unmute(m)
	case "play":
		d.play(m, args)
	case "upload":
		d.upload(m)
	case "delete":
		d.delete(m)
	case "ping":
		d.Platform.Reply(m.ChannelID, "Pong!")
	case "status":
		d.status(m)
	case "help":
		d.help(m)
	default:
		d.Platform.Reply(m.ChannelID, fmt.Sprintf("`%s%s` is not a valid command.", d.Prefix, command))
	}
}

// requireGuild rejects DM and group contexts with a reply.
func (d *Dispatcher) requireGuild(m Message) bool {
	if m.GuildID == "" {
		d.Platform.Reply(m.ChannelID, "Groups and DMs not supported")
		return false
	}
	return true
}

func (d *Dispatcher) join(m Message) {
	if !d.requireGuild(m) {
		return
	}

	channelID, ok := d.Platform.UserVoiceChannel(m.GuildID, m.AuthorID)
	if !ok {
		d.Platform.Reply(m.ChannelID, "Not in a voice channel")
		return
	}

	// Explicit join is silent: no greeting is played.
	if err := d.Machine.Join(m.GuildID, channelID); err != nil {
		d.Logger.Error("joining voice channel in guild "+m.GuildID, err)
		d.Platform.Reply(m.ChannelID, "Error joining the channel")
		return
	}
	d.Platform.Reply(m.ChannelID, fmt.Sprintf("Joined <#%s>", channelID))
}

func (d *Dispatcher) leave(m Message) {
	if !d.requireGuild(m) {
		return
	}
	if !d.Machine.Leave(m.GuildID) {
		d.Platform.Reply(m.ChannelID, "Not in a voice channel")
		return
	}
	d.Platform.Reply(m.ChannelID, "Left voice channel")
}

func (d *Dispatcher) mute(m Message) {
	if !d.requireGuild(m) {
		return
	}
	result, err := d.Machine.Mute(m.GuildID)
	if err != nil {
		d.Logger.Error("muting in guild "+m.GuildID, err)
		d.Platform.Reply(m.ChannelID, "Error updating voice state")
		return
	}
	switch result {
	case voice.MuteNoSession:
		d.Platform.Reply(m.ChannelID, "Not in a voice channel")
	case voice.MuteAlready:
		d.Platform.Reply(m.ChannelID, "Already muted")
	default:
		d.Platform.Reply(m.ChannelID, "Now muted")
	}
}

func (d *Dispatcher) unmute(m Message) {
	if !d.requireGuild(m) {
		return
	}
	err := d.Machine.Unmute(m.GuildID)
	switch {
	case errors.Is(err, voice.ErrNotConnected):
		d.Platform.Reply(m.ChannelID, "Not in a voice channel to unmute in")
	case err != nil:
		d.Logger.Error("unmuting in guild "+m.GuildID, err)
		d.Platform.Reply(m.ChannelID, "Error updating voice state")
	default:
		d.Platform.Reply(m.ChannelID, "Unmuted")
	}
}

func (d *Dispatcher) play(m Message, args []string) {
	if !d.requireGuild(m) {
		return
	}
	if len(args) == 0 {
		d.Platform.Reply(m.ChannelID, "Must provide a URL to a video or audio")
		return
	}

	err := d.Machine.Play(m.GuildID, args[0])
	switch {
	case errors.Is(err, voice.ErrInvalidURL):
		d.Platform.Reply(m.ChannelID, "Must provide a valid URL")
	case errors.Is(err, voice.ErrNotConnected):
		d.Platform.Reply(m.ChannelID, "Not in a voice channel to play in")
	case err != nil:
		d.Logger.Error("resolving playback source "+args[0], err)
		d.Platform.Reply(m.ChannelID, "Error sourcing ffmpeg")
	default:
		d.Platform.Reply(m.ChannelID, "Playing song")
	}
}

func (d *Dispatcher) upload(m Message) {
	if !d.requireGuild(m) {
		return
	}
	if len(m.Attachments) == 0 {
		d.Platform.Reply(m.ChannelID, "Attach an .mp3 file to upload")
		return
	}

	att := m.Attachments[0]
	rel, err := d.Ringtones.SaveFromURL(context.Background(), m.GuildName, m.AuthorName, att.URL)
	if err != nil {
		d.Logger.Error("saving ringtone for "+m.AuthorName, err)
		d.Platform.Reply(m.ChannelID, "Error downloading attachment")
		return
	}
	d.Platform.Reply(m.ChannelID, fmt.Sprintf("Saved %s", rel))
}

func (d *Dispatcher) delete(m Message) {
	if !d.requireGuild(m) {
		return
	}

	rel, err := d.Ringtones.Delete(m.GuildName, m.AuthorName)
	switch {
	case errors.Is(err, ringtone.ErrNoRingtone):
		d.Platform.Reply(m.ChannelID, "Specified file does not exist")
	case err != nil:
		d.Logger.Error("deleting ringtone for "+m.AuthorName, err)
		d.Platform.Reply(m.ChannelID, "Error deleting file")
	default:
		d.Platform.Reply(m.ChannelID, fmt.Sprintf("Deleted %s", rel))
	}
}

func (d *Dispatcher) status(m Message) {
	if d.StatusReport == nil {
		d.Platform.Reply(m.ChannelID, "Status reporting is not configured")
		return
	}
	d.Platform.Reply(m.ChannelID, d.StatusReport())
}

func (d *Dispatcher) help(m Message) {
	p := d.Prefix
	d.Platform.Reply(m.ChannelID, strings.Join([]string{
		"**ID By Ringtone**",
		fmt.Sprintf("Commands: `%sjoin` `%sleave` `%smute` `%sunmute` `%splay <url>` `%sping` `%sstatus` `%supload` `%sdelete` `%shelp`", p, p, p, p, p, p, p, p, p, p),
		fmt.Sprintf("Usage: %s[command]", p),
		fmt.Sprintf("Note: attach an .mp3 file to the `%supload` message to set your ringtone.", p),
	}, "\n"))
}
