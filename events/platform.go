package events

import (
	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-ringtone-service/log"
)

// DiscordPlatform adapts a discordgo session to the dispatcher's
// platform interface.
type DiscordPlatform struct {
	Session *discordgo.Session
	Logger  log.Logger
}

func NewDiscordPlatform(s *discordgo.Session, logger log.Logger) *DiscordPlatform {
	return &DiscordPlatform{Session: s, Logger: logger}
}

// Reply is best effort. A failed reply is logged and forgotten.
func (p *DiscordPlatform) Reply(channelID, content string) {
	if _, err := p.Session.ChannelMessageSend(channelID, content); err != nil {
		p.Logger.Error("sending reply to channel "+channelID, err)
	}
}

// UserVoiceChannel reads the guild's voice states from the session
// state. The lookup is fresh on every call.
func (p *DiscordPlatform) UserVoiceChannel(guildID, userID string) (string, bool) {
	g, err := p.Session.State.Guild(guildID)
	if err != nil {
		return "", false
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, true
		}
	}
	return "", false
}
