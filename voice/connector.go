package voice

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-ringtone-service/player"
)

// Connector is the voice transport. The state machine decides inside
// the registry lock and talks to the connector after it, so none of
// these methods are ever called under the lock.
type Connector interface {
	// Dial connects (or moves) the bot's voice connection for a guild.
	Dial(guildID, channelID string, muted bool) error
	// Hangup tears down the guild's voice connection, if any.
	Hangup(guildID string) error
	// SetMute updates the bot's self-mute on an existing connection.
	SetMute(guildID, channelID string, muted bool) error
	// Output returns the transmit side of the guild's live connection.
	Output(guildID string) (player.Output, bool)
}

// DiscordConnector implements Connector over a discordgo session.
type DiscordConnector struct {
	session *discordgo.Session
}

func NewDiscordConnector(s *discordgo.Session) *DiscordConnector {
	return &DiscordConnector{session: s}
}

func (c *DiscordConnector) Dial(guildID, channelID string, muted bool) error {
	if _, err := c.session.ChannelVoiceJoin(guildID, channelID, muted, false); err != nil {
		return fmt.Errorf("could not join voice channel %s in guild %s: %w", channelID, guildID, err)
	}
	return nil
}

func (c *DiscordConnector) Hangup(guildID string) error {
	c.session.RLock()
	vc, ok := c.session.VoiceConnections[guildID]
	c.session.RUnlock()
	if !ok {
		return nil
	}
	return vc.Disconnect()
}

// SetMute re-issues the voice join with the new mute flag; discordgo
// applies it to the existing connection.
func (c *DiscordConnector) SetMute(guildID, channelID string, muted bool) error {
	if _, err := c.session.ChannelVoiceJoin(guildID, channelID, muted, false); err != nil {
		return fmt.Errorf("could not update mute state in guild %s: %w", guildID, err)
	}
	return nil
}

func (c *DiscordConnector) Output(guildID string) (player.Output, bool) {
	c.session.RLock()
	vc, ok := c.session.VoiceConnections[guildID]
	c.session.RUnlock()
	if !ok {
		return nil, false
	}
	return player.DiscordOutput{VC: vc}, true
}
