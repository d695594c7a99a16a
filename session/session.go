package session

import (
	"github.com/bwmarrin/discordgo"
)

// NewSession creates a new Discord session with the gateway intents
// the bot needs: guild metadata, messages with content for commands,
// and voice states for presence tracking.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	return session, nil
}
