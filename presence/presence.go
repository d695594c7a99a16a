// Package presence answers one question: how many humans are in a
// voice channel right now. The count is always computed from a fresh
// membership snapshot because gateway events can arrive out of order
// or go missing entirely; an incrementally maintained counter would
// drift and never recover.
package presence

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Member is one occupant of a voice channel.
type Member struct {
	UserID string
	Bot    bool
}

// Snapshotter supplies the current membership of a voice channel.
type Snapshotter interface {
	ChannelMembers(guildID, channelID string) ([]Member, error)
}

// HumanOccupants counts the members of a snapshot that are not bots.
func HumanOccupants(members []Member) int {
	n := 0
	for _, m := range members {
		if !m.Bot {
			n++
		}
	}
	return n
}

// DiscordSnapshotter reads channel membership from the discordgo state
// cache. Each call re-reads the guild's voice states, so the result
// reflects whatever the gateway has told us most recently.
type DiscordSnapshotter struct {
	session *discordgo.Session
}

func NewDiscordSnapshotter(s *discordgo.Session) *DiscordSnapshotter {
	return &DiscordSnapshotter{session: s}
}

func (d *DiscordSnapshotter) ChannelMembers(guildID, channelID string) ([]Member, error) {
	g, err := d.session.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("could not get guild %s from state: %w", guildID, err)
	}

	var members []Member
	for _, vs := range g.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		bot := false
		if member, err := d.session.State.Member(guildID, vs.UserID); err == nil && member.User != nil {
			bot = member.User.Bot
		} else if vs.UserID == d.session.State.User.ID {
			bot = true
		}
		members = append(members, Member{UserID: vs.UserID, Bot: bot})
	}
	return members, nil
}
