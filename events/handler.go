// Package events handles Discord gateway events and dispatches them to
// the command dispatcher and the voice state machine.
package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-ringtone-service/commands"
	"github.com/EasterCompany/dex-ringtone-service/log"
	"github.com/EasterCompany/dex-ringtone-service/voice"
)

type Handler struct {
	Dispatcher *commands.Dispatcher
	Machine    *voice.Machine
	Logger     log.Logger
}

func NewHandler(dispatcher *commands.Dispatcher, machine *voice.Machine, logger log.Logger) *Handler {
	return &Handler{
		Dispatcher: dispatcher,
		Machine:    machine,
		Logger:     logger,
	}
}

// Register attaches the gateway handlers to the session.
func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(h.Ready)
	s.AddHandler(h.MessageCreate)
	s.AddHandler(h.VoiceStateUpdate)
}

func (h *Handler) Ready(s *discordgo.Session, r *discordgo.Ready) {
	h.Machine.BotUserID = r.User.ID
	if err := s.UpdateGameStatus(0, h.Dispatcher.Prefix+"help"); err != nil {
		h.Logger.Error("setting presence status", err)
	}
	h.Logger.Info(fmt.Sprintf("Logged in as %s serving %d guilds", r.User.Username, len(r.Guilds)))
}

func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	msg := commands.Message{
		GuildID:    m.GuildID,
		GuildName:  h.guildName(s, m.GuildID),
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: h.displayName(s, m.GuildID, m.Author),
		Content:    m.Content,
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, commands.Attachment{
			URL:      a.URL,
			Filename: a.Filename,
		})
	}
	h.Dispatcher.Handle(msg)
}

func (h *Handler) VoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	ev := voice.StateEvent{
		GuildID:      v.GuildID,
		GuildName:    h.guildName(s, v.GuildID),
		UserID:       v.UserID,
		NewChannelID: v.ChannelID,
	}
	if v.BeforeUpdate != nil {
		ev.OldChannelID = v.BeforeUpdate.ChannelID
	}
	if v.Member != nil && v.Member.User != nil {
		ev.UserName = h.displayName(s, v.GuildID, v.Member.User)
		ev.UserIsBot = v.Member.User.Bot
	}

	h.Machine.HandlePresence(ev)
}

func (h *Handler) guildName(s *discordgo.Session, guildID string) string {
	if guildID == "" {
		return ""
	}
	g, err := s.State.Guild(guildID)
	if err != nil || g.Name == "" {
		return guildID
	}
	return g.Name
}

// displayName prefers the guild nickname, then the global name, then
// the account username. Ringtone paths key on this value.
func (h *Handler) displayName(s *discordgo.Session, guildID string, user *discordgo.User) string {
	if guildID != "" {
		member, err := s.State.Member(guildID, user.ID)
		if err == nil && member.Nick != "" {
			return member.Nick
		}
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}
