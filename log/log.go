// Package log provides the application logger: everything goes to the
// console, and when a log channel is configured, errors and alarms are
// mirrored into Discord as well.
package log

import (
	"fmt"
	"log"
	"runtime"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Logger is the logging interface used throughout the service.
type Logger interface {
	Info(msg string)
	Error(context string, err error)
	// Alarm records a violated internal invariant. It is louder than
	// Error and always mirrored to the log channel when one exists.
	Alarm(context string, err error)
	Fatal(context string, err error)

	// PostInitialMessage sends the boot message to the log channel and
	// returns it so it can be updated as subsystems come up.
	PostInitialMessage(msg string) (*discordgo.Message, error)
	UpdateInitialMessage(messageID, newContent string)
}

// DiscordLogger logs to the console and mirrors errors to a Discord
// channel. It satisfies Logger.
type DiscordLogger struct {
	session      *discordgo.Session
	logChannelID string
}

// NewLogger creates a logger bound to a Discord session. channelID may
// be empty, in which case nothing is mirrored.
func NewLogger(s *discordgo.Session, channelID string) *DiscordLogger {
	return &DiscordLogger{session: s, logChannelID: channelID}
}

func (l *DiscordLogger) Info(msg string) {
	log.Printf("[INFO] %s\n", msg)
}

func (l *DiscordLogger) Error(context string, err error) {
	msg := fmt.Sprintf("[ERROR] in %s: %s: %v", callerInfo(), context, err)
	log.Println(msg)
	l.post(msg)
}

func (l *DiscordLogger) Alarm(context string, err error) {
	msg := fmt.Sprintf("[ALARM] in %s: %s: %v", callerInfo(), context, err)
	log.Println(msg)
	l.post("🚨 " + msg)
}

func (l *DiscordLogger) Fatal(context string, err error) {
	l.post(fmt.Sprintf("[FATAL] %s: %v", context, err))
	log.Fatalf("[FATAL] in %s: %s: %v\n", callerInfo(), context, err)
}

func (l *DiscordLogger) PostInitialMessage(msg string) (*discordgo.Message, error) {
	if l.session == nil || l.logChannelID == "" {
		return nil, fmt.Errorf("log channel not configured")
	}
	return l.session.ChannelMessageSend(l.logChannelID, msg)
}

func (l *DiscordLogger) UpdateInitialMessage(messageID, newContent string) {
	if l.session == nil || l.logChannelID == "" || messageID == "" {
		return
	}
	_, _ = l.session.ChannelMessageEdit(l.logChannelID, messageID, newContent)
}

// post mirrors a message into the log channel, best effort. Long
// messages are truncated so a stack of errors can't hit the Discord
// message size limit.
func (l *DiscordLogger) post(msg string) {
	if l.session == nil || l.logChannelID == "" {
		return
	}
	if len(msg) > 1900 {
		msg = msg[:1900] + "..."
	}
	_, _ = l.session.ChannelMessageSend(l.logChannelID, "```\n"+msg+"\n```")
}

// callerInfo returns the file:line of the caller two frames up,
// trimmed to the last two path elements.
func callerInfo() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	parts := strings.Split(file, "/")
	if len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}
