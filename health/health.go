// Package health checks the bot's external connections and formats
// their status for reports.
package health

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-ringtone-service/cache"
)

// GetDiscordStatus checks and returns the status of the Discord connection as a formatted string.
func GetDiscordStatus(s *discordgo.Session) string {
	if s.DataReady {
		return "**OK**"
	}
	if err := s.Open(); err != nil {
		return fmt.Sprintf("**ERROR**: `%v`", err)
	}
	return "**OK** (reconnected)"
}

// GetCacheStatus checks and returns the status of the greeting cache as a formatted string.
func GetCacheStatus(c cache.Cache, addr string) string {
	if addr == "" {
		return "`Not Configured`"
	}
	if c == nil {
		return "**ERROR**: `Initialization failed`"
	}
	if err := c.Ping(); err != nil {
		return fmt.Sprintf("**ERROR**: `%v`", err)
	}
	return "**OK**"
}

// GetActiveGuilds returns a map of guild names to guild IDs.
func GetActiveGuilds(s *discordgo.Session) map[string]string {
	guilds := make(map[string]string)
	for _, guild := range s.State.Guilds {
		guilds[guild.Name] = guild.ID
	}
	return guilds
}
