package reporting

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-ringtone-service/cache"
	"github.com/EasterCompany/dex-ringtone-service/health"
	"github.com/EasterCompany/dex-ringtone-service/registry"
	"github.com/EasterCompany/dex-ringtone-service/system"
)

func humanReadableBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatSystemStatus() string {
	cpuUsage, err := system.GetCPUUsage()
	cpuStr := fmt.Sprintf("`%.2f%%`", cpuUsage)
	if err != nil {
		cpuStr = "`unavailable`"
	}

	memUsage, memErr := system.GetMemoryUsage()
	totalMem, totalErr := system.GetTotalMemory()
	memStr := "`unavailable`"
	if memErr == nil && totalErr == nil {
		used := uint64(memUsage / 100 * float64(totalMem))
		memStr = fmt.Sprintf("`%.2f%%` (`%s / %s`)", memUsage, humanReadableBytes(used), humanReadableBytes(totalMem))
	}

	return strings.Join([]string{
		"**System Status**",
		fmt.Sprintf("CPU: %s", cpuStr),
		fmt.Sprintf("Memory: %s", memStr),
	}, "\n")
}

func formatServiceStatus(s *discordgo.Session, greetings cache.Cache, cacheAddr string) string {
	return strings.Join([]string{
		"**Service Status**",
		fmt.Sprintf("Discord: %s", health.GetDiscordStatus(s)),
		fmt.Sprintf("Greeting Cache: %s", health.GetCacheStatus(greetings, cacheAddr)),
	}, "\n")
}

func formatVoiceSessions(reg *registry.Registry) string {
	guildIDs := reg.GuildIDs()
	if len(guildIDs) == 0 {
		return "**Voice Sessions**\nNone active."
	}

	lines := []string{fmt.Sprintf("**Voice Sessions** (%d)", len(guildIDs))}
	for _, guildID := range guildIDs {
		sess, ok := reg.Get(guildID)
		if !ok {
			continue
		}
		state := "idle"
		if sess.Playback.State == registry.PlaybackPlaying {
			state = "playing"
		}
		if sess.Muted {
			state += ", muted"
		}
		lines = append(lines, fmt.Sprintf("Guild %s in <#%s> (%s)", guildID, sess.ChannelID, state))
	}
	return strings.Join(lines, "\n")
}

// StatusReport builds the full report the status command replies with.
func StatusReport(s *discordgo.Session, reg *registry.Registry, greetings cache.Cache, cacheAddr string) string {
	return strings.Join([]string{
		formatSystemStatus(),
		formatServiceStatus(s, greetings, cacheAddr),
		formatVoiceSessions(reg),
	}, "\n\n")
}
