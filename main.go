package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/EasterCompany/dex-ringtone-service/di"
	"github.com/EasterCompany/dex-ringtone-service/health"
	"github.com/EasterCompany/dex-ringtone-service/reporting"
)

func main() {
	// 1. Build the dependency container
	c, err := di.NewContainer()
	if err != nil {
		log.Fatalf("Fatal error during startup: %v", err)
	}

	// 2. Register gateway handlers before opening the connection
	c.Handler.Register(c.Session)

	// 3. Connect to Discord
	if err := c.Session.Open(); err != nil {
		c.Logger.Fatal("Error opening connection to Discord", err)
	}

	// 4. Post Initial Boot Message
	boot := reporting.NewBootMessage(c.Logger)
	boot.PostInitialMessage()
	boot.Update("Discord connection established")

	// 5. Start the greeting playback workers
	c.Pool.Start()
	boot.Update(fmt.Sprintf("Discord connection established\n%d playback workers started", c.Config.PlaybackWorkers))

	// 6. Final health check on the boot message
	boot.Update(fmt.Sprintf(
		"Discord connection established\n%d playback workers started\nDiscord: %s\nGreeting Cache: %s",
		c.Config.PlaybackWorkers,
		health.GetDiscordStatus(c.Session),
		health.GetCacheStatus(c.Greetings, c.Config.RedisAddr),
	))
	c.Logger.Info("Bot is now running. Press CTRL-C to exit.")

	// 7. Wait for shutdown signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	// 8. Cleanly close down. The session closes first so no gateway
	// event can reach the machine or the pool mid-teardown.
	c.Machine.DisconnectAll()
	_ = c.Session.Close()
	c.Pool.Stop()
	if c.Greetings != nil {
		if err := c.Greetings.Close(); err != nil {
			c.Logger.Error("Closing greeting cache", err)
		}
	}
	fmt.Println("\nBot shutting down.")
}
