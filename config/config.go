// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment.
type Config struct {
	// DiscordToken authenticates the gateway connection.
	DiscordToken string `env:"DISCORD_TOKEN,required,notEmpty"`
	// CommandPrefix marks text messages as commands.
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"~"`
	// RingtoneDir is the root of the per-guild ringtone file tree:
	// <RingtoneDir>/<guild_name>/<user_name>.mp3
	RingtoneDir string `env:"RINGTONE_DIR,required,notEmpty"`
	// LogChannelID, when set, receives mirrored error logs and the
	// boot status message.
	LogChannelID string `env:"LOG_CHANNEL_ID"`

	// Redis backs the greeting cooldown cache. Leaving RedisAddr empty
	// disables the cache (duplicate presence events may then re-greet).
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ResolveTimeoutSeconds   int `env:"RESOLVE_TIMEOUT_SECONDS" envDefault:"10"`
	GreetingCooldownSeconds int `env:"GREETING_COOLDOWN_SECONDS" envDefault:"15"`
	PlaybackWorkers         int `env:"PLAYBACK_WORKERS" envDefault:"4"`
}

// Load reads the configuration from a .env file (when present) and the
// process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("could not parse environment: %w", err)
	}

	if cfg.ResolveTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("RESOLVE_TIMEOUT_SECONDS must be positive, got %d", cfg.ResolveTimeoutSeconds)
	}
	if cfg.PlaybackWorkers <= 0 {
		return nil, fmt.Errorf("PLAYBACK_WORKERS must be positive, got %d", cfg.PlaybackWorkers)
	}

	return cfg, nil
}

// ResolveTimeout returns the resolver deadline as a duration.
func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.ResolveTimeoutSeconds) * time.Second
}

// GreetingCooldown returns the duplicate-greeting suppression window.
func (c *Config) GreetingCooldown() time.Duration {
	return time.Duration(c.GreetingCooldownSeconds) * time.Second
}
