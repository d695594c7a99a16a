// Package di provides a dependency injection container for the application.
package di

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-ringtone-service/cache"
	"github.com/EasterCompany/dex-ringtone-service/commands"
	"github.com/EasterCompany/dex-ringtone-service/config"
	"github.com/EasterCompany/dex-ringtone-service/events"
	"github.com/EasterCompany/dex-ringtone-service/log"
	"github.com/EasterCompany/dex-ringtone-service/player"
	"github.com/EasterCompany/dex-ringtone-service/presence"
	"github.com/EasterCompany/dex-ringtone-service/registry"
	"github.com/EasterCompany/dex-ringtone-service/reporting"
	"github.com/EasterCompany/dex-ringtone-service/resolver"
	"github.com/EasterCompany/dex-ringtone-service/ringtone"
	"github.com/EasterCompany/dex-ringtone-service/session"
	"github.com/EasterCompany/dex-ringtone-service/voice"
	"github.com/EasterCompany/dex-ringtone-service/worker"
)

// Container holds all the dependencies for the application.
type Container struct {
	Config     *config.Config
	Session    *discordgo.Session
	Logger     log.Logger
	Greetings  cache.Cache
	Registry   *registry.Registry
	Player     *player.Player
	Pool       *worker.Pool
	Machine    *voice.Machine
	Ringtones  *ringtone.Store
	Dispatcher *commands.Dispatcher
	Handler    *events.Handler
}

// NewContainer creates a new dependency injection container.
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("fatal error loading config: %w", err)
	}

	s, err := session.NewSession(cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	appLogger := log.NewLogger(s, cfg.LogChannelID)

	var greetings cache.Cache
	db, err := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		appLogger.Error("Failed to initialize greeting cache", err)
	} else if db != nil {
		greetings = db
	}

	reg := registry.New()
	pl := player.New(appLogger)
	pool := worker.New(cfg.PlaybackWorkers, cfg.PlaybackWorkers*4)

	machine := voice.NewMachine(
		reg,
		voice.NewDiscordConnector(s),
		resolver.NewFFmpegResolver(cfg.RingtoneDir),
		presence.NewDiscordSnapshotter(s),
		pl,
		greetings,
		pool,
		appLogger,
		voice.Options{
			ResolveTimeout:   cfg.ResolveTimeout(),
			GreetingCooldown: cfg.GreetingCooldown(),
		},
	)

	ringtones := ringtone.NewStore(cfg.RingtoneDir)

	dispatcher := &commands.Dispatcher{
		Prefix:    cfg.CommandPrefix,
		Machine:   machine,
		Ringtones: ringtones,
		Platform:  events.NewDiscordPlatform(s, appLogger),
		Logger:    appLogger,
		StatusReport: func() string {
			return reporting.StatusReport(s, reg, greetings, cfg.RedisAddr)
		},
	}

	handler := events.NewHandler(dispatcher, machine, appLogger)

	return &Container{
		Config:     cfg,
		Session:    s,
		Logger:     appLogger,
		Greetings:  greetings,
		Registry:   reg,
		Player:     pl,
		Pool:       pool,
		Machine:    machine,
		Ringtones:  ringtones,
		Dispatcher: dispatcher,
		Handler:    handler,
	}, nil
}
