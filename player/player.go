// Package player pushes resolved Opus streams into voice connections.
// Each guild has at most one live playback goroutine; starting a new
// source replaces whatever was playing before.
package player

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-ringtone-service/log"
	"github.com/EasterCompany/dex-ringtone-service/resolver"
)

// 48kHz Opus frames are 20ms each.
const frameInterval = 20 * time.Millisecond

// Output is the transmit side of a voice connection.
type Output interface {
	Speaking(bool) error
	Send() chan<- []byte
}

// DiscordOutput adapts a discordgo voice connection to Output.
type DiscordOutput struct {
	VC *discordgo.VoiceConnection
}

func (o DiscordOutput) Speaking(b bool) error { return o.VC.Speaking(b) }
func (o DiscordOutput) Send() chan<- []byte   { return o.VC.OpusSend }

// playback identifies one live playback goroutine. The pointer itself
// is the identity: a replaced goroutine must not remove its successor's
// entry from the active map.
type playback struct {
	cancel context.CancelFunc
}

// Player runs the per-guild playback goroutines.
type Player struct {
	logger log.Logger

	mu     sync.Mutex
	active map[string]*playback
}

func New(logger log.Logger) *Player {
	return &Player{
		logger: logger,
		active: make(map[string]*playback),
	}
}

// Play starts streaming into out, replacing any playback already
// running for the guild. onDone runs exactly once when the stream
// ends, errors out, or is replaced or stopped.
func (p *Player) Play(guildID string, out Output, stream resolver.StreamHandle, onDone func()) {
	ctx, cancel := context.WithCancel(context.Background())
	pb := &playback{cancel: cancel}

	p.mu.Lock()
	if prev, ok := p.active[guildID]; ok {
		prev.cancel()
	}
	p.active[guildID] = pb
	p.mu.Unlock()

	go p.run(ctx, guildID, pb, out, stream, onDone)
}

// Stop ends the guild's playback, if any.
func (p *Player) Stop(guildID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pb, ok := p.active[guildID]; ok {
		pb.cancel()
		delete(p.active, guildID)
	}
}

// StopAll ends every live playback. Used during shutdown.
func (p *Player) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for g, pb := range p.active {
		pb.cancel()
		delete(p.active, g)
	}
}

func (p *Player) run(ctx context.Context, guildID string, pb *playback, out Output, stream resolver.StreamHandle, onDone func()) {
	defer func() {
		if err := stream.Close(); err != nil && ctx.Err() == nil {
			p.logger.Error("closing audio stream for guild "+guildID, err)
		}
		p.mu.Lock()
		// Only remove our own entry. A replacement may already have
		// stored its cancel func under this guild.
		if p.active[guildID] == pb {
			delete(p.active, guildID)
		}
		p.mu.Unlock()
		if onDone != nil {
			onDone()
		}
	}()

	if err := out.Speaking(true); err != nil {
		p.logger.Error("setting speaking state for guild "+guildID, err)
		return
	}
	defer func() { _ = out.Speaking(false) }()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := stream.NextFrame()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					p.logger.Error("reading audio frame for guild "+guildID, err)
				}
				return
			}
			select {
			case out.Send() <- frame:
			case <-ctx.Done():
				return
			}
		}
	}
}
