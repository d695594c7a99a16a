package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin_CreatesThenMoves(t *testing.T) {
	r := New()

	created := r.Join("g1", "c1")
	assert.True(t, created)

	s, ok := r.Get("g1")
	require.True(t, ok)
	assert.Equal(t, "c1", s.ChannelID)
	assert.False(t, s.Muted)
	assert.Equal(t, PlaybackIdle, s.Playback.State)

	// Moving is not a no-op: the channel always updates.
	created = r.Join("g1", "c2")
	assert.False(t, created)

	s, ok = r.Get("g1")
	require.True(t, ok)
	assert.Equal(t, "c2", s.ChannelID)
	assert.Equal(t, 1, r.Len())
}

func TestJoin_MovePreservesMuteResetsPlayback(t *testing.T) {
	r := New()
	r.Join("g1", "c1")
	r.Update("g1", func(s *Session) {
		s.Muted = true
		s.Playback = Playback{State: PlaybackPlaying, Source: "http://example.com/a"}
	})

	r.Join("g1", "c2")

	s, ok := r.Get("g1")
	require.True(t, ok)
	assert.True(t, s.Muted)
	assert.Equal(t, PlaybackIdle, s.Playback.State)
	assert.Empty(t, s.Playback.Source)
}

func TestLeave_Idempotent(t *testing.T) {
	r := New()

	assert.False(t, r.Leave("g1"), "leave with no session is a no-op")

	r.Join("g1", "c1")
	assert.True(t, r.Leave("g1"))
	assert.False(t, r.Leave("g1"))
	assert.Equal(t, 0, r.Len())
}

func TestGet_ReturnsCopy(t *testing.T) {
	r := New()
	r.Join("g1", "c1")

	s, _ := r.Get("g1")
	s.Muted = true
	s.ChannelID = "hijacked"

	fresh, _ := r.Get("g1")
	assert.False(t, fresh.Muted)
	assert.Equal(t, "c1", fresh.ChannelID)
}

func TestUpdate_MissingGuild(t *testing.T) {
	r := New()

	called := false
	ok := r.Update("nope", func(s *Session) { called = true })
	assert.False(t, ok)
	assert.False(t, called)
}

func TestRestore_ReinstatesSnapshot(t *testing.T) {
	r := New()
	r.Join("g1", "c1")
	prev, _ := r.Get("g1")

	r.Join("g1", "c2")
	r.Restore("g1", prev)

	s, ok := r.Get("g1")
	require.True(t, ok)
	assert.Equal(t, "c1", s.ChannelID)
}

// Hammer the registry from many goroutines and check the per-guild
// exclusivity invariant afterwards: at most one session per guild, and
// every surviving session points at a channel some goroutine actually
// joined.
func TestConcurrentJoinLeave_Invariant(t *testing.T) {
	r := New()

	const guilds = 8
	const workers = 16
	const rounds = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				g := fmt.Sprintf("g%d", i%guilds)
				switch (w + i) % 3 {
				case 0:
					r.Join(g, fmt.Sprintf("c%d", w))
				case 1:
					r.Leave(g)
				default:
					r.Update(g, func(s *Session) { s.Muted = !s.Muted })
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, r.Len(), guilds)
	for _, g := range r.GuildIDs() {
		s, ok := r.Get(g)
		require.True(t, ok)
		assert.NotEmpty(t, s.ChannelID)
	}
}
