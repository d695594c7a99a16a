package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EasterCompany/dex-ringtone-service/resolver"
)

type noopStream struct{}

func (noopStream) NextFrame() ([]byte, error) { return nil, io.EOF }
func (noopStream) Close() error               { return nil }

func TestSubmit_JobResolvesAndPlays(t *testing.T) {
	p := New(1, 4)
	p.Start()
	defer p.Stop()

	played := make(chan resolver.StreamHandle, 1)
	ok := p.Submit(GreetJob{
		GuildID:    "g1",
		Identifier: "greeting:guild/user",
		Resolve: func(ctx context.Context, identifier string) (resolver.StreamHandle, error) {
			return noopStream{}, nil
		},
		Play: func(stream resolver.StreamHandle) { played <- stream },
	})
	require.True(t, ok)

	select {
	case <-played:
	case <-time.After(2 * time.Second):
		t.Fatal("job was never played")
	}
}

func TestSubmit_ResolveFailureReportsError(t *testing.T) {
	p := New(1, 4)
	p.Start()
	defer p.Stop()

	resolveErr := errors.New("no such source")
	got := make(chan error, 1)
	ok := p.Submit(GreetJob{
		Resolve: func(ctx context.Context, identifier string) (resolver.StreamHandle, error) {
			return nil, resolveErr
		},
		Play:    func(resolver.StreamHandle) { t.Error("play must not run on resolve failure") },
		OnError: func(err error) { got <- err },
	})
	require.True(t, ok)

	select {
	case err := <-got:
		assert.True(t, errors.Is(err, resolveErr))
	case <-time.After(2 * time.Second):
		t.Fatal("OnError was never called")
	}
}

func TestSubmit_TimeoutBoundsResolve(t *testing.T) {
	p := New(1, 4)
	p.Start()
	defer p.Stop()

	got := make(chan error, 1)
	p.Submit(GreetJob{
		Timeout: 20 * time.Millisecond,
		Resolve: func(ctx context.Context, identifier string) (resolver.StreamHandle, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		Play:    func(resolver.StreamHandle) { t.Error("play must not run on timeout") },
		OnError: func(err error) { got <- err },
	})

	select {
	case err := <-got:
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	case <-time.After(2 * time.Second):
		t.Fatal("resolve was never cancelled")
	}
}

func TestSubmit_DropsWhenQueueFull(t *testing.T) {
	p := New(1, 1)
	// Not started: nothing drains the queue.

	block := GreetJob{
		Resolve: func(ctx context.Context, identifier string) (resolver.StreamHandle, error) {
			return noopStream{}, nil
		},
		Play: func(resolver.StreamHandle) {},
	}
	assert.True(t, p.Submit(block))
	assert.False(t, p.Submit(block), "full queue must drop, not block")
}

// A gateway event can still arrive while the service shuts down; the
// resulting Submit must be rejected, never panic.
func TestSubmit_AfterStopIsRejected(t *testing.T) {
	p := New(1, 4)
	p.Start()
	p.Stop()

	ok := p.Submit(GreetJob{
		Resolve: func(ctx context.Context, identifier string) (resolver.StreamHandle, error) {
			return noopStream{}, nil
		},
		Play: func(resolver.StreamHandle) {},
	})
	assert.False(t, ok)
}

func TestStop_IsIdempotent(t *testing.T) {
	p := New(2, 4)
	p.Start()
	p.Stop()
	p.Stop()
}

func TestStop_DrainsQueuedJobs(t *testing.T) {
	p := New(2, 8)
	p.Start()

	var wg sync.WaitGroup
	var mu sync.Mutex
	played := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.True(t, p.Submit(GreetJob{
			Resolve: func(ctx context.Context, identifier string) (resolver.StreamHandle, error) {
				return noopStream{}, nil
			},
			Play: func(resolver.StreamHandle) {
				mu.Lock()
				played++
				mu.Unlock()
				wg.Done()
			},
		}))
	}
	p.Stop()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued jobs were not drained after Stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, played)
}
