// Package worker runs greeting playback off the gateway goroutines.
// Resolving a ringtone shells out to ffmpeg, which can take longer
// than the gateway handler is allowed to block, so jobs are queued and
// processed by a fixed pool.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/EasterCompany/dex-ringtone-service/resolver"
)

// GreetJob resolves one audio identifier and hands the stream to the
// playback callback. All collaborators arrive as closures so the pool
// stays free of voice-session knowledge.
type GreetJob struct {
	GuildID    string
	Identifier string
	Timeout    time.Duration

	Resolve func(ctx context.Context, identifier string) (resolver.StreamHandle, error)
	Play    func(stream resolver.StreamHandle)
	OnError func(err error)
}

// Pool manages the worker goroutines and the job queue.
type Pool struct {
	jobQueue   chan GreetJob
	maxWorkers int

	mu      sync.Mutex
	stopped bool
}

// New creates a pool. Start must be called before Submit.
func New(maxWorkers, queueSize int) *Pool {
	return &Pool{
		jobQueue:   make(chan GreetJob, queueSize),
		maxWorkers: maxWorkers,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.maxWorkers; i++ {
		go p.worker()
	}
}

// Submit queues a job. It never blocks: when the queue is full or the
// pool is stopped the job is dropped and false is returned. A missed
// greeting is preferable to a stalled gateway handler.
func (p *Pool) Submit(job GreetJob) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}

// Stop closes the queue; workers exit after draining it. Submissions
// after Stop are rejected rather than racing the close.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.jobQueue)
}

func (p *Pool) worker() {
	for job := range p.jobQueue {
		process(job)
	}
}

func process(job GreetJob) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if job.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	stream, err := job.Resolve(ctx, job.Identifier)
	if err != nil {
		if job.OnError != nil {
			job.OnError(err)
		}
		return
	}
	job.Play(stream)
}
