// Package worker runs blocking jobs off the caller's goroutine with a fixed
// concurrency bound.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	mlog "media-bot/internal/log"
	"media-bot/internal/metrics"
)

// ErrClosed is returned by Submit once Close has been called.
var ErrClosed = errors.New("worker pool closed")

// Job is a unit of work. The context is cancelled when the submitter's
// context is.
type Job func(ctx context.Context)

// Pool bounds how many jobs run at once. Jobs beyond the bound wait for a
// free slot on their own goroutine, so Submit never blocks.
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New returns a pool running at most size jobs concurrently.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   size,
		logger: mlog.WithComponent("worker"),
	}
}

// Size is the concurrency bound.
func (p *Pool) Size() int { return p.size }

// Submit schedules job. It returns ErrClosed after Close.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	metrics.JobsQueued.Inc()
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(ctx, 1); err != nil {
			metrics.JobsQueued.Dec()
			p.logger.Warn().Err(err).Str(mlog.FieldEvent, "worker.abandoned").Msg("job abandoned before start")
			return
		}
		defer p.sem.Release(1)
		metrics.JobsQueued.Dec()

		metrics.JobsRunning.Inc()
		defer metrics.JobsRunning.Dec()
		p.run(ctx, job)
	}()
	return nil
}

func (p *Pool) run(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			metrics.JobPanics.Inc()
			logger := mlog.WithContext(ctx, p.logger)
			logger.Error().
				Str(mlog.FieldEvent, "worker.panic").
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("job panicked")
		}
	}()
	job(ctx)
}

// Close stops accepting new jobs. Already accepted jobs keep running.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Wait blocks until every accepted job has returned or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
