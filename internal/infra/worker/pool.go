package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"course-copy/internal/domain"

	"github.com/rs/zerolog"
)

// Task is one unit of work run by the pool.
type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed set of goroutines. Submit blocks
// while every worker is busy so the queue, not memory, holds the backlog.
type Pool struct {
	wg     sync.WaitGroup
	jobs   chan Task
	n      int
	log    *zerolog.Logger
	mu     sync.RWMutex
	closed bool
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	compLog := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{jobs: make(chan Task), n: workers, log: &compLog}
}

// Start launches the workers. Tasks run with ctx; cancelling it does not
// stop a task already running.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for task := range p.jobs {
				if task == nil {
					continue
				}
				if err := task(ctx); err != nil {
					p.log.Error().Err(err).Int("worker", id).Msg("task error")
				}
			}
		}(i)
	}
}

// Stop refuses new tasks and waits for running ones to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit hands task to an idle worker, waiting until one is free or ctx
// is done.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	// The read lock keeps Stop from closing the channel mid-send.
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return domain.ErrPoolClosed
	}
	select {
	case p.jobs <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
