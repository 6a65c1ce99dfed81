package worker

import (
	"context"
	"time"

	"course-copy/internal/domain/model"
	"course-copy/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// TaskSource is the consuming side of the copy queue.
type TaskSource interface {
	// Dequeue waits up to timeout and returns nil when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (*model.CopyTask, error)
	// Requeue puts a task back so it is the next one handed out.
	Requeue(ctx context.Context, task model.CopyTask) error
	Depth(ctx context.Context) (int64, error)
}

// Executor runs one copy task.
type Executor interface {
	Execute(ctx context.Context, task model.CopyTask) error
}

// Dispatcher moves tasks from the queue onto the pool.
type Dispatcher struct {
	source      TaskSource
	exec        Executor
	pool        *Pool
	pollTimeout time.Duration
	errBackoff  time.Duration
	log         *zerolog.Logger
}

func NewDispatcher(source TaskSource, exec Executor, pool *Pool, logger *zerolog.Logger) *Dispatcher {
	compLog := logger.With().Str("component", "CopyDispatcher").Logger()
	return &Dispatcher{
		source:      source,
		exec:        exec,
		pool:        pool,
		pollTimeout: time.Second,
		errBackoff:  time.Second,
		log:         &compLog,
	}
}

// Run blocks until ctx is done. A task taken off the queue but not handed
// to a worker before shutdown is put back.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info().Msg("copy dispatcher started")
	defer d.log.Info().Msg("copy dispatcher stopped")

	for ctx.Err() == nil {
		task, err := d.source.Dequeue(ctx, d.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.Error().Err(err).Msg("dequeue failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.errBackoff):
			}
			continue
		}
		if task == nil {
			d.reportDepth(ctx)
			continue
		}

		t := *task
		err = d.pool.Submit(ctx, func(runCtx context.Context) error {
			return d.exec.Execute(runCtx, t)
		})
		if err != nil {
			d.log.Warn().Err(err).Str("export_job_id", t.ExportJobID).Msg("returning task to queue")
			if rerr := d.source.Requeue(context.WithoutCancel(ctx), t); rerr != nil {
				d.log.Error().Err(rerr).Str("export_job_id", t.ExportJobID).Msg("task lost on shutdown")
			}
		}
	}
}

func (d *Dispatcher) reportDepth(ctx context.Context) {
	n, err := d.source.Depth(ctx)
	if err != nil {
		return
	}
	metrics.SetQueueDepth(n)
}
