//go:build !integration

package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/infra/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsAndDrains(t *testing.T) {
	p := NewPool(2, logging.Nop())
	p.Start(context.Background())

	var done int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&done, 1)
			return nil
		}))
	}
	p.Stop()
	assert.Equal(t, int32(5), atomic.LoadInt32(&done))

	err := p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, domain.ErrPoolClosed)
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	p := NewPool(1, logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// No workers started, so the send can only fail on ctx.
	err := p.Submit(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

type chanSource struct {
	tasks    chan model.CopyTask
	requeued []model.CopyTask
}

func (s *chanSource) Dequeue(ctx context.Context, timeout time.Duration) (*model.CopyTask, error) {
	select {
	case t := <-s.tasks:
		return &t, nil
	case <-time.After(timeout):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *chanSource) Requeue(ctx context.Context, task model.CopyTask) error {
	s.requeued = append(s.requeued, task)
	return nil
}

func (s *chanSource) Depth(ctx context.Context) (int64, error) { return int64(len(s.tasks)), nil }

type recordingExec struct{ got chan model.CopyTask }

func (e recordingExec) Execute(ctx context.Context, task model.CopyTask) error {
	e.got <- task
	return nil
}

func TestDispatcher_DeliversTasks(t *testing.T) {
	src := &chanSource{tasks: make(chan model.CopyTask, 2)}
	exec := recordingExec{got: make(chan model.CopyTask, 2)}
	pool := NewPool(1, logging.Nop())
	pool.Start(context.Background())
	d := NewDispatcher(src, exec, pool, logging.Nop())
	d.pollTimeout = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() { d.Run(ctx); close(stopped) }()

	src.tasks <- model.CopyTask{ExportJobID: "e1", ImportJobID: "i1"}
	select {
	case got := <-exec.got:
		assert.Equal(t, "e1", got.ExportJobID)
	case <-time.After(time.Second):
		t.Fatal("task was not executed")
	}

	cancel()
	<-stopped
	pool.Stop()
	assert.Empty(t, src.requeued)
}
