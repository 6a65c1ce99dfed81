package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"course-copy/internal/domain/model"

	"github.com/go-redis/redis/v8"
)

// TaskQueue is a Redis list of copy tasks. Producers LPUSH, the worker
// BRPOPs, so the oldest task is served first.
type TaskQueue struct {
	client RedisClient
	key    string
}

func NewTaskQueue(client RedisClient, key string) *TaskQueue {
	if key == "" {
		key = "copy_tasks"
	}
	return &TaskQueue{client: client, key: key}
}

func (q *TaskQueue) Enqueue(ctx context.Context, task model.CopyTask) error {
	b, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, b)
}

// Requeue pushes task onto the consuming end so it is taken next.
func (q *TaskQueue) Requeue(ctx context.Context, task model.CopyTask) error {
	b, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.key, b)
}

// Dequeue waits up to timeout for a task. It returns nil, nil when the
// wait timed out.
func (q *TaskQueue) Dequeue(ctx context.Context, timeout time.Duration) (*model.CopyTask, error) {
	raw, err := q.client.BRPop(ctx, timeout, q.key)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var task model.CopyTask
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, fmt.Errorf("decode copy task: %w", err)
	}
	return &task, nil
}

func (q *TaskQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key)
}
