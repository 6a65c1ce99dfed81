//go:build integration

package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"course-copy/internal/config"
	"course-copy/internal/domain"
	"course-copy/internal/domain/model"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClient *Client

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("could not reach docker: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{Repository: "redis", Tag: "7-alpine"}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("could not start redis: %v", err)
	}
	_ = resource.Expire(120)

	cfg := &config.RedisConfig{URL: fmt.Sprintf("localhost:%s", resource.GetPort("6379/tcp"))}
	if err := pool.Retry(func() error {
		var err error
		testClient, err = NewClient(context.Background(), cfg)
		return err
	}); err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("redis never became ready: %v", err)
	}

	code := m.Run()
	_ = testClient.Close()
	_ = pool.Purge(resource)
	os.Exit(code)
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocker(testClient)

	token, err := l.TryLock(ctx, "copy_lock:it", time.Minute)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "copy_lock:it", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockNotAcquired)

	require.NoError(t, l.Unlock(ctx, "copy_lock:it", "someone-else"))
	_, err = l.TryLock(ctx, "copy_lock:it", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockNotAcquired, "foreign token must not unlock")

	require.NoError(t, l.Unlock(ctx, "copy_lock:it", token))
	_, err = l.TryLock(ctx, "copy_lock:it", time.Minute)
	assert.NoError(t, err)
}

func TestTaskQueue_Redis(t *testing.T) {
	ctx := context.Background()
	q := NewTaskQueue(testClient, "copy_tasks_it")

	require.NoError(t, q.Enqueue(ctx, model.CopyTask{ExportJobID: "e1", ImportJobID: "i1"}))
	task, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "i1", task.ImportJobID)

	empty, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
