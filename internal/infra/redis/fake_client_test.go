//go:build !integration

package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// fakeClient keeps counters and lists in memory.
type fakeClient struct {
	mu       sync.Mutex
	counters map[string]int64
	ttls     map[string]time.Duration
	lists    map[string][]string
	values   map[string]string
	incrErr  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{counters: map[string]int64{}, ttls: map[string]time.Duration{}, lists: map[string][]string{}, values: map[string]string{}}
}

func (f *fakeClient) Ping(ctx context.Context) error { return nil }

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = toString(value)
	return nil
}

func (f *fakeClient) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeClient) Incr(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeClient) Expire(ctx context.Context, key string, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = d
	return nil
}

func (f *fakeClient) LPush(ctx context.Context, key string, values ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		f.lists[key] = append([]string{toString(v)}, f.lists[key]...)
	}
	return nil
}

func (f *fakeClient) RPush(ctx context.Context, key string, values ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		f.lists[key] = append(f.lists[key], toString(v))
	}
	return nil
}

func (f *fakeClient) BRPop(ctx context.Context, timeout time.Duration, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.lists[key]
	if len(l) == 0 {
		return "", redis.Nil
	}
	v := l[len(l)-1]
	f.lists[key] = l[:len(l)-1]
	return v, nil
}

func (f *fakeClient) LLen(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.lists[key])), nil
}

func (f *fakeClient) Close() error { return nil }

func toString(v interface{}) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	}
	panic(errors.New("unsupported value"))
}
