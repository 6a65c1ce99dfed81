package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/repository"
	"course-copy/internal/infra/metrics"

	"github.com/go-redis/redis/v8"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// UserCache is the key/value slice of the Redis client the decorator needs.
type UserCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// userRepoCacheDecorator keeps notification recipients in Redis for a
// short while.
type userRepoCacheDecorator struct {
	inner repository.UserRepository
	cache UserCache
	ttl   time.Duration
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache UserCache, ttl time.Duration) repository.UserRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &userRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func (d *userRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	key := fmt.Sprintf("user:id:%s", id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var user model.User
		if json.Unmarshal([]byte(val), &user) == nil {
			metrics.IncCacheRequest("user", "hit")
			return &user, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		metrics.IncCacheRequest("user", "error")
	}

	metrics.IncCacheRequest("user", "miss")
	user, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(user); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return user, nil
}
