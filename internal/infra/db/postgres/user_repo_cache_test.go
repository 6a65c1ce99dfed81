//go:build !integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/repository"
)

type mockInnerUserRepo struct {
	calls int
	user  *model.User
}

func (m *mockInnerUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.calls++
	return m.user, nil
}

type mockCache struct {
	values map[string]string
}

func (m *mockCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.values[key] = string(value.([]byte))
	return nil
}

func TestUserRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	inner := &mockInnerUserRepo{user: &model.User{ID: "user-123", FirstName: "Ada", TelegramID: 98765}}
	cache := &mockCache{values: map[string]string{}}
	decorator := NewUserRepoCacheDecorator(inner, cache, time.Minute)

	t.Run("should fetch from the DB and fill the cache on a miss", func(t *testing.T) {
		u, err := decorator.FindByID(ctx, nil, "user-123")
		require.NoError(t, err)
		assert.Equal(t, "Ada", u.FirstName)
		assert.Equal(t, 1, inner.calls)
		assert.Contains(t, cache.values, "user:id:user-123", "cache should be warmed")
	})

	t.Run("should serve a hit without touching the DB", func(t *testing.T) {
		u, err := decorator.FindByID(ctx, nil, "user-123")
		require.NoError(t, err)
		assert.EqualValues(t, 98765, u.TelegramID)
		assert.Equal(t, 1, inner.calls, "inner repo should not be called again")
	})
}
