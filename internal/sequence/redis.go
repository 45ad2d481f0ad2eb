package sequence

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/frescapp/backoffice/internal/shared"
)

const redisKeyPrefix = "seq:"

// RedisStore keeps counters as INCR keys.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Increment runs INCR, which initialises missing keys to 1.
func (s *RedisStore) Increment(ctx context.Context, name string) (int64, error) {
	value, err := s.client.Incr(ctx, redisKeyPrefix+name).Result()
	if err != nil {
		return 0, shared.StorageError("counters: incr", err)
	}
	return value, nil
}
