package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

// Redis shares entries between instances. Keys are namespaced with prefix.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedis(rdb redis.UniversalClient, prefix string, defaultTTL time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, ttl: defaultTTL}
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	return helpers.RedisGetJSON(ctx, r.rdb, r.key(key), dest)
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	return helpers.RedisSetJSON(ctx, r.rdb, r.key(key), value, ttl)
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := helpers.RedisDel(ctx, r.rdb, full...); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

var _ Store = (*Redis)(nil)
