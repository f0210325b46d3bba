package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-task-manager/internal/application"
)

// RedisStore keeps one session hash per user under user:session:<id>.
type RedisStore struct {
	rdb redis.UniversalClient
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func sessionKey(userID string) string {
	return "user:session:" + userID
}

func (s *RedisStore) Save(ctx context.Context, sess application.Session, ttl time.Duration) error {
	key := sessionKey(sess.UserID)
	fields := map[string]any{
		"user_id":    sess.UserID,
		"sid":        sess.SID,
		"email":      sess.Email,
		"name":       sess.Name,
		"role":       sess.Role,
		"created_at": sess.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*application.Session, error) {
	data, err := s.rdb.HGetAll(ctx, sessionKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	created, _ := time.Parse(time.RFC3339Nano, data["created_at"])
	return &application.Session{
		UserID:    data["user_id"],
		SID:       data["sid"],
		Email:     data["email"],
		Name:      data["name"],
		Role:      data["role"],
		CreatedAt: created,
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, sessionKey(userID)).Err()
}

var _ application.SessionStore = (*RedisStore)(nil)
