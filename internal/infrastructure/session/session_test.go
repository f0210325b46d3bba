package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-manager/internal/application"
)

func stores(t *testing.T) (map[string]application.SessionStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return map[string]application.SessionStore{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(rdb),
	}, mr
}

func TestSessionStores(t *testing.T) {
	all, _ := stores(t)
	for name, s := range all {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := s.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Nil(t, got)

			require.NoError(t, s.Save(ctx, application.Session{UserID: "u1", SID: "a", Role: "user", CreatedAt: time.Now()}, time.Hour))
			require.NoError(t, s.Save(ctx, application.Session{UserID: "u1", SID: "b", Role: "admin", CreatedAt: time.Now()}, time.Hour))

			got, err = s.Get(ctx, "u1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "b", got.SID)
			assert.Equal(t, "admin", got.Role)

			require.NoError(t, s.Delete(ctx, "u1"))
			got, err = s.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestRedisStore_Expires(t *testing.T) {
	all, mr := stores(t)
	s := all["redis"]
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, application.Session{UserID: "u2", SID: "x"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := s.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, got)
}
