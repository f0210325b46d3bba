package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return map[string]Store{
		"memory": NewMemory(time.Minute),
		"redis":  NewRedis(rdb, "test:", time.Minute),
	}
}

func TestGetOrLoad_MissThenHit(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			calls := 0
			loader := func(context.Context) ([]item, error) {
				calls++
				return []item{{ID: "1", Title: "a"}}, nil
			}

			got, err := GetOrLoad(ctx, s, "all_tasks_user_u1", time.Minute, loader)
			require.NoError(t, err)
			assert.Equal(t, []item{{ID: "1", Title: "a"}}, got)

			got, err = GetOrLoad(ctx, s, "all_tasks_user_u1", time.Minute, loader)
			require.NoError(t, err)
			assert.Len(t, got, 1)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestGetOrLoad_LoaderErrorIsNotCached(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			boom := errors.New("db down")
			_, err := GetOrLoad(ctx, s, "k", time.Minute, func(context.Context) (item, error) { return item{}, boom })
			assert.ErrorIs(t, err, boom)

			var dest item
			ok, err := s.Get(ctx, "k", &dest)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestDelete_Invalidates(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "a", item{ID: "a"}, time.Minute))
			require.NoError(t, s.Set(ctx, "b", item{ID: "b"}, time.Minute))

			require.NoError(t, s.Delete(ctx, "a", "b", "missing"))

			var dest item
			ok, err := s.Get(ctx, "a", &dest)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestMemory_ReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(time.Minute)
	require.NoError(t, s.Set(ctx, "k", []item{{ID: "1", Title: "before"}}, time.Minute))

	var first []item
	_, err := s.Get(ctx, "k", &first)
	require.NoError(t, err)
	first[0].Title = "mutated"

	var second []item
	_, err = s.Get(ctx, "k", &second)
	require.NoError(t, err)
	assert.Equal(t, "before", second[0].Title)
}

func TestMemory_Expires(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(time.Minute)
	require.NoError(t, s.Set(ctx, "k", item{ID: "1"}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var dest item
	ok, err := s.Get(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, ok)
}
