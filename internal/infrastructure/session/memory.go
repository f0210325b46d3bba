package session

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/oksasatya/go-task-manager/internal/application"
)

// MemoryStore keeps sessions in process; used with DB_DRIVER=memory and in tests.
type MemoryStore struct {
	c *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (s *MemoryStore) Save(_ context.Context, sess application.Session, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.c.Set(sess.UserID, sess, ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*application.Session, error) {
	v, ok := s.c.Get(userID)
	if !ok {
		return nil, nil
	}
	sess := v.(application.Session)
	return &sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.c.Delete(userID)
	return nil
}

var _ application.SessionStore = (*MemoryStore)(nil)
