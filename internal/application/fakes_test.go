package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/mailer"
)

type fakeNotifier struct {
	mu       sync.Mutex
	otps     []mailer.OTPMessage
	welcomes []string
	err      error
}

func (f *fakeNotifier) SendOTP(_ context.Context, msg mailer.OTPMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.otps = append(f.otps, msg)
	return nil
}

func (f *fakeNotifier) SendWelcome(_ context.Context, to, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomes = append(f.welcomes, to)
	return nil
}

func (f *fakeNotifier) last() mailer.OTPMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.otps[len(f.otps)-1]
}

type mapSessions struct {
	mu sync.Mutex
	m  map[string]Session
}

func newMapSessions() *mapSessions { return &mapSessions{m: map[string]Session{}} }

func (s *mapSessions) Save(_ context.Context, sess Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.UserID] = sess
	return nil
}

func (s *mapSessions) Get(_ context.Context, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[userID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *mapSessions) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
	return nil
}

type fakeIndex struct {
	indexed map[string]entity.Task
	removed []string
	purged  []string
	err     error
}

func newFakeIndex() *fakeIndex { return &fakeIndex{indexed: map[string]entity.Task{}} }

func (x *fakeIndex) Index(_ context.Context, t entity.Task) error {
	x.indexed[t.ID] = t
	return nil
}

func (x *fakeIndex) Remove(_ context.Context, id string) error {
	x.removed = append(x.removed, id)
	delete(x.indexed, id)
	return nil
}

func (x *fakeIndex) RemoveUser(_ context.Context, userID string) error {
	x.purged = append(x.purged, userID)
	return nil
}

func (x *fakeIndex) Search(_ context.Context, _ string, _ string, _ int) ([]entity.Task, error) {
	if x.err != nil {
		return nil, x.err
	}
	return []entity.Task{{ID: "from-index", Title: "indexed"}}, nil
}

var errBoom = errors.New("boom")

func testJWT() *helpers.JWTManager {
	return helpers.NewJWTManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
}

// fixedClock returns a clock frozen at t that tests can move.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }
