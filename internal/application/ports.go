package application

import (
	"context"
	"time"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/pkg/mailer"
)

// Notifier delivers codes and account emails out of band.
type Notifier interface {
	SendOTP(ctx context.Context, msg mailer.OTPMessage) error
	SendWelcome(ctx context.Context, to, name string) error
}

// Session is the server-side record behind a token pair. One per user; a new
// login replaces it.
type Session struct {
	UserID    string
	SID       string
	Email     string
	Name      string
	Role      string
	CreatedAt time.Time
}

// SessionStore keeps sessions so tokens can be revoked before they expire.
// Get returns nil, nil when no session exists.
type SessionStore interface {
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Get(ctx context.Context, userID string) (*Session, error)
	Delete(ctx context.Context, userID string) error
}

// TaskIndex is the full-text side of the task store.
type TaskIndex interface {
	Index(ctx context.Context, t entity.Task) error
	Remove(ctx context.Context, id string) error
	RemoveUser(ctx context.Context, userID string) error
	Search(ctx context.Context, userID, q string, limit int) ([]entity.Task, error)
}
