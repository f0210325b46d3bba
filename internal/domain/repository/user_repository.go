package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
	// ErrCodeMismatch is returned by the Consume* methods when the stored code no longer
	// matches or has expired at the time of the update.
	ErrCodeMismatch = errors.New("code mismatch")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context, limit, offset int) ([]entity.User, int, error)
	Update(ctx context.Context, u *entity.User) error
	UpdateRole(ctx context.Context, id string, role entity.Role) error
	Delete(ctx context.Context, id string) error

	// SetOTP stores code and expiry for purpose on the account in one write.
	SetOTP(ctx context.Context, id string, purpose entity.OTPPurpose, code string, expiry time.Time) error
	// ConsumeVerify marks the account verified and clears the verify code, only if the
	// stored code still equals code and has not expired at now.
	ConsumeVerify(ctx context.Context, id, code string, now time.Time) error
	// ConsumeReset replaces the password hash and clears the reset code under the same condition.
	ConsumeReset(ctx context.Context, id, code, passwordHash string, now time.Time) error
}
