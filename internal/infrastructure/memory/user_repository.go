// Package memory holds map-backed repositories for local runs without Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
)

type UserRepository struct {
	mu      sync.Mutex
	byID    map[string]entity.User
	byEmail map[string]string
	tasks   *TaskRepository
}

// NewUserRepository returns an empty store. When tasks is non-nil, deleting a user
// also deletes the user's tasks.
func NewUserRepository(tasks *TaskRepository) *UserRepository {
	return &UserRepository{
		byID:    make(map[string]entity.User),
		byEmail: make(map[string]string),
		tasks:   tasks,
	}
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailKey(u.Email)
	if _, ok := r.byEmail[key]; ok {
		return repository.ErrDuplicate
	}
	if !u.Role.Valid() {
		u.Role = entity.RoleUser
	}
	now := time.Now()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = *u
	r.byEmail[key] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *UserRepository) List(_ context.Context, limit, offset int) ([]entity.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return window(all, limit, offset), len(all), nil
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Name = u.Name
	cur.AvatarURL = u.AvatarURL
	cur.UpdatedAt = time.Now()
	u.UpdatedAt = cur.UpdatedAt
	r.byID[u.ID] = cur
	return nil
}

func (r *UserRepository) UpdateRole(_ context.Context, id string, role entity.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Role = role
	cur.UpdatedAt = time.Now()
	r.byID[id] = cur
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	cur, ok := r.byID[id]
	if ok {
		delete(r.byID, id)
		delete(r.byEmail, emailKey(cur.Email))
	}
	r.mu.Unlock()

	if !ok {
		return repository.ErrNotFound
	}
	if r.tasks != nil {
		r.tasks.deleteByUser(id)
	}
	return nil
}

func (r *UserRepository) SetOTP(_ context.Context, id string, purpose entity.OTPPurpose, code string, expiry time.Time) error {
	if purpose.TTL() == 0 {
		return entity.ErrUnknownPurpose
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	cur.SetOTP(purpose, code, expiry)
	cur.UpdatedAt = time.Now()
	r.byID[id] = cur
	return nil
}

// consume applies mutate only when the stored code for purpose still matches and is unexpired.
func (r *UserRepository) consume(id string, purpose entity.OTPPurpose, code string, now time.Time, mutate func(*entity.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[id]
	if !ok {
		return repository.ErrCodeMismatch
	}
	if err := cur.CheckOTP(purpose, code, now); err != nil {
		return repository.ErrCodeMismatch
	}
	mutate(&cur)
	cur.ClearOTP(purpose)
	cur.UpdatedAt = now
	r.byID[id] = cur
	return nil
}

func (r *UserRepository) ConsumeVerify(_ context.Context, id, code string, now time.Time) error {
	return r.consume(id, entity.PurposeVerify, code, now, func(u *entity.User) {
		u.IsVerified = true
	})
}

func (r *UserRepository) ConsumeReset(_ context.Context, id, code, passwordHash string, now time.Time) error {
	return r.consume(id, entity.PurposeReset, code, now, func(u *entity.User) {
		u.Password = passwordHash
	})
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

var _ repository.UserRepository = (*UserRepository)(nil)
