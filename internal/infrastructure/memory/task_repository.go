package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
)

type TaskRepository struct {
	mu    sync.Mutex
	tasks map[string]entity.Task
	// Reads counts ListByUser calls; tests use it to observe cache hits.
	Reads int
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{tasks: make(map[string]entity.Task)}
}

func (r *TaskRepository) Create(_ context.Context, t *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now
	r.tasks[t.ID] = *t
	return nil
}

func (r *TaskRepository) GetByID(_ context.Context, id, userID string) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *TaskRepository) sorted(keep func(entity.Task) bool) []entity.Task {
	out := make([]entity.Task, 0)
	for _, t := range r.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *TaskRepository) ListByUser(_ context.Context, userID string) ([]entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Reads++
	return r.sorted(func(t entity.Task) bool { return t.UserID == userID }), nil
}

func (r *TaskRepository) ListAll(_ context.Context, limit, offset int) ([]entity.Task, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.sorted(func(entity.Task) bool { return true })
	return window(all, limit, offset), len(all), nil
}

func (r *TaskRepository) Update(_ context.Context, t *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.tasks[t.ID]
	if !ok || cur.UserID != t.UserID {
		return repository.ErrNotFound
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = time.Now()
	r.tasks[t.ID] = *t
	return nil
}

func (r *TaskRepository) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.tasks[id]
	if !ok || cur.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *TaskRepository) deleteByUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.tasks {
		if t.UserID == userID {
			delete(r.tasks, id)
		}
	}
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
