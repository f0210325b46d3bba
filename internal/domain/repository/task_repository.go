package repository

import (
	"context"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
)

// TaskRepository persists tasks. Reads and writes other than ListAll are scoped to the owner.
type TaskRepository interface {
	Create(ctx context.Context, t *entity.Task) error
	GetByID(ctx context.Context, id, userID string) (*entity.Task, error)
	ListByUser(ctx context.Context, userID string) ([]entity.Task, error)
	ListAll(ctx context.Context, limit, offset int) ([]entity.Task, int, error)
	Update(ctx context.Context, t *entity.Task) error
	Delete(ctx context.Context, id, userID string) error
}
