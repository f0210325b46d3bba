package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
)

const taskColumns = `id, user_id, title, description, status, priority, due_date, created_at, updated_at`

type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

func scanTask(row pgx.Row) (*entity.Task, error) {
	t := &entity.Task{}
	var status, priority string
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &status, &priority, &t.DueDate,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	t.Status = entity.TaskStatus(status)
	t.Priority = entity.TaskPriority(priority)
	return t, nil
}

func collectTasks(rows pgx.Rows) ([]entity.Task, error) {
	defer rows.Close()
	tasks := make([]entity.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) Create(ctx context.Context, t *entity.Task) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO tasks (user_id, title, description, status, priority, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, t.UserID, t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate)
	return row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepository) GetByID(ctx context.Context, id, userID string) (*entity.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]entity.Task, error) {
	rows, err := r.db.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *TaskRepository) ListAll(ctx context.Context, limit, offset int) ([]entity.Task, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM tasks`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	tasks, err := collectTasks(rows)
	return tasks, total, err
}

func (r *TaskRepository) Update(ctx context.Context, t *entity.Task) error {
	t.UpdatedAt = time.Now()
	res, err := r.db.Exec(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4, due_date = $5, updated_at = $6
		WHERE id = $7 AND user_id = $8
	`, t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate, t.UpdatedAt, t.ID, t.UserID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id, userID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrNotFound
	}
	res, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
