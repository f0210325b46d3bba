package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	repo "github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/pkg/cache"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxTitleLen     = 200
)

type TaskService struct {
	Repo     repo.TaskRepository
	Cache    cache.Store
	CacheTTL time.Duration
	Index    TaskIndex
	Logger   *logrus.Logger
}

func NewTaskService(r repo.TaskRepository, store cache.Store, ttl time.Duration, index TaskIndex, logger *logrus.Logger) *TaskService {
	return &TaskService{Repo: r, Cache: store, CacheTTL: ttl, Index: index, Logger: logger}
}

func allTasksKey(userID string) string {
	return "all_tasks_user_" + userID
}

func taskKey(id, userID string) string {
	return "task_" + id + "_user_" + userID
}

// NormalizePage clamps paging input: page >= 1, limit defaults to 10 and caps at 100.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

type CreateTaskInput struct {
	Title       string
	Description string
	Status      entity.TaskStatus
	Priority    entity.TaskPriority
	DueDate     *time.Time
}

// UpdateTaskInput carries a partial update; nil fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *entity.TaskStatus
	Priority    *entity.TaskPriority
	DueDate     *time.Time
	ClearDue    bool
}

type ListTasksQuery struct {
	Page   int
	Limit  int
	Status entity.TaskStatus
}

type TaskPage struct {
	Items []entity.Task
	Page  int
	Limit int
	Total int
}

func validateTask(t *entity.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	switch {
	case t.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case len([]rune(t.Title)) > maxTitleLen:
		return fmt.Errorf("%w: title is too long", ErrInvalidInput)
	case !t.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, t.Status)
	case !t.Priority.Valid():
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, t.Priority)
	}
	return nil
}

func (s *TaskService) Create(ctx context.Context, userID string, in CreateTaskInput) (*entity.Task, error) {
	t := &entity.Task{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
	}
	if t.Status == "" {
		t.Status = entity.TaskPending
	}
	if t.Priority == "" {
		t.Priority = entity.PriorityMedium
	}
	if err := validateTask(t); err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.invalidate(ctx, userID, t.ID)
	s.index(ctx, *t)
	return t, nil
}

// Get reads through the per-task cache entry.
func (s *TaskService) Get(ctx context.Context, userID, id string) (*entity.Task, error) {
	t, err := cache.GetOrLoad(ctx, s.Cache, taskKey(id, userID), s.CacheTTL, func(ctx context.Context) (entity.Task, error) {
		t, err := s.Repo.GetByID(ctx, id, userID)
		if err != nil {
			return entity.Task{}, err
		}
		return *t, nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	return &t, nil
}

// all returns every task of the user through the cached collection.
func (s *TaskService) all(ctx context.Context, userID string) ([]entity.Task, error) {
	tasks, err := cache.GetOrLoad(ctx, s.Cache, allTasksKey(userID), s.CacheTTL, func(ctx context.Context) ([]entity.Task, error) {
		return s.Repo.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// List paginates the cached collection, optionally filtered by status.
func (s *TaskService) List(ctx context.Context, userID string, q ListTasksQuery) (TaskPage, error) {
	page, limit := NormalizePage(q.Page, q.Limit)
	if q.Status != "" && !q.Status.Valid() {
		return TaskPage{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, q.Status)
	}
	tasks, err := s.all(ctx, userID)
	if err != nil {
		return TaskPage{}, err
	}
	if q.Status != "" {
		filtered := make([]entity.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Status == q.Status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	return TaskPage{Items: paginate(tasks, page, limit), Page: page, Limit: limit, Total: len(tasks)}, nil
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (s *TaskService) Update(ctx context.Context, userID, id string, in UpdateTaskInput) (*entity.Task, error) {
	t, err := s.Repo.GetByID(ctx, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.ClearDue {
		t.DueDate = nil
	}
	if err := validateTask(t); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, t); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	s.invalidate(ctx, userID, t.ID)
	s.index(ctx, *t)
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	if err := s.Repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	s.invalidate(ctx, userID, id)
	if s.Index != nil {
		if err := s.Index.Remove(ctx, id); err != nil {
			s.warn(err, "task index remove failed", logrus.Fields{"task_id": id})
		}
	}
	return nil
}

// Search matches q against title and description. The search index is used when
// configured; otherwise, or when it fails, the cached collection is filtered.
func (s *TaskService) Search(ctx context.Context, userID, q string, limit int) ([]entity.Task, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	_, limit = NormalizePage(1, limit)

	if s.Index != nil {
		res, err := s.Index.Search(ctx, userID, q, limit)
		if err == nil {
			return res, nil
		}
		s.warn(err, "task index search failed, falling back", logrus.Fields{"user_id": userID})
	}

	tasks, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(q)
	out := make([]entity.Task, 0)
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), needle) || strings.Contains(strings.ToLower(t.Description), needle) {
			out = append(out, t)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// AdminList pages over every task in the store; it bypasses the cache.
func (s *TaskService) AdminList(ctx context.Context, page, limit int) (TaskPage, error) {
	page, limit = NormalizePage(page, limit)
	tasks, total, err := s.Repo.ListAll(ctx, limit, (page-1)*limit)
	if err != nil {
		return TaskPage{}, fmt.Errorf("list all tasks: %w", err)
	}
	return TaskPage{Items: tasks, Page: page, Limit: limit, Total: total}, nil
}

// OwnedIDs lists the ids of the user's tasks straight from the repository.
func (s *TaskService) OwnedIDs(ctx context.Context, userID string) []string {
	tasks, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		s.warn(err, "list owned tasks failed", logrus.Fields{"user_id": userID})
		return nil
	}
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

// ForgetUser drops cache entries and index documents of a deleted account.
// taskIDs must be read before the delete cascades.
func (s *TaskService) ForgetUser(ctx context.Context, userID string, taskIDs []string) {
	keys := []string{allTasksKey(userID)}
	for _, id := range taskIDs {
		keys = append(keys, taskKey(id, userID))
	}
	s.deleteKeys(ctx, keys...)
	if s.Index != nil {
		if err := s.Index.RemoveUser(ctx, userID); err != nil {
			s.warn(err, "task index purge failed", logrus.Fields{"user_id": userID})
		}
	}
}

func (s *TaskService) invalidate(ctx context.Context, userID, id string) {
	s.deleteKeys(ctx, allTasksKey(userID), taskKey(id, userID))
}

func (s *TaskService) deleteKeys(ctx context.Context, keys ...string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, keys...); err != nil {
		s.warn(err, "cache invalidation failed", logrus.Fields{"keys": keys})
	}
}

func (s *TaskService) index(ctx context.Context, t entity.Task) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, t); err != nil {
		s.warn(err, "task index failed", logrus.Fields{"task_id": t.ID})
	}
}

func (s *TaskService) warn(err error, msg string, fields logrus.Fields) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithError(err).WithFields(fields).Warn(msg)
}
