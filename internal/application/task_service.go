package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/taskboard-api/internal/domain/entity"
	repo "github.com/oksasatya/taskboard-api/internal/domain/repository"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
)

const (
	defaultSearchLimit = 20
	reindexBatch       = 200
)

// TaskIndex is a secondary full-text index over tasks. It is updated after
// the primary write and may lag or miss updates; the repository stays the
// source of truth.
type TaskIndex interface {
	Index(ctx context.Context, t entity.Task) error
	Remove(ctx context.Context, id int64) error
	Search(ctx context.Context, ownerID int64, query string, limit int) ([]entity.Task, error)
}

type TaskService struct {
	Tasks  repo.TaskRepository
	Index  TaskIndex
	Logger *logrus.Logger
}

func NewTaskService(tasks repo.TaskRepository, index TaskIndex, logger *logrus.Logger) *TaskService {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &TaskService{Tasks: tasks, Index: index, Logger: logger}
}

type CreateTaskInput struct {
	Title       string
	Description *string
	Priority    *entity.TaskPriority
}

// UpdateTaskInput is a partial update: nil fields keep their stored value.
// A present but empty Description clears it; a present but empty Title is
// rejected; an empty Status or Priority keeps the stored value.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *entity.TaskStatus
	Priority    *entity.TaskPriority
}

// normalized drops empty enum values so they behave like omitted fields.
func (in UpdateTaskInput) normalized() UpdateTaskInput {
	if in.Status != nil && *in.Status == "" {
		in.Status = nil
	}
	if in.Priority != nil && *in.Priority == "" {
		in.Priority = nil
	}
	return in
}

func (in UpdateTaskInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Status == nil && in.Priority == nil
}

func (s *TaskService) List(ctx context.Context, ownerID int64) ([]entity.Task, error) {
	tasks, err := s.Tasks.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []entity.Task{}
	}
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, ownerID int64, in CreateTaskInput) (*entity.Task, error) {
	if blank(in.Title) {
		return nil, fmt.Errorf("%w: please add a title", ErrValidation)
	}
	priority := entity.TaskPriorityMedium
	if in.Priority != nil && *in.Priority != "" {
		if !in.Priority.Valid() {
			return nil, fmt.Errorf("%w: priority must be one of LOW, MEDIUM, HIGH", ErrValidation)
		}
		priority = *in.Priority
	}
	var desc *string
	if in.Description != nil && *in.Description != "" {
		d := *in.Description
		desc = &d
	}

	t := &entity.Task{
		Title:       in.Title,
		Description: desc,
		Status:      entity.TaskStatusTodo,
		Priority:    priority,
		UserID:      ownerID,
	}
	if err := s.Tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	s.index(ctx, *t)
	return t, nil
}

// load fetches a task and enforces ownership. Existence is checked first so
// probing a missing id never reports ErrForbidden.
func (s *TaskService) load(ctx context.Context, ownerID, taskID int64) (*entity.Task, error) {
	t, err := s.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if t.UserID != ownerID {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, ownerID, taskID int64, in UpdateTaskInput) (*entity.Task, error) {
	t, err := s.load(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	in = in.normalized()
	if in.empty() {
		return t, nil
	}

	if in.Title != nil {
		if blank(*in.Title) {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		t.Title = *in.Title
	}
	if in.Description != nil {
		if *in.Description == "" {
			t.Description = nil
		} else {
			d := *in.Description
			t.Description = &d
		}
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: status must be one of TODO, IN_PROGRESS, DONE", ErrValidation)
		}
		t.Status = *in.Status
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, fmt.Errorf("%w: priority must be one of LOW, MEDIUM, HIGH", ErrValidation)
		}
		t.Priority = *in.Priority
	}

	if err := s.Tasks.Update(ctx, t); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	s.index(ctx, *t)
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, taskID int64) (int64, error) {
	if _, err := s.load(ctx, ownerID, taskID); err != nil {
		return 0, err
	}
	if err := s.Tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrTaskNotFound
		}
		return 0, err
	}
	if s.Index != nil {
		if err := s.Index.Remove(ctx, taskID); err != nil {
			s.Logger.WithError(err).WithField("task_id", taskID).Warn("task index remove failed")
		}
	}
	return taskID, nil
}

// Search returns the owner's tasks matching query. The index is consulted
// first; any index failure falls back to the repository.
func (s *TaskService) Search(ctx context.Context, ownerID int64, query string, limit int) ([]entity.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	if limit <= 0 || limit > 100 {
		limit = defaultSearchLimit
	}
	if s.Index != nil {
		tasks, err := s.Index.Search(ctx, ownerID, query, limit)
		if err == nil {
			return nonNil(tasks), nil
		}
		s.Logger.WithError(err).Warn("task index search failed, using database")
	}
	tasks, err := s.Tasks.SearchByOwner(ctx, ownerID, query, limit)
	if err != nil {
		return nil, err
	}
	return nonNil(tasks), nil
}

// Reindex copies every stored task into the index, page by page. Writes
// only index on the request path, so rows inserted directly in SQL, tasks
// whose index call failed, and tasks older than the index are picked up
// here. It stops at the first index error and reports how many were done.
func (s *TaskService) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, nil
	}
	var after int64
	done := 0
	for {
		page, err := s.Tasks.ListAfter(ctx, after, reindexBatch)
		if err != nil {
			return done, err
		}
		for _, t := range page {
			if err := s.Index.Index(ctx, t); err != nil {
				return done, fmt.Errorf("reindex task %d: %w", t.ID, err)
			}
			done++
		}
		if len(page) < reindexBatch {
			return done, nil
		}
		after = page[len(page)-1].ID
	}
}

func (s *TaskService) index(ctx context.Context, t entity.Task) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, t); err != nil {
		s.Logger.WithError(err).WithField("task_id", t.ID).Warn("task index update failed")
	}
}

func nonNil(tasks []entity.Task) []entity.Task {
	if tasks == nil {
		return []entity.Task{}
	}
	return tasks
}
