package repository

import (
	"context"

	"github.com/oksasatya/taskboard-api/internal/domain/entity"
)

// TaskRepository defines persistence for tasks.
type TaskRepository interface {
	Create(ctx context.Context, t *entity.Task) error
	GetByID(ctx context.Context, id int64) (*entity.Task, error)
	// ListByOwner returns tasks newest first.
	ListByOwner(ctx context.Context, userID int64) ([]entity.Task, error)
	// SearchByOwner matches query against title and description.
	SearchByOwner(ctx context.Context, userID int64, query string, limit int) ([]entity.Task, error)
	// ListAfter pages through every task by ascending id, for reindexing.
	ListAfter(ctx context.Context, afterID int64, limit int) ([]entity.Task, error)
	Update(ctx context.Context, t *entity.Task) error
	Delete(ctx context.Context, id int64) error
}
