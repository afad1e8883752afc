package repo

import (
	"context"

	"github.com/egorvla/task-tracker-api/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами.
// Все операции чтения и изменения привязаны к владельцу: чужая задача
// неотличима от несуществующей.
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	GetOwned(ctx context.Context, id int64, owner string) (model.Task, error)
	List(ctx context.Context, owner string, filter model.TaskFilter, limit, offset int) ([]model.Task, int, error)
	Update(ctx context.Context, t model.Task) (model.Task, error)
	Delete(ctx context.Context, id int64, owner string) error
	SaveIdempotencyKey(ctx context.Context, key, owner string, resourceID int64) error
	GetIdempotencyKey(ctx context.Context, key, owner string) (int64, error)
}
