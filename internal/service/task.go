package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/egorvla/task-tracker-api/internal/model"
	"github.com/egorvla/task-tracker-api/internal/notify"
	"github.com/egorvla/task-tracker-api/internal/ratelimit"
	"github.com/egorvla/task-tracker-api/internal/repo"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Notifier принимает событие мутации для фоновой доставки
type Notifier interface {
	Notify(user model.User, task model.Task, action string)
}

type TaskService struct {
	repo     repo.TaskRepository
	limiter  ratelimit.Limiter
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewTaskService(r repo.TaskRepository, limiter ratelimit.Limiter, notifier Notifier, logger *zap.Logger) *TaskService {
	return &TaskService{
		repo:     r,
		limiter:  limiter,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *TaskService) Create(ctx context.Context, principal model.User, req model.CreateTaskRequest, idempKey string) (model.Task, error) {
	if idempKey != "" { // Повтор с тем же ключом возвращает уже созданную задачу
		if existingID, err := s.repo.GetIdempotencyKey(ctx, idempKey, principal.Email); err == nil {
			return s.repo.GetOwned(ctx, existingID, principal.Email)
		}
	}

	// Admission control до любой записи
	ok, err := s.limiter.Allow(ctx, principal.Email, 1)
	if err != nil {
		// Сломанный лимитер не должен ронять запись
		s.logger.Warn("rate limiter unavailable, admitting request", zap.Error(err))
	} else if !ok {
		return model.Task{}, ErrRateLimited
	}

	t := model.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Owner:       principal.Email,
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	if err := s.validate(&t, req.DueDate); err != nil {
		return model.Task{}, err
	}

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return created, err
	}

	if idempKey != "" {
		if err := s.repo.SaveIdempotencyKey(ctx, idempKey, principal.Email, created.ID); err != nil {
			s.logger.Warn("failed to save idempotency key", zap.Error(err))
		}
	}

	s.notifier.Notify(principal, created, notify.ActionCreate)
	return created, nil
}

func (s *TaskService) List(ctx context.Context, principal model.User, q model.ListQuery) (model.TaskPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	tasks, total, err := s.repo.List(ctx, principal.Email, q.Filter, limit, offset)
	if err != nil {
		return model.TaskPage{}, err
	}
	return model.TaskPage{Tasks: tasks, Page: page, Limit: limit, Total: total}, nil
}

func (s *TaskService) Get(ctx context.Context, principal model.User, id int64) (model.Task, error) {
	return s.loadOwned(ctx, principal, id)
}

func (s *TaskService) Update(ctx context.Context, principal model.User, id int64, req model.UpdateTaskRequest) (model.Task, error) {
	t, err := s.loadOwned(ctx, principal, id)
	if err != nil {
		return t, err
	}

	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if err := s.validate(&t, req.DueDate); err != nil {
		return model.Task{}, err
	}
	t.UpdatedAt = model.DateTime(s.now())

	updated, err := s.repo.Update(ctx, t)
	if err != nil {
		return updated, err
	}

	s.notifier.Notify(principal, updated, notify.ActionUpdate)
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, principal model.User, id int64) error {
	// Снимок нужен для текста уведомления после удаления
	t, err := s.loadOwned(ctx, principal, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, principal.Email); err != nil {
		return err
	}

	s.notifier.Notify(principal, t, notify.ActionDelete)
	return nil
}

// loadOwned - общий guard владения: чужая и несуществующая задача
// выглядят одинаково (repo.ErrorNotFound), существование не утекает.
func (s *TaskService) loadOwned(ctx context.Context, principal model.User, id int64) (model.Task, error) {
	return s.repo.GetOwned(ctx, id, principal.Email)
}

// validate проверяет задачу и разбирает due_date, если он прислан.
// Все нарушения собираются в одно сообщение под ErrValidation.
func (s *TaskService) validate(t *model.Task, dueDate *string) error {
	var problems []string

	if strings.TrimSpace(t.Title) == "" {
		problems = append(problems, "title must be a non-empty string")
	}
	if !model.ValidStatus(t.Status) {
		problems = append(problems, "status must be one of pending, in-progress, completed")
	}
	if dueDate != nil {
		parsed, err := time.Parse(model.TimeLayout, *dueDate)
		if err != nil {
			problems = append(problems, "due_date must match format "+model.TimeLayout)
		} else {
			d := model.DateTime(parsed)
			t.DueDate = &d
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}
