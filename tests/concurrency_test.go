package tests

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/egorvla/task-tracker-api/internal/model"
	"github.com/egorvla/task-tracker-api/internal/notify"
	"github.com/egorvla/task-tracker-api/internal/ratelimit"
	"github.com/egorvla/task-tracker-api/internal/repo"
	"github.com/egorvla/task-tracker-api/internal/service"
)

func newConcurrencyService(t *testing.T, capacity int) (*service.TaskService, func()) {
	t.Helper()
	pool, cleanup := SetupTestDB(t)
	TruncateTables(t, pool)

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	logger := zap.NewNop()
	sender := notify.NewSender(provider.URL, "k", "noreply@test.local", logger)
	dispatcher := notify.NewDispatcher(sender, logger, 2, 0)
	dispatcher.Start(context.Background())

	taskRepo := repo.NewTaskRepo(pool)
	limiter := ratelimit.NewBucket(capacity, time.Minute)
	svc := service.NewTaskService(taskRepo, limiter, dispatcher, logger)

	return svc, func() {
		dispatcher.Stop()
		provider.Close()
		cleanup()
	}
}

// Два конкурентных create при единственной единице емкости: принят ровно один
func TestConcurrent_CreateAdmission(t *testing.T) {
	svc, cleanup := newConcurrencyService(t, 1)
	defer cleanup()

	principal := model.User{ID: 1, Email: "a@x.com"}
	ctx := context.Background()

	const goroutines = 2
	var wg sync.WaitGroup
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = svc.Create(ctx, principal, model.CreateTaskRequest{
				Title: fmt.Sprintf("Concurrent %d", idx),
			}, "")
		}(i)
	}
	wg.Wait()

	accepted, limited := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case err == service.ErrRateLimited:
			limited++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, accepted, "exactly one create should pass")
	assert.Equal(t, 1, limited, "the other should be rate limited")
}

// Лимитер не смешивает бакеты разных принципалов под нагрузкой
func TestConcurrent_AdmissionIsPerPrincipal(t *testing.T) {
	svc, cleanup := newConcurrencyService(t, 1)
	defer cleanup()

	ctx := context.Background()
	const users = 5

	var wg sync.WaitGroup
	errs := make([]error, users)

	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			principal := model.User{ID: int64(idx + 1), Email: fmt.Sprintf("user%d@x.com", idx)}
			_, errs[idx] = svc.Create(ctx, principal, model.CreateTaskRequest{Title: "Mine"}, "")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "user %d has their own bucket", i)
	}
}

// Конкурентные запросы разных пользователей не видят чужих задач
func TestConcurrent_OwnershipIsolation(t *testing.T) {
	svc, cleanup := newConcurrencyService(t, 100)
	defer cleanup()

	ctx := context.Background()
	alice := model.User{ID: 1, Email: "a@x.com"}
	bob := model.User{ID: 2, Email: "b@x.com"}

	created, err := svc.Create(ctx, alice, model.CreateTaskRequest{Title: "Private"}, "")
	require.NoError(t, err)

	const goroutines = 10
	var wg sync.WaitGroup
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if idx%2 == 0 {
				_, errs[idx] = svc.Get(ctx, alice, created.ID)
			} else {
				_, errs[idx] = svc.Get(ctx, bob, created.ID)
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if i%2 == 0 {
			assert.NoError(t, err, "owner read %d", i)
		} else {
			assert.ErrorIs(t, err, repo.ErrorNotFound, "foreign read %d", i)
		}
	}
}
