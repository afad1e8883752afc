package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/egorvla/task-tracker-api/internal/model"
)

type event struct {
	user   model.User
	task   model.Task
	action string
}

// Dispatcher доставляет уведомления в фоне: Notify кладет событие в
// очередь и сразу возвращается, воркеры разбирают ее независимо от
// запроса. Ответ API никогда не ждет доставки.
type Dispatcher struct {
	sender *Sender
	logger *zap.Logger
	count  int
	events chan event
	wg     sync.WaitGroup
}

const defaultQueueSize = 256

func NewDispatcher(sender *Sender, logger *zap.Logger, count, queue int) *Dispatcher {
	if queue <= 0 {
		queue = defaultQueueSize
	}
	return &Dispatcher{
		sender: sender,
		logger: logger,
		count:  count,
		events: make(chan event, queue),
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting notification dispatcher", zap.Int("workers", d.count))

	for i := 0; i < d.count; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop дожидается доставки всего, что уже в очереди
func (d *Dispatcher) Stop() {
	d.logger.Info("Stopping notification dispatcher...")
	close(d.events)
	d.wg.Wait()
	d.logger.Info("Notification dispatcher stopped")
}

// Notify не блокирует: при переполненной очереди событие отбрасывается
func (d *Dispatcher) Notify(user model.User, task model.Task, action string) {
	select {
	case d.events <- event{user: user, task: task, action: action}:
	default:
		d.logger.Warn("notification queue full, dropping event",
			zap.String("action", action),
			zap.Int64("task_id", task.ID),
		)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()

	for ev := range d.events {
		if !d.sender.Send(ctx, ev.user, ev.task, ev.action) {
			d.logger.Warn("notification not delivered",
				zap.Int("worker", id),
				zap.String("action", ev.action),
				zap.Int64("task_id", ev.task.ID),
			)
		}
	}
}
