package ratelimit

import "context"

// Limiter - admission control для мутирующих запросов.
// Allow атомарно списывает cost единиц с бакета ключа: при одной
// оставшейся единице из двух конкурентных вызовов пройдет ровно один.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int) (bool, error)
}
