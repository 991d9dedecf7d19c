package jobs

import (
	"context"
	"time"
)

// HoldRepository освобождение брошенных холдов
type HoldRepository interface {
	ReleaseExpiredHolds(ctx context.Context, cutoff time.Time, limit int) ([]int64, error)
}

// IdempotencyRepository очистка истёкших записей идемпотентности
type IdempotencyRepository interface {
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}

// Metrics счётчик освобождённых холдов
type Metrics interface {
	AddHoldsReleased(n int)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
