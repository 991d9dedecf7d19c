package jobs

import (
	"context"
	"time"
)

// IdempotencyJanitor удаляет записи идемпотентности после срока хранения
type IdempotencyJanitor struct {
	repo      IdempotencyRepository
	logger    Logger
	batchSize int
	now       func() time.Time

	ticker *ticker
}

// NewIdempotencyJanitor создает джобу очистки
func NewIdempotencyJanitor(repo IdempotencyRepository, interval time.Duration, batchSize int, logger Logger) *IdempotencyJanitor {
	if batchSize <= 0 {
		batchSize = 500
	}

	j := &IdempotencyJanitor{
		repo:      repo,
		logger:    logger,
		batchSize: batchSize,
		now:       time.Now,
	}
	j.ticker = newTicker(interval, func(ctx context.Context) { j.Sweep(ctx) })
	return j
}

func (j *IdempotencyJanitor) Start() {
	j.ticker.start()
	j.logger.Info("IdempotencyJanitor: started, batch=%d", j.batchSize)
}

func (j *IdempotencyJanitor) Stop() {
	j.ticker.stop()
	j.logger.Info("IdempotencyJanitor: stopped")
}

// Sweep удаляет истёкшие записи пачками, возвращает число удалённых
func (j *IdempotencyJanitor) Sweep(ctx context.Context) int64 {
	now := j.now()
	var total int64

	for i := 0; i < maxBatchesPerTick; i++ {
		if ctx.Err() != nil {
			break
		}

		deleted, err := j.repo.DeleteExpired(ctx, now, j.batchSize)
		if err != nil {
			j.logger.Error("IdempotencyJanitor: failed to delete expired records: %v", err)
			break
		}

		total += deleted
		if deleted < int64(j.batchSize) {
			break
		}
	}

	if total > 0 {
		j.logger.Info("IdempotencyJanitor: deleted %d expired records", total)
	}
	return total
}
