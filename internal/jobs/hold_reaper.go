package jobs

import (
	"context"
	"time"
)

// maxBatchesPerTick ограничивает работу одной итерации, остаток заберёт следующая
const maxBatchesPerTick = 20

// HoldReaper освобождает слоты бронирований, для которых карта так и не была сохранена
// Бронирования с card_saved не трогает
type HoldReaper struct {
	repo      HoldRepository
	metrics   Metrics
	logger    Logger
	ttl       time.Duration
	batchSize int
	now       func() time.Time

	ticker *ticker
}

// NewHoldReaper создает джобу освобождения холдов
func NewHoldReaper(repo HoldRepository, metrics Metrics, interval, ttl time.Duration, batchSize int, logger Logger) *HoldReaper {
	if batchSize <= 0 {
		batchSize = 500
	}

	r := &HoldReaper{
		repo:      repo,
		metrics:   metrics,
		logger:    logger,
		ttl:       ttl,
		batchSize: batchSize,
		now:       time.Now,
	}
	r.ticker = newTicker(interval, func(ctx context.Context) { r.Sweep(ctx) })
	return r
}

// Start запускает джобу в фоне
func (r *HoldReaper) Start() {
	r.ticker.start()
	r.logger.Info("HoldReaper: started, ttl=%s, batch=%d", r.ttl, r.batchSize)
}

// Stop останавливает джобу и ждёт завершения текущего прохода
func (r *HoldReaper) Stop() {
	r.ticker.stop()
	r.logger.Info("HoldReaper: stopped")
}

// Sweep один проход: освобождает пачки, пока они приходят полными
// Возвращает число освобождённых бронирований
func (r *HoldReaper) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.ttl)
	total := 0

	for i := 0; i < maxBatchesPerTick; i++ {
		if ctx.Err() != nil {
			break
		}

		ids, err := r.repo.ReleaseExpiredHolds(ctx, cutoff, r.batchSize)
		if err != nil {
			r.logger.Error("HoldReaper: failed to release holds: %v", err)
			break
		}

		total += len(ids)
		if len(ids) > 0 {
			r.logger.Info("HoldReaper: released %d holds: %v", len(ids), ids)
		}
		if len(ids) < r.batchSize {
			break
		}
	}

	if total > 0 && r.metrics != nil {
		r.metrics.AddHoldsReleased(total)
	}
	return total
}
