package jobs

import (
	"context"
	"sync"
	"time"
)

// ticker периодически вызывает tick до Stop
type ticker struct {
	interval time.Duration
	tick     func(ctx context.Context)

	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newTicker(interval time.Duration, tick func(ctx context.Context)) *ticker {
	return &ticker{
		interval: interval,
		tick:     tick,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (t *ticker) start() {
	go t.run()
}

// stop останавливает цикл и дожидается завершения текущей итерации
func (t *ticker) stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
	<-t.done
}

func (t *ticker) run() {
	defer close(t.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-t.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-tk.C:
			t.tick(ctx)
		case <-t.stopChan:
			return
		}
	}
}
