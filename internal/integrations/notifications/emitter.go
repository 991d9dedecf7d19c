package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// JSONPublisher транспорт уведомлений
type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

const (
	publishTimeout  = 5 * time.Second
	publishMaxTries = 3
)

// Emitter отправляет уведомления асинхронно. Ошибки только логируются:
// переход бронирования уже зафиксирован и откатываться не должен
type Emitter struct {
	publisher  JSONPublisher
	log        Logger
	newBackOff func() backoff.BackOff
	wg         sync.WaitGroup
}

// NewEmitter создает эмиттер поверх брокера
func NewEmitter(publisher JSONPublisher, log Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		log:       log,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// Emit публикует событие в фоне. Отмена ctx запроса не прерывает отправку
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	bg := context.WithoutCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		pubCtx, cancel := context.WithTimeout(bg, publishTimeout*publishMaxTries)
		defer cancel()

		_, err := backoff.Retry(pubCtx, func() (struct{}, error) {
			return struct{}{}, e.publisher.PublishJSON(pubCtx, event.Type.RoutingKey(), event)
		},
			backoff.WithBackOff(e.newBackOff()),
			backoff.WithMaxTries(publishMaxTries),
		)
		if err != nil {
			e.log.Error("Notifications: failed to emit %s for booking %d: %v", event.Type, event.BookingID, err)
			return
		}

		e.log.Info("Notifications: emitted %s for booking %d", event.Type, event.BookingID)
	}()
}

// Wait дожидается отправки всех событий, вызывается при остановке сервиса
func (e *Emitter) Wait() {
	e.wg.Wait()
}

// LogEmitter пишет события в лог, когда брокер выключен
type LogEmitter struct {
	log Logger
}

// NewLogEmitter создает эмиттер без брокера
func NewLogEmitter(log Logger) *LogEmitter {
	return &LogEmitter{log: log}
}

func (e *LogEmitter) Emit(_ context.Context, event Event) {
	e.log.Info("Notifications: %s for booking %d (broker disabled)", event.Type, event.BookingID)
}

func (e *LogEmitter) Wait() {}
