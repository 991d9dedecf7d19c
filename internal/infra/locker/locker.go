package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLocked возвращается, когда ключ уже захвачен другим запросом
	ErrLocked = errors.New("locker: key is already locked")

	// ErrInternal возвращается при ошибке redis
	ErrInternal = errors.New("locker: internal error")
)

const keyPrefix = "appointments:inflight:"

// releaseScript удаляет ключ, только если он всё ещё принадлежит нам
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisClient подмножество методов go-redis, которое нужно локеру
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
}

// RedisLocker защищает обработку запроса с одним ключом идемпотентности от параллельного выполнения
// Блокировка короткоживущая (TTL) и не заменяет хранилище идемпотентности в БД
type RedisLocker struct {
	client RedisClient
	ttl    time.Duration
	logger Logger
}

// NewRedisLocker создает локер поверх redis
func NewRedisLocker(client RedisClient, ttl time.Duration, logger Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, logger: logger}
}

// Acquire захватывает ключ. Возвращает функцию освобождения или ErrLocked
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: SetNX %s: %v", ErrInternal, redisKey, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	release := func() {
		// контекст запроса может быть уже отменён, а ключ нужно отпустить
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()

		if err := l.client.Eval(releaseCtx, releaseScript, []string{redisKey}, token).Err(); err != nil {
			l.logger.Warn("Locker: failed to release key=%s: %v", redisKey, err)
		}
	}

	return release, nil
}

// NoopLocker используется, когда redis выключен
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
