package notifications

import "errors"

// ErrPublish ошибка публикации в брокер
var ErrPublish = errors.New("notifications: publish failed")
