package booking_action

import (
	"fmt"
	"strings"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

const maxIdempotencyKeyLength = 255

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return ErrMissingIdempotencyKey
	}
	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		return fmt.Errorf("%w: idempotency key is longer than %d", ErrInvalidInput, maxIdempotencyKeyLength)
	}
	if req.BookingID <= 0 {
		return fmt.Errorf("%w: bookingId must be positive", ErrInvalidInput)
	}
	if req.BusinessID <= 0 {
		return fmt.Errorf("%w: businessId must be positive", ErrInvalidInput)
	}
	if req.Action.TargetStatus() == "" {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, req.Action)
	}
	return nil
}

// lockKey ключ блокировки in-flight: маршрут + ключ клиента
func lockKey(action domain.Action, key string) string {
	return action.Route() + ":" + key
}
