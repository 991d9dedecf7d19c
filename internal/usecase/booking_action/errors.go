package booking_action

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено или принадлежит другому бизнесу
	ErrBookingNotFound = errors.New("booking_action: booking not found")

	// ErrMissingIdempotencyKey возвращается, когда не передан заголовок Idempotency-Key
	ErrMissingIdempotencyKey = errors.New("booking_action: idempotency key is required")

	// ErrIdempotencyKeyReused возвращается, когда ключ уже использован для другого бронирования
	ErrIdempotencyKeyReused = errors.New("booking_action: idempotency key was used for another booking")

	// ErrRequestInProgress возвращается, когда запрос с тем же ключом ещё выполняется
	ErrRequestInProgress = errors.New("booking_action: request with this idempotency key is in progress")

	// ErrInvalidTransition возвращается, когда действие недопустимо из текущего статуса
	ErrInvalidTransition = errors.New("booking_action: transition is not allowed")

	// ErrNoPaymentMethod возвращается, когда нужно списание, а карта не сохранена
	ErrNoPaymentMethod = errors.New("booking_action: booking has no saved payment method")

	// ErrPayoutAccountMissing возвращается, когда у бизнеса нет аккаунта для выплат
	ErrPayoutAccountMissing = errors.New("booking_action: business has no payout account")

	// ErrGatewayFailure возвращается при временной недоступности платёжного шлюза
	// Ничего не записано, запрос можно повторить с тем же ключом
	ErrGatewayFailure = errors.New("booking_action: payment gateway failure")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("booking_action: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("booking_action: internal error")
)
