package retry_payment_setup

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено или код не совпадает
	ErrBookingNotFound = errors.New("retry_payment_setup: booking not found")

	// ErrSetupNotAllowed возвращается, когда бронирование не ждёт сохранения карты
	ErrSetupNotAllowed = errors.New("retry_payment_setup: payment setup is not allowed in current state")

	// ErrGatewayFailure возвращается, когда шлюз снова не ответил
	ErrGatewayFailure = errors.New("retry_payment_setup: payment gateway failure")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("retry_payment_setup: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("retry_payment_setup: internal error")
)
