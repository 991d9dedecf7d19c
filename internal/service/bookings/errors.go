package bookings

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено или принадлежит другому бизнесу
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidCursor возвращается при поврежденном курсоре страницы
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("service: internal error")
)
