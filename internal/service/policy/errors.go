package policy

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid policy data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("policy service: internal error")
)
