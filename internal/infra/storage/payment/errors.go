package payment

import "errors"

var (
	// ErrPaymentNotFound возвращается, когда платёжная запись не найдена
	ErrPaymentNotFound = errors.New("payment.repository: payment record not found")

	ErrBuildQuery = errors.New("payment.repository: failed to build query")
	ErrExecQuery  = errors.New("payment.repository: failed to execute query")
	ErrScanRow    = errors.New("payment.repository: failed to scan row")
)
