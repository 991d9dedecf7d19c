package giftcard

import "errors"

var (
	// ErrGiftCardNotFound возвращается, когда подарочная карта не найдена
	ErrGiftCardNotFound = errors.New("giftcard.repository: gift card not found")

	ErrBuildQuery = errors.New("giftcard.repository: failed to build query")
	ErrExecQuery  = errors.New("giftcard.repository: failed to execute query")
	ErrScanRow    = errors.New("giftcard.repository: failed to scan row")
)
