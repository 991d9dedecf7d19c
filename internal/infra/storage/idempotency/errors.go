package idempotency

import "errors"

var (
	// ErrRecordNotFound возвращается, когда запись по (key, route) отсутствует
	ErrRecordNotFound = errors.New("idempotency.repository: record not found")

	ErrBuildQuery = errors.New("idempotency.repository: failed to build query")
	ErrExecQuery  = errors.New("idempotency.repository: failed to execute query")
	ErrScanRow    = errors.New("idempotency.repository: failed to scan row")
)
