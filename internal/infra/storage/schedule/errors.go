package schedule

import "errors"

var (
	ErrBuildQuery = errors.New("schedule.repository: failed to build query")
	ErrExecQuery  = errors.New("schedule.repository: failed to execute query")
	ErrScanRow    = errors.New("schedule.repository: failed to scan row")
)
