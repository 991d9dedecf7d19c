package domain

import "time"

// IdempotencyRetention how long idempotency records are kept
const IdempotencyRetention = 30 * 24 * time.Hour

// IdempotencyRecord caches the response of a processed request under (key, route)
type IdempotencyRecord struct {
	Key       string
	Route     string
	BookingID int64
	Response  []byte // JSON of ActionResult
	CreatedAt time.Time
	ExpiresAt time.Time
}
