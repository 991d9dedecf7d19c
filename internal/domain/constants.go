package domain

import "time"

// Default policy values
const (
	DefaultLeadTimeMinutes = 120
	DefaultAdvanceDays     = 60
)

// SlotStride is the step used to walk availability rules
const SlotStride = 15 * time.Minute

// Business validation constants
const (
	MinLeadTimeMinutes  = 0
	MaxLeadTimeMinutes  = 10080 // 1 week
	MinAdvanceDays      = 0
	MaxAdvanceDays      = 365 // 1 year
	MaxPolicyTextLength = 2000
	MaxCustomerName     = 200

	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// BookingCodePrefix prefix of human-readable booking codes
const BookingCodePrefix = "BK-"

// ActiveStatuses statuses that hold a slot
// Must match the predicate of the partial unique index bookings_active_slot_uidx
var ActiveStatuses = []BookingStatus{
	StatusPending,
	StatusHeld,
}

// ActiveStatusStrings ActiveStatuses as strings for SQL builders
func ActiveStatusStrings() []string {
	out := make([]string, len(ActiveStatuses))
	for i, s := range ActiveStatuses {
		out[i] = string(s)
	}
	return out
}
