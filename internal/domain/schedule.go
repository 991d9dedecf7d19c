package domain

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// AvailabilityRule is a recurring weekly window in business-local time
type AvailabilityRule struct {
	ID         int64
	BusinessID int64
	StaffID    int64
	ServiceID  int64
	Weekday    time.Weekday
	StartTime  types.TimeString
	EndTime    types.TimeString
}

// Window resolves the rule to instants on the given local date
func (r AvailabilityRule) Window(date time.Time, loc *time.Location) (TimeRange, error) {
	y, m, d := date.Date()
	start, err := r.StartTime.On(y, m, d, loc)
	if err != nil {
		return TimeRange{}, err
	}
	end, err := r.EndTime.On(y, m, d, loc)
	if err != nil {
		return TimeRange{}, err
	}
	return TimeRange{Start: start, End: end}, nil
}

// Blackout removes a window from availability
// StaffID == nil means the blackout applies to the whole business
type Blackout struct {
	ID         int64
	BusinessID int64
	StaffID    *int64
	StartAt    time.Time
	EndAt      time.Time
	Reason     *string
}

// AppliesTo returns true if the blackout affects the given staff member
func (b Blackout) AppliesTo(staffID int64) bool {
	return b.StaffID == nil || *b.StaffID == staffID
}

func (b Blackout) TimeRange() TimeRange {
	return TimeRange{Start: b.StartAt, End: b.EndAt}
}
