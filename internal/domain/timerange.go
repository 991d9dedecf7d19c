package domain

import "time"

// TimeRange is a half-open interval [Start, End)
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps returns true if the two half-open ranges intersect
// Touching ranges (one ends where the other starts) do not overlap
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Duration returns the length of the range
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// DayRange returns [local midnight, next local midnight) for the given date in loc
// The range is 23 or 25 hours long on DST transition days
func DayRange(date time.Time, loc *time.Location) TimeRange {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return TimeRange{Start: start, End: end}
}
