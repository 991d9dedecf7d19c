package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidTimeString = errors.New("invalid time string format")

const minutesPerDay = 24 * 60

// TimeString время суток в формате "HH:MM" (локальное время бизнеса)
type TimeString string

// NewTimeString берёт часы и минуты из time.Time
func NewTimeString(t time.Time) TimeString {
	return TimeString(fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute()))
}

// NewTimeStringFromString парсит "HH:MM" или "HH:MM:SS"
func NewTimeStringFromString(s string) (TimeString, error) {
	ts := TimeString(normalize(s))
	if err := ts.Validate(); err != nil {
		return "", err
	}
	return ts, nil
}

// NewTimeStringFromMinutes строит время из минут от полуночи
func NewTimeStringFromMinutes(m int) (TimeString, error) {
	if m < 0 || m >= minutesPerDay {
		return "", fmt.Errorf("%w: minutes out of range: %d", ErrInvalidTimeString, m)
	}
	return TimeString(fmt.Sprintf("%02d:%02d", m/60, m%60)), nil
}

func normalize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == len("15:04:05") {
		return s[:5]
	}
	return s
}

// Validate проверяет формат
func (t TimeString) Validate() error {
	if len(t) != len("15:04") {
		return fmt.Errorf("%w: %q", ErrInvalidTimeString, string(t))
	}
	if _, err := time.Parse("15:04", string(t)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimeString, string(t))
	}
	return nil
}

func (t TimeString) IsZero() bool {
	return t == ""
}

func (t TimeString) String() string {
	return string(t)
}

// Minutes минуты от полуночи
func (t TimeString) Minutes() (int, error) {
	parsed, err := time.Parse("15:04", string(t))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeString, string(t))
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// Clock возвращает часы и минуты
func (t TimeString) Clock() (hour, minute int, err error) {
	m, err := t.Minutes()
	if err != nil {
		return 0, 0, err
	}
	return m / 60, m % 60, nil
}

// AddMinutes сдвигает время в пределах суток
func (t TimeString) AddMinutes(delta int) (TimeString, error) {
	m, err := t.Minutes()
	if err != nil {
		return "", err
	}
	return NewTimeStringFromMinutes(m + delta)
}

func (t TimeString) IsBefore(other TimeString) bool {
	return t.compare(other) < 0
}

func (t TimeString) IsAfter(other TimeString) bool {
	return t.compare(other) > 0
}

// compare работает на строках: формат фиксированной ширины сортируется лексикографически
func (t TimeString) compare(other TimeString) int {
	return strings.Compare(string(t), string(other))
}

// On возвращает момент времени на указанную дату в указанной зоне
func (t TimeString) On(year int, month time.Month, day int, loc *time.Location) (time.Time, error) {
	h, m, err := t.Clock()
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, month, day, h, m, 0, 0, loc), nil
}

// Scan реализует sql.Scanner для колонок TIME
func (t *TimeString) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = ""
		return nil
	case string:
		return t.set(v)
	case []byte:
		return t.set(string(v))
	case time.Time:
		*t = NewTimeString(v)
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidTimeString, value)
	}
}

func (t *TimeString) set(s string) error {
	parsed, err := NewTimeStringFromString(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value реализует driver.Valuer
func (t TimeString) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return string(t), nil
}
