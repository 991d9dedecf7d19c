package booking

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("booking.repository: booking not found")

	// ErrSlotTaken возвращается, когда активное бронирование сотрудника уже занимает это время
	ErrSlotTaken = errors.New("booking.repository: slot already taken")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("booking.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("booking.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("booking.repository: failed to scan row")

	// ErrEncode возвращается при ошибке сериализации снимка политики
	ErrEncode = errors.New("booking.repository: failed to encode policy snapshot")
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
	activeSlotIndex      = "bookings_active_slot_uidx"
	activeOverlapExcl    = "bookings_active_overlap_excl"
)

// isActiveSlotViolation проверяет, что ошибка - нарушение частичного уникального индекса слота
// или ограничения на пересечение активных бронирований
func isActiveSlotViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return pqErr.Constraint == "" || pqErr.Constraint == activeSlotIndex
	case pqExclusionViolation:
		return pqErr.Constraint == "" || pqErr.Constraint == activeOverlapExcl
	}
	return false
}
