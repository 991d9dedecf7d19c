package domain

import (
	"time"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusHeld      BookingStatus = "held"
	StatusCompleted BookingStatus = "completed"
	StatusNoShow    BookingStatus = "no_show"
	StatusCancelled BookingStatus = "cancelled"
	StatusRefunded  BookingStatus = "refunded"
	// StatusExpired is set by the reaper on abandoned holds, it frees the slot
	StatusExpired BookingStatus = "expired"
)

// PaymentStatus represents the money side of a booking
type PaymentStatus string

const (
	PaymentNone          PaymentStatus = "none"
	PaymentCardSaved     PaymentStatus = "card_saved"
	PaymentChargePending PaymentStatus = "charge_pending"
	PaymentCharged       PaymentStatus = "charged"
	PaymentFailed        PaymentStatus = "failed"
	PaymentRefunded      PaymentStatus = "refunded"
)

// CustomerInfo contact data of the person who booked
type CustomerInfo struct {
	Name  string
	Email string
	Phone *string
}

// ConsentMetadata is captured once at booking creation and never changes
type ConsentMetadata struct {
	At        time.Time `json:"at"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
}

// Discount is the gift card reference frozen onto a booking
type Discount struct {
	GiftCardID int64
	Type       GiftCardType
	Amount     int64
}

// Booking represents a customer's reservation of a staff member's time
type Booking struct {
	ID         int64
	Code       string
	BusinessID int64
	ServiceID  int64
	StaffID    int64

	StartAt time.Time // UTC
	EndAt   time.Time // UTC

	Status        BookingStatus
	PaymentStatus PaymentStatus

	// Amounts in minor currency units
	BasePrice      int64
	DiscountAmount int64
	FinalPrice     int64
	Currency       string

	Customer CustomerInfo
	Policy   PolicySnapshot
	Consent  ConsentMetadata
	Discount *Discount

	// Payment gateway references
	GatewayCustomerID *string
	SetupIntentID     *string
	SetupClientSecret *string

	// Denormalized data for history
	ServiceName string
	StaffName   string

	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive returns true if the booking still occupies its slot
func (b *Booking) IsActive() bool {
	return IsActiveStatus(b.Status)
}

// IsTerminal returns true for completed, no_show, cancelled, refunded and expired bookings
func (b *Booking) IsTerminal() bool {
	return !b.IsActive()
}

// HasSavedCard returns true if a payment method save handshake was initiated successfully
func (b *Booking) HasSavedCard() bool {
	return b.GatewayCustomerID != nil && b.SetupIntentID != nil
}

// TimeRange returns the occupied window [StartAt, EndAt)
func (b *Booking) TimeRange() TimeRange {
	return TimeRange{Start: b.StartAt, End: b.EndAt}
}

// IsActiveStatus reports whether the status holds the (staff, start) slot
func IsActiveStatus(s BookingStatus) bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// IsValidBookingStatus checks that s is a known status
func IsValidBookingStatus(s BookingStatus) bool {
	switch s {
	case StatusPending, StatusHeld, StatusCompleted, StatusNoShow, StatusCancelled, StatusRefunded, StatusExpired:
		return true
	}
	return false
}

// BookingsFilter фильтр для постраничного списка бронирований бизнеса
type BookingsFilter struct {
	BusinessID int64
	Status     *BookingStatus
	From       *time.Time // start_at >= From
	To         *time.Time // start_at < To
	After      *BookingCursor
	Limit      int
}

// BookingCursor keyset position, list is ordered by (start_at DESC, id DESC)
type BookingCursor struct {
	StartAt time.Time
	ID      int64
}
