package notifications

import "time"

// EventType тип уведомления о бронировании
type EventType string

const (
	EventBookingCreated   EventType = "booking_created"
	EventBookingCompleted EventType = "booking_completed"
	EventFeeCharged       EventType = "fee_charged"
	EventRefunded         EventType = "refunded"
	EventBookingCancelled EventType = "booking_cancelled"
)

// RoutingKey ключ маршрутизации в topic exchange
func (t EventType) RoutingKey() string {
	return "booking." + string(t)
}

// Event полезная нагрузка уведомления. Доставку (email/SMS, шаблоны) выполняет внешний сервис
type Event struct {
	Type          EventType `json:"type"`
	BookingID     int64     `json:"bookingId"`
	BookingCode   string    `json:"bookingCode"`
	BusinessID    int64     `json:"businessId"`
	ServiceID     int64     `json:"serviceId"`
	StaffID       int64     `json:"staffId"`
	StartAt       time.Time `json:"startAt"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail *string   `json:"customerEmail,omitempty"`
	CustomerPhone *string   `json:"customerPhone,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}
