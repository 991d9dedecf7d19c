package create_booking

import (
	"time"
)

// Request модель запроса на создание бронирования
type Request struct {
	BusinessID int64     `json:"businessId" validate:"gt=0"`
	ServiceID  int64     `json:"serviceId" validate:"gt=0"`
	StaffID    int64     `json:"staffId" validate:"gt=0"`
	StartAt    time.Time `json:"startAt" validate:"required"`
	Customer   Customer  `json:"customer"`
	GiftCode   *string   `json:"giftCode" validate:"omitempty,max=64"`

	// Согласие клиента, фиксируется из контекста запроса
	ConsentIP        string `json:"-"`
	ConsentUserAgent string `json:"-"`
}

// Customer контактные данные клиента
type Customer struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Email string  `json:"email" validate:"required,email"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
}

// Response модель ответа с созданным бронированием
type Response struct {
	BookingID     int64
	BookingCode   string
	Status        string
	PaymentStatus string

	StaffID     int64
	StaffName   string
	ServiceID   int64
	ServiceName string
	StartAt     time.Time
	EndAt       time.Time

	// Суммы в минорных единицах
	BasePrice      int64
	DiscountAmount int64
	FinalPrice     int64
	Currency       string

	// Тексты политики, показанные клиенту
	CancellationPolicyText string
	NoShowPolicyText       string

	// PaymentSetupHandle client secret для подтверждения карты на фронтенде
	// Пусто, если сохранение карты не удалось инициировать (PaymentSetupPending = true)
	PaymentSetupHandle  string
	PaymentSetupPending bool

	CreatedAt time.Time
}
