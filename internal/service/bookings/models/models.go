package models

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

var (
	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid booking status")

	// ErrInvalidCursor возвращается, если курсор не декодируется
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidRange возвращается, если from не раньше to
	ErrInvalidRange = errors.New("invalid date range")
)

// Request модели

// ListBookingsRequest запрос страницы бронирований бизнеса
type ListBookingsRequest struct {
	BusinessID int64
	Status     *string
	From       *time.Time
	To         *time.Time
	Cursor     string
	Limit      int
}

// ToDomainFilter конвертирует request в domain фильтр
// Лимит приводится к [1, MaxPageLimit], по умолчанию DefaultPageLimit
func (r *ListBookingsRequest) ToDomainFilter() (domain.BookingsFilter, error) {
	filter := domain.BookingsFilter{
		BusinessID: r.BusinessID,
		From:       r.From,
		To:         r.To,
		Limit:      r.Limit,
	}

	switch {
	case filter.Limit <= 0:
		filter.Limit = domain.DefaultPageLimit
	case filter.Limit > domain.MaxPageLimit:
		filter.Limit = domain.MaxPageLimit
	}

	if r.Status != nil {
		status, err := ToDomainBookingStatus(*r.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	if r.From != nil && r.To != nil && !r.From.Before(*r.To) {
		return filter, ErrInvalidRange
	}

	if r.Cursor != "" {
		cursor, err := DecodeCursor(r.Cursor)
		if err != nil {
			return filter, err
		}
		filter.After = cursor
	}

	return filter, nil
}

// Response модели

// PaymentResponse запись журнала платежей
type PaymentResponse struct {
	ID                int64     `json:"id"`
	Action            string    `json:"action"`
	Amount            int64     `json:"amount"`
	PlatformFee       int64     `json:"platformFee"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	ExternalReference *string   `json:"externalReference,omitempty"`
	FailureReason     *string   `json:"failureReason,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// DiscountResponse скидка по подарочному сертификату
type DiscountResponse struct {
	GiftCardID int64  `json:"giftCardId"`
	Type       string `json:"type"`
	Amount     int64  `json:"amount"`
}

// BookingResponse ответ с данными бронирования
type BookingResponse struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	BusinessID    int64     `json:"businessId"`
	ServiceID     int64     `json:"serviceId"`
	StaffID       int64     `json:"staffId"`
	StartAt       time.Time `json:"startAt"`
	EndAt         time.Time `json:"endAt"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`

	BasePrice      int64  `json:"basePrice"`
	DiscountAmount int64  `json:"discountAmount"`
	FinalPrice     int64  `json:"finalPrice"`
	Currency       string `json:"currency"`

	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	CustomerPhone *string `json:"customerPhone,omitempty"`

	// Денормализованные данные
	ServiceName string `json:"serviceName"`
	StaffName   string `json:"staffName"`

	Policy   domain.PolicySnapshot  `json:"policy"`
	Consent  domain.ConsentMetadata `json:"consent"`
	Discount *DiscountResponse      `json:"discount,omitempty"`

	Payments []PaymentResponse `json:"payments,omitempty"`

	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// BookingListResponse ответ со страницей бронирований
type BookingListResponse struct {
	Bookings   []BookingResponse `json:"bookings"`
	NextCursor *string           `json:"nextCursor,omitempty"`
}

// Методы конвертации

// FromDomainBooking конвертирует domain модель в DTO
func FromDomainBooking(b *domain.Booking) *BookingResponse {
	if b == nil {
		return nil
	}

	resp := &BookingResponse{
		ID:             b.ID,
		Code:           b.Code,
		BusinessID:     b.BusinessID,
		ServiceID:      b.ServiceID,
		StaffID:        b.StaffID,
		StartAt:        b.StartAt.UTC(),
		EndAt:          b.EndAt.UTC(),
		Status:         string(b.Status),
		PaymentStatus:  string(b.PaymentStatus),
		BasePrice:      b.BasePrice,
		DiscountAmount: b.DiscountAmount,
		FinalPrice:     b.FinalPrice,
		Currency:       b.Currency,
		CustomerName:   b.Customer.Name,
		CustomerEmail:  b.Customer.Email,
		CustomerPhone:  b.Customer.Phone,
		ServiceName:    b.ServiceName,
		StaffName:      b.StaffName,
		Policy:         b.Policy,
		Consent:        b.Consent,
		ClosedAt:       b.ClosedAt,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}

	if b.Discount != nil {
		resp.Discount = &DiscountResponse{
			GiftCardID: b.Discount.GiftCardID,
			Type:       string(b.Discount.Type),
			Amount:     b.Discount.Amount,
		}
	}

	return resp
}

// FromDomainPayments конвертирует журнал платежей в DTO
func FromDomainPayments(payments []*domain.BookingPayment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, PaymentResponse{
			ID:                p.ID,
			Action:            string(p.Action),
			Amount:            p.Amount,
			PlatformFee:       p.PlatformFee,
			Currency:          p.Currency,
			Status:            string(p.Status),
			ExternalReference: p.ExternalReference,
			FailureReason:     p.FailureReason,
			CreatedAt:         p.CreatedAt,
		})
	}
	return out
}

// FromDomainBookingList конвертирует страницу domain моделей в DTO
func FromDomainBookingList(bookings []*domain.Booking, next *domain.BookingCursor) *BookingListResponse {
	resp := &BookingListResponse{
		Bookings: make([]BookingResponse, 0, len(bookings)),
	}

	for _, b := range bookings {
		resp.Bookings = append(resp.Bookings, *FromDomainBooking(b))
	}

	if next != nil {
		cursor := EncodeCursor(*next)
		resp.NextCursor = &cursor
	}

	return resp
}

// Курсор

type cursorPayload struct {
	StartAt time.Time `json:"s"`
	ID      int64     `json:"i"`
}

// EncodeCursor кодирует позицию страницы в непрозрачную строку
func EncodeCursor(c domain.BookingCursor) string {
	raw, _ := json.Marshal(cursorPayload{StartAt: c.StartAt.UTC(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor декодирует курсор, полученный от клиента
func DecodeCursor(s string) (*domain.BookingCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if p.ID <= 0 || p.StartAt.IsZero() {
		return nil, ErrInvalidCursor
	}

	return &domain.BookingCursor{StartAt: p.StartAt, ID: p.ID}, nil
}

// ToDomainBookingStatus конвертирует строку в статус бронирования
func ToDomainBookingStatus(s string) (domain.BookingStatus, error) {
	status := domain.BookingStatus(s)
	if !domain.IsValidBookingStatus(status) {
		return "", fmt.Errorf("%w: %s", ErrInvalidStatus, s)
	}
	return status, nil
}
