package create_booking

import (
	"time"

	createBooking "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_booking"
)

// CreateBookingRequest HTTP request model
type CreateBookingRequest struct {
	BusinessID int64           `json:"businessId"`
	ServiceID  int64           `json:"serviceId"`
	StaffID    int64           `json:"staffId"`
	StartAt    time.Time       `json:"startAt"` // RFC 3339, момент начала слота из GET slots
	Customer   CustomerRequest `json:"customer"`
	GiftCode   *string         `json:"giftCode,omitempty"`
}

// CustomerRequest контактные данные клиента
type CustomerRequest struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// BookingResponse HTTP response model
type BookingResponse struct {
	BookingID     int64     `json:"bookingId"`
	BookingCode   string    `json:"bookingCode"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	StaffID       int64     `json:"staffId"`
	StaffName     string    `json:"staffName"`
	ServiceID     int64     `json:"serviceId"`
	ServiceName   string    `json:"serviceName"`
	StartAt       time.Time `json:"startAt"`
	EndAt         time.Time `json:"endAt"`

	BasePrice      int64  `json:"basePrice"`
	DiscountAmount int64  `json:"discountAmount"`
	FinalPrice     int64  `json:"finalPrice"`
	Currency       string `json:"currency"`

	CancellationPolicyText string `json:"cancellationPolicyText"`
	NoShowPolicyText       string `json:"noShowPolicyText"`

	PaymentSetupHandle  string `json:"paymentSetupHandle"`
	PaymentSetupPending bool   `json:"paymentSetupPending"`

	CreatedAt string `json:"createdAt"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateBookingRequest) ToUseCaseRequest(consentIP, userAgent string) *createBooking.Request {
	return &createBooking.Request{
		BusinessID: r.BusinessID,
		ServiceID:  r.ServiceID,
		StaffID:    r.StaffID,
		StartAt:    r.StartAt,
		Customer: createBooking.Customer{
			Name:  r.Customer.Name,
			Email: r.Customer.Email,
			Phone: r.Customer.Phone,
		},
		GiftCode:         r.GiftCode,
		ConsentIP:        consentIP,
		ConsentUserAgent: userAgent,
	}
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createBooking.Response) *BookingResponse {
	return &BookingResponse{
		BookingID:              resp.BookingID,
		BookingCode:            resp.BookingCode,
		Status:                 resp.Status,
		PaymentStatus:          resp.PaymentStatus,
		StaffID:                resp.StaffID,
		StaffName:              resp.StaffName,
		ServiceID:              resp.ServiceID,
		ServiceName:            resp.ServiceName,
		StartAt:                resp.StartAt.UTC(),
		EndAt:                  resp.EndAt.UTC(),
		BasePrice:              resp.BasePrice,
		DiscountAmount:         resp.DiscountAmount,
		FinalPrice:             resp.FinalPrice,
		Currency:               resp.Currency,
		CancellationPolicyText: resp.CancellationPolicyText,
		NoShowPolicyText:       resp.NoShowPolicyText,
		PaymentSetupHandle:     resp.PaymentSetupHandle,
		PaymentSetupPending:    resp.PaymentSetupPending,
		CreatedAt:              resp.CreatedAt.Format(time.RFC3339),
	}
}
