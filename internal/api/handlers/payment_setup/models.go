package payment_setup

import retryPaymentSetup "github.com/m04kA/SMC-AppointmentService/internal/usecase/retry_payment_setup"

// PaymentSetupRequest HTTP request model
type PaymentSetupRequest struct {
	BookingCode string `json:"bookingCode"`
}

// PaymentSetupResponse HTTP response model
type PaymentSetupResponse struct {
	BookingID          int64  `json:"bookingId"`
	BookingCode        string `json:"bookingCode"`
	PaymentStatus      string `json:"paymentStatus"`
	PaymentSetupHandle string `json:"paymentSetupHandle"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *PaymentSetupRequest) ToUseCaseRequest(bookingID int64) *retryPaymentSetup.Request {
	return &retryPaymentSetup.Request{
		BookingID:   bookingID,
		BookingCode: r.BookingCode,
	}
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *retryPaymentSetup.Response) *PaymentSetupResponse {
	return &PaymentSetupResponse{
		BookingID:          resp.BookingID,
		BookingCode:        resp.BookingCode,
		PaymentStatus:      resp.PaymentStatus,
		PaymentSetupHandle: resp.PaymentSetupHandle,
	}
}
