package booking_action

import (
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	bookingAction "github.com/m04kA/SMC-AppointmentService/internal/usecase/booking_action"
)

const (
	// HeaderIdempotencyKey обязательный заголовок денежных действий
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderReplayed выставляется, когда ответ взят из хранилища идемпотентности
	HeaderReplayed = "Idempotent-Replayed"
)

// ActionResponse HTTP response model
type ActionResponse struct {
	BookingID         int64  `json:"bookingId"`
	Action            string `json:"action"`
	ResultStatus      string `json:"resultStatus"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	ExternalReference string `json:"externalReference,omitempty"`
	BookingStatus     string `json:"bookingStatus"`
	PaymentStatus     string `json:"paymentStatus"`
	FailureReason     string `json:"failureReason,omitempty"`
}

// ToUseCaseRequest формирует запрос use case
func ToUseCaseRequest(bookingID, businessID int64, action domain.Action, key string) *bookingAction.Request {
	return &bookingAction.Request{
		BookingID:      bookingID,
		BusinessID:     businessID,
		Action:         action,
		IdempotencyKey: key,
	}
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *bookingAction.Response) *ActionResponse {
	res := resp.Result
	return &ActionResponse{
		BookingID:         res.BookingID,
		Action:            string(res.Action),
		ResultStatus:      string(res.ResultStatus),
		Amount:            res.Amount,
		Currency:          res.Currency,
		ExternalReference: res.ExternalReference,
		BookingStatus:     string(res.BookingStatus),
		PaymentStatus:     string(res.PaymentStatus),
		FailureReason:     res.FailureReason,
	}
}

// statusCode HTTP код результата: отказ карты отдается как 402 и так же повторяется по ключу
func statusCode(res domain.ActionResult) int {
	if res.ResultStatus == domain.ResultFailed {
		return http.StatusPaymentRequired
	}
	return http.StatusOK
}
