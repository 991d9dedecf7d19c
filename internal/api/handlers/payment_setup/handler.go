package payment_setup

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	retryPaymentSetup "github.com/m04kA/SMC-AppointmentService/internal/usecase/retry_payment_setup"
)

const (
	msgInvalidBookingID   = "некорректный ID бронирования"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidInput       = "код бронирования обязателен"
	msgNotFound           = "бронирование не найдено"
	msgNotAllowed         = "бронирование не ожидает сохранения карты"
	msgGatewayUnavailable = "платежный шлюз недоступен, повторите позже"
)

type Handler struct {
	useCase RetryPaymentSetupUseCase
	logger  Logger
}

func NewHandler(useCase RetryPaymentSetupUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings/{bookingId}/payment-setup
// Публичный endpoint: клиент подтверждает владение бронированием кодом
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := handlers.PathInt64(r, "bookingId")
	if err != nil {
		h.logger.Warn("POST /bookings/{id}/payment-setup - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	var req PaymentSetupRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings/{id}/payment-setup - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(bookingID))
	if err != nil {
		switch {
		case errors.Is(err, retryPaymentSetup.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, retryPaymentSetup.ErrBookingNotFound):
			h.logger.Warn("POST /bookings/{id}/payment-setup - Booking not found: booking_id=%d", bookingID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, retryPaymentSetup.ErrSetupNotAllowed):
			h.logger.Warn("POST /bookings/{id}/payment-setup - Setup not allowed: booking_id=%d", bookingID)
			handlers.RespondUnprocessable(w, msgNotAllowed)

		case errors.Is(err, retryPaymentSetup.ErrGatewayFailure):
			h.logger.Error("POST /bookings/{id}/payment-setup - Gateway failure: booking_id=%d, error=%v", bookingID, err)
			handlers.RespondBadGateway(w, msgGatewayUnavailable)

		default:
			h.logger.Error("POST /bookings/{id}/payment-setup - Failed to retry setup: booking_id=%d, error=%v",
				bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /bookings/{id}/payment-setup - Card setup initiated: booking_id=%d", bookingID)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
