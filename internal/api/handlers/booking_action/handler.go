package booking_action

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	bookingAction "github.com/m04kA/SMC-AppointmentService/internal/usecase/booking_action"
)

const (
	msgInvalidBookingID   = "некорректный ID бронирования"
	msgUnknownAction      = "неизвестное действие"
	msgMissingBusinessID  = "отсутствует ID бизнеса"
	msgMissingKey         = "заголовок Idempotency-Key обязателен"
	msgInvalidInput       = "некорректные параметры запроса"
	msgNotFound           = "бронирование не найдено"
	msgInProgress         = "запрос с этим ключом идемпотентности уже выполняется"
	msgKeyReused          = "ключ идемпотентности уже использован для другого бронирования"
	msgInvalidTransition  = "действие недопустимо в текущем статусе бронирования"
	msgNoPaymentMethod    = "у бронирования нет сохраненной карты"
	msgPayoutMissing      = "у бизнеса не настроен счет для выплат"
	msgGatewayUnavailable = "платежный шлюз недоступен, повторите запрос с тем же ключом"
)

type Handler struct {
	useCase BookingActionUseCase
	logger  Logger
}

func NewHandler(useCase BookingActionUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings/{bookingId}/{action}
// action: complete, no-show, cancel, refund. Заголовок Idempotency-Key обязателен
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := handlers.PathInt64(r, "bookingId")
	if err != nil {
		h.logger.Warn("POST /bookings/{id}/{action} - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	action, err := domain.ParseAction(mux.Vars(r)["action"])
	if err != nil {
		h.logger.Warn("POST /bookings/{id}/{action} - Unknown action: %v", err)
		handlers.RespondNotFound(w, msgUnknownAction)
		return
	}

	businessID, ok := middleware.GetBusinessID(r.Context())
	if !ok {
		h.logger.Warn("POST /bookings/{id}/%s - Missing business ID", action)
		handlers.RespondUnauthorized(w, msgMissingBusinessID)
		return
	}

	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if key == "" {
		h.logger.Warn("POST /bookings/{id}/%s - Missing idempotency key: booking_id=%d", action, bookingID)
		handlers.RespondBadRequest(w, msgMissingKey)
		return
	}

	result, err := h.useCase.Execute(r.Context(), ToUseCaseRequest(bookingID, businessID, action, key))
	if err != nil {
		switch {
		case errors.Is(err, bookingAction.ErrMissingIdempotencyKey):
			handlers.RespondBadRequest(w, msgMissingKey)

		case errors.Is(err, bookingAction.ErrInvalidInput):
			h.logger.Warn("POST /bookings/{id}/%s - Invalid input: %v", action, err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, bookingAction.ErrBookingNotFound):
			h.logger.Warn("POST /bookings/{id}/%s - Booking not found: booking_id=%d, business_id=%d",
				action, bookingID, businessID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, bookingAction.ErrRequestInProgress):
			h.logger.Warn("POST /bookings/{id}/%s - Request in progress: booking_id=%d", action, bookingID)
			handlers.RespondConflict(w, msgInProgress)

		case errors.Is(err, bookingAction.ErrInvalidTransition):
			h.logger.Warn("POST /bookings/{id}/%s - Invalid transition: booking_id=%d", action, bookingID)
			handlers.RespondConflict(w, msgInvalidTransition)

		case errors.Is(err, bookingAction.ErrIdempotencyKeyReused):
			h.logger.Warn("POST /bookings/{id}/%s - Idempotency key reused: booking_id=%d", action, bookingID)
			handlers.RespondUnprocessable(w, msgKeyReused)

		case errors.Is(err, bookingAction.ErrNoPaymentMethod):
			h.logger.Warn("POST /bookings/{id}/%s - No payment method: booking_id=%d", action, bookingID)
			handlers.RespondUnprocessable(w, msgNoPaymentMethod)

		case errors.Is(err, bookingAction.ErrPayoutAccountMissing):
			h.logger.Warn("POST /bookings/{id}/%s - Payout account missing: business_id=%d", action, businessID)
			handlers.RespondUnprocessable(w, msgPayoutMissing)

		case errors.Is(err, bookingAction.ErrGatewayFailure):
			h.logger.Error("POST /bookings/{id}/%s - Gateway failure: booking_id=%d, error=%v", action, bookingID, err)
			handlers.RespondBadGateway(w, msgGatewayUnavailable)

		default:
			h.logger.Error("POST /bookings/{id}/%s - Failed to perform action: booking_id=%d, error=%v",
				action, bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	if result.Replayed {
		w.Header().Set(HeaderReplayed, "true")
	}

	h.logger.Info("POST /bookings/{id}/%s - Action done: booking_id=%d, result=%s, amount=%d, replayed=%t",
		action, bookingID, result.Result.ResultStatus, result.Result.Amount, result.Replayed)
	handlers.RespondJSON(w, statusCode(result.Result), FromUseCaseResponse(result))
}
