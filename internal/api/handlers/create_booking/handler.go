package create_booking

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	createBooking "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_booking"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidInput       = "некорректные данные бронирования"
	msgSlotConflict       = "выбранный слот уже занят, обновите список слотов"
	msgSlotNotBookable    = "выбранный слот недоступен для записи"
	msgGiftCardInvalid    = "подарочная карта недействительна"
	msgBusinessNotFound   = "бизнес не найден"
	msgServiceNotFound    = "услуга не найдена"
)

type Handler struct {
	useCase CreateBookingUseCase
	logger  Logger
}

func NewHandler(useCase CreateBookingUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	// Согласие клиента фиксируется по адресу и user agent запроса
	useCaseReq := req.ToUseCaseRequest(middleware.ClientIP(r), r.UserAgent())

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, createBooking.ErrSlotConflict):
			h.logger.Warn("POST /bookings - Slot conflict: business_id=%d, staff_id=%d, start_at=%s",
				req.BusinessID, req.StaffID, req.StartAt)
			handlers.RespondConflict(w, msgSlotConflict)

		case errors.Is(err, createBooking.ErrSlotNotBookable):
			h.logger.Warn("POST /bookings - Slot not bookable: business_id=%d, staff_id=%d, start_at=%s",
				req.BusinessID, req.StaffID, req.StartAt)
			handlers.RespondBadRequest(w, msgSlotNotBookable)

		case errors.Is(err, createBooking.ErrGiftCardInvalid):
			h.logger.Warn("POST /bookings - Gift card invalid: business_id=%d", req.BusinessID)
			handlers.RespondBadRequest(w, msgGiftCardInvalid)

		case errors.Is(err, createBooking.ErrInvalidInput):
			h.logger.Warn("POST /bookings - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, createBooking.ErrBusinessNotFound):
			h.logger.Warn("POST /bookings - Business not found: business_id=%d", req.BusinessID)
			handlers.RespondNotFound(w, msgBusinessNotFound)

		case errors.Is(err, createBooking.ErrServiceNotFound):
			h.logger.Warn("POST /bookings - Service not found: business_id=%d, service_id=%d", req.BusinessID, req.ServiceID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		default:
			h.logger.Error("POST /bookings - Failed to create booking: business_id=%d, error=%v", req.BusinessID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /bookings - Booking created successfully: booking_id=%d, code=%s, business_id=%d, setup_pending=%t",
		result.BookingID, result.BookingCode, req.BusinessID, result.PaymentSetupPending)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result))
}
