package list_bookings

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/service/bookings"
)

const (
	msgInvalidBusinessID = "некорректный ID бизнеса"
	msgMissingBusinessID = "отсутствует ID бизнеса"
	msgInvalidParams     = "некорректные параметры запроса"
	msgInvalidCursor     = "некорректный курсор"
	msgForbidden         = "доступ запрещен"
)

type Handler struct {
	service BookingService
	logger  Logger
}

func NewHandler(service BookingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/businesses/{businessId}/bookings
// Query params: status, from, to, cursor, limit (опционально)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	businessID, err := handlers.PathInt64(r, "businessId")
	if err != nil {
		h.logger.Warn("GET /businesses/{id}/bookings - Invalid business ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBusinessID)
		return
	}

	ownerID, ok := middleware.GetBusinessID(r.Context())
	if !ok {
		h.logger.Warn("GET /businesses/{id}/bookings - Missing business ID")
		handlers.RespondUnauthorized(w, msgMissingBusinessID)
		return
	}
	if ownerID != businessID {
		h.logger.Warn("GET /businesses/{id}/bookings - Access denied: business_id=%d, owner=%d", businessID, ownerID)
		handlers.RespondForbidden(w, msgForbidden)
		return
	}

	serviceReq, err := ToServiceRequest(businessID, r.URL.Query())
	if err != nil {
		h.logger.Warn("GET /businesses/{id}/bookings - Invalid parameters: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	result, err := h.service.ListBusinessBookings(r.Context(), serviceReq)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrInvalidCursor):
			h.logger.Warn("GET /businesses/{id}/bookings - Invalid cursor: business_id=%d, error=%v", businessID, err)
			handlers.RespondBadRequest(w, msgInvalidCursor)

		case errors.Is(err, bookings.ErrInvalidInput):
			h.logger.Warn("GET /businesses/{id}/bookings - Invalid filter: business_id=%d, error=%v", businessID, err)
			handlers.RespondBadRequest(w, msgInvalidParams)

		default:
			h.logger.Error("GET /businesses/{id}/bookings - Failed to list bookings: business_id=%d, error=%v",
				businessID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /businesses/{id}/bookings - Bookings retrieved successfully: business_id=%d, count=%d",
		businessID, len(result.Bookings))
	handlers.RespondJSON(w, http.StatusOK, result)
}
