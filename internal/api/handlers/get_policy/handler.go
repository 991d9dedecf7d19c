package get_policy

import (
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
)

const (
	msgInvalidBusinessID = "некорректный ID бизнеса"
	msgInvalidServiceID  = "некорректный ID услуги"
	msgMissingBusinessID = "отсутствует ID бизнеса"
	msgForbidden         = "доступ запрещен"
)

type Handler struct {
	service PolicyService
	logger  Logger
}

func NewHandler(service PolicyService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/businesses/{businessId}/policy
// Query params: serviceId (опционально, политика конкретной услуги)
// Если политика не настроена, отдаются значения по умолчанию с isDefault=true
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	businessID, err := handlers.PathInt64(r, "businessId")
	if err != nil {
		h.logger.Warn("GET /businesses/{id}/policy - Invalid business ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBusinessID)
		return
	}

	ownerID, ok := middleware.GetBusinessID(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingBusinessID)
		return
	}
	if ownerID != businessID {
		h.logger.Warn("GET /businesses/{id}/policy - Access denied: business_id=%d, owner=%d", businessID, ownerID)
		handlers.RespondForbidden(w, msgForbidden)
		return
	}

	serviceID, err := handlers.QueryInt64(r, "serviceId")
	if err != nil {
		h.logger.Warn("GET /businesses/{id}/policy - Invalid service ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidServiceID)
		return
	}

	result, err := h.service.Get(r.Context(), businessID, serviceID)
	if err != nil {
		h.logger.Error("GET /businesses/{id}/policy - Failed to get policy: business_id=%d, error=%v", businessID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /businesses/{id}/policy - Policy retrieved successfully: business_id=%d, is_default=%t",
		businessID, result.IsDefault)
	handlers.RespondJSON(w, http.StatusOK, result)
}
