package update_policy

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/service/policy"
	"github.com/m04kA/SMC-AppointmentService/internal/service/policy/models"
)

const (
	msgInvalidBusinessID  = "некорректный ID бизнеса"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingBusinessID  = "отсутствует ID бизнеса"
	msgForbidden          = "доступ запрещен"
	msgInvalidData        = "некорректные данные политики"
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

// Handle PUT /api/v1/businesses/{businessId}/policy
// Полная замена политики. Существующие бронирования сохраняют свой снимок
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	businessID, err := handlers.PathInt64(r, "businessId")
	if err != nil {
		h.logger.Warn("PUT /businesses/{id}/policy - Invalid business ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBusinessID)
		return
	}

	ownerID, ok := middleware.GetBusinessID(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingBusinessID)
		return
	}
	if ownerID != businessID {
		h.logger.Warn("PUT /businesses/{id}/policy - Access denied: business_id=%d, owner=%d", businessID, ownerID)
		handlers.RespondForbidden(w, msgForbidden)
		return
	}

	var req models.UpdatePolicyRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /businesses/{id}/policy - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	req.BusinessID = businessID

	result, err := h.service.Update(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, policy.ErrInvalidInput):
			h.logger.Warn("PUT /businesses/{id}/policy - Invalid data: business_id=%d, error=%v", businessID, err)
			handlers.RespondBadRequest(w, msgInvalidData)

		default:
			h.logger.Error("PUT /businesses/{id}/policy - Failed to update policy: business_id=%d, error=%v",
				businessID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PUT /businesses/{id}/policy - Policy updated successfully: business_id=%d", businessID)
	handlers.RespondJSON(w, http.StatusOK, result)
}
