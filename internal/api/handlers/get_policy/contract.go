package get_policy

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/service/policy/models"
)

type PolicyService interface {
	Get(ctx context.Context, businessID int64, serviceID *int64) (*models.PolicyResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
