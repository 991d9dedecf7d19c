package policy

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// PolicyRepository интерфейс репозитория политик
type PolicyRepository interface {
	GetByBusinessAndService(ctx context.Context, businessID int64, serviceID *int64) (*domain.BusinessPolicy, error)
	GetWithHierarchy(ctx context.Context, businessID int64, serviceID *int64) (*domain.BusinessPolicy, error)
	Upsert(ctx context.Context, p *domain.BusinessPolicy) (*domain.BusinessPolicy, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
