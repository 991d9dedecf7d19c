package get_available_slots

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	// GetActiveByStaff активные бронирования сотрудников, пересекающие [from, to)
	GetActiveByStaff(ctx context.Context, staffIDs []int64, from, to time.Time) ([]*domain.Booking, error)
}

// PolicyProvider источник действующей политики бизнеса
type PolicyProvider interface {
	// Resolve возвращает политику услуги, бизнеса или значения по умолчанию
	Resolve(ctx context.Context, businessID int64, serviceID *int64) (*domain.BusinessPolicy, error)
}

// ScheduleRepository интерфейс репозитория расписаний
type ScheduleRepository interface {
	GetRules(ctx context.Context, serviceID int64, weekday time.Weekday, staffIDs []int64) ([]domain.AvailabilityRule, error)
	GetBlackouts(ctx context.Context, businessID int64, from, to time.Time) ([]domain.Blackout, error)
}

// CatalogClient интерфейс клиента каталога
type CatalogClient interface {
	GetBusiness(ctx context.Context, businessID int64) (*catalogservice.Business, error)
	GetService(ctx context.Context, businessID, serviceID int64) (*catalogservice.Service, error)
	GetServiceStaff(ctx context.Context, businessID, serviceID int64) ([]catalogservice.Staff, error)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
