package create_booking

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notifications"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_slots"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	GetActiveByStaff(ctx context.Context, staffIDs []int64, from, to time.Time) ([]*domain.Booking, error)
	SetPaymentSetup(ctx context.Context, id int64, customerID, setupIntentID, clientSecret string) error
}

// PaymentRepository интерфейс журнала платежей
type PaymentRepository interface {
	Append(ctx context.Context, p *domain.BookingPayment) (*domain.BookingPayment, error)
}

// GiftCardRepository интерфейс репозитория подарочных карт
type GiftCardRepository interface {
	GetByCode(ctx context.Context, businessID int64, code string) (*domain.GiftCard, error)
}

// PolicyProvider источник действующей политики бизнеса
type PolicyProvider interface {
	Resolve(ctx context.Context, businessID int64, serviceID *int64) (*domain.BusinessPolicy, error)
}

// SlotsProvider генератор слотов, используется для структурной проверки выбранного слота
type SlotsProvider interface {
	Execute(ctx context.Context, req *get_available_slots.Request) (*get_available_slots.Response, error)
}

// CatalogClient интерфейс клиента каталога
type CatalogClient interface {
	GetBusiness(ctx context.Context, businessID int64) (*catalogservice.Business, error)
	GetService(ctx context.Context, businessID, serviceID int64) (*catalogservice.Service, error)
}

// PaymentGateway интерфейс платёжного шлюза
type PaymentGateway interface {
	CreateSetup(ctx context.Context, req paymentgateway.SetupRequest) (*paymentgateway.SetupResult, error)
}

// NotificationEmitter интерфейс отправки уведомлений
type NotificationEmitter interface {
	Emit(ctx context.Context, event notifications.Event)
}

// Metrics счётчики бронирований
type Metrics interface {
	IncBookingCreated()
	IncSlotConflict()
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
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
