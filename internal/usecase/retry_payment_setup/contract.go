package retry_payment_setup

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notifications"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	SetPaymentSetup(ctx context.Context, id int64, customerID, setupIntentID, clientSecret string) error
}

// PaymentRepository интерфейс журнала платежей
type PaymentRepository interface {
	Append(ctx context.Context, p *domain.BookingPayment) (*domain.BookingPayment, error)
}

// PaymentGateway интерфейс платёжного шлюза
type PaymentGateway interface {
	CreateSetup(ctx context.Context, req paymentgateway.SetupRequest) (*paymentgateway.SetupResult, error)
}

// NotificationEmitter интерфейс отправки уведомлений
type NotificationEmitter interface {
	Emit(ctx context.Context, event notifications.Event)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
