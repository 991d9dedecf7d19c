package booking_action

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notifications"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateLifecycle(ctx context.Context, id int64, status domain.BookingStatus, paymentStatus domain.PaymentStatus, closedAt *time.Time) error
	UpdatePaymentStatus(ctx context.Context, id int64, paymentStatus domain.PaymentStatus) error
}

// PaymentRepository интерфейс журнала платежей
type PaymentRepository interface {
	Append(ctx context.Context, p *domain.BookingPayment) (*domain.BookingPayment, error)
	GetLastSuccessfulCharge(ctx context.Context, bookingID int64) (*domain.BookingPayment, error)
	SettlePending(ctx context.Context, id int64, status domain.PaymentRecordStatus, failureReason *string) error
}

// IdempotencyRepository хранилище ответов по ключу идемпотентности
type IdempotencyRepository interface {
	Get(ctx context.Context, key, route string) (*domain.IdempotencyRecord, error)
	Save(ctx context.Context, rec *domain.IdempotencyRecord) (*domain.IdempotencyRecord, bool, error)
}

// GiftCardRepository интерфейс репозитория подарочных карт
type GiftCardRepository interface {
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.GiftCard, error)
	SetBalance(ctx context.Context, id int64, balance int64) error
	AppendLedger(ctx context.Context, entry *domain.GiftCardLedgerEntry) (*domain.GiftCardLedgerEntry, error)
	NetDebited(ctx context.Context, cardID, bookingID int64) (int64, error)
}

// PolicyProvider источник действующей политики бизнеса
type PolicyProvider interface {
	Resolve(ctx context.Context, businessID int64, serviceID *int64) (*domain.BusinessPolicy, error)
}

// CatalogClient интерфейс клиента каталога (аккаунт выплат бизнеса)
type CatalogClient interface {
	GetBusiness(ctx context.Context, businessID int64) (*catalogservice.Business, error)
}

// PaymentGateway интерфейс платёжного шлюза
type PaymentGateway interface {
	Charge(ctx context.Context, req paymentgateway.ChargeRequest) (*paymentgateway.ChargeResult, error)
	Refund(ctx context.Context, req paymentgateway.RefundRequest) (*paymentgateway.RefundResult, error)
	GetChargeStatus(ctx context.Context, externalReference string) (paymentgateway.ChargeStatus, error)
}

// Locker защита от параллельной обработки одного ключа идемпотентности
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// NotificationEmitter интерфейс отправки уведомлений
type NotificationEmitter interface {
	Emit(ctx context.Context, event notifications.Event)
}

// Metrics счётчик действий над бронированиями
type Metrics interface {
	IncBookingAction(action, result string)
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
