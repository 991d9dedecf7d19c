package retry_payment_setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/booking"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notifications"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

// UseCase повторяет сохранение карты для бронирования, у которого первая попытка не удалась
type UseCase struct {
	bookingRepo BookingRepository
	paymentRepo PaymentRepository
	gateway     PaymentGateway
	emitter     NotificationEmitter
	txManager   TransactionManager
	logger      Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	paymentRepo PaymentRepository,
	gateway PaymentGateway,
	emitter NotificationEmitter,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		emitter:     emitter,
		txManager:   txManager,
		logger:      logger,
	}
}

// Execute выполняет use case повтора сохранения карты
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("RetryPaymentSetup: booking=%d", req.BookingID)

	// 1. Валидация входных данных
	code := strings.TrimSpace(req.BookingCode)
	if req.BookingID <= 0 || code == "" {
		uc.logger.Warn("RetryPaymentSetup: bookingId and bookingCode are required")
		return nil, fmt.Errorf("%w: bookingId and bookingCode are required", ErrInvalidInput)
	}

	// 2. Получаем бронирование, код должен совпадать
	booking, err := uc.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			uc.logger.Warn("RetryPaymentSetup: booking id=%d not found", req.BookingID)
			return nil, ErrBookingNotFound
		}
		uc.logger.Error("RetryPaymentSetup: failed to get booking id=%d: %v", req.BookingID, err)
		return nil, fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
	}
	if booking.Code != code {
		uc.logger.Warn("RetryPaymentSetup: booking id=%d code mismatch", req.BookingID)
		return nil, ErrBookingNotFound
	}

	// 3. Повтор возможен только пока холд жив и карта не сохранена
	if booking.Status != domain.StatusPending || booking.PaymentStatus != domain.PaymentNone {
		uc.logger.Warn("RetryPaymentSetup: booking id=%d is %s/%s", booking.ID, booking.Status, booking.PaymentStatus)
		return nil, fmt.Errorf("%w: booking is %s with payment status %s", ErrSetupNotAllowed, booking.Status, booking.PaymentStatus)
	}

	// 4. Тот же ключ, что и при создании: шлюз вернёт уже созданный SetupIntent, если он успел появиться
	setup, err := uc.gateway.CreateSetup(ctx, paymentgateway.SetupRequest{
		BookingCode:    booking.Code,
		IdempotencyKey: "setup:" + booking.Code,
		Name:           booking.Customer.Name,
		Email:          ptr.Ptr(booking.Customer.Email),
		Phone:          booking.Customer.Phone,
	})
	if err != nil {
		uc.logger.Error("RetryPaymentSetup: gateway failed for booking id=%d: %v", booking.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	// 5. Ссылки шлюза и запись card_setup в одной транзакции
	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.bookingRepo.SetPaymentSetup(txCtx, booking.ID, setup.CustomerID, setup.SetupIntentID, setup.ClientSecret); err != nil {
			return err
		}
		_, err := uc.paymentRepo.Append(txCtx, &domain.BookingPayment{
			BookingID:         booking.ID,
			Action:            domain.PaymentActionCardSetup,
			Currency:          booking.Currency,
			ExternalReference: ptr.Ptr(setup.SetupIntentID),
			Status:            domain.PaymentRecordCardSaved,
		})
		return err
	})
	if err != nil {
		// reaper мог освободить холд между чтением и записью
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			uc.logger.Warn("RetryPaymentSetup: booking id=%d expired during setup", booking.ID)
			return nil, fmt.Errorf("%w: booking expired", ErrSetupNotAllowed)
		}
		uc.logger.Error("RetryPaymentSetup: failed to persist setup for booking id=%d: %v", booking.ID, err)
		return nil, fmt.Errorf("%w: failed to persist payment setup: %v", ErrInternal, err)
	}

	uc.logger.Info("RetryPaymentSetup: card setup started for booking id=%d", booking.ID)

	// 6. Уведомление о созданном бронировании уходит только после сохранения карты
	uc.emitter.Emit(ctx, notifications.Event{
		Type:          notifications.EventBookingCreated,
		BookingID:     booking.ID,
		BookingCode:   booking.Code,
		BusinessID:    booking.BusinessID,
		ServiceID:     booking.ServiceID,
		StaffID:       booking.StaffID,
		StartAt:       booking.StartAt,
		CustomerName:  booking.Customer.Name,
		CustomerEmail: ptr.Ptr(booking.Customer.Email),
		CustomerPhone: booking.Customer.Phone,
		Amount:        booking.FinalPrice,
		Currency:      booking.Currency,
	})

	return &Response{
		BookingID:          booking.ID,
		BookingCode:        booking.Code,
		PaymentStatus:      string(domain.PaymentCardSaved),
		PaymentSetupHandle: setup.ClientSecret,
	}, nil
}
