package create_booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/booking"
	giftCardRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/giftcard"
	catalogClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notifications"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

// UseCase use case для создания бронирования
type UseCase struct {
	bookingRepo    BookingRepository
	paymentRepo    PaymentRepository
	giftCardRepo   GiftCardRepository
	policyProvider PolicyProvider
	slotsProvider  SlotsProvider
	catalogClient  CatalogClient
	gateway        PaymentGateway
	emitter        NotificationEmitter
	metrics        Metrics
	txManager      TransactionManager
	currency       string // валюта по умолчанию, если у бизнеса не указана
	timeProvider   TimeProvider
	logger         Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	paymentRepo PaymentRepository,
	giftCardRepo GiftCardRepository,
	policyProvider PolicyProvider,
	slotsProvider SlotsProvider,
	catalogClient CatalogClient,
	gateway PaymentGateway,
	emitter NotificationEmitter,
	metrics Metrics,
	txManager TransactionManager,
	currency string,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:    bookingRepo,
		paymentRepo:    paymentRepo,
		giftCardRepo:   giftCardRepo,
		policyProvider: policyProvider,
		slotsProvider:  slotsProvider,
		catalogClient:  catalogClient,
		gateway:        gateway,
		emitter:        emitter,
		metrics:        metrics,
		txManager:      txManager,
		currency:       strings.ToLower(currency),
		timeProvider:   &RealTimeProvider{},
		logger:         logger,
	}
}

// Execute выполняет use case создания бронирования
// Пересечение с активными бронированиями проверяется перед вставкой,
// гонку параллельных запросов решают ограничения БД, а не блокировки в приложении
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateBooking: business=%d, service=%d, staff=%d, startAt=%s",
		req.BusinessID, req.ServiceID, req.StaffID, req.StartAt.UTC().Format(time.RFC3339))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateBooking: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время
	now := uc.timeProvider.Now()

	// 3. Получаем бизнес
	business, err := uc.catalogClient.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		if errors.Is(err, catalogClient.ErrBusinessNotFound) {
			uc.logger.Warn("CreateBooking: business id=%d not found", req.BusinessID)
			return nil, ErrBusinessNotFound
		}
		uc.logger.Error("CreateBooking: failed to get business id=%d: %v", req.BusinessID, err)
		return nil, fmt.Errorf("%w: failed to get business: %v", ErrInternal, err)
	}

	loc, err := time.LoadLocation(business.Timezone)
	if err != nil {
		uc.logger.Error("CreateBooking: business id=%d has invalid timezone %q: %v", req.BusinessID, business.Timezone, err)
		return nil, fmt.Errorf("%w: invalid business timezone: %v", ErrInternal, err)
	}

	// 4. Получаем услугу (цена и название фиксируются в бронировании)
	service, err := uc.catalogClient.GetService(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogClient.ErrServiceNotFound) {
			uc.logger.Warn("CreateBooking: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("CreateBooking: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}
	if service.BusinessID != req.BusinessID || !service.Active {
		uc.logger.Warn("CreateBooking: service id=%d is not bookable for business id=%d", req.ServiceID, req.BusinessID)
		return nil, ErrServiceNotFound
	}

	// 5. Структурная проверка слота: сотрудник квалифицирован, старт лежит на сетке правила,
	// не в блокировке и в пределах времени до записи / горизонта.
	// Занятость проверяется на шаге 8
	slot, err := uc.findSlot(ctx, req, loc)
	if err != nil {
		return nil, err
	}

	// 6. Снимок политики бизнеса на момент создания
	policy, err := uc.policyProvider.Resolve(ctx, req.BusinessID, ptr.Ptr(req.ServiceID))
	if err != nil {
		uc.logger.Error("CreateBooking: failed to resolve policy: %v", err)
		return nil, fmt.Errorf("%w: failed to resolve policy: %v", ErrInternal, err)
	}
	snapshot := policy.Snapshot(now)

	// 7. Подарочная карта: только расчёт скидки, баланс не меняется до списания
	discount, err := uc.applyGiftCard(ctx, req, service.Price, now)
	if err != nil {
		return nil, err
	}

	var discountAmount int64
	if discount != nil {
		discountAmount = discount.Amount
	}

	// 8. Вставка бронирования одной операцией
	booking := &domain.Booking{
		Code:           newBookingCode(),
		BusinessID:     req.BusinessID,
		ServiceID:      req.ServiceID,
		StaffID:        req.StaffID,
		StartAt:        slot.StartAt.UTC(),
		EndAt:          slot.EndAt.UTC(),
		Status:         domain.StatusPending,
		PaymentStatus:  domain.PaymentNone,
		BasePrice:      service.Price,
		DiscountAmount: discountAmount,
		FinalPrice:     service.Price - discountAmount,
		Currency:       uc.currencyOf(business),
		Customer: domain.CustomerInfo{
			Name:  strings.TrimSpace(req.Customer.Name),
			Email: strings.TrimSpace(req.Customer.Email),
			Phone: req.Customer.Phone,
		},
		Policy: snapshot,
		Consent: domain.ConsentMetadata{
			At:        now.UTC(),
			IP:        req.ConsentIP,
			UserAgent: req.ConsentUserAgent,
		},
		Discount: discount,
		// Денормализация для истории
		ServiceName: service.Name,
		StaffName:   slot.StaffName,
	}

	var created *domain.Booking
	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.ensureStaffFree(txCtx, booking); err != nil {
			return err
		}
		var err error
		created, err = uc.bookingRepo.Create(txCtx, booking)
		return err
	})
	if err != nil {
		if errors.Is(err, bookingRepo.ErrSlotTaken) || errors.Is(err, ErrSlotConflict) {
			uc.metrics.IncSlotConflict()
			uc.logger.Warn("CreateBooking: slot staff=%d startAt=%s already taken",
				req.StaffID, booking.StartAt.Format(time.RFC3339))
			return nil, ErrSlotConflict
		}
		uc.logger.Error("CreateBooking: failed to create booking: %v", err)
		return nil, fmt.Errorf("%w: failed to create booking: %v", ErrInternal, err)
	}

	uc.metrics.IncBookingCreated()
	uc.logger.Info("CreateBooking: created booking id=%d code=%s", created.ID, created.Code)

	// 9. Сохранение карты off-session. Деньги на этом шаге не двигаются.
	// Ошибка не откатывает бронирование: оно остаётся pending/none,
	// клиент может повторить через /payment-setup, иначе холд освободит reaper
	resp := toResponse(created)

	setup, err := uc.gateway.CreateSetup(ctx, paymentgateway.SetupRequest{
		BookingCode:    created.Code,
		IdempotencyKey: "setup:" + created.Code,
		Name:           created.Customer.Name,
		Email:          ptr.Ptr(created.Customer.Email),
		Phone:          created.Customer.Phone,
	})
	if err != nil {
		uc.logger.Warn("CreateBooking: payment setup failed for booking id=%d: %v", created.ID, err)
		resp.PaymentSetupPending = true
		return resp, nil
	}

	if err := uc.savePaymentSetup(ctx, created, setup); err != nil {
		uc.logger.Error("CreateBooking: failed to persist payment setup for booking id=%d: %v", created.ID, err)
		resp.PaymentSetupPending = true
		return resp, nil
	}

	resp.PaymentStatus = string(domain.PaymentCardSaved)
	resp.PaymentSetupHandle = setup.ClientSecret

	// 10. Уведомление (асинхронно, ошибки не влияют на результат)
	uc.emitter.Emit(ctx, notifications.Event{
		Type:          notifications.EventBookingCreated,
		BookingID:     created.ID,
		BookingCode:   created.Code,
		BusinessID:    created.BusinessID,
		ServiceID:     created.ServiceID,
		StaffID:       created.StaffID,
		StartAt:       created.StartAt,
		CustomerName:  created.Customer.Name,
		CustomerEmail: ptr.Ptr(created.Customer.Email),
		CustomerPhone: created.Customer.Phone,
		Amount:        created.FinalPrice,
		Currency:      created.Currency,
	})

	return resp, nil
}

// findSlot ищет запрошенный старт среди слотов сотрудника на локальную дату бизнеса
func (uc *UseCase) findSlot(ctx context.Context, req *Request, loc *time.Location) (*get_available_slots.Slot, error) {
	slots, err := uc.slotsProvider.Execute(ctx, &get_available_slots.Request{
		BusinessID:      req.BusinessID,
		ServiceID:       req.ServiceID,
		StaffID:         ptr.Ptr(req.StaffID),
		Date:            localDate(req.StartAt, loc),
		IncludeOccupied: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, get_available_slots.ErrBusinessNotFound):
			return nil, ErrBusinessNotFound
		case errors.Is(err, get_available_slots.ErrServiceNotFound):
			return nil, ErrServiceNotFound
		case errors.Is(err, get_available_slots.ErrInvalidInput):
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		uc.logger.Error("CreateBooking: failed to generate slots: %v", err)
		return nil, fmt.Errorf("%w: failed to generate slots: %v", ErrInternal, err)
	}

	for i := range slots.Slots {
		s := slots.Slots[i]
		if s.StaffID == req.StaffID && s.StartAt.Equal(req.StartAt) {
			return &s, nil
		}
	}

	uc.logger.Warn("CreateBooking: slot staff=%d startAt=%s is not bookable",
		req.StaffID, req.StartAt.UTC().Format(time.RFC3339))
	return nil, ErrSlotNotBookable
}

// ensureStaffFree проверяет, что время сотрудника не пересекается с активными бронированиями
// Пересечение полуоткрытых интервалов: start < other.end && end > other.start
func (uc *UseCase) ensureStaffFree(ctx context.Context, booking *domain.Booking) error {
	occupied, err := uc.bookingRepo.GetActiveByStaff(ctx, []int64{booking.StaffID}, booking.StartAt, booking.EndAt)
	if err != nil {
		return fmt.Errorf("failed to get staff bookings: %w", err)
	}

	window := domain.TimeRange{Start: booking.StartAt, End: booking.EndAt}
	for _, other := range occupied {
		if other.StaffID == booking.StaffID && window.Overlaps(other.TimeRange()) {
			uc.logger.Warn("CreateBooking: staff=%d is busy with booking id=%d (%s - %s)", booking.StaffID, other.ID,
				other.StartAt.UTC().Format(time.RFC3339), other.EndAt.UTC().Format(time.RFC3339))
			return ErrSlotConflict
		}
	}
	return nil
}

// applyGiftCard проверяет код и считает скидку. Ошибка возвращается до любой записи
func (uc *UseCase) applyGiftCard(ctx context.Context, req *Request, price int64, now time.Time) (*domain.Discount, error) {
	code := normalizeGiftCode(req.GiftCode)
	if code == "" {
		return nil, nil
	}

	card, err := uc.giftCardRepo.GetByCode(ctx, req.BusinessID, code)
	if err != nil {
		if errors.Is(err, giftCardRepo.ErrGiftCardNotFound) {
			uc.logger.Warn("CreateBooking: gift card not found for business=%d", req.BusinessID)
			return nil, fmt.Errorf("%w: gift card not found", ErrGiftCardInvalid)
		}
		uc.logger.Error("CreateBooking: failed to get gift card: %v", err)
		return nil, fmt.Errorf("%w: failed to get gift card: %v", ErrInternal, err)
	}

	if err := card.Validate(req.BusinessID, now); err != nil {
		uc.logger.Warn("CreateBooking: gift card id=%d rejected: %v", card.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrGiftCardInvalid, err)
	}

	return &domain.Discount{
		GiftCardID: card.ID,
		Type:       card.Type,
		Amount:     card.Discount(price),
	}, nil
}

// savePaymentSetup фиксирует ссылки шлюза и запись card_setup в одной транзакции
func (uc *UseCase) savePaymentSetup(ctx context.Context, booking *domain.Booking, setup *paymentgateway.SetupResult) error {
	return uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.bookingRepo.SetPaymentSetup(txCtx, booking.ID, setup.CustomerID, setup.SetupIntentID, setup.ClientSecret); err != nil {
			return err
		}

		_, err := uc.paymentRepo.Append(txCtx, &domain.BookingPayment{
			BookingID:         booking.ID,
			Action:            domain.PaymentActionCardSetup,
			Amount:            0,
			Currency:          booking.Currency,
			ExternalReference: ptr.Ptr(setup.SetupIntentID),
			Status:            domain.PaymentRecordCardSaved,
		})
		return err
	})
}

// newBookingCode человекочитаемый код бронирования, например BK-3F9A1C07
func newBookingCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return domain.BookingCodePrefix + strings.ToUpper(id[:8])
}

func (uc *UseCase) currencyOf(b *catalogClient.Business) string {
	if b.Currency == "" {
		return uc.currency
	}
	return strings.ToLower(b.Currency)
}

func toResponse(b *domain.Booking) *Response {
	return &Response{
		BookingID:              b.ID,
		BookingCode:            b.Code,
		Status:                 string(b.Status),
		PaymentStatus:          string(b.PaymentStatus),
		StaffID:                b.StaffID,
		StaffName:              b.StaffName,
		ServiceID:              b.ServiceID,
		ServiceName:            b.ServiceName,
		StartAt:                b.StartAt,
		EndAt:                  b.EndAt,
		BasePrice:              b.BasePrice,
		DiscountAmount:         b.DiscountAmount,
		FinalPrice:             b.FinalPrice,
		Currency:               b.Currency,
		CancellationPolicyText: b.Policy.CancellationPolicyText,
		NoShowPolicyText:       b.Policy.NoShowPolicyText,
		CreatedAt:              b.CreatedAt,
	}
}
