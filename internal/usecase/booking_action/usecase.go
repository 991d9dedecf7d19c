package booking_action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/locker"
	bookingRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/booking"
	giftCardRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/giftcard"
	idempotencyRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/idempotency"
	paymentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/payment"
	catalogClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notifications"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

// errSavedConcurrently ответ под ключом записал параллельный запрос, транзакция откатывается
var errSavedConcurrently = errors.New("booking_action: response already saved")

// UseCase use case для действий владельца: complete, no_show, cancel, refund
type UseCase struct {
	bookingRepo     BookingRepository
	paymentRepo     PaymentRepository
	idempotencyRepo IdempotencyRepository
	giftCardRepo    GiftCardRepository
	policyProvider  PolicyProvider
	catalogClient   CatalogClient
	gateway         PaymentGateway
	locker          Locker
	emitter         NotificationEmitter
	metrics         Metrics
	txManager       TransactionManager
	retention       time.Duration
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	paymentRepo PaymentRepository,
	idempotencyRepo IdempotencyRepository,
	giftCardRepo GiftCardRepository,
	policyProvider PolicyProvider,
	catalogClient CatalogClient,
	gateway PaymentGateway,
	locker Locker,
	emitter NotificationEmitter,
	metrics Metrics,
	txManager TransactionManager,
	retention time.Duration,
	logger Logger,
) *UseCase {
	if retention <= 0 {
		retention = domain.IdempotencyRetention
	}
	return &UseCase{
		bookingRepo:     bookingRepo,
		paymentRepo:     paymentRepo,
		idempotencyRepo: idempotencyRepo,
		giftCardRepo:    giftCardRepo,
		policyProvider:  policyProvider,
		catalogClient:   catalogClient,
		gateway:         gateway,
		locker:          locker,
		emitter:         emitter,
		metrics:         metrics,
		txManager:       txManager,
		retention:       retention,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// Execute выполняет действие над бронированием не более одного раза на ключ идемпотентности
//
// Три уровня защиты от повторов:
// блокировка ключа в redis отсекает параллельный дубль, пока первый запрос выполняется;
// SELECT ... FOR UPDATE на бронировании упорядочивает действия над ним, после блокировки ключ перепроверяется;
// вставка записи идемпотентности ON CONFLICT DO NOTHING в той же транзакции, что и деньги
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("BookingAction: action=%s, booking=%d, business=%d", req.Action, req.BookingID, req.BusinessID)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("BookingAction: validation failed: %v", err)
		return nil, err
	}

	// 2. Бронирование должно принадлежать бизнесу владельца
	if err := uc.checkOwner(ctx, req); err != nil {
		return nil, err
	}

	// 3. Блокировка ключа на время обработки
	release, err := uc.locker.Acquire(ctx, lockKey(req.Action, req.IdempotencyKey))
	switch {
	case errors.Is(err, locker.ErrLocked):
		uc.logger.Warn("BookingAction: key %q for %s is in progress", req.IdempotencyKey, req.Action.Route())
		return nil, ErrRequestInProgress
	case err != nil:
		// корректность обеспечивает БД, redis только отсекает дубли раньше
		uc.logger.Warn("BookingAction: in-flight lock unavailable, continuing without it: %v", err)
	default:
		defer release()
	}

	// 4. Быстрый путь: ответ уже сохранён
	cached, err := uc.lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		uc.logger.Info("BookingAction: replay key %q for booking id=%d", req.IdempotencyKey, req.BookingID)
		return &Response{Result: *cached, Replayed: true}, nil
	}

	// 5. Переход, деньги и запись ответа в одной транзакции
	now := uc.timeProvider.Now()

	var (
		result   *domain.ActionResult
		booking  *domain.Booking
		replayed bool
	)

	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		b, err := uc.bookingRepo.GetByIDForUpdate(txCtx, req.BookingID)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("%w: failed to lock booking: %v", ErrInternal, err)
		}
		booking = b

		// параллельный запрос мог завершиться, пока мы ждали блокировку строки
		cached, err := uc.lookup(txCtx, req)
		if err != nil {
			return err
		}
		if cached != nil {
			result, replayed = cached, true
			return nil
		}

		res, err := uc.perform(txCtx, req, b, now)
		if err != nil {
			return err
		}

		saved, err := uc.save(txCtx, req, res, now)
		if err != nil {
			return err
		}
		if saved != nil {
			result, replayed = saved, true
			return errSavedConcurrently
		}

		result = res
		return nil
	})

	if err != nil && !errors.Is(err, errSavedConcurrently) {
		uc.metrics.IncBookingAction(string(req.Action), "error")
		uc.logFailure(req, err)
		return nil, err
	}

	if replayed {
		uc.logger.Info("BookingAction: replay key %q for booking id=%d", req.IdempotencyKey, req.BookingID)
		return &Response{Result: *result, Replayed: true}, nil
	}

	uc.metrics.IncBookingAction(string(req.Action), string(result.ResultStatus))
	uc.logger.Info("BookingAction: booking id=%d %s -> %s, amount=%d",
		req.BookingID, req.Action, result.ResultStatus, result.Amount)

	// 6. Уведомления только после коммита
	uc.notify(ctx, booking, result, now)

	return &Response{Result: *result}, nil
}

// checkOwner проверяет существование бронирования и его принадлежность бизнесу
func (uc *UseCase) checkOwner(ctx context.Context, req *Request) error {
	b, err := uc.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			uc.logger.Warn("BookingAction: booking id=%d not found", req.BookingID)
			return ErrBookingNotFound
		}
		uc.logger.Error("BookingAction: failed to get booking id=%d: %v", req.BookingID, err)
		return fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
	}
	if b.BusinessID != req.BusinessID {
		uc.logger.Warn("BookingAction: booking id=%d belongs to business id=%d, not %d", b.ID, b.BusinessID, req.BusinessID)
		return ErrBookingNotFound
	}
	return nil
}

// lookup ищет сохранённый ответ. Ключ, использованный для другого бронирования, это ошибка клиента
func (uc *UseCase) lookup(ctx context.Context, req *Request) (*domain.ActionResult, error) {
	rec, err := uc.idempotencyRepo.Get(ctx, req.IdempotencyKey, req.Action.Route())
	if err != nil {
		if errors.Is(err, idempotencyRepo.ErrRecordNotFound) {
			return nil, nil
		}
		uc.logger.Error("BookingAction: failed to read idempotency record: %v", err)
		return nil, fmt.Errorf("%w: failed to read idempotency record: %v", ErrInternal, err)
	}

	return uc.decode(req, rec)
}

func (uc *UseCase) decode(req *Request, rec *domain.IdempotencyRecord) (*domain.ActionResult, error) {
	if rec.BookingID != req.BookingID {
		uc.logger.Warn("BookingAction: key %q already used for booking id=%d", req.IdempotencyKey, rec.BookingID)
		return nil, ErrIdempotencyKeyReused
	}

	var result domain.ActionResult
	if err := json.Unmarshal(rec.Response, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode cached response: %v", ErrInternal, err)
	}
	return &result, nil
}

// save записывает ответ под ключом. Возвращает чужой ответ, если ключ уже занят
func (uc *UseCase) save(ctx context.Context, req *Request, result *domain.ActionResult, now time.Time) (*domain.ActionResult, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode response: %v", ErrInternal, err)
	}

	rec, created, err := uc.idempotencyRepo.Save(ctx, &domain.IdempotencyRecord{
		Key:       req.IdempotencyKey,
		Route:     req.Action.Route(),
		BookingID: req.BookingID,
		Response:  payload,
		ExpiresAt: now.Add(uc.retention),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to save idempotency record: %v", ErrInternal, err)
	}
	if created {
		return nil, nil
	}

	return uc.decode(req, rec)
}

// perform выполняет переход внутри транзакции. Бронирование уже заблокировано
func (uc *UseCase) perform(ctx context.Context, req *Request, b *domain.Booking, now time.Time) (*domain.ActionResult, error) {
	if !b.CanPerform(req.Action) {
		uc.logger.Warn("BookingAction: %s is not allowed for booking id=%d in status %s", req.Action, b.ID, b.Status)
		return nil, fmt.Errorf("%w: cannot %s a %s booking", ErrInvalidTransition, req.Action, b.Status)
	}

	if req.Action == domain.ActionRefund {
		return uc.refund(ctx, req, b)
	}
	return uc.charge(ctx, req, b, now)
}

// amountFor сумма списания: итоговая цена при завершении, штраф из снимка политики иначе
func amountFor(b *domain.Booking, action domain.Action) int64 {
	if action == domain.ActionComplete {
		return b.FinalPrice
	}
	return b.Policy.FeeFor(action, b.BasePrice)
}

// charge обрабатывает complete, no_show и cancel
func (uc *UseCase) charge(ctx context.Context, req *Request, b *domain.Booking, now time.Time) (*domain.ActionResult, error) {
	target := req.Action.TargetStatus()
	closedAt := now.UTC()
	amount := amountFor(b, req.Action)

	result := &domain.ActionResult{
		BookingID:     b.ID,
		Action:        req.Action,
		Amount:        amount,
		Currency:      b.Currency,
		BookingStatus: target,
		PaymentStatus: b.PaymentStatus,
	}

	// 1. Нечего списывать: только переход, шлюз не вызывается, платёжная запись не создаётся
	if amount == 0 {
		if req.Action == domain.ActionComplete {
			if err := uc.debitGiftCard(ctx, b); err != nil {
				return nil, err
			}
		}
		if err := uc.bookingRepo.UpdateLifecycle(ctx, b.ID, target, b.PaymentStatus, &closedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to update booking: %v", ErrInternal, err)
		}
		result.ResultStatus = domain.ResultNoCharge
		return result, nil
	}

	// 2. Для списания нужна сохранённая карта и аккаунт выплат бизнеса
	if !b.HasSavedCard() {
		uc.logger.Warn("BookingAction: booking id=%d has no saved card, amount=%d", b.ID, amount)
		return nil, ErrNoPaymentMethod
	}

	destination, err := uc.payoutAccount(ctx, b.BusinessID)
	if err != nil {
		return nil, err
	}

	// 3. Списание с разделением платежа. Ключ шлюза производный от ключа клиента,
	// поэтому повтор после отката транзакции не создаёт второго списания
	paymentAction := req.Action.PaymentAction()
	charge, err := uc.gateway.Charge(ctx, paymentgateway.ChargeRequest{
		BookingID:          b.ID,
		Action:             string(paymentAction),
		IdempotencyKey:     req.IdempotencyKey,
		Amount:             amount,
		Currency:           b.Currency,
		CustomerID:         ptr.Value(b.GatewayCustomerID),
		SetupIntentID:      ptr.Value(b.SetupIntentID),
		DestinationAccount: destination,
	})
	if err != nil {
		if errors.Is(err, paymentgateway.ErrDeclined) {
			return uc.recordDecline(ctx, req, b, paymentAction, amount, err, result)
		}
		return nil, gatewayError(err)
	}

	// 4. Запись платежа, списание с подарочной карты, переход
	recordStatus := domain.PaymentRecordSucceeded
	paymentStatus := domain.PaymentCharged
	result.ResultStatus = domain.ResultCharged
	if charge.Status == paymentgateway.ChargeProcessing {
		recordStatus = domain.PaymentRecordPending
		paymentStatus = domain.PaymentChargePending
		result.ResultStatus = domain.ResultChargePending
	}

	if _, err := uc.paymentRepo.Append(ctx, &domain.BookingPayment{
		BookingID:         b.ID,
		Action:            paymentAction,
		Amount:            amount,
		PlatformFee:       charge.PlatformFee,
		Currency:          b.Currency,
		ExternalReference: ptr.Ptr(charge.ExternalReference),
		Status:            recordStatus,
		IdempotencyKey:    ptr.Ptr(req.IdempotencyKey),
	}); err != nil {
		return nil, fmt.Errorf("%w: failed to append payment record: %v", ErrInternal, err)
	}

	if req.Action == domain.ActionComplete {
		if err := uc.debitGiftCard(ctx, b); err != nil {
			return nil, err
		}
	}

	if err := uc.bookingRepo.UpdateLifecycle(ctx, b.ID, target, paymentStatus, &closedAt); err != nil {
		return nil, fmt.Errorf("%w: failed to update booking: %v", ErrInternal, err)
	}

	result.PaymentStatus = paymentStatus
	result.ExternalReference = charge.ExternalReference
	return result, nil
}

// recordDecline фиксирует отказ карты. Статус бронирования не меняется, ответ FAILED кешируется под ключом
func (uc *UseCase) recordDecline(
	ctx context.Context,
	req *Request,
	b *domain.Booking,
	action domain.PaymentAction,
	amount int64,
	declineErr error,
	result *domain.ActionResult,
) (*domain.ActionResult, error) {
	reason := paymentgateway.DeclineReason(declineErr)
	if reason == "" {
		reason = "declined"
	}
	uc.logger.Warn("BookingAction: %s for booking id=%d declined: %s", action, b.ID, reason)

	if _, err := uc.paymentRepo.Append(ctx, &domain.BookingPayment{
		BookingID:      b.ID,
		Action:         action,
		Amount:         amount,
		Currency:       b.Currency,
		Status:         domain.PaymentRecordFailed,
		IdempotencyKey: ptr.Ptr(req.IdempotencyKey),
		FailureReason:  ptr.Ptr(reason),
	}); err != nil {
		return nil, fmt.Errorf("%w: failed to append failed payment record: %v", ErrInternal, err)
	}

	paymentStatus := b.PaymentStatus
	if action.IsCharge() {
		paymentStatus = domain.PaymentFailed
		if err := uc.bookingRepo.UpdatePaymentStatus(ctx, b.ID, paymentStatus); err != nil {
			return nil, fmt.Errorf("%w: failed to update payment status: %v", ErrInternal, err)
		}
	}

	result.ResultStatus = domain.ResultFailed
	result.BookingStatus = b.Status
	result.PaymentStatus = paymentStatus
	result.FailureReason = reason
	return result, nil
}

// refund возвращает последнее успешное списание
func (uc *UseCase) refund(ctx context.Context, req *Request, b *domain.Booking) (*domain.ActionResult, error) {
	result := &domain.ActionResult{
		BookingID:     b.ID,
		Action:        req.Action,
		Currency:      b.Currency,
		BookingStatus: b.Status,
		PaymentStatus: b.PaymentStatus,
	}

	charge, err := uc.paymentRepo.GetLastSuccessfulCharge(ctx, b.ID)
	if err != nil && !errors.Is(err, paymentRepo.ErrPaymentNotFound) {
		return nil, fmt.Errorf("%w: failed to get last charge: %v", ErrInternal, err)
	}

	// 1. Списание было в обработке: перечитываем его у шлюза и фиксируем итог
	if b.PaymentStatus == domain.PaymentChargePending {
		if err := uc.settlePendingCharge(ctx, b, charge); err != nil {
			return nil, err
		}
		result.PaymentStatus = b.PaymentStatus
		if b.PaymentStatus == domain.PaymentFailed {
			charge = nil
		}
	}

	// 2. Нечего возвращать: ответ NO_CHARGE_TO_REFUND, переход не выполняется
	if charge == nil || b.PaymentStatus != domain.PaymentCharged {
		uc.logger.Info("BookingAction: booking id=%d has no charge to refund", b.ID)
		result.ResultStatus = domain.ResultNoChargeToRefund
		return result, nil
	}
	if charge.ExternalReference == nil {
		return nil, fmt.Errorf("%w: charge id=%d has no external reference", ErrInternal, charge.ID)
	}

	// 3. Возврат с отменой перевода и комиссии платформы
	refund, err := uc.gateway.Refund(ctx, paymentgateway.RefundRequest{
		BookingID:         b.ID,
		IdempotencyKey:    req.IdempotencyKey,
		ExternalReference: *charge.ExternalReference,
		Amount:            charge.Amount,
	})
	if err != nil {
		if errors.Is(err, paymentgateway.ErrDeclined) {
			result.Amount = charge.Amount
			return uc.recordDecline(ctx, req, b, domain.PaymentActionRefund, charge.Amount, err, result)
		}
		return nil, gatewayError(err)
	}

	recordStatus := domain.PaymentRecordSucceeded
	if refund.Pending {
		recordStatus = domain.PaymentRecordPending
	}

	if _, err := uc.paymentRepo.Append(ctx, &domain.BookingPayment{
		BookingID:         b.ID,
		Action:            domain.PaymentActionRefund,
		Amount:            charge.Amount,
		Currency:          charge.Currency,
		ExternalReference: ptr.Ptr(refund.ExternalReference),
		Status:            recordStatus,
		IdempotencyKey:    ptr.Ptr(req.IdempotencyKey),
	}); err != nil {
		return nil, fmt.Errorf("%w: failed to append refund record: %v", ErrInternal, err)
	}

	// 4. Подарочная карта возвращается только за возврат оплаты услуги и только если так решил бизнес
	if charge.Action == domain.PaymentActionCompletedCharge {
		if err := uc.creditGiftCard(ctx, b); err != nil {
			return nil, err
		}
	}

	if err := uc.bookingRepo.UpdateLifecycle(ctx, b.ID, domain.StatusRefunded, domain.PaymentRefunded, nil); err != nil {
		return nil, fmt.Errorf("%w: failed to update booking: %v", ErrInternal, err)
	}

	result.ResultStatus = domain.ResultRefunded
	result.Amount = charge.Amount
	result.ExternalReference = refund.ExternalReference
	result.BookingStatus = domain.StatusRefunded
	result.PaymentStatus = domain.PaymentRefunded
	return result, nil
}

// settlePendingCharge переводит списание из charge_pending в charged или failed по данным шлюза
// Пока шлюз обрабатывает платёж, возврат недоступен
func (uc *UseCase) settlePendingCharge(ctx context.Context, b *domain.Booking, charge *domain.BookingPayment) error {
	if charge == nil || charge.Status != domain.PaymentRecordPending || charge.ExternalReference == nil {
		return fmt.Errorf("%w: booking id=%d has no pending charge record", ErrInternal, b.ID)
	}

	status, err := uc.gateway.GetChargeStatus(ctx, *charge.ExternalReference)
	if err != nil {
		return gatewayError(err)
	}

	var (
		recordStatus  domain.PaymentRecordStatus
		paymentStatus domain.PaymentStatus
		reason        *string
	)
	switch status {
	case paymentgateway.ChargeSucceeded:
		recordStatus, paymentStatus = domain.PaymentRecordSucceeded, domain.PaymentCharged
	case paymentgateway.ChargeFailed:
		recordStatus, paymentStatus = domain.PaymentRecordFailed, domain.PaymentFailed
		reason = ptr.Ptr("charge_failed_after_processing")
	default:
		uc.logger.Warn("BookingAction: booking id=%d charge %s is still processing, refund rejected", b.ID, *charge.ExternalReference)
		return fmt.Errorf("%w: charge is still pending", ErrInvalidTransition)
	}

	if err := uc.paymentRepo.SettlePending(ctx, charge.ID, recordStatus, reason); err != nil {
		return fmt.Errorf("%w: failed to settle pending charge: %v", ErrInternal, err)
	}
	if err := uc.bookingRepo.UpdatePaymentStatus(ctx, b.ID, paymentStatus); err != nil {
		return fmt.Errorf("%w: failed to update payment status: %v", ErrInternal, err)
	}

	uc.logger.Info("BookingAction: booking id=%d pending charge settled as %s", b.ID, paymentStatus)
	charge.Status = recordStatus
	b.PaymentStatus = paymentStatus
	return nil
}

// payoutAccount подключённый аккаунт бизнеса, на который переводится выплата
func (uc *UseCase) payoutAccount(ctx context.Context, businessID int64) (string, error) {
	business, err := uc.catalogClient.GetBusiness(ctx, businessID)
	if err != nil {
		if errors.Is(err, catalogClient.ErrBusinessNotFound) {
			return "", fmt.Errorf("%w: business id=%d not found in catalog", ErrPayoutAccountMissing, businessID)
		}
		return "", fmt.Errorf("%w: failed to get business: %v", ErrInternal, err)
	}

	account := strings.TrimSpace(ptr.Value(business.PayoutAccountID))
	if account == "" {
		uc.logger.Warn("BookingAction: business id=%d has no payout account", businessID)
		return "", ErrPayoutAccountMissing
	}
	return account, nil
}

// debitGiftCard списывает зафиксированную скидку с денежной карты, баланс не уходит в минус
func (uc *UseCase) debitGiftCard(ctx context.Context, b *domain.Booking) error {
	d := b.Discount
	if d == nil || d.Type != domain.GiftCardAmount || d.Amount <= 0 {
		return nil
	}

	card, err := uc.giftCardRepo.GetByIDForUpdate(ctx, d.GiftCardID)
	if err != nil {
		if errors.Is(err, giftCardRepo.ErrGiftCardNotFound) {
			uc.logger.Warn("BookingAction: gift card id=%d of booking id=%d not found, skip debit", d.GiftCardID, b.ID)
			return nil
		}
		return fmt.Errorf("%w: failed to lock gift card: %v", ErrInternal, err)
	}

	debit := min(d.Amount, card.Balance)
	if debit <= 0 {
		return nil
	}

	return uc.moveBalance(ctx, card, b.ID, domain.GiftCardEntryDebit, debit, card.Balance-debit)
}

// creditGiftCard возвращает на денежную карту то, что с неё реально списали по бронированию,
// если политика бизнеса это разрешает. Списание могло быть урезано до остатка баланса
func (uc *UseCase) creditGiftCard(ctx context.Context, b *domain.Booking) error {
	d := b.Discount
	if d == nil || d.Type != domain.GiftCardAmount || d.Amount <= 0 {
		return nil
	}

	policy, err := uc.policyProvider.Resolve(ctx, b.BusinessID, ptr.Ptr(b.ServiceID))
	if err != nil {
		return fmt.Errorf("%w: failed to resolve policy: %v", ErrInternal, err)
	}
	if !policy.RestoreGiftCardOnRefund {
		return nil
	}

	card, err := uc.giftCardRepo.GetByIDForUpdate(ctx, d.GiftCardID)
	if err != nil {
		if errors.Is(err, giftCardRepo.ErrGiftCardNotFound) {
			uc.logger.Warn("BookingAction: gift card id=%d of booking id=%d not found, skip credit", d.GiftCardID, b.ID)
			return nil
		}
		return fmt.Errorf("%w: failed to lock gift card: %v", ErrInternal, err)
	}

	credit, err := uc.giftCardRepo.NetDebited(ctx, card.ID, b.ID)
	if err != nil {
		return fmt.Errorf("%w: failed to sum gift card ledger: %v", ErrInternal, err)
	}
	if credit <= 0 {
		return nil
	}

	return uc.moveBalance(ctx, card, b.ID, domain.GiftCardEntryRefundCredit, credit, card.Balance+credit)
}

func (uc *UseCase) moveBalance(ctx context.Context, card *domain.GiftCard, bookingID int64, entry domain.GiftCardEntryType, amount, balanceAfter int64) error {
	if err := uc.giftCardRepo.SetBalance(ctx, card.ID, balanceAfter); err != nil {
		return fmt.Errorf("%w: failed to set gift card balance: %v", ErrInternal, err)
	}

	if _, err := uc.giftCardRepo.AppendLedger(ctx, &domain.GiftCardLedgerEntry{
		GiftCardID:   card.ID,
		BookingID:    bookingID,
		EntryType:    entry,
		Amount:       amount,
		BalanceAfter: balanceAfter,
	}); err != nil {
		return fmt.Errorf("%w: failed to append gift card ledger: %v", ErrInternal, err)
	}

	uc.logger.Info("BookingAction: gift card id=%d %s %d, balance=%d", card.ID, entry, amount, balanceAfter)
	return nil
}

// notify отправляет уведомления по результату действия
func (uc *UseCase) notify(ctx context.Context, b *domain.Booking, result *domain.ActionResult, now time.Time) {
	if result.ResultStatus == domain.ResultFailed || result.ResultStatus == domain.ResultNoChargeToRefund {
		return
	}

	emit := func(t notifications.EventType) {
		uc.emitter.Emit(ctx, notifications.Event{
			Type:          t,
			BookingID:     b.ID,
			BookingCode:   b.Code,
			BusinessID:    b.BusinessID,
			ServiceID:     b.ServiceID,
			StaffID:       b.StaffID,
			StartAt:       b.StartAt,
			CustomerName:  b.Customer.Name,
			CustomerEmail: ptr.Ptr(b.Customer.Email),
			CustomerPhone: b.Customer.Phone,
			Amount:        result.Amount,
			Currency:      result.Currency,
			OccurredAt:    now.UTC(),
		})
	}

	switch result.Action {
	case domain.ActionComplete:
		emit(notifications.EventBookingCompleted)
	case domain.ActionNoShow:
		if result.Amount > 0 {
			emit(notifications.EventFeeCharged)
		}
	case domain.ActionCancel:
		if result.Amount > 0 {
			emit(notifications.EventFeeCharged)
		}
		emit(notifications.EventBookingCancelled)
	case domain.ActionRefund:
		emit(notifications.EventRefunded)
	}
}

// gatewayError переводит ошибку шлюза в ошибку use case
func gatewayError(err error) error {
	switch {
	case errors.Is(err, paymentgateway.ErrNoPaymentMethod):
		return fmt.Errorf("%w: %v", ErrNoPaymentMethod, err)
	default:
		return fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
}

func (uc *UseCase) logFailure(req *Request, err error) {
	switch {
	case errors.Is(err, ErrGatewayFailure), errors.Is(err, ErrInternal):
		uc.logger.Error("BookingAction: %s for booking id=%d failed, rolled back: %v", req.Action, req.BookingID, err)
	default:
		uc.logger.Warn("BookingAction: %s for booking id=%d rejected: %v", req.Action, req.BookingID, err)
	}
}
