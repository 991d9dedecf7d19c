package booking_action

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/booking"
	giftCardRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/giftcard"
	idempotencyRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/idempotency"
	paymentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/payment"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notifications"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

// memStore хранилище в памяти с транзакциями: txMu сериализует транзакции (как FOR UPDATE
// на одном бронировании), при ошибке состояние восстанавливается из снимка
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	bookings map[int64]*domain.Booking
	payments []*domain.BookingPayment
	records  map[string]*domain.IdempotencyRecord
	cards    map[int64]*domain.GiftCard
	ledger   []*domain.GiftCardLedgerEntry

	nextPaymentID int64
}

type txKey struct{}

func newMemStore() *memStore {
	return &memStore{
		bookings: make(map[int64]*domain.Booking),
		records:  make(map[string]*domain.IdempotencyRecord),
		cards:    make(map[int64]*domain.GiftCard),
	}
}

type snapshot struct {
	bookings map[int64]domain.Booking
	payments []*domain.BookingPayment
	records  map[string]*domain.IdempotencyRecord
	cards    map[int64]domain.GiftCard
	ledger   []*domain.GiftCardLedgerEntry
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		bookings: make(map[int64]domain.Booking, len(s.bookings)),
		payments: append([]*domain.BookingPayment(nil), s.payments...),
		records:  make(map[string]*domain.IdempotencyRecord, len(s.records)),
		cards:    make(map[int64]domain.GiftCard, len(s.cards)),
		ledger:   append([]*domain.GiftCardLedgerEntry(nil), s.ledger...),
	}
	for id, b := range s.bookings {
		snap.bookings[id] = *b
	}
	for k, r := range s.records {
		snap.records[k] = r
	}
	for id, c := range s.cards {
		snap.cards[id] = *c
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookings = make(map[int64]*domain.Booking, len(snap.bookings))
	for id, b := range snap.bookings {
		b := b
		s.bookings[id] = &b
	}
	s.payments = snap.payments
	s.records = snap.records
	s.cards = make(map[int64]*domain.GiftCard, len(snap.cards))
	for id, c := range snap.cards {
		c := c
		s.cards[id] = &c
	}
	s.ledger = snap.ledger
}

// Do TransactionManager
func (s *memStore) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) addBooking(b domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = &b
}

func (s *memStore) booking(id int64) domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.bookings[id]
}

func (s *memStore) paymentsOf(bookingID int64) []domain.BookingPayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BookingPayment, 0)
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			out = append(out, *p)
		}
	}
	return out
}

func (s *memStore) card(id int64) domain.GiftCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.cards[id]
}

type bookingStore struct{ *memStore }

func (s bookingStore) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s bookingStore) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.GetByID(ctx, id)
}

func (s bookingStore) UpdateLifecycle(_ context.Context, id int64, status domain.BookingStatus, paymentStatus domain.PaymentStatus, closedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	b.Status = status
	b.PaymentStatus = paymentStatus
	if closedAt != nil {
		b.ClosedAt = closedAt
	}
	return nil
}

func (s bookingStore) UpdatePaymentStatus(_ context.Context, id int64, paymentStatus domain.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	b.PaymentStatus = paymentStatus
	return nil
}

type paymentStore struct{ *memStore }

func (s paymentStore) Append(_ context.Context, p *domain.BookingPayment) (*domain.BookingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPaymentID++
	cp := *p
	cp.ID = s.nextPaymentID
	s.payments = append(s.payments, &cp)
	return &cp, nil
}

func (s paymentStore) GetLastSuccessfulCharge(_ context.Context, bookingID int64) (*domain.BookingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.payments) - 1; i >= 0; i-- {
		p := s.payments[i]
		if p.BookingID == bookingID && p.IsSuccessfulCharge() && p.Amount > 0 {
			cp := *p
			return &cp, nil
		}
	}
	return nil, paymentRepo.ErrPaymentNotFound
}

func (s paymentStore) SettlePending(_ context.Context, id int64, status domain.PaymentRecordStatus, failureReason *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.payments {
		if p.ID == id && p.Status == domain.PaymentRecordPending {
			cp := *p
			cp.Status = status
			cp.FailureReason = failureReason
			s.payments[i] = &cp
			return nil
		}
	}
	return paymentRepo.ErrPaymentNotFound
}

type idempotencyStore struct{ *memStore }

func (s idempotencyStore) Get(_ context.Context, key, route string) (*domain.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[route+"|"+key]
	if !ok {
		return nil, idempotencyRepo.ErrRecordNotFound
	}
	return rec, nil
}

func (s idempotencyStore) Save(_ context.Context, rec *domain.IdempotencyRecord) (*domain.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := rec.Route + "|" + rec.Key
	if existing, ok := s.records[k]; ok {
		return existing, false, nil
	}
	s.records[k] = rec
	return rec, true, nil
}

func (s *memStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type giftCardStore struct{ *memStore }

func (s giftCardStore) GetByIDForUpdate(_ context.Context, id int64) (*domain.GiftCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, giftCardRepo.ErrGiftCardNotFound
	}
	cp := *c
	return &cp, nil
}

func (s giftCardStore) SetBalance(_ context.Context, id int64, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return giftCardRepo.ErrGiftCardNotFound
	}
	c.Balance = balance
	return nil
}

func (s giftCardStore) AppendLedger(_ context.Context, e *domain.GiftCardLedgerEntry) (*domain.GiftCardLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.ledger = append(s.ledger, &cp)
	return &cp, nil
}

func (s giftCardStore) NetDebited(_ context.Context, cardID, bookingID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var net int64
	for _, e := range s.ledger {
		if e.GiftCardID != cardID || e.BookingID != bookingID {
			continue
		}
		if e.EntryType == domain.GiftCardEntryDebit {
			net += e.Amount
		} else {
			net -= e.Amount
		}
	}
	return net, nil
}

type fakePolicy struct {
	mu     sync.Mutex
	policy domain.BusinessPolicy
}

func (f *fakePolicy) Resolve(context.Context, int64, *int64) (*domain.BusinessPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.policy
	return &cp, nil
}

type fakeCatalog struct {
	payout *string
}

func (f fakeCatalog) GetBusiness(_ context.Context, id int64) (*catalogservice.Business, error) {
	return &catalogservice.Business{ID: id, Timezone: "UTC", PayoutAccountID: f.payout}, nil
}

// fakeGateway повторяет идемпотентность шлюза: тот же ключ возвращает тот же результат без нового списания
type fakeGateway struct {
	mu sync.Mutex

	chargeErr    error
	chargeStatus paymentgateway.ChargeStatus
	refundErr    error
	refundStatus bool
	statusErr    error
	statusReads  []string

	charges     map[string]*paymentgateway.ChargeResult
	refunds     map[string]*paymentgateway.RefundResult
	chargeCalls int
	lastCharge  paymentgateway.ChargeRequest
	lastRefund  paymentgateway.RefundRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		chargeStatus: paymentgateway.ChargeSucceeded,
		charges:      make(map[string]*paymentgateway.ChargeResult),
		refunds:      make(map[string]*paymentgateway.RefundResult),
	}
}

func (f *fakeGateway) Charge(_ context.Context, req paymentgateway.ChargeRequest) (*paymentgateway.ChargeResult, error) {
	// имитация сетевой задержки, чтобы параллельные запросы реально пересекались
	time.Sleep(time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.chargeCalls++
	f.lastCharge = req
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}

	key := fmt.Sprintf("%s:%d:%s", req.Action, req.BookingID, req.IdempotencyKey)
	if res, ok := f.charges[key]; ok {
		return res, nil
	}
	res := &paymentgateway.ChargeResult{
		ExternalReference: fmt.Sprintf("pi_%d", len(f.charges)+1),
		PlatformFee:       paymentgateway.PlatformFee(req.Amount, 10),
		Status:            f.chargeStatus,
	}
	f.charges[key] = res
	return res, nil
}

func (f *fakeGateway) Refund(_ context.Context, req paymentgateway.RefundRequest) (*paymentgateway.RefundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRefund = req
	if f.refundErr != nil {
		return nil, f.refundErr
	}

	key := fmt.Sprintf("refund:%d:%s", req.BookingID, req.IdempotencyKey)
	if res, ok := f.refunds[key]; ok {
		return res, nil
	}
	res := &paymentgateway.RefundResult{ExternalReference: fmt.Sprintf("re_%d", len(f.refunds)+1), Pending: f.refundStatus}
	f.refunds[key] = res
	return res, nil
}

// GetChargeStatus отдаёт текущий chargeStatus: тест меняет его, имитируя завершение обработки
func (f *fakeGateway) GetChargeStatus(_ context.Context, externalReference string) (paymentgateway.ChargeStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusReads = append(f.statusReads, externalReference)
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.chargeStatus, nil
}

func (f *fakeGateway) distinctCharges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.charges)
}

type fakeLocker struct {
	err error
}

func (f fakeLocker) Acquire(context.Context, string) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	return func() {}, nil
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (f *fakeEmitter) Emit(_ context.Context, e notifications.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeEmitter) types() []notifications.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notifications.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeMetrics struct {
	mu      sync.Mutex
	actions map[string]int
}

func (f *fakeMetrics) IncBookingAction(action, result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.actions == nil {
		f.actions = make(map[string]int)
	}
	f.actions[action+"/"+result]++
}

type testEnv struct {
	uc      *UseCase
	store   *memStore
	gateway *fakeGateway
	policy  *fakePolicy
	emitter *fakeEmitter
	metrics *fakeMetrics
}

var testNow = time.Date(2026, 6, 15, 16, 0, 0, 0, time.UTC)

func newTestEnv() *testEnv {
	return newTestEnvWith(fakeLocker{}, fakeCatalog{payout: ptr.Ptr("acct_biz")})
}

func newTestEnvWith(l Locker, catalog CatalogClient) *testEnv {
	env := &testEnv{
		store:   newMemStore(),
		gateway: newFakeGateway(),
		policy:  &fakePolicy{policy: domain.BusinessPolicy{BusinessID: 1}},
		emitter: &fakeEmitter{},
		metrics: &fakeMetrics{},
	}

	env.uc = NewUseCase(
		bookingStore{env.store},
		paymentStore{env.store},
		idempotencyStore{env.store},
		giftCardStore{env.store},
		env.policy,
		catalog,
		env.gateway,
		l,
		env.emitter,
		env.metrics,
		env.store,
		0,
		nopLogger{},
	)
	env.uc.timeProvider = fixedTime{now: testNow}
	return env
}

// pendingBooking бронирование с сохранённой картой: цена 10000, штраф за неявку 2000, за отмену 50%
func pendingBooking(id int64) domain.Booking {
	return domain.Booking{
		ID:                id,
		Code:              fmt.Sprintf("BK-%08d", id),
		BusinessID:        1,
		ServiceID:         10,
		StaffID:           5,
		StartAt:           time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC),
		EndAt:             time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC),
		Status:            domain.StatusPending,
		PaymentStatus:     domain.PaymentCardSaved,
		BasePrice:         10000,
		FinalPrice:        10000,
		Currency:          "usd",
		Customer:          domain.CustomerInfo{Name: "Ann Lee", Email: "ann@example.com"},
		GatewayCustomerID: ptr.Ptr("cus_1"),
		SetupIntentID:     ptr.Ptr("seti_1"),
		Policy: domain.PolicySnapshot{
			NoShowFee:       domain.FeeRule{Type: domain.FeeTypeAmount, Amount: 2000},
			CancellationFee: domain.FeeRule{Type: domain.FeeTypePercent, Percent: 50},
		},
	}
}

func actionRequest(bookingID int64, action domain.Action, key string) *Request {
	return &Request{BookingID: bookingID, BusinessID: 1, Action: action, IdempotencyKey: key}
}
