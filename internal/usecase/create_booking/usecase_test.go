package create_booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/booking"
	giftCardRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/giftcard"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notifications"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

// fakeBookingStore имитирует частичный уникальный индекс по (staff_id, start_at)
type fakeBookingStore struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]*domain.Booking
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: make(map[int64]*domain.Booking)}
}

func (f *fakeBookingStore) Create(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.bookings {
		if existing.IsActive() && existing.StaffID == b.StaffID && existing.StartAt.Equal(b.StartAt) {
			return nil, fmt.Errorf("%w: Create - insert booking", bookingRepo.ErrSlotTaken)
		}
	}

	f.nextID++
	cp := *b
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	f.bookings[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeBookingStore) GetActiveByStaff(_ context.Context, staffIDs []int64, from, to time.Time) ([]*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*domain.Booking, 0)
	for _, b := range f.bookings {
		if !b.IsActive() || !b.StartAt.Before(to) || !b.EndAt.After(from) {
			continue
		}
		for _, id := range staffIDs {
			if b.StaffID == id {
				cp := *b
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (f *fakeBookingStore) SetPaymentSetup(_ context.Context, id int64, customerID, setupIntentID, clientSecret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok || !b.IsActive() {
		return bookingRepo.ErrBookingNotFound
	}
	b.GatewayCustomerID = &customerID
	b.SetupIntentID = &setupIntentID
	b.SetupClientSecret = &clientSecret
	b.PaymentStatus = domain.PaymentCardSaved
	return nil
}

type fakePayments struct {
	mu      sync.Mutex
	records []*domain.BookingPayment
}

func (f *fakePayments) Append(_ context.Context, p *domain.BookingPayment) (*domain.BookingPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, p)
	return p, nil
}

type fakeGiftCards struct {
	cards map[string]*domain.GiftCard
}

func (f *fakeGiftCards) GetByCode(_ context.Context, businessID int64, code string) (*domain.GiftCard, error) {
	c, ok := f.cards[code]
	if !ok || c.BusinessID != businessID {
		return nil, giftCardRepo.ErrGiftCardNotFound
	}
	return c, nil
}

type fakePolicy struct {
	policy *domain.BusinessPolicy
}

func (f *fakePolicy) Resolve(context.Context, int64, *int64) (*domain.BusinessPolicy, error) {
	cp := *f.policy
	return &cp, nil
}

type fakeSlots struct {
	slots []get_available_slots.Slot
}

func (f *fakeSlots) Execute(_ context.Context, req *get_available_slots.Request) (*get_available_slots.Response, error) {
	out := make([]get_available_slots.Slot, 0)
	for _, s := range f.slots {
		if req.StaffID == nil || s.StaffID == *req.StaffID {
			out = append(out, s)
		}
	}
	return &get_available_slots.Response{Slots: out}, nil
}

type fakeCatalog struct{}

func (fakeCatalog) GetBusiness(_ context.Context, id int64) (*catalogservice.Business, error) {
	if id != 1 {
		return nil, catalogservice.ErrBusinessNotFound
	}
	return &catalogservice.Business{ID: 1, Timezone: "UTC", Currency: "USD"}, nil
}

func (fakeCatalog) GetService(_ context.Context, _, id int64) (*catalogservice.Service, error) {
	if id != 10 {
		return nil, catalogservice.ErrServiceNotFound
	}
	return &catalogservice.Service{ID: 10, BusinessID: 1, Name: "Haircut", DurationMinutes: 60, Price: 10000, Active: true}, nil
}

func (fakeCatalog) GetServiceStaff(context.Context, int64, int64) ([]catalogservice.Staff, error) {
	return []catalogservice.Staff{{ID: 5, Name: "Sam"}, {ID: 6, Name: "Alex"}}, nil
}

// fakeSchedule открывает сотрудников 5 и 6 с 09:00 до 18:00 каждый день
type fakeSchedule struct{}

func (fakeSchedule) GetRules(_ context.Context, serviceID int64, weekday time.Weekday, staffIDs []int64) ([]domain.AvailabilityRule, error) {
	out := make([]domain.AvailabilityRule, 0, len(staffIDs))
	for _, id := range staffIDs {
		out = append(out, domain.AvailabilityRule{StaffID: id, ServiceID: serviceID, Weekday: weekday, StartTime: "09:00", EndTime: "18:00"})
	}
	return out, nil
}

func (fakeSchedule) GetBlackouts(context.Context, int64, time.Time, time.Time) ([]domain.Blackout, error) {
	return nil, nil
}

type fakeGateway struct {
	mu    sync.Mutex
	err   error
	calls int
	keys  []string
}

func (f *fakeGateway) CreateSetup(_ context.Context, req paymentgateway.SetupRequest) (*paymentgateway.SetupResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.keys = append(f.keys, req.IdempotencyKey)
	if f.err != nil {
		return nil, f.err
	}
	return &paymentgateway.SetupResult{CustomerID: "cus_1", SetupIntentID: "seti_1", ClientSecret: "seti_1_secret"}, nil
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

type fakeMetrics struct {
	mu        sync.Mutex
	created   int
	conflicts int
}

func (f *fakeMetrics) IncBookingCreated() {
	f.mu.Lock()
	f.created++
	f.mu.Unlock()
}

func (f *fakeMetrics) IncSlotConflict() {
	f.mu.Lock()
	f.conflicts++
	f.mu.Unlock()
}

type fakeTx struct{}

func (fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type testEnv struct {
	uc       *UseCase
	bookings *fakeBookingStore
	payments *fakePayments
	cards    *fakeGiftCards
	policy   *fakePolicy
	gateway  *fakeGateway
	emitter  *fakeEmitter
	metrics  *fakeMetrics
}

var slotStart = time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)

func newTestEnv() *testEnv {
	env := &testEnv{
		bookings: newFakeBookingStore(),
		payments: &fakePayments{},
		cards:    &fakeGiftCards{cards: map[string]*domain.GiftCard{}},
		policy: &fakePolicy{policy: &domain.BusinessPolicy{
			BusinessID:             1,
			NoShowFee:              domain.FeeRule{Type: domain.FeeTypeAmount, Amount: 2000},
			CancellationFee:        domain.FeeRule{Type: domain.FeeTypePercent, Percent: 50},
			CancellationPolicyText: "Free cancellation up to 24h",
		}},
		gateway: &fakeGateway{},
		emitter: &fakeEmitter{},
		metrics: &fakeMetrics{},
	}

	slots := &fakeSlots{slots: []get_available_slots.Slot{
		{StaffID: 5, StaffName: "Sam", StartAt: slotStart, EndAt: slotStart.Add(time.Hour)},
		{StaffID: 6, StaffName: "Alex", StartAt: slotStart, EndAt: slotStart.Add(time.Hour)},
	}}

	env.uc = NewUseCase(env.bookings, env.payments, env.cards, env.policy, slots, fakeCatalog{},
		env.gateway, env.emitter, env.metrics, fakeTx{}, "usd", nopLogger{})
	env.uc.timeProvider = fixedTime{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	return env
}

func validRequest() *Request {
	return &Request{
		BusinessID:       1,
		ServiceID:        10,
		StaffID:          5,
		StartAt:          slotStart,
		Customer:         Customer{Name: "Ann Lee", Email: "ann@example.com"},
		ConsentIP:        "203.0.113.7",
		ConsentUserAgent: "Mozilla/5.0",
	}
}

func TestExecute_CreatesPendingBookingWithSavedCard(t *testing.T) {
	env := newTestEnv()

	resp, err := env.uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "card_saved", resp.PaymentStatus)
	assert.Equal(t, "seti_1_secret", resp.PaymentSetupHandle)
	assert.False(t, resp.PaymentSetupPending)
	assert.Regexp(t, `^BK-[0-9A-F]{8}$`, resp.BookingCode)
	assert.Equal(t, int64(10000), resp.FinalPrice)
	assert.Equal(t, "usd", resp.Currency)
	assert.Equal(t, "Sam", resp.StaffName)

	stored := env.bookings.bookings[resp.BookingID]
	require.NotNil(t, stored)
	assert.Equal(t, domain.PaymentCardSaved, stored.PaymentStatus)
	assert.Equal(t, int64(2000), stored.Policy.NoShowFee.Amount)
	assert.Equal(t, "203.0.113.7", stored.Consent.IP)
	assert.Equal(t, "Mozilla/5.0", stored.Consent.UserAgent)
	assert.False(t, stored.Consent.At.IsZero())

	require.Len(t, env.payments.records, 1)
	assert.Equal(t, domain.PaymentActionCardSetup, env.payments.records[0].Action)
	assert.Equal(t, int64(0), env.payments.records[0].Amount)
	assert.Equal(t, domain.PaymentRecordCardSaved, env.payments.records[0].Status)

	assert.Equal(t, []string{"setup:" + resp.BookingCode}, env.gateway.keys)
	require.Len(t, env.emitter.events, 1)
	assert.Equal(t, notifications.EventBookingCreated, env.emitter.events[0].Type)
	assert.Equal(t, 1, env.metrics.created)
}

func TestExecute_SecondBookingOfSameSlotConflicts(t *testing.T) {
	env := newTestEnv()

	_, err := env.uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	second := validRequest()
	second.Customer = Customer{Name: "Bob", Email: "bob@example.com"}
	_, err = env.uc.Execute(context.Background(), second)
	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.Equal(t, 1, env.metrics.conflicts)

	// другой сотрудник в то же время свободен
	other := validRequest()
	other.StaffID = 6
	_, err = env.uc.Execute(context.Background(), other)
	assert.NoError(t, err)
}

func TestExecute_ConcurrentRequestsExactlyOneWins(t *testing.T) {
	env := newTestEnv()

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.Customer.Email = fmt.Sprintf("c%d@example.com", i)

			_, err := env.uc.Execute(context.Background(), req)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
}

func TestExecute_SlotNotInSchedule(t *testing.T) {
	env := newTestEnv()

	req := validRequest()
	req.StartAt = slotStart.Add(7 * time.Minute)
	_, err := env.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotNotBookable)

	req = validRequest()
	req.StaffID = 99
	_, err = env.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotNotBookable)

	assert.Empty(t, env.bookings.bookings)
}

func TestExecute_GiftCardDiscountDoesNotMoveBalance(t *testing.T) {
	env := newTestEnv()
	env.cards.cards["GIFT50"] = &domain.GiftCard{ID: 3, BusinessID: 1, Code: "GIFT50", Type: domain.GiftCardAmount, Balance: 5000, Active: true}

	req := validRequest()
	req.GiftCode = ptr.Ptr(" GIFT50 ")
	resp, err := env.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int64(5000), resp.DiscountAmount)
	assert.Equal(t, int64(5000), resp.FinalPrice)
	assert.Equal(t, int64(5000), env.cards.cards["GIFT50"].Balance)

	stored := env.bookings.bookings[resp.BookingID]
	require.NotNil(t, stored.Discount)
	assert.Equal(t, int64(3), stored.Discount.GiftCardID)

	// повторное применение до списания даёт ту же скидку
	again := validRequest()
	again.StaffID = 6
	again.GiftCode = ptr.Ptr("GIFT50")
	resp, err = env.uc.Execute(context.Background(), again)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), resp.DiscountAmount)
	assert.Equal(t, int64(5000), env.cards.cards["GIFT50"].Balance)
}

func TestExecute_PercentGiftCard(t *testing.T) {
	env := newTestEnv()
	env.cards.cards["P20"] = &domain.GiftCard{ID: 4, BusinessID: 1, Code: "P20", Type: domain.GiftCardPercent, Percent: 20, Active: true}

	req := validRequest()
	req.GiftCode = ptr.Ptr("P20")
	resp, err := env.uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), resp.DiscountAmount)
	assert.Equal(t, int64(8000), resp.FinalPrice)
}

func TestExecute_InvalidGiftCardRejectedBeforeWrite(t *testing.T) {
	env := newTestEnv()
	expired := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	env.cards.cards["OLD"] = &domain.GiftCard{ID: 5, BusinessID: 1, Code: "OLD", Type: domain.GiftCardAmount, Balance: 5000, Active: true, ExpiresAt: &expired}
	env.cards.cards["EMPTY"] = &domain.GiftCard{ID: 6, BusinessID: 1, Code: "EMPTY", Type: domain.GiftCardAmount, Balance: 0, Active: true}

	for _, code := range []string{"OLD", "EMPTY", "MISSING"} {
		req := validRequest()
		req.GiftCode = ptr.Ptr(code)
		_, err := env.uc.Execute(context.Background(), req)
		assert.ErrorIs(t, err, ErrGiftCardInvalid, code)
	}

	assert.Empty(t, env.bookings.bookings)
	assert.Zero(t, env.gateway.calls)
}

func TestExecute_PaymentSetupFailureKeepsBooking(t *testing.T) {
	env := newTestEnv()
	env.gateway.err = paymentgateway.ErrUnavailable

	resp, err := env.uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	assert.True(t, resp.PaymentSetupPending)
	assert.Empty(t, resp.PaymentSetupHandle)
	assert.Equal(t, "none", resp.PaymentStatus)

	stored := env.bookings.bookings[resp.BookingID]
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Equal(t, domain.PaymentNone, stored.PaymentStatus)
	assert.Empty(t, env.payments.records)
	assert.Empty(t, env.emitter.events)
}

func TestExecute_Validation(t *testing.T) {
	env := newTestEnv()

	cases := map[string]func(r *Request){
		"missing name":     func(r *Request) { r.Customer.Name = "   " },
		"bad email":        func(r *Request) { r.Customer.Email = "not-an-email" },
		"no staff":         func(r *Request) { r.StaffID = 0 },
		"zero start":       func(r *Request) { r.StartAt = time.Time{} },
		"seconds in start": func(r *Request) { r.StartAt = slotStart.Add(30 * time.Second) },
	}

	for name, mutate := range cases {
		req := validRequest()
		mutate(req)
		_, err := env.uc.Execute(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}
}

func TestExecute_NotFound(t *testing.T) {
	env := newTestEnv()

	req := validRequest()
	req.BusinessID = 2
	_, err := env.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrBusinessNotFound)

	req = validRequest()
	req.ServiceID = 11
	_, err = env.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestExecute_OverlappingBookingOfSameStaffConflicts(t *testing.T) {
	env := newTestEnv()

	// реальный генератор слотов поверх того же хранилища бронирований
	slots := get_available_slots.NewUseCase(env.bookings, fakeSchedule{}, env.policy, fakeCatalog{}, nopLogger{})
	env.uc.slotsProvider = slots
	env.uc.timeProvider = &RealTimeProvider{}

	y, m, d := time.Now().UTC().AddDate(0, 0, 7).Date()
	first := validRequest()
	first.StartAt = time.Date(y, m, d, 14, 0, 0, 0, time.UTC)

	resp, err := env.uc.Execute(context.Background(), first)
	require.NoError(t, err)
	assert.True(t, resp.EndAt.Equal(first.StartAt.Add(time.Hour)))

	overlapping := validRequest()
	overlapping.Customer = Customer{Name: "Bob", Email: "bob@example.com"}
	overlapping.StartAt = first.StartAt.Add(15 * time.Minute)
	_, err = env.uc.Execute(context.Background(), overlapping)
	assert.ErrorIs(t, err, ErrSlotConflict)

	earlier := validRequest()
	earlier.Customer = Customer{Name: "Eve", Email: "eve@example.com"}
	earlier.StartAt = first.StartAt.Add(-45 * time.Minute)
	_, err = env.uc.Execute(context.Background(), earlier)
	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.Equal(t, 2, env.metrics.conflicts)

	// соседний слот встык и другой сотрудник в то же время свободны
	adjacent := validRequest()
	adjacent.StartAt = first.StartAt.Add(time.Hour)
	_, err = env.uc.Execute(context.Background(), adjacent)
	assert.NoError(t, err)

	other := validRequest()
	other.StaffID = 6
	other.StartAt = overlapping.StartAt
	_, err = env.uc.Execute(context.Background(), other)
	assert.NoError(t, err)

	active := 0
	for _, b := range env.bookings.bookings {
		if b.StaffID == 5 && b.IsActive() {
			active++
		}
	}
	assert.Equal(t, 2, active)
}
