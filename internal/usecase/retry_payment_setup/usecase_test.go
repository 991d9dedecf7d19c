package retry_payment_setup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/booking"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notifications"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fakeBookings struct {
	bookings map[int64]*domain.Booking
	// expireOnSetup имитирует reaper, успевший освободить холд
	expireOnSetup bool
}

func (f *fakeBookings) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) SetPaymentSetup(_ context.Context, id int64, customerID, setupIntentID, clientSecret string) error {
	b := f.bookings[id]
	if f.expireOnSetup {
		b.Status = domain.StatusExpired
	}
	if !b.IsActive() {
		return bookingRepo.ErrBookingNotFound
	}
	b.GatewayCustomerID = &customerID
	b.SetupIntentID = &setupIntentID
	b.SetupClientSecret = &clientSecret
	b.PaymentStatus = domain.PaymentCardSaved
	return nil
}

type fakePayments struct {
	records []*domain.BookingPayment
}

func (f *fakePayments) Append(_ context.Context, p *domain.BookingPayment) (*domain.BookingPayment, error) {
	f.records = append(f.records, p)
	return p, nil
}

type fakeGateway struct {
	err  error
	keys []string
}

func (f *fakeGateway) CreateSetup(_ context.Context, req paymentgateway.SetupRequest) (*paymentgateway.SetupResult, error) {
	f.keys = append(f.keys, req.IdempotencyKey)
	if f.err != nil {
		return nil, f.err
	}
	return &paymentgateway.SetupResult{CustomerID: "cus_9", SetupIntentID: "seti_9", ClientSecret: "seti_9_secret"}, nil
}

type fakeEmitter struct {
	events []notifications.Event
}

func (f *fakeEmitter) Emit(_ context.Context, e notifications.Event) {
	f.events = append(f.events, e)
}

type fakeTx struct{}

func (fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestUseCase(b *domain.Booking) (*UseCase, *fakeBookings, *fakePayments, *fakeGateway, *fakeEmitter) {
	bookings := &fakeBookings{bookings: map[int64]*domain.Booking{b.ID: b}}
	payments := &fakePayments{}
	gateway := &fakeGateway{}
	emitter := &fakeEmitter{}
	return NewUseCase(bookings, payments, gateway, emitter, fakeTx{}, nopLogger{}), bookings, payments, gateway, emitter
}

func unpaidBooking() *domain.Booking {
	return &domain.Booking{
		ID:            3,
		Code:          "BK-0A1B2C3D",
		BusinessID:    1,
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentNone,
		FinalPrice:    4500,
		Currency:      "usd",
		Customer:      domain.CustomerInfo{Name: "Ann", Email: "ann@example.com"},
	}
}

func TestExecute_SavesCard(t *testing.T) {
	uc, bookings, payments, gateway, emitter := newTestUseCase(unpaidBooking())

	resp, err := uc.Execute(context.Background(), &Request{BookingID: 3, BookingCode: "BK-0A1B2C3D"})
	require.NoError(t, err)

	assert.Equal(t, "seti_9_secret", resp.PaymentSetupHandle)
	assert.Equal(t, "card_saved", resp.PaymentStatus)
	assert.Equal(t, []string{"setup:BK-0A1B2C3D"}, gateway.keys)
	assert.Equal(t, domain.PaymentCardSaved, bookings.bookings[3].PaymentStatus)

	require.Len(t, payments.records, 1)
	assert.Equal(t, domain.PaymentActionCardSetup, payments.records[0].Action)
	require.Len(t, emitter.events, 1)
	assert.Equal(t, notifications.EventBookingCreated, emitter.events[0].Type)
}

func TestExecute_Rejections(t *testing.T) {
	t.Run("code mismatch", func(t *testing.T) {
		uc, _, _, gateway, _ := newTestUseCase(unpaidBooking())
		_, err := uc.Execute(context.Background(), &Request{BookingID: 3, BookingCode: "BK-FFFFFFFF"})
		assert.ErrorIs(t, err, ErrBookingNotFound)
		assert.Empty(t, gateway.keys)
	})

	t.Run("card already saved", func(t *testing.T) {
		b := unpaidBooking()
		b.PaymentStatus = domain.PaymentCardSaved
		uc, _, _, _, _ := newTestUseCase(b)
		_, err := uc.Execute(context.Background(), &Request{BookingID: 3, BookingCode: b.Code})
		assert.ErrorIs(t, err, ErrSetupNotAllowed)
	})

	t.Run("hold expired", func(t *testing.T) {
		b := unpaidBooking()
		b.Status = domain.StatusExpired
		uc, _, _, _, _ := newTestUseCase(b)
		_, err := uc.Execute(context.Background(), &Request{BookingID: 3, BookingCode: b.Code})
		assert.ErrorIs(t, err, ErrSetupNotAllowed)
	})

	t.Run("missing code", func(t *testing.T) {
		uc, _, _, _, _ := newTestUseCase(unpaidBooking())
		_, err := uc.Execute(context.Background(), &Request{BookingID: 3})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestExecute_GatewayFailure(t *testing.T) {
	uc, bookings, payments, gateway, emitter := newTestUseCase(unpaidBooking())
	gateway.err = paymentgateway.ErrUnavailable

	_, err := uc.Execute(context.Background(), &Request{BookingID: 3, BookingCode: "BK-0A1B2C3D"})
	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.Equal(t, domain.PaymentNone, bookings.bookings[3].PaymentStatus)
	assert.Empty(t, payments.records)
	assert.Empty(t, emitter.events)
}

func TestExecute_ReaperWinsRace(t *testing.T) {
	uc, bookings, _, _, emitter := newTestUseCase(unpaidBooking())
	bookings.expireOnSetup = true

	_, err := uc.Execute(context.Background(), &Request{BookingID: 3, BookingCode: "BK-0A1B2C3D"})
	assert.ErrorIs(t, err, ErrSetupNotAllowed)
	assert.Empty(t, emitter.events)
}
