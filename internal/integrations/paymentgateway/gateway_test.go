package paymentgateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type recordedMetrics struct {
	mu    sync.Mutex
	calls map[string]int
}

func (m *recordedMetrics) IncGatewayCall(op, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op+":"+outcome]++
}

type fakeStripe struct {
	mu sync.Mutex

	paymentMethod string

	// ошибки, которые вернёт NewPaymentIntent по очереди
	chargeErrs    []error
	chargeStatus  stripe.PaymentIntentStatus
	chargeCalls   int
	chargeParams  []*stripe.PaymentIntentParams
	refundParams  []*stripe.RefundParams
	refundStatus  stripe.RefundStatus
	customerCalls int

	// статус, который вернёт GetPaymentIntent
	intentStatus stripe.PaymentIntentStatus
	intentIDs    []string
}

func (f *fakeStripe) NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customerCalls++
	return &stripe.Customer{ID: "cus_1"}, nil
}

func (f *fakeStripe) NewSetupIntent(params *stripe.SetupIntentParams) (*stripe.SetupIntent, error) {
	return &stripe.SetupIntent{ID: "seti_1", ClientSecret: "seti_1_secret"}, nil
}

func (f *fakeStripe) GetSetupIntent(id string, params *stripe.SetupIntentParams) (*stripe.SetupIntent, error) {
	si := &stripe.SetupIntent{ID: id}
	if f.paymentMethod != "" {
		si.PaymentMethod = &stripe.PaymentMethod{ID: f.paymentMethod}
	}
	return si, nil
}

func (f *fakeStripe) NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chargeCalls++
	f.chargeParams = append(f.chargeParams, params)
	if len(f.chargeErrs) > 0 {
		err := f.chargeErrs[0]
		f.chargeErrs = f.chargeErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	status := f.chargeStatus
	if status == "" {
		status = stripe.PaymentIntentStatusSucceeded
	}
	return &stripe.PaymentIntent{ID: "pi_1", Status: status}, nil
}

func (f *fakeStripe) GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intentIDs = append(f.intentIDs, id)
	return &stripe.PaymentIntent{ID: id, Status: f.intentStatus}, nil
}

func (f *fakeStripe) NewRefund(params *stripe.RefundParams) (*stripe.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refundParams = append(f.refundParams, params)
	status := f.refundStatus
	if status == "" {
		status = stripe.RefundStatusSucceeded
	}
	return &stripe.Refund{ID: "re_1", Status: status}, nil
}

func newTestGateway(api stripeAPI, m Metrics) *Gateway {
	return &Gateway{
		api:        api,
		feePercent: 10,
		maxTries:   3,
		maxElapsed: time.Second,
		newBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
		log:        nopLogger{},
		metrics:    m,
	}
}

func chargeRequest() ChargeRequest {
	return ChargeRequest{
		BookingID:          42,
		Action:             "completed_charge",
		IdempotencyKey:     "k1",
		Amount:             10000,
		Currency:           "usd",
		CustomerID:         "cus_1",
		SetupIntentID:      "seti_1",
		DestinationAccount: "acct_biz",
	}
}

func TestPlatformFee(t *testing.T) {
	assert.Equal(t, int64(1000), PlatformFee(10000, 10))
	assert.Equal(t, int64(3), PlatformFee(25, 12.5))
	assert.Equal(t, int64(0), PlatformFee(0, 10))
	assert.Equal(t, int64(0), PlatformFee(5000, 0))
}

func TestGateway_ChargeSplitsPayment(t *testing.T) {
	api := &fakeStripe{paymentMethod: "pm_1"}
	m := &recordedMetrics{}
	g := newTestGateway(api, m)

	res, err := g.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)

	assert.Equal(t, "pi_1", res.ExternalReference)
	assert.Equal(t, int64(1000), res.PlatformFee)
	assert.Equal(t, ChargeSucceeded, res.Status)

	require.Len(t, api.chargeParams, 1)
	p := api.chargeParams[0]
	assert.Equal(t, int64(10000), *p.Amount)
	assert.Equal(t, int64(1000), *p.ApplicationFeeAmount)
	assert.Equal(t, "acct_biz", *p.TransferData.Destination)
	assert.Equal(t, "pm_1", *p.PaymentMethod)
	assert.True(t, *p.OffSession)
	assert.Equal(t, "completed_charge:42:k1", *p.IdempotencyKey)
	assert.Equal(t, 1, m.calls["charge:ok"])
}

func TestGateway_ChargeRetriesTransientWithSameKey(t *testing.T) {
	api := &fakeStripe{
		paymentMethod: "pm_1",
		chargeErrs: []error{
			&stripe.Error{HTTPStatusCode: http.StatusServiceUnavailable, Type: stripe.ErrorTypeAPI, Msg: "down"},
			errors.New("connection reset"),
		},
	}
	g := newTestGateway(api, &recordedMetrics{})

	res, err := g.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, "pi_1", res.ExternalReference)
	assert.Equal(t, 3, api.chargeCalls)

	for _, p := range api.chargeParams {
		assert.Equal(t, "completed_charge:42:k1", *p.IdempotencyKey)
	}
}

func TestGateway_ChargeUnavailableAfterRetries(t *testing.T) {
	transient := &stripe.Error{HTTPStatusCode: http.StatusTooManyRequests, Msg: "rate limited"}
	api := &fakeStripe{
		paymentMethod: "pm_1",
		chargeErrs:    []error{transient, transient, transient, transient},
	}
	m := &recordedMetrics{}
	g := newTestGateway(api, m)

	_, err := g.Charge(context.Background(), chargeRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, api.chargeCalls)
	assert.Equal(t, 1, m.calls["charge:unavailable"])
}

func TestGateway_ChargeDeclinedIsNotRetried(t *testing.T) {
	api := &fakeStripe{
		paymentMethod: "pm_1",
		chargeErrs: []error{&stripe.Error{
			HTTPStatusCode: http.StatusPaymentRequired,
			Type:           stripe.ErrorTypeCard,
			Code:           stripe.ErrorCode("card_declined"),
			DeclineCode:    stripe.DeclineCode("insufficient_funds"),
			Msg:            "Your card has insufficient funds.",
		}},
	}
	g := newTestGateway(api, &recordedMetrics{})

	_, err := g.Charge(context.Background(), chargeRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Equal(t, "insufficient_funds", DeclineReason(err))
	assert.Equal(t, 1, api.chargeCalls)
}

func TestGateway_ChargeInvalidRequestIsNotRetried(t *testing.T) {
	api := &fakeStripe{
		paymentMethod: "pm_1",
		chargeErrs: []error{&stripe.Error{
			HTTPStatusCode: http.StatusBadRequest,
			Type:           stripe.ErrorTypeInvalidRequest,
			Msg:            "No such destination",
		}},
	}
	g := newTestGateway(api, &recordedMetrics{})

	_, err := g.Charge(context.Background(), chargeRequest())
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 1, api.chargeCalls)
}

func TestGateway_ChargeProcessing(t *testing.T) {
	api := &fakeStripe{paymentMethod: "pm_1", chargeStatus: stripe.PaymentIntentStatusProcessing}
	g := newTestGateway(api, &recordedMetrics{})

	res, err := g.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, ChargeProcessing, res.Status)
}

func TestGateway_ChargeRequiresAuthentication(t *testing.T) {
	api := &fakeStripe{paymentMethod: "pm_1", chargeStatus: stripe.PaymentIntentStatusRequiresAction}
	g := newTestGateway(api, &recordedMetrics{})

	_, err := g.Charge(context.Background(), chargeRequest())
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Equal(t, "authentication_required", DeclineReason(err))
}

func TestGateway_ChargeWithoutSavedCard(t *testing.T) {
	api := &fakeStripe{}
	g := newTestGateway(api, &recordedMetrics{})

	_, err := g.Charge(context.Background(), chargeRequest())
	assert.ErrorIs(t, err, ErrNoPaymentMethod)
	assert.Equal(t, 0, api.chargeCalls)
}

func TestGateway_Refund(t *testing.T) {
	api := &fakeStripe{}
	g := newTestGateway(api, &recordedMetrics{})

	res, err := g.Refund(context.Background(), RefundRequest{
		BookingID:         42,
		IdempotencyKey:    "k2",
		ExternalReference: "pi_1",
		Amount:            10000,
	})
	require.NoError(t, err)
	assert.Equal(t, "re_1", res.ExternalReference)
	assert.False(t, res.Pending)

	require.Len(t, api.refundParams, 1)
	p := api.refundParams[0]
	assert.True(t, *p.ReverseTransfer)
	assert.True(t, *p.RefundApplicationFee)
	assert.Equal(t, "refund:42:k2", *p.IdempotencyKey)
}

func TestGateway_GetChargeStatus(t *testing.T) {
	tests := []struct {
		intent stripe.PaymentIntentStatus
		want   ChargeStatus
	}{
		{stripe.PaymentIntentStatusSucceeded, ChargeSucceeded},
		{stripe.PaymentIntentStatusProcessing, ChargeProcessing},
		{stripe.PaymentIntentStatusRequiresPaymentMethod, ChargeFailed},
		{stripe.PaymentIntentStatusCanceled, ChargeFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			api := &fakeStripe{intentStatus: tt.intent}
			g := newTestGateway(api, &recordedMetrics{})

			got, err := g.GetChargeStatus(context.Background(), "pi_7")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{"pi_7"}, api.intentIDs)
		})
	}

	api := &fakeStripe{intentStatus: stripe.PaymentIntentStatusRequiresCapture}
	_, err := newTestGateway(api, &recordedMetrics{}).GetChargeStatus(context.Background(), "pi_7")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestGateway_CreateSetup(t *testing.T) {
	api := &fakeStripe{}
	g := newTestGateway(api, &recordedMetrics{})

	res, err := g.CreateSetup(context.Background(), SetupRequest{BookingCode: "BK-1", Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "cus_1", res.CustomerID)
	assert.Equal(t, "seti_1", res.SetupIntentID)
	assert.Equal(t, "seti_1_secret", res.ClientSecret)
}

func TestGateway_NotConfigured(t *testing.T) {
	g := NewGateway(Config{}, nopLogger{}, nil)

	_, err := g.Charge(context.Background(), chargeRequest())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = g.CreateSetup(context.Background(), SetupRequest{BookingCode: "BK-1"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
