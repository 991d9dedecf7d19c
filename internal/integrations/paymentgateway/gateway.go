package paymentgateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stripe/stripe-go/v79"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Metrics счётчики вызовов шлюза
type Metrics interface {
	IncGatewayCall(op, outcome string)
}

// Config настройки шлюза
type Config struct {
	SecretKey          string
	PlatformFeePercent float64
	Timeout            time.Duration
	MaxRetries         int
	MaxElapsedTime     time.Duration
}

// Gateway маркетплейс-платежи: сохранение карты, списание с разделением
// (комиссия платформы + перевод на аккаунт бизнеса) и возврат.
// Каждый вызов несёт ключ идемпотентности, поэтому повтор не создаёт второго списания
type Gateway struct {
	api        stripeAPI
	feePercent float64
	maxTries   uint
	maxElapsed time.Duration
	newBackOff func() backoff.BackOff
	log        Logger
	metrics    Metrics
}

// NewGateway создает шлюз. Без секретного ключа все вызовы возвращают ErrNotConfigured
func NewGateway(cfg Config, log Logger, m Metrics) *Gateway {
	g := &Gateway{
		feePercent: cfg.PlatformFeePercent,
		maxTries:   uint(cfg.MaxRetries + 1),
		maxElapsed: cfg.MaxElapsedTime,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
		log:     log,
		metrics: m,
	}

	if m == nil {
		g.metrics = noopMetrics{}
	}

	if cfg.SecretKey == "" {
		log.Warn("PaymentGateway: secret key is empty, gateway disabled")
		return g
	}

	g.api = newSDKAPI(cfg.SecretKey, cfg.Timeout)
	return g
}

type noopMetrics struct{}

func (noopMetrics) IncGatewayCall(string, string) {}

// PlatformFee комиссия платформы с суммы списания
func PlatformFee(amount int64, percent float64) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return int64(math.Round(float64(amount) * percent / 100))
}

// CreateSetup создает клиента и SetupIntent для сохранения карты off-session
func (g *Gateway) CreateSetup(ctx context.Context, req SetupRequest) (*SetupResult, error) {
	if g.api == nil {
		return nil, ErrNotConfigured
	}

	key := req.IdempotencyKey
	if key == "" {
		key = "setup:" + req.BookingCode
	}

	customer, err := retry(ctx, g, "create_customer", func() (*stripe.Customer, error) {
		params := &stripe.CustomerParams{
			Name:  stripe.String(req.Name),
			Email: req.Email,
			Phone: req.Phone,
		}
		params.Context = ctx
		params.SetIdempotencyKey(key + ":customer")
		params.AddMetadata("booking_code", req.BookingCode)
		return g.api.NewCustomer(params)
	})
	if err != nil {
		return nil, err
	}

	intent, err := retry(ctx, g, "create_setup", func() (*stripe.SetupIntent, error) {
		params := &stripe.SetupIntentParams{
			Customer:           stripe.String(customer.ID),
			PaymentMethodTypes: []*string{stripe.String("card")},
			Usage:              stripe.String(string(stripe.SetupIntentUsageOffSession)),
		}
		params.Context = ctx
		params.SetIdempotencyKey(key + ":intent")
		params.AddMetadata("booking_code", req.BookingCode)
		return g.api.NewSetupIntent(params)
	})
	if err != nil {
		return nil, err
	}

	return &SetupResult{
		CustomerID:    customer.ID,
		SetupIntentID: intent.ID,
		ClientSecret:  intent.ClientSecret,
	}, nil
}

// Charge списывает сумму с сохранённой карты. ApplicationFeeAmount уходит платформе,
// остаток переводится на DestinationAccount
func (g *Gateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if g.api == nil {
		return nil, ErrNotConfigured
	}

	intent, err := retry(ctx, g, "get_setup", func() (*stripe.SetupIntent, error) {
		params := &stripe.SetupIntentParams{}
		params.Context = ctx
		return g.api.GetSetupIntent(req.SetupIntentID, params)
	})
	if err != nil {
		return nil, err
	}
	if intent.PaymentMethod == nil || intent.PaymentMethod.ID == "" {
		return nil, ErrNoPaymentMethod
	}

	fee := PlatformFee(req.Amount, g.feePercent)
	key := fmt.Sprintf("%s:%d:%s", req.Action, req.BookingID, req.IdempotencyKey)

	pi, err := retry(ctx, g, "charge", func() (*stripe.PaymentIntent, error) {
		params := &stripe.PaymentIntentParams{
			Amount:        stripe.Int64(req.Amount),
			Currency:      stripe.String(req.Currency),
			Customer:      stripe.String(req.CustomerID),
			PaymentMethod: stripe.String(intent.PaymentMethod.ID),
			OffSession:    stripe.Bool(true),
			Confirm:       stripe.Bool(true),
			TransferData: &stripe.PaymentIntentTransferDataParams{
				Destination: stripe.String(req.DestinationAccount),
			},
		}
		if fee > 0 {
			params.ApplicationFeeAmount = stripe.Int64(fee)
		}
		params.Context = ctx
		params.SetIdempotencyKey(key)
		params.AddMetadata("booking_id", strconv.FormatInt(req.BookingID, 10))
		params.AddMetadata("action", req.Action)
		return g.api.NewPaymentIntent(params)
	})
	if err != nil {
		return nil, err
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return &ChargeResult{ExternalReference: pi.ID, PlatformFee: fee, Status: ChargeSucceeded}, nil
	case stripe.PaymentIntentStatusProcessing:
		return &ChargeResult{ExternalReference: pi.ID, PlatformFee: fee, Status: ChargeProcessing}, nil
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresPaymentMethod:
		g.metrics.IncGatewayCall("charge", "declined")
		return nil, &DeclineError{Reason: "authentication_required"}
	default:
		return nil, fmt.Errorf("%w: unexpected payment intent status %s", ErrInvalidRequest, pi.Status)
	}
}

// GetChargeStatus перечитывает PaymentIntent списания, которое шлюз вернул в статусе processing
func (g *Gateway) GetChargeStatus(ctx context.Context, externalReference string) (ChargeStatus, error) {
	if g.api == nil {
		return "", ErrNotConfigured
	}

	pi, err := retry(ctx, g, "get_charge", func() (*stripe.PaymentIntent, error) {
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		return g.api.GetPaymentIntent(externalReference, params)
	})
	if err != nil {
		return "", err
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return ChargeSucceeded, nil
	case stripe.PaymentIntentStatusProcessing:
		return ChargeProcessing, nil
	case stripe.PaymentIntentStatusCanceled,
		stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresAction:
		return ChargeFailed, nil
	default:
		return "", fmt.Errorf("%w: unexpected payment intent status %s", ErrInvalidRequest, pi.Status)
	}
}

// Refund возвращает списание целиком, включая комиссию платформы и перевод бизнесу
func (g *Gateway) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if g.api == nil {
		return nil, ErrNotConfigured
	}

	key := fmt.Sprintf("refund:%d:%s", req.BookingID, req.IdempotencyKey)

	refund, err := retry(ctx, g, "refund", func() (*stripe.Refund, error) {
		params := &stripe.RefundParams{
			PaymentIntent:        stripe.String(req.ExternalReference),
			Amount:               stripe.Int64(req.Amount),
			ReverseTransfer:      stripe.Bool(true),
			RefundApplicationFee: stripe.Bool(true),
		}
		params.Context = ctx
		params.SetIdempotencyKey(key)
		params.AddMetadata("booking_id", strconv.FormatInt(req.BookingID, 10))
		return g.api.NewRefund(params)
	})
	if err != nil {
		return nil, err
	}

	switch refund.Status {
	case stripe.RefundStatusSucceeded:
		return &RefundResult{ExternalReference: refund.ID}, nil
	case stripe.RefundStatusPending:
		return &RefundResult{ExternalReference: refund.ID, Pending: true}, nil
	default:
		return nil, &DeclineError{Reason: "refund_" + string(refund.Status)}
	}
}

// retry выполняет вызов SDK с экспоненциальными повторами только для временных ошибок
func retry[T any](ctx context.Context, g *Gateway, op string, fn func() (T, error)) (T, error) {
	res, err := backoff.Retry(ctx, func() (T, error) {
		r, err := fn()
		if err != nil {
			var zero T
			return zero, classify(err)
		}
		return r, nil
	},
		backoff.WithBackOff(g.newBackOff()),
		backoff.WithMaxTries(g.maxTries),
		backoff.WithMaxElapsedTime(g.maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			g.log.Warn("PaymentGateway: %s failed, retry in %s: %v", op, next, err)
		}),
	)
	if err != nil {
		var zero T
		switch {
		case errors.Is(err, ErrDeclined):
			g.metrics.IncGatewayCall(op, "declined")
			return zero, err
		case errors.Is(err, ErrInvalidRequest):
			g.metrics.IncGatewayCall(op, "rejected")
			g.log.Error("PaymentGateway: %s rejected: %v", op, err)
			return zero, err
		case errors.Is(err, ErrUnavailable):
			g.metrics.IncGatewayCall(op, "unavailable")
			g.log.Error("PaymentGateway: %s unavailable: %v", op, err)
			return zero, err
		default:
			g.metrics.IncGatewayCall(op, "unavailable")
			return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	g.metrics.IncGatewayCall(op, "ok")
	return res, nil
}

// classify разделяет ошибки SDK на постоянные (отказ карты, невалидный запрос) и временные
func classify(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		// сетевые ошибки и таймауты
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case se.Type == stripe.ErrorTypeCard:
		return backoff.Permanent(&DeclineError{Reason: declineReason(se)})
	case se.HTTPStatusCode == http.StatusTooManyRequests,
		se.HTTPStatusCode >= http.StatusInternalServerError,
		se.Type == stripe.ErrorTypeAPI:
		return fmt.Errorf("%w: %s", ErrUnavailable, se.Msg)
	default:
		return backoff.Permanent(fmt.Errorf("%w: %s", ErrInvalidRequest, se.Msg))
	}
}

func declineReason(se *stripe.Error) string {
	if se.DeclineCode != "" {
		return string(se.DeclineCode)
	}
	if se.Code != "" {
		return string(se.Code)
	}
	return se.Msg
}
