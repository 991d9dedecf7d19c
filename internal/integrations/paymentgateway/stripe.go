package paymentgateway

import (
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// stripeAPI узкий срез SDK, которым пользуется шлюз
type stripeAPI interface {
	NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error)
	NewSetupIntent(params *stripe.SetupIntentParams) (*stripe.SetupIntent, error)
	GetSetupIntent(id string, params *stripe.SetupIntentParams) (*stripe.SetupIntent, error)
	NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	NewRefund(params *stripe.RefundParams) (*stripe.Refund, error)
}

type sdkAPI struct {
	api *client.API
}

// newSDKAPI собирает клиент SDK. Встроенные повторы SDK выключены, повторами управляет шлюз
func newSDKAPI(secretKey string, timeout time.Duration) *sdkAPI {
	cfg := func() *stripe.BackendConfig {
		return &stripe.BackendConfig{
			HTTPClient:        &http.Client{Timeout: timeout},
			MaxNetworkRetries: stripe.Int64(0),
		}
	}

	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg()),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg()),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg()),
	})

	return &sdkAPI{api: api}
}

func (s *sdkAPI) NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	return s.api.Customers.New(params)
}

func (s *sdkAPI) NewSetupIntent(params *stripe.SetupIntentParams) (*stripe.SetupIntent, error) {
	return s.api.SetupIntents.New(params)
}

func (s *sdkAPI) GetSetupIntent(id string, params *stripe.SetupIntentParams) (*stripe.SetupIntent, error) {
	return s.api.SetupIntents.Get(id, params)
}

func (s *sdkAPI) NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return s.api.PaymentIntents.New(params)
}

func (s *sdkAPI) GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return s.api.PaymentIntents.Get(id, params)
}

func (s *sdkAPI) NewRefund(params *stripe.RefundParams) (*stripe.Refund, error) {
	return s.api.Refunds.New(params)
}
