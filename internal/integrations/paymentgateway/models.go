package paymentgateway

// ChargeStatus итог списания на стороне шлюза
type ChargeStatus string

const (
	ChargeSucceeded  ChargeStatus = "succeeded"
	ChargeProcessing ChargeStatus = "processing"
	ChargeFailed     ChargeStatus = "failed"
)

// SetupRequest запрос на сохранение карты клиента
type SetupRequest struct {
	BookingCode    string
	IdempotencyKey string // setup:<code> для первой попытки, далее с суффиксом попытки
	Name           string
	Email          *string
	Phone          *string
}

// SetupResult результат SetupIntent. ClientSecret отдаётся фронтенду для подтверждения карты
type SetupResult struct {
	CustomerID    string
	SetupIntentID string
	ClientSecret  string
}

// ChargeRequest списание с сохранённой карты с разделением платежа
type ChargeRequest struct {
	BookingID          int64
	Action             string // completed_charge | no_show_fee | cancel_fee
	IdempotencyKey     string
	Amount             int64
	Currency           string
	CustomerID         string
	SetupIntentID      string
	DestinationAccount string
}

// ChargeResult результат списания
type ChargeResult struct {
	ExternalReference string
	PlatformFee       int64
	Status            ChargeStatus
}

// RefundRequest возврат по ранее успешному списанию
type RefundRequest struct {
	BookingID         int64
	IdempotencyKey    string
	ExternalReference string
	Amount            int64
}

// RefundResult результат возврата
type RefundResult struct {
	ExternalReference string
	Pending           bool
}
