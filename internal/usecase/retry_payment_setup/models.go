package retry_payment_setup

// Request повтор сохранения карты. Код бронирования подтверждает, что запрос пришёл от клиента
type Request struct {
	BookingID   int64
	BookingCode string
}

// Response данные для подтверждения карты на фронтенде
type Response struct {
	BookingID          int64
	BookingCode        string
	PaymentStatus      string
	PaymentSetupHandle string
}
