package paymentgateway

import "errors"

var (
	// ErrDeclined карта отклонена. Повтор с тем же ключом даст тот же результат
	ErrDeclined = errors.New("paymentgateway: card declined")

	// ErrUnavailable шлюз недоступен или ответил 5xx/429 после всех повторов
	ErrUnavailable = errors.New("paymentgateway: gateway unavailable")

	// ErrInvalidRequest шлюз отверг запрос (невалидные параметры, конфликт ключа идемпотентности)
	ErrInvalidRequest = errors.New("paymentgateway: invalid request")

	// ErrNoPaymentMethod у SetupIntent нет сохранённой карты
	ErrNoPaymentMethod = errors.New("paymentgateway: no saved payment method")

	// ErrNotConfigured секретный ключ не задан
	ErrNotConfigured = errors.New("paymentgateway: not configured")
)

// DeclineError отказ карты с кодом причины от эмитента
type DeclineError struct {
	Reason string
}

func (e *DeclineError) Error() string {
	return ErrDeclined.Error() + ": " + e.Reason
}

func (e *DeclineError) Unwrap() error {
	return ErrDeclined
}

// DeclineReason достаёт код причины отказа, пустая строка если это не отказ
func DeclineReason(err error) string {
	var de *DeclineError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
