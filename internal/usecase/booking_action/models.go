package booking_action

import "github.com/m04kA/SMC-AppointmentService/internal/domain"

// Request модель запроса на действие владельца над бронированием
type Request struct {
	BookingID      int64
	BusinessID     int64 // бизнес владельца из контекста запроса
	Action         domain.Action
	IdempotencyKey string
}

// Response результат действия. Replayed = true, если ответ взят из хранилища идемпотентности
type Response struct {
	Result   domain.ActionResult
	Replayed bool
}
