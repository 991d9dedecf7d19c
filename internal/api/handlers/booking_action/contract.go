package booking_action

import (
	"context"

	bookingAction "github.com/m04kA/SMC-AppointmentService/internal/usecase/booking_action"
)

type BookingActionUseCase interface {
	Execute(ctx context.Context, req *bookingAction.Request) (*bookingAction.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
