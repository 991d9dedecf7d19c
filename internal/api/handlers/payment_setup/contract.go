package payment_setup

import (
	"context"

	retryPaymentSetup "github.com/m04kA/SMC-AppointmentService/internal/usecase/retry_payment_setup"
)

type RetryPaymentSetupUseCase interface {
	Execute(ctx context.Context, req *retryPaymentSetup.Request) (*retryPaymentSetup.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
