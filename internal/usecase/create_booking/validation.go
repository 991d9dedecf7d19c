package create_booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-AppointmentService/pkg/validator"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if err := validator.ValidateStruct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if strings.TrimSpace(req.Customer.Name) == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}

	// Слоты выровнены по сетке 15 минут без секунд
	if req.StartAt.Second() != 0 || req.StartAt.Nanosecond() != 0 {
		return fmt.Errorf("%w: startAt must not contain seconds", ErrInvalidInput)
	}

	return nil
}

// localDate календарная дата момента в часовом поясе бизнеса
func localDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// normalizeGiftCode убирает пробелы, пустой код считается отсутствующим
func normalizeGiftCode(code *string) string {
	if code == nil {
		return ""
	}
	return strings.TrimSpace(*code)
}
