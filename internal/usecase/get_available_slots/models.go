package get_available_slots

import (
	"time"
)

// Request модель запроса на получение доступных слотов
type Request struct {
	BusinessID int64     // ID бизнеса
	ServiceID  int64     // ID услуги
	StaffID    *int64    // Фильтр по сотруднику (опционально)
	Date       time.Time // Календарная дата в часовом поясе бизнеса (используются только год, месяц, день)

	// IncludeOccupied не исключать занятые слоты. Используется при создании бронирования
	// для структурной проверки: занятость проверяется отдельно, чтобы вернуть конфликт, а не "слот не найден"
	IncludeOccupied bool
}

// Response модель ответа со списком доступных слотов
type Response struct {
	Date            time.Time
	BusinessID      int64
	ServiceID       int64
	Timezone        string
	DurationMinutes int
	Slots           []Slot // отсортированы по началу, затем по сотруднику
}

// Slot модель временного слота
type Slot struct {
	StaffID   int64
	StaffName string
	StartAt   time.Time // UTC
	EndAt     time.Time // UTC
}
