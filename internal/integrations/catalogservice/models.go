package catalogservice

// Business модель бизнеса из каталога
type Business struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Timezone        string  `json:"timezone"`          // IANA, например "Europe/Moscow"
	Currency        string  `json:"currency"`          // ISO 4217 в нижнем регистре
	PayoutAccountID *string `json:"payout_account_id"` // подключённый аккаунт для выплат
}

// Service модель услуги из каталога
type Service struct {
	ID              int64  `json:"id"`
	BusinessID      int64  `json:"business_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           int64  `json:"price"` // минорные единицы валюты
	Active          bool   `json:"active"`
}

// Staff сотрудник, который может оказывать услугу
type Staff struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ErrorResponse модель ошибки от каталога
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
