package create_booking

import "errors"

var (
	// ErrBusinessNotFound возвращается, когда бизнес не найден
	ErrBusinessNotFound = errors.New("create_booking: business not found")

	// ErrServiceNotFound возвращается, когда услуга не найдена
	ErrServiceNotFound = errors.New("create_booking: service not found")

	// ErrSlotNotBookable возвращается, когда слот не существует в расписании сотрудника,
	// попадает в блокировку или нарушает время до записи / горизонт записи
	ErrSlotNotBookable = errors.New("create_booking: slot is not bookable")

	// ErrSlotConflict возвращается, когда слот уже занят другим активным бронированием
	// Клиент должен заново получить список слотов и выбрать другой
	ErrSlotConflict = errors.New("create_booking: slot already taken")

	// ErrGiftCardInvalid возвращается, когда подарочная карта не найдена, неактивна, истекла или исчерпана
	ErrGiftCardInvalid = errors.New("create_booking: gift card is not valid")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_booking: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_booking: internal error")
)
