package get_available_slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	catalogClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

// UseCase use case для получения доступных слотов для бронирования
type UseCase struct {
	bookingRepo    BookingRepository
	scheduleRepo   ScheduleRepository
	policyProvider PolicyProvider
	catalogClient  CatalogClient
	timeProvider   TimeProvider
	logger         Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	scheduleRepo ScheduleRepository,
	policyProvider PolicyProvider,
	catalogClient CatalogClient,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:    bookingRepo,
		scheduleRepo:   scheduleRepo,
		policyProvider: policyProvider,
		catalogClient:  catalogClient,
		timeProvider:   &RealTimeProvider{},
		logger:         logger,
	}
}

// Execute выполняет use case получения доступных слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: business=%d, service=%d, staff=%d, date=%s",
		req.BusinessID, req.ServiceID, ptr.Value(req.StaffID), req.Date.Format(domain.DateFormat))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время
	now := uc.timeProvider.Now()

	// 3. Получаем бизнес и его часовой пояс
	business, err := uc.catalogClient.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		if errors.Is(err, catalogClient.ErrBusinessNotFound) {
			uc.logger.Warn("GetAvailableSlots: business id=%d not found", req.BusinessID)
			return nil, ErrBusinessNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get business id=%d: %v", req.BusinessID, err)
		return nil, fmt.Errorf("%w: failed to get business: %v", ErrInternal, err)
	}

	loc, err := time.LoadLocation(business.Timezone)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: business id=%d has invalid timezone %q: %v", req.BusinessID, business.Timezone, err)
		return nil, fmt.Errorf("%w: invalid business timezone: %v", ErrInternal, err)
	}

	// 4. Получаем услугу
	service, err := uc.catalogClient.GetService(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogClient.ErrServiceNotFound) {
			uc.logger.Warn("GetAvailableSlots: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}
	if service.BusinessID != req.BusinessID || !service.Active {
		uc.logger.Warn("GetAvailableSlots: service id=%d is not bookable for business id=%d", req.ServiceID, req.BusinessID)
		return nil, ErrServiceNotFound
	}
	if service.DurationMinutes <= 0 {
		uc.logger.Error("GetAvailableSlots: service id=%d has non-positive duration", req.ServiceID)
		return nil, fmt.Errorf("%w: service duration must be positive", ErrInternal)
	}

	resp := &Response{
		Date:            req.Date,
		BusinessID:      req.BusinessID,
		ServiceID:       req.ServiceID,
		Timezone:        business.Timezone,
		DurationMinutes: service.DurationMinutes,
		Slots:           []Slot{},
	}

	// 5. Получаем квалифицированных сотрудников, применяем фильтр
	staff, err := uc.catalogClient.GetServiceStaff(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get staff for service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get staff: %v", ErrInternal, err)
	}

	staffNames := make(map[int64]string, len(staff))
	staffIDs := make([]int64, 0, len(staff))
	for _, s := range staff {
		if req.StaffID != nil && s.ID != *req.StaffID {
			continue
		}
		staffNames[s.ID] = s.Name
		staffIDs = append(staffIDs, s.ID)
	}

	// Услуга без сотрудников - пустой список, не ошибка
	if len(staffIDs) == 0 {
		uc.logger.Info("GetAvailableSlots: no qualified staff for service id=%d", req.ServiceID)
		return resp, nil
	}

	// 6. Получаем действующую политику (время до записи и горизонт)
	policy, err := uc.policyProvider.Resolve(ctx, req.BusinessID, ptr.Ptr(req.ServiceID))
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to resolve policy: %v", err)
		return nil, fmt.Errorf("%w: failed to resolve policy: %v", ErrInternal, err)
	}

	// 7. Границы локального дня (23 или 25 часов в дни перевода часов)
	day := domain.DayRange(req.Date, loc)

	if !day.End.After(now.Add(policy.LeadTime())) || day.Start.After(now.Add(policy.AdvanceWindow())) {
		uc.logger.Info("GetAvailableSlots: date %s is outside the booking window", req.Date.Format(domain.DateFormat))
		return resp, nil
	}

	// 8. Правила доступности на день недели
	rules, err := uc.scheduleRepo.GetRules(ctx, req.ServiceID, day.Start.Weekday(), staffIDs)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get availability rules: %v", err)
		return nil, fmt.Errorf("%w: failed to get availability rules: %v", ErrInternal, err)
	}
	if len(rules) == 0 {
		return resp, nil
	}

	// 9. Блокировки и занятые интервалы за день
	blackouts, err := uc.scheduleRepo.GetBlackouts(ctx, req.BusinessID, day.Start, day.End)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get blackouts: %v", err)
		return nil, fmt.Errorf("%w: failed to get blackouts: %v", ErrInternal, err)
	}

	var bookings []*domain.Booking
	if !req.IncludeOccupied {
		bookings, err = uc.bookingRepo.GetActiveByStaff(ctx, staffIDs, day.Start, day.End)
		if err != nil {
			uc.logger.Error("GetAvailableSlots: failed to get bookings: %v", err)
			return nil, fmt.Errorf("%w: failed to get bookings: %v", ErrInternal, err)
		}
	}

	// 10. Генерация слотов
	resp.Slots = generateSlots(generationInput{
		Date:      req.Date,
		Location:  loc,
		Now:       now,
		LeadTime:  policy.LeadTime(),
		Advance:   policy.AdvanceWindow(),
		Duration:  time.Duration(service.DurationMinutes) * time.Minute,
		StaffName: staffNames,
		Rules:     rules,
		Blackouts: blackouts,
		Occupied:  bookings,
	})

	uc.logger.Info("GetAvailableSlots: generated %d slots for service=%d on %s",
		len(resp.Slots), req.ServiceID, req.Date.Format(domain.DateFormat))

	return resp, nil
}
