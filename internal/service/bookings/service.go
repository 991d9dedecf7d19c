package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/booking"
	"github.com/m04kA/SMC-AppointmentService/internal/service/bookings/models"
)

// Service сервис чтения бронирований для владельца бизнеса
type Service struct {
	bookingRepo BookingRepository
	paymentRepo PaymentRepository
	logger      Logger
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(
	bookingRepo BookingRepository,
	paymentRepo PaymentRepository,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		logger:      logger,
	}
}

// GetByID получает бронирование вместе с журналом платежей
// Бронирование чужого бизнеса выглядит как несуществующее
func (s *Service) GetByID(ctx context.Context, id int64, businessID int64) (*models.BookingResponse, error) {
	s.logger.Info("GetByID: fetching booking id=%d for business=%d", id, businessID)

	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("GetByID: booking id=%d not found", id)
			return nil, ErrBookingNotFound
		}
		s.logger.Error("GetByID: repository error for booking id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	if booking.BusinessID != businessID {
		s.logger.Warn("GetByID: booking id=%d belongs to business=%d, requested by business=%d",
			id, booking.BusinessID, businessID)
		return nil, ErrBookingNotFound
	}

	payments, err := s.paymentRepo.ListByBooking(ctx, id)
	if err != nil {
		s.logger.Error("GetByID: payment repository error for booking id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - payment repository error: %v", ErrInternal, err)
	}

	resp := models.FromDomainBooking(booking)
	resp.Payments = models.FromDomainPayments(payments)
	return resp, nil
}

// ListBusinessBookings отдает страницу бронирований бизнеса
// Порядок (start_at DESC, id DESC), продолжение по непрозрачному курсору
func (s *Service) ListBusinessBookings(ctx context.Context, req *models.ListBookingsRequest) (*models.BookingListResponse, error) {
	s.logger.Info("ListBusinessBookings: fetching bookings for business=%d, status=%v, limit=%d",
		req.BusinessID, req.Status, req.Limit)

	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("ListBusinessBookings: invalid filter for business=%d: %v", req.BusinessID, err)
		if errors.Is(err, models.ErrInvalidCursor) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	bookings, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ListBusinessBookings: repository error for business=%d: %v", req.BusinessID, err)
		return nil, fmt.Errorf("%w: ListBusinessBookings - repository error: %v", ErrInternal, err)
	}

	// Репозиторий возвращает на одну запись больше: она означает следующую страницу
	var next *domain.BookingCursor
	if len(bookings) > filter.Limit {
		bookings = bookings[:filter.Limit]
		last := bookings[len(bookings)-1]
		next = &domain.BookingCursor{StartAt: last.StartAt, ID: last.ID}
	}

	s.logger.Info("ListBusinessBookings: fetched %d bookings for business=%d, hasMore=%t",
		len(bookings), req.BusinessID, next != nil)
	return models.FromDomainBookingList(bookings, next), nil
}
