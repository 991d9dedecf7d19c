package get_available_slots

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

type fakeCatalog struct {
	business *catalogservice.Business
	service  *catalogservice.Service
	staff    []catalogservice.Staff
}

func (f *fakeCatalog) GetBusiness(_ context.Context, id int64) (*catalogservice.Business, error) {
	if f.business == nil || f.business.ID != id {
		return nil, catalogservice.ErrBusinessNotFound
	}
	return f.business, nil
}

func (f *fakeCatalog) GetService(_ context.Context, _, id int64) (*catalogservice.Service, error) {
	if f.service == nil || f.service.ID != id {
		return nil, catalogservice.ErrServiceNotFound
	}
	return f.service, nil
}

func (f *fakeCatalog) GetServiceStaff(context.Context, int64, int64) ([]catalogservice.Staff, error) {
	return f.staff, nil
}

type fakeSchedule struct {
	rules       []domain.AvailabilityRule
	gotWeekday  time.Weekday
	gotStaffIDs []int64
}

func (f *fakeSchedule) GetRules(_ context.Context, _ int64, weekday time.Weekday, staffIDs []int64) ([]domain.AvailabilityRule, error) {
	f.gotWeekday = weekday
	f.gotStaffIDs = staffIDs
	out := make([]domain.AvailabilityRule, 0)
	for _, r := range f.rules {
		if r.Weekday == weekday {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSchedule) GetBlackouts(context.Context, int64, time.Time, time.Time) ([]domain.Blackout, error) {
	return nil, nil
}

type fakeBookings struct {
	bookings []*domain.Booking
}

func (f *fakeBookings) GetActiveByStaff(context.Context, []int64, time.Time, time.Time) ([]*domain.Booking, error) {
	return f.bookings, nil
}

type fakePolicy struct{}

func (fakePolicy) Resolve(_ context.Context, businessID int64, _ *int64) (*domain.BusinessPolicy, error) {
	return domain.DefaultPolicy(businessID), nil
}

func newTestUseCase(t *testing.T, schedule *fakeSchedule, bookings *fakeBookings) (*UseCase, *fakeCatalog) {
	t.Helper()

	catalog := &fakeCatalog{
		business: &catalogservice.Business{ID: 1, Timezone: "Europe/Berlin", Currency: "eur"},
		service:  &catalogservice.Service{ID: 10, BusinessID: 1, DurationMinutes: 60, Price: 10000, Active: true},
		staff:    []catalogservice.Staff{{ID: 5, Name: "Sam"}, {ID: 6, Name: "Alex"}},
	}

	uc := NewUseCase(bookings, schedule, fakePolicy{}, catalog, nopLogger{})
	uc.timeProvider = fixedTime{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	return uc, catalog
}

func TestUseCase_GeneratesInBusinessTimezone(t *testing.T) {
	schedule := &fakeSchedule{rules: []domain.AvailabilityRule{
		rule(t, 5, "09:00", "11:00"),
	}}
	schedule.rules[0].Weekday = time.Monday

	uc, _ := newTestUseCase(t, schedule, &fakeBookings{})

	resp, err := uc.Execute(context.Background(), &Request{
		BusinessID: 1,
		ServiceID:  10,
		Date:       time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, time.Monday, schedule.gotWeekday)
	assert.Equal(t, "Europe/Berlin", resp.Timezone)
	require.Len(t, resp.Slots, 5)
	// 09:00 CEST = 07:00 UTC
	assert.Equal(t, time.Date(2026, 6, 15, 7, 0, 0, 0, time.UTC), resp.Slots[0].StartAt)
	assert.Equal(t, "Sam", resp.Slots[0].StaffName)
}

func TestUseCase_StaffFilter(t *testing.T) {
	schedule := &fakeSchedule{}
	uc, _ := newTestUseCase(t, schedule, &fakeBookings{})

	_, err := uc.Execute(context.Background(), &Request{
		BusinessID: 1,
		ServiceID:  10,
		StaffID:    ptr.Ptr(int64(6)),
		Date:       time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{6}, schedule.gotStaffIDs)
}

func TestUseCase_NoQualifiedStaffIsEmpty(t *testing.T) {
	uc, catalog := newTestUseCase(t, &fakeSchedule{}, &fakeBookings{})
	catalog.staff = nil

	resp, err := uc.Execute(context.Background(), &Request{
		BusinessID: 1,
		ServiceID:  10,
		Date:       time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotNil(t, resp.Slots)
	assert.Empty(t, resp.Slots)
}

func TestUseCase_PastDateIsEmpty(t *testing.T) {
	schedule := &fakeSchedule{}
	uc, _ := newTestUseCase(t, schedule, &fakeBookings{})

	resp, err := uc.Execute(context.Background(), &Request{
		BusinessID: 1,
		ServiceID:  10,
		Date:       time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Slots)
	assert.Nil(t, schedule.gotStaffIDs)
}

func TestUseCase_Errors(t *testing.T) {
	uc, catalog := newTestUseCase(t, &fakeSchedule{}, &fakeBookings{})
	date := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	_, err := uc.Execute(context.Background(), &Request{BusinessID: 0, ServiceID: 10, Date: date})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = uc.Execute(context.Background(), &Request{BusinessID: 2, ServiceID: 10, Date: date})
	assert.ErrorIs(t, err, ErrBusinessNotFound)

	_, err = uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 11, Date: date})
	assert.ErrorIs(t, err, ErrServiceNotFound)

	catalog.service.BusinessID = 3
	_, err = uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 10, Date: date})
	assert.ErrorIs(t, err, ErrServiceNotFound)

	catalog.service.BusinessID = 1
	catalog.business.Timezone = "Mars/Olympus"
	_, err = uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 10, Date: date})
	assert.ErrorIs(t, err, ErrInternal)
}

func TestUseCase_IncludeOccupied(t *testing.T) {
	schedule := &fakeSchedule{rules: []domain.AvailabilityRule{rule(t, 5, "09:00", "10:00")}}
	schedule.rules[0].Weekday = time.Monday
	bookings := &fakeBookings{bookings: []*domain.Booking{{
		StaffID: 5,
		Status:  domain.StatusPending,
		StartAt: time.Date(2026, 6, 15, 7, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC),
	}}}
	uc, _ := newTestUseCase(t, schedule, bookings)

	req := &Request{BusinessID: 1, ServiceID: 10, Date: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)}

	resp, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Slots)

	req.IncludeOccupied = true
	resp, err = uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, resp.Slots, 1)
}
