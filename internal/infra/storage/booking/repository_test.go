package booking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

func TestIsActiveSlotViolation(t *testing.T) {
	assert.True(t, isActiveSlotViolation(&pq.Error{Code: "23505", Constraint: "bookings_active_slot_uidx"}))
	assert.True(t, isActiveSlotViolation(fmt.Errorf("wrapped: %w", &pq.Error{Code: "23505"})))
	assert.True(t, isActiveSlotViolation(&pq.Error{Code: "23P01", Constraint: "bookings_active_overlap_excl"}))
	assert.False(t, isActiveSlotViolation(&pq.Error{Code: "23P01", Constraint: "other_excl"}))
	assert.False(t, isActiveSlotViolation(&pq.Error{Code: "23505", Constraint: "bookings_code_key"}))
	assert.False(t, isActiveSlotViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isActiveSlotViolation(errors.New("connection reset")))
}

type fakeRow struct {
	values []interface{}
}

// Scan копирует подготовленные значения в dest по порядку колонок
func (f *fakeRow) Scan(dest ...interface{}) error {
	if len(dest) != len(f.values) {
		return fmt.Errorf("expected %d columns, got %d", len(f.values), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, f.values[i]); err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
	}
	return nil
}

func assign(dest, value interface{}) error {
	switch d := dest.(type) {
	case *int64:
		*d = value.(int64)
	case *string:
		*d = value.(string)
	case *domain.BookingStatus:
		*d = domain.BookingStatus(value.(string))
	case *domain.PaymentStatus:
		*d = domain.PaymentStatus(value.(string))
	case *time.Time:
		*d = value.(time.Time)
	case **string:
		if value == nil {
			*d = nil
		} else {
			s := value.(string)
			*d = &s
		}
	case *[]byte:
		*d = value.([]byte)
	default:
		if scanner, ok := dest.(interface{ Scan(interface{}) error }); ok {
			return scanner.Scan(value)
		}
		return fmt.Errorf("unsupported dest %T", dest)
	}
	return nil
}

func TestScanBooking(t *testing.T) {
	start := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	snapshot, err := json.Marshal(domain.PolicySnapshot{
		NoShowFee: domain.FeeRule{Type: domain.FeeTypeAmount, Amount: 2000},
	})
	require.NoError(t, err)

	row := &fakeRow{values: []interface{}{
		int64(10), "BK-ABCDEF12", int64(1), int64(2), int64(3),
		start, start.Add(time.Hour),
		"pending", "card_saved",
		int64(10000), int64(5000), int64(5000), "usd",
		"Jane", "jane@example.com", nil,
		snapshot,
		start.Add(-24 * time.Hour), "10.0.0.1", "curl/8",
		int64(7), "amount",
		"cus_1", "seti_1", "seti_1_secret",
		"Haircut", "Sam",
		nil,
		start.Add(-24 * time.Hour), start.Add(-24 * time.Hour),
	}}

	b, err := scanBooking(row)
	require.NoError(t, err)

	assert.Equal(t, int64(10), b.ID)
	assert.Equal(t, domain.StatusPending, b.Status)
	assert.Equal(t, domain.PaymentCardSaved, b.PaymentStatus)
	assert.Nil(t, b.Customer.Phone)
	assert.Equal(t, int64(2000), b.Policy.NoShowFee.Amount)
	require.NotNil(t, b.Discount)
	assert.Equal(t, int64(7), b.Discount.GiftCardID)
	assert.Equal(t, int64(5000), b.Discount.Amount)
	assert.True(t, b.HasSavedCard())
	assert.Nil(t, b.ClosedAt)
}

var errStopQuery = errors.New("stop")

// recordingExecutor запоминает последний запрос и не ходит в БД
type recordingExecutor struct {
	query string
	args  []interface{}
}

func (r *recordingExecutor) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	r.query, r.args = query, args
	return nil, errStopQuery
}

func (r *recordingExecutor) QueryContext(_ context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	r.query, r.args = query, args
	return nil, errStopQuery
}

func (r *recordingExecutor) QueryRowContext(_ context.Context, query string, args ...interface{}) *sql.Row {
	r.query, r.args = query, args
	return nil
}

func TestReleaseExpiredHolds_OnlyUnpaidHolds(t *testing.T) {
	exec := &recordingExecutor{}
	repo := NewRepository(exec)
	cutoff := time.Date(2026, 6, 15, 13, 55, 0, 0, time.FixedZone("MSK", 3*60*60))

	_, err := repo.ReleaseExpiredHolds(context.Background(), cutoff, 100)
	require.ErrorIs(t, err, ErrExecQuery)

	assert.Contains(t, exec.query, "UPDATE bookings SET status = $1")
	assert.Contains(t, exec.query, "status = ANY($2) AND payment_status = $3 AND created_at <= $4")
	assert.Contains(t, exec.query, "LIMIT $5")
	assert.Contains(t, exec.query, "FOR UPDATE SKIP LOCKED")
	assert.Contains(t, exec.query, "RETURNING id")

	require.Len(t, exec.args, 5)
	assert.Equal(t, domain.StatusExpired, exec.args[0])
	assert.Equal(t, pq.Array([]string{"pending", "held"}), exec.args[1])
	// брони с сохранённой картой (card_saved) не освобождаются
	assert.Equal(t, domain.PaymentNone, exec.args[2])
	assert.Equal(t, cutoff.UTC(), exec.args[3])
	assert.Equal(t, 100, exec.args[4])
}

func TestGetActiveByStaff_OverlapPredicate(t *testing.T) {
	exec := &recordingExecutor{}
	repo := NewRepository(exec)
	from := time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	_, err := repo.GetActiveByStaff(context.Background(), []int64{5}, from, to)
	require.ErrorIs(t, err, ErrExecQuery)

	assert.Contains(t, exec.query, "start_at < $")
	assert.Contains(t, exec.query, "end_at > $")
	assert.Contains(t, exec.args, to)
	assert.Contains(t, exec.args, from)
}
