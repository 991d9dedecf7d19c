package payment

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

var paymentColumns = []string{
	"id",
	"booking_id",
	"action",
	"amount",
	"platform_fee",
	"currency",
	"external_ref",
	"status",
	"idempotency_key",
	"failure_reason",
	"created_at",
}

// Repository журнал платёжных операций по бронированиям (только добавление)
type Repository struct {
	db DBExecutor
}

func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Append добавляет запись в журнал
func (r *Repository) Append(ctx context.Context, p *domain.BookingPayment) (*domain.BookingPayment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("booking_payments").
		Columns(
			"booking_id",
			"action",
			"amount",
			"platform_fee",
			"currency",
			"external_ref",
			"status",
			"idempotency_key",
			"failure_reason",
		).
		Values(
			p.BookingID,
			p.Action,
			p.Amount,
			p.PlatformFee,
			p.Currency,
			p.ExternalReference,
			p.Status,
			p.IdempotencyKey,
			p.FailureReason,
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Append - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: Append - execute insert: %v", ErrExecQuery, err)
	}

	return p, nil
}

// ListByBooking возвращает журнал бронирования в порядке добавления
func (r *Repository) ListByBooking(ctx context.Context, bookingID int64) ([]*domain.BookingPayment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(paymentColumns...).
		From("booking_payments").
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByBooking - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByBooking - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	payments := make([]*domain.BookingPayment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListByBooking - scan row: %v", ErrScanRow, err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListByBooking - rows error: %v", ErrScanRow, err)
	}

	return payments, nil
}

// GetLastSuccessfulCharge возвращает последнее успешное списание (для возврата)
func (r *Repository) GetLastSuccessfulCharge(ctx context.Context, bookingID int64) (*domain.BookingPayment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(paymentColumns...).
		From("booking_payments").
		Where(squirrel.Eq{"booking_id": bookingID}).
		Where(squirrel.Eq{"action": []string{
			string(domain.PaymentActionCompletedCharge),
			string(domain.PaymentActionNoShowFee),
			string(domain.PaymentActionCancelFee),
		}}).
		Where(squirrel.Eq{"status": []string{
			string(domain.PaymentRecordSucceeded),
			string(domain.PaymentRecordPending),
		}}).
		Where(squirrel.Gt{"amount": 0}).
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetLastSuccessfulCharge - build select query: %v", ErrBuildQuery, err)
	}

	p, err := scanPayment(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetLastSuccessfulCharge - scan row: %v", ErrScanRow, err)
	}

	return p, nil
}

// SettlePending фиксирует итог списания, которое шлюз вернул в статусе processing
// Меняется только запись в статусе charge_pending, остальной журнал неизменен
func (r *Repository) SettlePending(ctx context.Context, id int64, status domain.PaymentRecordStatus, failureReason *string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("booking_payments").
		Set("status", status).
		Set("failure_reason", failureReason).
		Where(squirrel.Eq{"id": id, "status": domain.PaymentRecordPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: SettlePending - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: SettlePending - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: SettlePending - get rows affected: %v", ErrExecQuery, err)
	}
	if rowsAffected == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*domain.BookingPayment, error) {
	var p domain.BookingPayment
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.Action,
		&p.Amount,
		&p.PlatformFee,
		&p.Currency,
		&p.ExternalReference,
		&p.Status,
		&p.IdempotencyKey,
		&p.FailureReason,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
