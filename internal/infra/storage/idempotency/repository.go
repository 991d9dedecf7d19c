package idempotency

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

// Repository хранилище ключей идемпотентности (key, route) -> закэшированный ответ
type Repository struct {
	db DBExecutor
}

func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Get возвращает запись по ключу и маршруту
func (r *Repository) Get(ctx context.Context, key, route string) (*domain.IdempotencyRecord, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"idempotency_key",
		"route",
		"booking_id",
		"response",
		"created_at",
		"expires_at",
	).
		From("idempotency_records").
		Where(squirrel.Eq{"idempotency_key": key, "route": route}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Get - build select query: %v", ErrBuildQuery, err)
	}

	var rec domain.IdempotencyRecord
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&rec.Key,
		&rec.Route,
		&rec.BookingID,
		&rec.Response,
		&rec.CreatedAt,
		&rec.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Get - scan record: %v", ErrScanRow, err)
	}

	return &rec, nil
}

// Save записывает ответ под ключом
// Если запись уже есть (параллельный запрос успел раньше), возвращает существующую и created = false
func (r *Repository) Save(ctx context.Context, rec *domain.IdempotencyRecord) (*domain.IdempotencyRecord, bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("idempotency_records").
		Columns("idempotency_key", "route", "booking_id", "response", "expires_at").
		Values(rec.Key, rec.Route, rec.BookingID, rec.Response, rec.ExpiresAt.UTC()).
		Suffix("ON CONFLICT (idempotency_key, route) DO NOTHING RETURNING created_at").
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("%w: Save - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&rec.CreatedAt)
	if err == sql.ErrNoRows {
		existing, getErr := r.Get(ctx, rec.Key, rec.Route)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: Save - execute insert: %v", ErrExecQuery, err)
	}

	return rec, true, nil
}

// DeleteExpired удаляет записи с истёкшим сроком хранения пачкой до limit штук
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("idempotency_records").
		Where(`(idempotency_key, route) IN (
			SELECT idempotency_key, route FROM idempotency_records
			WHERE expires_at <= ?
			LIMIT ?)`, now.UTC(), limit).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteExpired - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteExpired - execute delete: %v", ErrExecQuery, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteExpired - get rows affected: %v", ErrExecQuery, err)
	}

	return deleted, nil
}
