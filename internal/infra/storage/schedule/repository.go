package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

// Repository правила доступности сотрудников и blackout-окна
type Repository struct {
	db DBExecutor
}

func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetRules возвращает правила доступности услуги на день недели для указанных сотрудников
func (r *Repository) GetRules(ctx context.Context, serviceID int64, weekday time.Weekday, staffIDs []int64) ([]domain.AvailabilityRule, error) {
	if len(staffIDs) == 0 {
		return []domain.AvailabilityRule{}, nil
	}

	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"business_id",
		"staff_id",
		"service_id",
		"weekday",
		"start_time",
		"end_time",
	).
		From("staff_availability_rules").
		Where(squirrel.Eq{"service_id": serviceID}).
		Where(squirrel.Eq{"weekday": int(weekday)}).
		Where(squirrel.Eq{"staff_id": staffIDs}).
		OrderBy("staff_id ASC", "start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetRules - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetRules - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	rules := make([]domain.AvailabilityRule, 0)
	for rows.Next() {
		var (
			rule    domain.AvailabilityRule
			weekday int
		)
		if err := rows.Scan(
			&rule.ID,
			&rule.BusinessID,
			&rule.StaffID,
			&rule.ServiceID,
			&weekday,
			&rule.StartTime,
			&rule.EndTime,
		); err != nil {
			return nil, fmt.Errorf("%w: GetRules - scan row: %v", ErrScanRow, err)
		}
		rule.Weekday = time.Weekday(weekday)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetRules - rows error: %v", ErrScanRow, err)
	}

	return rules, nil
}

// GetBlackouts возвращает blackout-окна бизнеса, пересекающие [from, to)
// Включает как окна конкретных сотрудников, так и окна всего бизнеса (staff_id IS NULL)
func (r *Repository) GetBlackouts(ctx context.Context, businessID int64, from, to time.Time) ([]domain.Blackout, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"business_id",
		"staff_id",
		"start_at",
		"end_at",
		"reason",
	).
		From("blackouts").
		Where(squirrel.Eq{"business_id": businessID}).
		Where(squirrel.Lt{"start_at": to.UTC()}).
		Where(squirrel.Gt{"end_at": from.UTC()}).
		OrderBy("start_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetBlackouts - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetBlackouts - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	blackouts := make([]domain.Blackout, 0)
	for rows.Next() {
		var b domain.Blackout
		if err := rows.Scan(&b.ID, &b.BusinessID, &b.StaffID, &b.StartAt, &b.EndAt, &b.Reason); err != nil {
			return nil, fmt.Errorf("%w: GetBlackouts - scan row: %v", ErrScanRow, err)
		}
		blackouts = append(blackouts, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetBlackouts - rows error: %v", ErrScanRow, err)
	}

	return blackouts, nil
}
