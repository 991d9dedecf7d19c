package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

var policyColumns = []string{
	"id",
	"business_id",
	"service_id",
	"cancellation_fee_type",
	"cancellation_fee_amount",
	"cancellation_fee_percent",
	"no_show_fee_type",
	"no_show_fee_amount",
	"no_show_fee_percent",
	"cancellation_policy_text",
	"no_show_policy_text",
	"lead_time_minutes",
	"advance_days",
	"restore_gift_card_on_refund",
	"created_at",
	"updated_at",
}

// Repository репозиторий живых политик бизнеса (комиссии, окна бронирования)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория политик
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByBusinessAndService получает политику для бизнеса и услуги
// serviceID == nil - ищет политику бизнеса целиком
func (r *Repository) GetByBusinessAndService(ctx context.Context, businessID int64, serviceID *int64) (*domain.BusinessPolicy, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(policyColumns...).
		From("business_policies").
		Where(squirrel.Eq{"business_id": businessID})

	// Фильтрация по service_id (NULL или конкретное значение)
	if serviceID == nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"service_id": nil})
	} else {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"service_id": *serviceID})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByBusinessAndService - build select query: %v", ErrBuildQuery, err)
	}

	policy, err := scanPolicy(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByBusinessAndService - scan policy: %v", ErrScanRow, err)
	}

	return policy, nil
}

// GetWithHierarchy получает политику с учетом иерархии приоритетов
// 1. Политика конкретной услуги (businessID, serviceID)
// 2. Политика бизнеса (businessID, NULL)
// Если ничего не найдено, возвращает ErrPolicyNotFound
func (r *Repository) GetWithHierarchy(ctx context.Context, businessID int64, serviceID *int64) (*domain.BusinessPolicy, error) {
	if serviceID != nil {
		policy, err := r.GetByBusinessAndService(ctx, businessID, serviceID)
		if err == nil {
			return policy, nil
		}
		if !errors.Is(err, ErrPolicyNotFound) {
			return nil, err
		}
	}

	return r.GetByBusinessAndService(ctx, businessID, nil)
}

// Upsert создает или полностью заменяет политику в её области (бизнес или услуга)
func (r *Repository) Upsert(ctx context.Context, p *domain.BusinessPolicy) (*domain.BusinessPolicy, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("business_policies").
		Columns(
			"business_id",
			"service_id",
			"cancellation_fee_type",
			"cancellation_fee_amount",
			"cancellation_fee_percent",
			"no_show_fee_type",
			"no_show_fee_amount",
			"no_show_fee_percent",
			"cancellation_policy_text",
			"no_show_policy_text",
			"lead_time_minutes",
			"advance_days",
			"restore_gift_card_on_refund",
		).
		Values(
			p.BusinessID,
			p.ServiceID,
			p.CancellationFee.Type,
			p.CancellationFee.Amount,
			p.CancellationFee.Percent,
			p.NoShowFee.Type,
			p.NoShowFee.Amount,
			p.NoShowFee.Percent,
			p.CancellationPolicyText,
			p.NoShowPolicyText,
			p.LeadTimeMinutes,
			p.AdvanceDays,
			p.RestoreGiftCardOnRefund,
		).
		Suffix(`ON CONFLICT (business_id, (COALESCE(service_id, 0))) DO UPDATE SET
			cancellation_fee_type = EXCLUDED.cancellation_fee_type,
			cancellation_fee_amount = EXCLUDED.cancellation_fee_amount,
			cancellation_fee_percent = EXCLUDED.cancellation_fee_percent,
			no_show_fee_type = EXCLUDED.no_show_fee_type,
			no_show_fee_amount = EXCLUDED.no_show_fee_amount,
			no_show_fee_percent = EXCLUDED.no_show_fee_percent,
			cancellation_policy_text = EXCLUDED.cancellation_policy_text,
			no_show_policy_text = EXCLUDED.no_show_policy_text,
			lead_time_minutes = EXCLUDED.lead_time_minutes,
			advance_days = EXCLUDED.advance_days,
			restore_gift_card_on_refund = EXCLUDED.restore_gift_card_on_refund,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%w: Upsert - execute insert: %v", ErrExecQuery, err)
	}

	return p, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPolicy(row rowScanner) (*domain.BusinessPolicy, error) {
	var p domain.BusinessPolicy
	err := row.Scan(
		&p.ID,
		&p.BusinessID,
		&p.ServiceID,
		&p.CancellationFee.Type,
		&p.CancellationFee.Amount,
		&p.CancellationFee.Percent,
		&p.NoShowFee.Type,
		&p.NoShowFee.Amount,
		&p.NoShowFee.Percent,
		&p.CancellationPolicyText,
		&p.NoShowPolicyText,
		&p.LeadTimeMinutes,
		&p.AdvanceDays,
		&p.RestoreGiftCardOnRefund,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
