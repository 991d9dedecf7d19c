package giftcard

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

var giftCardColumns = []string{
	"id",
	"business_id",
	"code",
	"type",
	"balance",
	"percent",
	"active",
	"expires_at",
	"created_at",
	"updated_at",
}

// Repository подарочные карты и журнал движения их баланса
type Repository struct {
	db DBExecutor
}

func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByCode ищет карту бизнеса по коду (без блокировки, баланс не меняется)
func (r *Repository) GetByCode(ctx context.Context, businessID int64, code string) (*domain.GiftCard, error) {
	return r.getOne(ctx, "GetByCode", squirrel.Eq{"business_id": businessID, "code": code}, false)
}

// GetByIDForUpdate читает карту с блокировкой строки перед изменением баланса
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.GiftCard, error) {
	return r.getOne(ctx, "GetByIDForUpdate", squirrel.Eq{"id": id}, dbmetrics.IsInTransaction(ctx))
}

func (r *Repository) getOne(ctx context.Context, op string, where squirrel.Eq, forUpdate bool) (*domain.GiftCard, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(giftCardColumns...).
		From("gift_cards").
		Where(where)
	if forUpdate {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, op, err)
	}

	var card domain.GiftCard
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&card.ID,
		&card.BusinessID,
		&card.Code,
		&card.Type,
		&card.Balance,
		&card.Percent,
		&card.Active,
		&card.ExpiresAt,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrGiftCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan gift card: %v", ErrScanRow, op, err)
	}

	return &card, nil
}

// SetBalance записывает новый баланс карты
func (r *Repository) SetBalance(ctx context.Context, id int64, balance int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("gift_cards").
		Set("balance", balance).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: SetBalance - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: SetBalance - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: SetBalance - get rows affected: %v", ErrExecQuery, err)
	}
	if rowsAffected == 0 {
		return ErrGiftCardNotFound
	}

	return nil
}

// AppendLedger добавляет запись в журнал движения баланса
func (r *Repository) AppendLedger(ctx context.Context, entry *domain.GiftCardLedgerEntry) (*domain.GiftCardLedgerEntry, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("gift_card_ledger").
		Columns("gift_card_id", "booking_id", "entry_type", "amount", "balance_after").
		Values(entry.GiftCardID, entry.BookingID, entry.EntryType, entry.Amount, entry.BalanceAfter).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: AppendLedger - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: AppendLedger - execute insert: %v", ErrExecQuery, err)
	}

	return entry, nil
}

// NetDebited сумма, реально списанная с карты по бронированию, за вычетом уже возвращённого
func (r *Repository) NetDebited(ctx context.Context, cardID, bookingID int64) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select().
		Column(squirrel.Expr("COALESCE(SUM(CASE WHEN entry_type = ? THEN amount ELSE -amount END), 0)", domain.GiftCardEntryDebit)).
		From("gift_card_ledger").
		Where(squirrel.Eq{"gift_card_id": cardID, "booking_id": bookingID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: NetDebited - build select query: %v", ErrBuildQuery, err)
	}

	var net int64
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&net); err != nil {
		return 0, fmt.Errorf("%w: NetDebited - execute query: %v", ErrExecQuery, err)
	}

	return net, nil
}
