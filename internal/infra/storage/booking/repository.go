package booking

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

var bookingColumns = []string{
	"id",
	"code",
	"business_id",
	"service_id",
	"staff_id",
	"start_at",
	"end_at",
	"status",
	"payment_status",
	"base_price",
	"discount_amount",
	"final_price",
	"currency",
	"customer_name",
	"customer_email",
	"customer_phone",
	"policy_snapshot",
	"consent_at",
	"consent_ip",
	"consent_user_agent",
	"gift_card_id",
	"gift_card_type",
	"gateway_customer_id",
	"setup_intent_id",
	"setup_client_secret",
	"service_name",
	"staff_name",
	"closed_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с бронированиями
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create вставляет бронирование одной командой INSERT
// Гонка за слот разрешается частичным уникальным индексом bookings_active_slot_uidx
// и ограничением bookings_active_overlap_excl: проигравший запрос получает ErrSlotTaken
func (r *Repository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	snapshot, err := json.Marshal(booking.Policy)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - marshal snapshot: %v", ErrEncode, err)
	}

	var giftCardID *int64
	var giftCardType *string
	discountAmount := booking.DiscountAmount
	if booking.Discount != nil {
		giftCardID = &booking.Discount.GiftCardID
		t := string(booking.Discount.Type)
		giftCardType = &t
		discountAmount = booking.Discount.Amount
	}

	query, args, err := psqlbuilder.Insert("bookings").
		Columns(
			"code",
			"business_id",
			"service_id",
			"staff_id",
			"start_at",
			"end_at",
			"status",
			"payment_status",
			"base_price",
			"discount_amount",
			"final_price",
			"currency",
			"customer_name",
			"customer_email",
			"customer_phone",
			"policy_snapshot",
			"consent_at",
			"consent_ip",
			"consent_user_agent",
			"gift_card_id",
			"gift_card_type",
			"service_name",
			"staff_name",
		).
		Values(
			booking.Code,
			booking.BusinessID,
			booking.ServiceID,
			booking.StaffID,
			booking.StartAt.UTC(),
			booking.EndAt.UTC(),
			booking.Status,
			booking.PaymentStatus,
			booking.BasePrice,
			discountAmount,
			booking.FinalPrice,
			booking.Currency,
			booking.Customer.Name,
			booking.Customer.Email,
			booking.Customer.Phone,
			snapshot,
			booking.Consent.At.UTC(),
			booking.Consent.IP,
			booking.Consent.UserAgent,
			giftCardID,
			giftCardType,
			booking.ServiceName,
			booking.StaffName,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&booking.ID,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		if isActiveSlotViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	booking.DiscountAmount = discountAmount
	return booking, nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate получает бронирование с блокировкой строки (SELECT ... FOR UPDATE)
// Должен вызываться внутри транзакции: параллельные действия над одним бронированием выполняются по очереди
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.getByID(ctx, id, dbmetrics.IsInTransaction(ctx))
}

func (r *Repository) getByID(ctx context.Context, id int64, forUpdate bool) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"id": id})

	if forUpdate {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %v", ErrScanRow, err)
	}

	return booking, nil
}

// GetActiveByStaff получает активные бронирования сотрудников, пересекающие окно [from, to)
// Используется генератором слотов для исключения занятых окон
func (r *Repository) GetActiveByStaff(ctx context.Context, staffIDs []int64, from, to time.Time) ([]*domain.Booking, error) {
	if len(staffIDs) == 0 {
		return []*domain.Booking{}, nil
	}

	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"staff_id": staffIDs}).
		Where("status = ANY(?)", pq.Array(domain.ActiveStatusStrings())).
		Where(squirrel.Lt{"start_at": to.UTC()}).
		Where(squirrel.Gt{"end_at": from.UTC()}).
		OrderBy("staff_id ASC", "start_at ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetActiveByStaff - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetActiveByStaff - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// List получает страницу бронирований бизнеса
// Сортировка (start_at DESC, id DESC), продолжение страницы по курсору (keyset)
// Возвращает до filter.Limit+1 записей: лишняя запись означает, что есть следующая страница
func (r *Repository) List(ctx context.Context, filter domain.BookingsFilter) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"business_id": filter.BusinessID})

	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.From != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"start_at": filter.From.UTC()})
	}
	if filter.To != nil {
		selectBuilder = selectBuilder.Where(squirrel.Lt{"start_at": filter.To.UTC()})
	}
	if filter.After != nil {
		selectBuilder = selectBuilder.Where("(start_at, id) < (?, ?)", filter.After.StartAt.UTC(), filter.After.ID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultPageLimit
	}

	query, args, err := selectBuilder.
		OrderBy("start_at DESC", "id DESC").
		Limit(uint64(limit + 1)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// UpdateLifecycle меняет статус бронирования и статус оплаты
func (r *Repository) UpdateLifecycle(ctx context.Context, id int64, status domain.BookingStatus, paymentStatus domain.PaymentStatus, closedAt *time.Time) error {
	builder := psqlbuilder.Update("bookings").
		Set("status", status).
		Set("payment_status", paymentStatus).
		Set("updated_at", squirrel.Expr("NOW()"))

	if closedAt != nil {
		builder = builder.Set("closed_at", closedAt.UTC())
	}

	return r.execUpdate(ctx, "UpdateLifecycle", builder.Where(squirrel.Eq{"id": id}))
}

// UpdatePaymentStatus меняет только статус оплаты (например, после отказа банка)
func (r *Repository) UpdatePaymentStatus(ctx context.Context, id int64, paymentStatus domain.PaymentStatus) error {
	builder := psqlbuilder.Update("bookings").
		Set("payment_status", paymentStatus).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})

	return r.execUpdate(ctx, "UpdatePaymentStatus", builder)
}

// SetPaymentSetup сохраняет ссылки платёжного шлюза после успешного начала сохранения карты
// Только для активных бронирований: истёкший холд не оживает
func (r *Repository) SetPaymentSetup(ctx context.Context, id int64, customerID, setupIntentID, clientSecret string) error {
	builder := psqlbuilder.Update("bookings").
		Set("gateway_customer_id", customerID).
		Set("setup_intent_id", setupIntentID).
		Set("setup_client_secret", clientSecret).
		Set("payment_status", domain.PaymentCardSaved).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": domain.ActiveStatusStrings()})

	return r.execUpdate(ctx, "SetPaymentSetup", builder)
}

// ReleaseExpiredHolds переводит брошенные холды в статус expired, освобождая слот
// Берёт только бронирования без сохранённой карты (payment_status = none), созданные до cutoff
// Запрос обслуживается частичным индексом bookings_unpaid_holds_idx, поэтому его стоимость
// зависит от числа активных холдов, а не от всей истории
func (r *Repository) ReleaseExpiredHolds(ctx context.Context, cutoff time.Time, limit int) ([]int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("status", domain.StatusExpired).
		Set("closed_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(`id IN (
			SELECT id FROM bookings
			WHERE status = ANY(?) AND payment_status = ? AND created_at <= ?
			ORDER BY created_at
			LIMIT ?
			FOR UPDATE SKIP LOCKED)`,
			pq.Array(domain.ActiveStatusStrings()), domain.PaymentNone, cutoff.UTC(), limit).
		Suffix("RETURNING id").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ReleaseExpiredHolds - build update query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ReleaseExpiredHolds - execute update: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: ReleaseExpiredHolds - scan id: %v", ErrScanRow, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ReleaseExpiredHolds - rows error: %v", ErrScanRow, err)
	}

	return ids, nil
}

func (r *Repository) execUpdate(ctx context.Context, op string, builder squirrel.UpdateBuilder) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %s - build update query: %v", ErrBuildQuery, op, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %v", ErrExecQuery, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %v", ErrExecQuery, op, err)
	}

	if rowsAffected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBooking сканирует одну строку в бронирование
func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		booking      domain.Booking
		snapshot     []byte
		giftCardID   sql.NullInt64
		giftCardType sql.NullString
		closedAt     sql.NullTime
	)

	err := row.Scan(
		&booking.ID,
		&booking.Code,
		&booking.BusinessID,
		&booking.ServiceID,
		&booking.StaffID,
		&booking.StartAt,
		&booking.EndAt,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.BasePrice,
		&booking.DiscountAmount,
		&booking.FinalPrice,
		&booking.Currency,
		&booking.Customer.Name,
		&booking.Customer.Email,
		&booking.Customer.Phone,
		&snapshot,
		&booking.Consent.At,
		&booking.Consent.IP,
		&booking.Consent.UserAgent,
		&giftCardID,
		&giftCardType,
		&booking.GatewayCustomerID,
		&booking.SetupIntentID,
		&booking.SetupClientSecret,
		&booking.ServiceName,
		&booking.StaffName,
		&closedAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(snapshot, &booking.Policy); err != nil {
		return nil, fmt.Errorf("decode policy snapshot: %w", err)
	}

	if giftCardID.Valid {
		booking.Discount = &domain.Discount{
			GiftCardID: giftCardID.Int64,
			Type:       domain.GiftCardType(giftCardType.String),
			Amount:     booking.DiscountAmount,
		}
	}
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		booking.ClosedAt = &t
	}

	booking.StartAt = booking.StartAt.UTC()
	booking.EndAt = booking.EndAt.UTC()

	return &booking, nil
}

// scanBookings сканирует результаты запроса в слайс бронирований
func scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan row: %v", ErrScanRow, err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows error: %v", ErrScanRow, err)
	}

	return bookings, nil
}
