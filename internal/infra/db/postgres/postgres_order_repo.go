package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, reference, plan_id, voucher_code, amount, currency, provider, provider_tx_id, status,
  customer_phone, customer_email, customer_name, mac_address, ip_address, redirect_url,
  auth_status, auth_message, access_expires_at, paid_at, redeemed_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(&o.ID, &o.Reference, &o.PlanID, &o.VoucherCode, &o.Amount, &o.Currency, &o.Provider, &o.ProviderTxID, &o.Status,
		&o.CustomerPhone, &o.CustomerEmail, &o.CustomerName, &o.MACAddress, &o.IPAddress, &o.RedirectURL,
		&o.AuthStatus, &o.AuthMessage, &o.AccessExpiresAt, &o.PaidAt, &o.RedeemedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepo) Create(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (
  reference, plan_id, voucher_code, amount, currency, provider, provider_tx_id, status,
  customer_phone, customer_email, customer_name, mac_address, ip_address, redirect_url, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)
RETURNING id;`

	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.Status == "" {
		o.Status = model.OrderStatusPending
	}
	row, err := pickRow(ctx, r.pool, tx, q,
		o.Reference, o.PlanID, o.VoucherCode, o.Amount, o.Currency, o.Provider, o.ProviderTxID, string(o.Status),
		o.CustomerPhone, o.CustomerEmail, o.CustomerName, o.MACAddress, o.IPAddress, o.RedirectURL, o.CreatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&o.ID); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCodeCollision
		}
		return domain.ErrOperationFailed
	}
	o.UpdatedAt = o.CreatedAt
	return nil
}

func (r *orderRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Order, error) {
	q := forUpdate(`SELECT `+orderColumns+` FROM orders WHERE reference=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, reference)
	if err != nil {
		return nil, err
	}
	o, err := scanOrder(row)
	if err != nil {
		return nil, mapScanErr(err)
	}
	return o, nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Order, error) {
	q := forUpdate(`SELECT `+orderColumns+` FROM orders WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	o, err := scanOrder(row)
	if err != nil {
		return nil, mapScanErr(err)
	}
	return o, nil
}

func (r *orderRepo) FindPaidByVoucherCode(ctx context.Context, tx repository.Tx, code string) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE voucher_code=$1 AND status='PAID' LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	o, err := scanOrder(row)
	if err != nil {
		return nil, mapScanErr(err)
	}
	return o, nil
}

func (r *orderRepo) SetProviderTxID(ctx context.Context, tx repository.Tx, id int64, providerTxID string) error {
	const q = `UPDATE orders SET provider_tx_id=$2, updated_at=NOW() WHERE id=$1 AND status='PENDING';`
	if _, err := execSQL(ctx, r.pool, tx, q, id, providerTxID); err != nil {
		return mapExecErr(err)
	}
	return nil
}

// MarkPaidIfPending atomically moves the order to PAID only while it is still PENDING.
func (r *orderRepo) MarkPaidIfPending(
	ctx context.Context, tx repository.Tx, id int64, providerTxID string, paidAt, accessExpiresAt time.Time,
) (bool, error) {
	const q = `
    UPDATE orders
       SET status = 'PAID',
           provider_tx_id = $2,
           paid_at = $3,
           access_expires_at = $4,
           updated_at = NOW()
     WHERE id = $1
       AND status = 'PENDING'`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, providerTxID, paidAt, accessExpiresAt)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id int64, providerTxID string) (bool, error) {
	const q = `
    UPDATE orders
       SET status = 'FAILED',
           provider_tx_id = COALESCE(NULLIF($2, ''), provider_tx_id),
           updated_at = NOW()
     WHERE id = $1
       AND status = 'PENDING'`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, providerTxID)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) UpdateAuthorization(ctx context.Context, tx repository.Tx, id int64, status model.AuthorizationStatus, message string) error {
	const q = `UPDATE orders SET auth_status=$2, auth_message=$3, updated_at=NOW() WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, id, string(status), message); err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *orderRepo) MarkRedeemed(ctx context.Context, tx repository.Tx, id int64, at time.Time) error {
	const q = `UPDATE orders SET redeemed_at=$2, updated_at=NOW() WHERE id=$1 AND redeemed_at IS NULL;`
	if _, err := execSQL(ctx, r.pool, tx, q, id, at); err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *orderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE status='PENDING' AND created_at < $1 ORDER BY updated_at ASC, id ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *orderRepo) TouchPending(ctx context.Context, tx repository.Tx, id int64, at time.Time) error {
	const q = `UPDATE orders SET updated_at=$2 WHERE id=$1 AND status='PENDING';`
	if _, err := execSQL(ctx, r.pool, tx, q, id, at); err != nil {
		return mapExecErr(err)
	}
	return nil
}

var _ repository.PaymentLogRepository = (*paymentLogRepo)(nil)

type paymentLogRepo struct{ pool *pgxpool.Pool }

func NewPaymentLogRepo(pool *pgxpool.Pool) *paymentLogRepo {
	return &paymentLogRepo{pool: pool}
}

func (r *paymentLogRepo) Append(ctx context.Context, tx repository.Tx, l *model.PaymentLog) error {
	const q = `
INSERT INTO payment_logs (order_id, reference, provider, status, provider_tx_id, amount, currency, message, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id;`
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	row, err := pickRow(ctx, r.pool, tx, q, l.OrderID, l.Reference, l.Provider, string(l.Status), l.ProviderTxID, l.Amount, l.Currency, l.Message, l.CreatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&l.ID); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentLogRepo) ListByOrder(ctx context.Context, tx repository.Tx, orderID int64) ([]*model.PaymentLog, error) {
	const q = `SELECT id, order_id, reference, provider, status, provider_tx_id, amount, currency, message, created_at
FROM payment_logs WHERE order_id=$1 ORDER BY id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.PaymentLog
	for rows.Next() {
		l := new(model.PaymentLog)
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Reference, &l.Provider, &l.Status, &l.ProviderTxID, &l.Amount, &l.Currency, &l.Message, &l.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, l)
	}
	return out, nil
}
