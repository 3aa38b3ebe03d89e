package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
)

var _ repository.VoucherRepository = (*voucherRepo)(nil)

type voucherRepo struct{ pool *pgxpool.Pool }

func NewVoucherRepo(pool *pgxpool.Pool) *voucherRepo {
	return &voucherRepo{pool: pool}
}

func (r *voucherRepo) Save(ctx context.Context, tx repository.Tx, v *model.Voucher) error {
	const q = `
INSERT INTO vouchers (id, code, plan_id, status, provisioned, expires_at, used_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  status=$4, provisioned=$5, expires_at=$6, used_at=$7;`

	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	_, err := execSQL(ctx, r.pool, tx, q, v.ID, v.Code, v.PlanID, string(v.Status), v.Provisioned, v.ExpiresAt, v.UsedAt, v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCodeCollision
		}
		return mapExecErr(err)
	}
	return nil
}

func (r *voucherRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Voucher, error) {
	q := forUpdate(`SELECT id, code, plan_id, status, provisioned, expires_at, used_at, created_at FROM vouchers WHERE code=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	v := &model.Voucher{}
	if err := row.Scan(&v.ID, &v.Code, &v.PlanID, &v.Status, &v.Provisioned, &v.ExpiresAt, &v.UsedAt, &v.CreatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	return v, nil
}

func (r *voucherRepo) MarkUsed(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE vouchers SET status='used', used_at=$2 WHERE id=$1 AND status='active';`
	if _, err := execSQL(ctx, r.pool, tx, q, id, at); err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *voucherRepo) SetProvisioned(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE vouchers SET provisioned=TRUE WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, id); err != nil {
		return mapExecErr(err)
	}
	return nil
}

var _ repository.UsageLedgerRepository = (*usageLedgerRepo)(nil)

type usageLedgerRepo struct{ pool *pgxpool.Pool }

func NewUsageLedgerRepo(pool *pgxpool.Pool) *usageLedgerRepo {
	return &usageLedgerRepo{pool: pool}
}

// Insert relies on the unique voucher_code constraint; ON CONFLICT DO NOTHING keeps an outer
// transaction usable when the code was already recorded.
func (r *usageLedgerRepo) Insert(ctx context.Context, tx repository.Tx, u *model.VoucherUsage) error {
	const q = `
INSERT INTO voucher_usage (voucher_code, source_kind, source_id, client_ip, mac_address, metadata, used_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (voucher_code) DO NOTHING
RETURNING id;`

	if u.UsedAt.IsZero() {
		u.UsedAt = time.Now()
	}
	meta := []byte("{}")
	if len(u.Metadata) > 0 {
		b, err := json.Marshal(u.Metadata)
		if err != nil {
			return domain.ErrInvalidArgument
		}
		meta = b
	}
	row, err := pickRow(ctx, r.pool, tx, q, u.VoucherCode, string(u.Source.Kind), u.Source.ID, u.ClientIP, u.MACAddress, meta, u.UsedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&u.ID); err != nil {
		if mapScanErr(err) == domain.ErrNotFound {
			return domain.ErrAlreadyUsed
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *usageLedgerRepo) Exists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM voucher_usage WHERE voucher_code=$1);`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return ok, nil
}
