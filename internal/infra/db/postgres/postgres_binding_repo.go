package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
)

var _ repository.BindingRepository = (*bindingRepo)(nil)

type bindingRepo struct{ pool *pgxpool.Pool }

func NewBindingRepo(pool *pgxpool.Pool) *bindingRepo {
	return &bindingRepo{pool: pool}
}

const bindingColumns = `id, order_id, mac_address, ip_address, remote_id, status, comment, expires_at, created_at, updated_at`

func (r *bindingRepo) Save(ctx context.Context, tx repository.Tx, b *model.MACBinding) error {
	const q = `
INSERT INTO mac_bindings (order_id, mac_address, ip_address, remote_id, status, comment, expires_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
RETURNING id;`
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	b.UpdatedAt = b.CreatedAt
	row, err := pickRow(ctx, r.pool, tx, q, b.OrderID, b.MACAddress, b.IPAddress, b.RemoteID, string(b.Status), b.Comment, b.ExpiresAt, b.CreatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&b.ID); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *bindingRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id int64, status model.BindingStatus, remoteID string) error {
	const q = `UPDATE mac_bindings SET status=$2, remote_id=COALESCE(NULLIF($3, ''), remote_id), updated_at=NOW() WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, id, string(status), remoteID); err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *bindingRepo) SupersedeByMAC(ctx context.Context, tx repository.Tx, mac string) (int64, error) {
	const q = `UPDATE mac_bindings SET status='removed', updated_at=NOW() WHERE mac_address=$1 AND status IN ('pending','active');`
	cmd, err := execSQL(ctx, r.pool, tx, q, mac)
	if err != nil {
		return 0, mapExecErr(err)
	}
	return cmd.RowsAffected(), nil
}

// ListExpired covers pending rows too: a binding never created on the NAS still has to
// leave the retry set once its window closes.
func (r *bindingRepo) ListExpired(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.MACBinding, error) {
	const q = `SELECT ` + bindingColumns + ` FROM mac_bindings WHERE status IN ('active','pending') AND expires_at <= $1 ORDER BY expires_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, now, limit)
}

func (r *bindingRepo) ListPending(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.MACBinding, error) {
	const q = `SELECT ` + bindingColumns + ` FROM mac_bindings WHERE status='pending' AND expires_at > $1 ORDER BY created_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, now, limit)
}

func (r *bindingRepo) list(ctx context.Context, tx repository.Tx, q string, now time.Time, limit int) ([]*model.MACBinding, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.MACBinding
	for rows.Next() {
		b := new(model.MACBinding)
		if err := rows.Scan(&b.ID, &b.OrderID, &b.MACAddress, &b.IPAddress, &b.RemoteID, &b.Status, &b.Comment, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, b)
	}
	return out, nil
}
