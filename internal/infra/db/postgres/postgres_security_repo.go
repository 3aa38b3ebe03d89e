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

var _ repository.SecurityRepository = (*securityRepo)(nil)

type securityRepo struct{ pool *pgxpool.Pool }

func NewSecurityRepo(pool *pgxpool.Pool) *securityRepo {
	return &securityRepo{pool: pool}
}

func (r *securityRepo) FindActiveBlock(ctx context.Context, tx repository.Tx, ip string, now time.Time) (*model.BlockEntry, error) {
	const q = `
SELECT id, client_ip, reason, permanent, expires_at, created_at
  FROM block_list
 WHERE client_ip=$1 AND (permanent OR expires_at > $2)
 ORDER BY permanent DESC, expires_at DESC NULLS FIRST
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, ip, now)
	if err != nil {
		return nil, err
	}
	b := &model.BlockEntry{}
	if err := row.Scan(&b.ID, &b.ClientIP, &b.Reason, &b.Permanent, &b.ExpiresAt, &b.CreatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	return b, nil
}

func (r *securityRepo) SaveBlock(ctx context.Context, tx repository.Tx, b *model.BlockEntry) error {
	const q = `INSERT INTO block_list (client_ip, reason, permanent, expires_at, created_at) VALUES ($1,$2,$3,$4,$5) RETURNING id;`
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	row, err := pickRow(ctx, r.pool, tx, q, b.ClientIP, b.Reason, b.Permanent, b.ExpiresAt, b.CreatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&b.ID); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *securityRepo) SaveEvent(ctx context.Context, tx repository.Tx, e *model.SecurityEvent) error {
	const q = `
INSERT INTO security_events (event_type, severity, client_ip, voucher_code, mac_address, user_agent, details, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id;`
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	details := []byte("{}")
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return domain.ErrInvalidArgument
		}
		details = b
	}
	row, err := pickRow(ctx, r.pool, tx, q, string(e.Type), string(e.Severity), e.ClientIP, e.VoucherCode, e.MACAddress, e.UserAgent, details, e.CreatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&e.ID); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}
