package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
)

var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planColumns = `id, name, duration_minutes, speed_down_kbps, speed_up_kbps, data_limit_mb, rate_limit, price, currency, active, created_at`

func scanPlan(row pgx.Row) (*model.Plan, error) {
	p := &model.Plan{}
	if err := row.Scan(&p.ID, &p.Name, &p.DurationMinutes, &p.SpeedDownKbps, &p.SpeedUpKbps, &p.DataLimitMB, &p.RateLimit, &p.Price, &p.Currency, &p.Active, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	const q = `
INSERT INTO plans (id, name, duration_minutes, speed_down_kbps, speed_up_kbps, data_limit_mb, rate_limit, price, currency, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  name=$2, duration_minutes=$3, speed_down_kbps=$4, speed_up_kbps=$5, data_limit_mb=$6, rate_limit=$7, price=$8, currency=$9, active=$10;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.DurationMinutes, p.SpeedDownKbps, p.SpeedUpKbps, p.DataLimitMB, p.RateLimit, p.Price, p.Currency, p.Active, p.CreatedAt)
	if err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(row)
	if err != nil {
		return nil, mapScanErr(err)
	}
	return p, nil
}

func (r *planRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans WHERE active ORDER BY price ASC, id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, nil
}
