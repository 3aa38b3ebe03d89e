package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
)

var _ repository.RadiusRepository = (*radiusRepo)(nil)

// radiusRepo writes the FreeRADIUS rlm_sql tables.
type radiusRepo struct{ pool *pgxpool.Pool }

func NewRadiusRepo(pool *pgxpool.Pool) *radiusRepo {
	return &radiusRepo{pool: pool}
}

// tableName only admits the two attribute tables; the value is interpolated into SQL.
func tableName(t model.RadiusTable) (string, error) {
	switch t {
	case model.RadCheck, model.RadReply:
		return string(t), nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

func (r *radiusRepo) UpsertAttribute(ctx context.Context, tx repository.Tx, table model.RadiusTable, a model.RadiusAttribute) error {
	t, err := tableName(table)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`
INSERT INTO %s (username, attribute, op, value) VALUES ($1,$2,$3,$4)
ON CONFLICT (username, attribute) DO UPDATE SET op=EXCLUDED.op, value=EXCLUDED.value;`, t)
	if _, err := execSQL(ctx, r.pool, tx, q, a.Username, a.Attribute, a.Op, a.Value); err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *radiusRepo) DeleteAttribute(ctx context.Context, tx repository.Tx, table model.RadiusTable, username, attribute string) error {
	t, err := tableName(table)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`DELETE FROM %s WHERE username=$1 AND attribute=$2;`, t)
	if _, err := execSQL(ctx, r.pool, tx, q, username, attribute); err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *radiusRepo) DeleteUser(ctx context.Context, tx repository.Tx, username string) error {
	for _, q := range []string{
		`DELETE FROM radcheck WHERE username=$1;`,
		`DELETE FROM radreply WHERE username=$1;`,
		`DELETE FROM radusergroup WHERE username=$1;`,
	} {
		if _, err := execSQL(ctx, r.pool, tx, q, username); err != nil {
			return mapExecErr(err)
		}
	}
	return nil
}

func (r *radiusRepo) ListAttributes(ctx context.Context, tx repository.Tx, table model.RadiusTable, username string) ([]model.RadiusAttribute, error) {
	t, err := tableName(table)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT username, attribute, op, value FROM %s WHERE username=$1 ORDER BY id ASC;`, t)
	rows, err := queryRows(ctx, r.pool, tx, q, username)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []model.RadiusAttribute
	for rows.Next() {
		var a model.RadiusAttribute
		if err := rows.Scan(&a.Username, &a.Attribute, &a.Op, &a.Value); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *radiusRepo) LatestSession(ctx context.Context, tx repository.Tx, username string) (*model.AccountingSession, error) {
	const q = `
SELECT acctsessionid, username, nasipaddress, framedipaddress, callingstationid,
       acctstarttime, acctstoptime, acctsessiontime, acctinputoctets, acctoutputoctets
  FROM radacct
 WHERE username=$1
 ORDER BY acctstarttime DESC NULLS LAST, radacctid DESC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, username)
	if err != nil {
		return nil, err
	}
	s := &model.AccountingSession{}
	if err := row.Scan(&s.SessionID, &s.Username, &s.NASIPAddress, &s.FramedIP, &s.CallingStation,
		&s.StartTime, &s.StopTime, &s.SessionTime, &s.InputOctets, &s.OutputOctets); err != nil {
		return nil, mapScanErr(err)
	}
	return s, nil
}

func (r *radiusRepo) UsageStats(ctx context.Context, tx repository.Tx, username string) (*model.UsageStats, error) {
	const q = `
SELECT COUNT(*),
       COALESCE(SUM(acctoutputoctets), 0),
       COALESCE(SUM(acctinputoctets), 0),
       COALESCE(SUM(acctsessiontime), 0),
       MIN(acctstarttime),
       MAX(acctstarttime)
  FROM radacct
 WHERE username=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, username)
	if err != nil {
		return nil, err
	}
	st := &model.UsageStats{Username: username}
	if err := row.Scan(&st.SessionCount, &st.DownloadBytes, &st.UploadBytes, &st.SessionSeconds, &st.FirstSessionAt, &st.LastSessionAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return st, nil
}

func (r *radiusRepo) HasOpenSession(ctx context.Context, tx repository.Tx, username string) (bool, error) {
	return r.exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM radacct WHERE username=$1 AND acctstoptime IS NULL);`, username)
}

func (r *radiusRepo) HasClosedSession(ctx context.Context, tx repository.Tx, username string) (bool, error) {
	return r.exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM radacct WHERE username=$1 AND acctstoptime IS NOT NULL);`, username)
}

func (r *radiusRepo) exists(ctx context.Context, tx repository.Tx, q, username string) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx, q, username)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return ok, nil
}
