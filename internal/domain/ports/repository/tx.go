package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn within a database transaction and hands the transaction
// to repositories through the tx argument.
//
// Repositories accept nil for the non-transactional path; when handed a pgx.Tx they may
// take row locks (SELECT ... FOR UPDATE). The concrete tx type is infra-defined.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
