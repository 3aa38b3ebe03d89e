package repository

import (
	"context"
	"time"

	"hotspot-billing/internal/domain/model"
)

// VoucherRepository is the primary voucher store.
type VoucherRepository interface {
	Save(ctx context.Context, tx Tx, v *model.Voucher) error
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Voucher, error)
	MarkUsed(ctx context.Context, tx Tx, id string, at time.Time) error
	SetProvisioned(ctx context.Context, tx Tx, id string) error
}

// UsageLedgerRepository records each voucher consumption exactly once.
type UsageLedgerRepository interface {
	// Insert returns domain.ErrAlreadyUsed when the code is already in the ledger.
	Insert(ctx context.Context, tx Tx, u *model.VoucherUsage) error
	Exists(ctx context.Context, tx Tx, code string) (bool, error)
}
