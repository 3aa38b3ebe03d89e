package repository

import (
	"context"
	"time"

	"hotspot-billing/internal/domain/model"
)

type OrderRepository interface {
	// Create inserts a PENDING order and sets its ID. Returns domain.ErrCodeCollision when the
	// voucher code is already taken.
	Create(ctx context.Context, tx Tx, o *model.Order) error
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Order, error)
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Order, error)
	// FindPaidByVoucherCode looks up a voucher issued through a direct payment.
	FindPaidByVoucherCode(ctx context.Context, tx Tx, code string) (*model.Order, error)
	SetProviderTxID(ctx context.Context, tx Tx, id int64, providerTxID string) error
	// MarkPaidIfPending is the sole authority for the PAID transition. It reports false when
	// the order was no longer PENDING.
	MarkPaidIfPending(ctx context.Context, tx Tx, id int64, providerTxID string, paidAt, accessExpiresAt time.Time) (bool, error)
	MarkFailedIfPending(ctx context.Context, tx Tx, id int64, providerTxID string) (bool, error)
	UpdateAuthorization(ctx context.Context, tx Tx, id int64, status model.AuthorizationStatus, message string) error
	MarkRedeemed(ctx context.Context, tx Tx, id int64, at time.Time) error
	// ListPendingOlderThan returns PENDING orders created before olderThan, least recently
	// touched first.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Order, error)
	// TouchPending bumps updated_at on a PENDING order so the next scan starts elsewhere.
	TouchPending(ctx context.Context, tx Tx, id int64, at time.Time) error
}

type PaymentLogRepository interface {
	Append(ctx context.Context, tx Tx, l *model.PaymentLog) error
	ListByOrder(ctx context.Context, tx Tx, orderID int64) ([]*model.PaymentLog, error)
}
