package repository

import (
	"context"
	"time"

	"hotspot-billing/internal/domain/model"
)

type BindingRepository interface {
	// Save inserts the binding and sets its ID.
	Save(ctx context.Context, tx Tx, b *model.MACBinding) error
	UpdateStatus(ctx context.Context, tx Tx, id int64, status model.BindingStatus, remoteID string) error
	// SupersedeByMAC marks every pending/active binding of mac as removed.
	SupersedeByMAC(ctx context.Context, tx Tx, mac string) (int64, error)
	// ListExpired returns active and pending bindings whose window has closed.
	ListExpired(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.MACBinding, error)
	ListPending(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.MACBinding, error)
}
