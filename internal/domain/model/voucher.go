package model

import (
	"strconv"
	"time"
)

type VoucherStatus string

const (
	VoucherStatusActive   VoucherStatus = "active"
	VoucherStatusUsed     VoucherStatus = "used"
	VoucherStatusDisabled VoucherStatus = "disabled"
)

// Voucher is a pre-generated access credential in the primary voucher store
// (batches printed or sold offline, as opposed to codes issued through an order).
type Voucher struct {
	ID          string
	Code        string
	PlanID      string
	Status      VoucherStatus
	Provisioned bool       // RADIUS attributes already written
	ExpiresAt   *time.Time // validity of the unredeemed code; nil means no expiry
	UsedAt      *time.Time
	CreatedAt   time.Time
}

type VoucherSourceKind string

const (
	SourceVoucher VoucherSourceKind = "voucher"
	SourceOrder   VoucherSourceKind = "order"
)

// VoucherSource records which store a code was found in, so validation, marking and
// activation never have to look it up again.
type VoucherSource struct {
	Kind VoucherSourceKind
	ID   string
}

func VoucherSourceOf(v *Voucher) VoucherSource {
	return VoucherSource{Kind: SourceVoucher, ID: v.ID}
}

func OrderSourceOf(o *Order) VoucherSource {
	return VoucherSource{Kind: SourceOrder, ID: strconv.FormatInt(o.ID, 10)}
}

// VoucherUsage is a row of the usage ledger. Voucher code is unique across the ledger.
type VoucherUsage struct {
	ID          int64
	VoucherCode string
	Source      VoucherSource
	ClientIP    string
	MACAddress  string
	Metadata    map[string]any
	UsedAt      time.Time
}
