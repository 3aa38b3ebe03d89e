package model

import "time"

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING" // created at purchase time, awaiting a verified confirmation
	OrderStatusPaid    OrderStatus = "PAID"    // terminal success
	OrderStatusFailed  OrderStatus = "FAILED"  // terminal failure
)

// Order is one purchase attempt. Only the activation pipeline mutates it.
type Order struct {
	ID           int64  // internal numeric id
	Reference    string // provider-agnostic, externally visible
	PlanID       string
	VoucherCode  string // RADIUS username and password
	Amount       int64
	Currency     string
	Provider     string
	ProviderTxID string // provider-assigned transaction id, once known
	Status       OrderStatus

	CustomerPhone string
	CustomerEmail string
	CustomerName  string

	// Captured from the captive portal at purchase time (optional).
	MACAddress  string
	IPAddress   string
	RedirectURL string

	AuthStatus  AuthorizationStatus // empty until an auto-authorization was attempted
	AuthMessage string

	AccessExpiresAt *time.Time // RADIUS expiration computed at activation
	PaidAt          *time.Time
	RedeemedAt      *time.Time // set when the voucher is marked used
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (o *Order) IsPaid() bool { return o != nil && o.Status == OrderStatusPaid }

// IsTerminal reports whether the order accepts no further transitions.
func (o *Order) IsTerminal() bool {
	return o != nil && (o.Status == OrderStatusPaid || o.Status == OrderStatusFailed)
}

// ActivationResult is what confirmation callers receive. It is derived purely from the
// stored order so a replayed confirmation returns the same payload as the first one.
type ActivationResult struct {
	Reference   string              `json:"reference"`
	Status      OrderStatus         `json:"status"`
	PlanID      string              `json:"plan_id"`
	VoucherCode string              `json:"voucher_code,omitempty"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	PaidAt      *time.Time          `json:"paid_at,omitempty"`
	AuthStatus  AuthorizationStatus `json:"auto_login,omitempty"`
	AuthMessage string              `json:"auto_login_message,omitempty"`
	RedirectURL string              `json:"redirect_url,omitempty"`
}

// Result builds the caller-facing view of the order. Credentials are only exposed once paid.
func (o *Order) Result() *ActivationResult {
	r := &ActivationResult{
		Reference:   o.Reference,
		Status:      o.Status,
		PlanID:      o.PlanID,
		AuthStatus:  o.AuthStatus,
		AuthMessage: o.AuthMessage,
		RedirectURL: o.RedirectURL,
	}
	if o.IsPaid() {
		r.VoucherCode = o.VoucherCode
		r.ExpiresAt = o.AccessExpiresAt
		r.PaidAt = o.PaidAt
	}
	return r
}

// Customer identifies the payer towards a provider.
type Customer struct {
	Phone string // MSISDN for mobile money
	Email string
	Name  string
}
