package model

import "time"

type PaymentLogStatus string

const (
	PaymentLogInitiated PaymentLogStatus = "initiated" // order created, charge not yet requested
	PaymentLogPending   PaymentLogStatus = "pending"   // provider accepted the charge; awaiting confirmation
	PaymentLogSuccess   PaymentLogStatus = "success"   // verified and activated
	PaymentLogFailed    PaymentLogStatus = "failed"    // charge creation failed or provider reported failure
)

// PaymentLog is an append-only trail of an order's payment, kept apart from the order row
// for observability and reconciliation.
type PaymentLog struct {
	ID           int64
	OrderID      int64
	Reference    string
	Provider     string
	Status       PaymentLogStatus
	ProviderTxID string
	Amount       int64
	Currency     string
	Message      string
	CreatedAt    time.Time
}
