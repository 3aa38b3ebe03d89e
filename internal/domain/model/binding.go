package model

import (
	"strings"
	"time"

	"hotspot-billing/internal/domain"
)

type BindingStatus string

const (
	BindingPending BindingStatus = "pending" // remote creation failed; awaiting reconciliation
	BindingActive  BindingStatus = "active"
	BindingExpired BindingStatus = "expired"
	BindingRemoved BindingStatus = "removed"
)

// MACBinding is the local audit record of a NAS bypass binding.
type MACBinding struct {
	ID         int64
	OrderID    *int64
	MACAddress string // canonical AA:BB:CC:DD:EE:FF
	IPAddress  string
	RemoteID   string // NAS-side binding id; empty while pending
	Status     BindingStatus
	Comment    string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type AuthorizationStatus string

const (
	AuthorizationSuccess AuthorizationStatus = "success"
	AuthorizationSkipped AuthorizationStatus = "skipped"
	AuthorizationFailed  AuthorizationStatus = "failed"
)

// AuthorizationOutcome is the result of binding a device on the NAS. It is never an error:
// a failure only means auto-login did not happen.
type AuthorizationOutcome struct {
	Status     AuthorizationStatus `json:"status"`
	Message    string              `json:"message,omitempty"`
	MACAddress string              `json:"mac_address,omitempty"`
	BindingID  string              `json:"binding_id,omitempty"`
	ExpiresAt  *time.Time          `json:"expires_at,omitempty"`
}

// NormalizeMAC returns the canonical colon-delimited uppercase form of a hardware address.
// Any separators (":", "-", ".", spaces) are accepted; exactly 12 hex digits must remain.
func NormalizeMAC(raw string) (string, error) {
	hex := make([]byte, 0, 12)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9', c >= 'A' && c <= 'F':
			hex = append(hex, c)
		case c >= 'a' && c <= 'f':
			hex = append(hex, c-'a'+'A')
		case c == ':' || c == '-' || c == '.' || c == ' ':
		default:
			return "", domain.ErrInvalidInput
		}
	}
	if len(hex) != 12 {
		return "", domain.ErrInvalidInput
	}
	var b strings.Builder
	b.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.Write(hex[i : i+2])
	}
	return b.String(), nil
}
