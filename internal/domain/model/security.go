package model

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type SecurityEventType string

const (
	EventIPBlocked          SecurityEventType = "ip_blocked"
	EventRateLimited        SecurityEventType = "rate_limited"
	EventInvalidCode        SecurityEventType = "invalid_code"
	EventLockout            SecurityEventType = "lockout"
	EventDisabledCode       SecurityEventType = "disabled_code"
	EventMultipleUseAttempt SecurityEventType = "multiple_use_attempt"
	EventExpiredCode        SecurityEventType = "expired_code"
	EventActiveSession      SecurityEventType = "active_session"
	EventValidationSuccess  SecurityEventType = "validation_success"
	EventMarkedUsed         SecurityEventType = "marked_used"
)

// SecurityEvent is a structured, persisted record of a security-relevant action.
type SecurityEvent struct {
	ID          int64
	Type        SecurityEventType
	Severity    Severity
	ClientIP    string
	VoucherCode string
	MACAddress  string
	UserAgent   string
	Details     map[string]any
	CreatedAt   time.Time
}

// BlockEntry is the persisted, authoritative block list.
type BlockEntry struct {
	ID        int64
	ClientIP  string
	Reason    string
	Permanent bool
	ExpiresAt *time.Time // ignored when Permanent
	CreatedAt time.Time
}

// ActiveAt reports whether the entry blocks at instant t.
func (b *BlockEntry) ActiveAt(t time.Time) bool {
	if b == nil {
		return false
	}
	if b.Permanent {
		return true
	}
	return b.ExpiresAt != nil && t.Before(*b.ExpiresAt)
}

// ClientInfo describes who is presenting a voucher.
type ClientInfo struct {
	IP        string
	MAC       string
	UserAgent string
}

// DenialReason categorizes a rejected validation. Each value maps to a distinct response code.
type DenialReason string

const (
	DenialNone          DenialReason = ""
	DenialIPBlocked     DenialReason = "ip_blocked"
	DenialRateLimited   DenialReason = "rate_limited"
	DenialInvalidCode   DenialReason = "invalid_code"
	DenialDisabled      DenialReason = "disabled"
	DenialAlreadyUsed   DenialReason = "already_used"
	DenialExpired       DenialReason = "expired"
	DenialActiveSession DenialReason = "active_session"
)

// ValidationResult is the outcome of a voucher security check.
type ValidationResult struct {
	Valid      bool
	Reason     DenialReason
	Message    string
	RetryAfter time.Duration // set for rate limiting and lockouts

	// Populated only when Valid.
	Source  *VoucherSource
	Voucher *Voucher
	Order   *Order
}

func Deny(reason DenialReason, msg string) *ValidationResult {
	return &ValidationResult{Reason: reason, Message: msg}
}
