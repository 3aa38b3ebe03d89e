package domain

import "errors"

var (
	// Persistence errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidArgument    = errors.New("invalid argument")

	// Activation pipeline errors
	ErrInvalidInput         = errors.New("invalid input")
	ErrOrderNotFound        = errors.New("order not found")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrVerificationMismatch = errors.New("provider verification mismatch")
	ErrProviderUnavailable  = errors.New("payment provider unavailable")
	ErrAuthorizerDegraded   = errors.New("network access authorizer degraded")
	ErrUnknownProvider      = errors.New("unknown payment provider")
	ErrOrderClosed          = errors.New("order is no longer pending")

	// Voucher errors
	ErrAlreadyUsed     = errors.New("voucher already used")
	ErrCodeCollision   = errors.New("voucher code collision")
	ErrLockNotAcquired = errors.New("lock not acquired")
)
