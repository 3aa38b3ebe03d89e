package repository

import (
	"context"

	"hotspot-billing/internal/domain/model"
)

// RadiusRepository is the authentication server's SQL store (radcheck, radreply,
// radusergroup, radacct).
type RadiusRepository interface {
	// UpsertAttribute inserts the attribute or, on (username, attribute) conflict,
	// replaces its value and operator.
	UpsertAttribute(ctx context.Context, tx Tx, table model.RadiusTable, attr model.RadiusAttribute) error
	DeleteAttribute(ctx context.Context, tx Tx, table model.RadiusTable, username, attribute string) error
	// DeleteUser purges check, reply and group rows for username.
	DeleteUser(ctx context.Context, tx Tx, username string) error
	ListAttributes(ctx context.Context, tx Tx, table model.RadiusTable, username string) ([]model.RadiusAttribute, error)

	LatestSession(ctx context.Context, tx Tx, username string) (*model.AccountingSession, error)
	UsageStats(ctx context.Context, tx Tx, username string) (*model.UsageStats, error)
	HasOpenSession(ctx context.Context, tx Tx, username string) (bool, error)
	HasClosedSession(ctx context.Context, tx Tx, username string) (bool, error)
}
