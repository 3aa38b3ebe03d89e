package adapter

import (
	"context"
	"time"

	"hotspot-billing/internal/domain/model"
)

// AlertNotifier delivers critical security events to operators.
type AlertNotifier interface {
	NotifySecurityEvent(ctx context.Context, e *model.SecurityEvent) error
}

// OrderEvent is published on every terminal order transition.
type OrderEvent struct {
	Type      string    `json:"type"` // order.paid | order.failed
	Reference string    `json:"reference"`
	OrderID   int64     `json:"order_id"`
	PlanID    string    `json:"plan_id"`
	Provider  string    `json:"provider"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	At        time.Time `json:"at"`
}

// EventPublisher forwards order events to reporting collaborators.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, e OrderEvent) error
}
