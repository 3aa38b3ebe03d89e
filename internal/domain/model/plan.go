package model

import (
	"time"

	"hotspot-billing/internal/domain"
)

// Plan is a purchasable access product. Edits only affect orders created afterwards.
type Plan struct {
	ID              string
	Name            string
	DurationMinutes int
	SpeedDownKbps   *int   // nil means uncapped
	SpeedUpKbps     *int   // nil means uncapped
	DataLimitMB     *int64 // nil means no data cap
	RateLimit       string // legacy combined rate "NNNNk/NNNNk"; used only when speeds are unset
	Price           int64  // whole currency units
	Currency        string
	Active          bool
	CreatedAt       time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, durationMinutes int, price int64, currency string) (*Plan, error) {
	if id == "" || name == "" || durationMinutes <= 0 || price <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:              id,
		Name:            name,
		DurationMinutes: durationMinutes,
		Price:           price,
		Currency:        currency,
		Active:          true,
		CreatedAt:       time.Now(),
	}, nil
}

// Duration returns the purchased access window.
func (p *Plan) Duration() time.Duration {
	return time.Duration(p.DurationMinutes) * time.Minute
}
