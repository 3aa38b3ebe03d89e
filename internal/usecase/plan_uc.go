package usecase

import (
	"context"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
)

// PlanUseCase exposes the purchasable plans.
type PlanUseCase struct {
	repo repository.PlanRepository
}

func NewPlanUseCase(repo repository.PlanRepository) *PlanUseCase {
	return &PlanUseCase{repo: repo}
}

// Save creates or updates a plan. Orders keep the price they were created with.
func (uc *PlanUseCase) Save(ctx context.Context, plan *model.Plan) error {
	if plan.IsZero() || plan.DurationMinutes <= 0 || plan.Price <= 0 || plan.Currency == "" {
		return domain.ErrInvalidArgument
	}
	if plan.RateLimit != "" {
		if _, _, ok := ParseLegacyRate(plan.RateLimit); !ok {
			return domain.ErrInvalidArgument
		}
	}
	return uc.repo.Save(ctx, nil, plan)
}

func (uc *PlanUseCase) Get(ctx context.Context, id string) (*model.Plan, error) {
	return uc.repo.FindByID(ctx, nil, id)
}

// ListActive returns the plans offered on the portal.
func (uc *PlanUseCase) ListActive(ctx context.Context) ([]*model.Plan, error) {
	return uc.repo.ListActive(ctx, nil)
}
