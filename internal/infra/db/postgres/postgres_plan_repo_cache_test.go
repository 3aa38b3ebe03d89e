//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
)

func TestPlanRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	plan := &model.Plan{ID: "day-pass", Name: "Day pass", DurationMinutes: 1440, Price: 1000, Currency: "UGX"}
	planJSON, _ := json.Marshal(plan)

	t.Run("FindByID should return from cache on hit", func(t *testing.T) {
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				if key != "plan:day-pass" {
					t.Errorf("unexpected cache key %q", key)
				}
				return string(planJSON), nil
			},
		}
		innerRepoCalled := false
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
				innerRepoCalled = true
				return nil, nil
			},
		}

		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute)
		result, err := decorator.FindByID(ctx, nil, "day-pass")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if innerRepoCalled {
			t.Error("inner repository should not be called on a cache hit")
		}
		if result == nil || result.DurationMinutes != 1440 {
			t.Error("did not return the correct plan from cache")
		}
	})

	t.Run("FindByID should populate cache on miss", func(t *testing.T) {
		var stored string
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", redis.Nil },
			SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
				stored = key
				if expiration != time.Minute {
					t.Errorf("ttl = %v, want 1m", expiration)
				}
				return nil
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
				return plan, nil
			},
		}

		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute)
		if _, err := decorator.FindByID(ctx, nil, "day-pass"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if stored != "plan:day-pass" {
			t.Errorf("expected plan to be cached, stored key %q", stored)
		}
	})

	t.Run("FindByID inside a transaction should skip the cache", func(t *testing.T) {
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				t.Error("cache must not be read inside a transaction")
				return "", redis.Nil
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
				return plan, nil
			},
		}
		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute)
		if _, err := decorator.FindByID(ctx, struct{}{}, "day-pass"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("Save should invalidate the cache", func(t *testing.T) {
		var deletedKeys []string
		mockRedis := &mockRedisClient{
			DelFunc: func(ctx context.Context, keys ...string) error {
				deletedKeys = append(deletedKeys, keys...)
				return nil
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			SaveFunc: func(ctx context.Context, tx repository.Tx, plan *model.Plan) error { return nil },
		}

		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute)
		if err := decorator.Save(ctx, nil, plan); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(deletedKeys) != 2 {
			t.Fatalf("expected 2 keys to be deleted, but got %d", len(deletedKeys))
		}
	})
}

func TestGetExecutor_RejectsUnknownTx(t *testing.T) {
	if _, err := getExecutor(nil, "not-a-tx"); err == nil {
		t.Fatal("expected error for unsupported tx type")
	}
	if _, err := getExecutor(nil, nil); err == nil {
		t.Fatal("expected error for nil pool and nil tx")
	}
}
