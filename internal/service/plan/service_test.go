package plan_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"invest-service/internal/model"
	plansvc "invest-service/internal/service/plan"
	appErr "invest-service/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, *plansvc.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.InvestmentPlan{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db, plansvc.NewService(db)
}

func validParams() plansvc.MutationParams {
	return plansvc.MutationParams{
		Name:         "Starter",
		MinAmount:    100,
		MaxAmount:    10000,
		ROIPercent:   5,
		ROIType:      "daily",
		Duration:     10,
		DurationUnit: "day",
		Status:       model.PlanStatusActive,
	}
}

func TestCreateAndGetPlan(t *testing.T) {
	_, svc := newTestService(t)

	plan, err := svc.Create(context.Background(), validParams())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if plan.ID == 0 {
		t.Fatalf("expected assigned id")
	}

	got, err := svc.Get(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Starter" || got.ROIPercent != 5 {
		t.Fatalf("unexpected plan %+v", got)
	}

	if _, err := svc.Get(context.Background(), 9999); !errors.Is(err, appErr.ErrPlanNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCreatePlanValidation(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()

	cases := []func(*plansvc.MutationParams){
		func(p *plansvc.MutationParams) { p.Name = " " },
		func(p *plansvc.MutationParams) { p.MinAmount = 0 },
		func(p *plansvc.MutationParams) { p.MaxAmount = 50 }, // below min
		func(p *plansvc.MutationParams) { p.ROIPercent = 0 },
		func(p *plansvc.MutationParams) { p.Duration = 0 },
		func(p *plansvc.MutationParams) { p.ROIType = "yearly" },
		func(p *plansvc.MutationParams) { p.DurationUnit = "decade" },
	}
	for i, mutate := range cases {
		params := validParams()
		mutate(&params)
		if _, err := svc.Create(ctx, params); !errors.Is(err, appErr.ErrInvalidPlan) {
			t.Fatalf("case %d: expected invalid plan error, got %v", i, err)
		}
	}
}

func TestListActiveExcludesInactive(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validParams()); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	inactive := validParams()
	inactive.Name = "Closed"
	inactive.Status = model.PlanStatusInactive
	if _, err := svc.Create(ctx, inactive); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	plans, err := svc.ListActive(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(plans) != 1 || plans[0].Name != "Starter" {
		t.Fatalf("expected only the active plan, got %+v", plans)
	}

	result, err := svc.AdminList(ctx, 1, 20)
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("admin list must include inactive plans, got %d", result.Total)
	}
}

func TestUpdatePlan(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()

	plan, err := svc.Create(ctx, validParams())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	params := validParams()
	params.ROIPercent = 7.5
	params.Status = model.PlanStatusInactive
	updated, err := svc.Update(ctx, plan.ID, params)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ROIPercent != 7.5 || updated.Status != model.PlanStatusInactive {
		t.Fatalf("unexpected updated plan %+v", updated)
	}

	if _, err := svc.Update(ctx, 9999, validParams()); !errors.Is(err, appErr.ErrPlanNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
