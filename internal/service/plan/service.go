package plan

import (
	"context"
	"strings"

	"invest-service/internal/model"
	appErr "invest-service/pkg/errors"

	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type ListResult struct {
	Items []model.InvestmentPlan
	Total int64
}

type MutationParams struct {
	Name                 string
	MinAmount            float64
	MaxAmount            float64
	ROIPercent           float64
	ROIType              string
	Duration             int
	DurationUnit         string
	ReferralBonusPercent float64
	Status               string
	Popular              bool
}

var roiTypes = map[string]struct{}{
	"hourly": {}, "daily": {}, "weekly": {}, "monthly": {}, "total": {},
}

var durationUnits = map[string]struct{}{
	"minute": {}, "hour": {}, "day": {}, "week": {}, "month": {},
}

func (params MutationParams) validate() error {
	if strings.TrimSpace(params.Name) == "" {
		return appErr.ErrInvalidPlan
	}
	if params.MinAmount <= 0 || (params.MaxAmount > 0 && params.MaxAmount < params.MinAmount) {
		return appErr.ErrInvalidPlan
	}
	if params.ROIPercent <= 0 || params.Duration <= 0 {
		return appErr.ErrInvalidPlan
	}
	if _, ok := roiTypes[params.ROIType]; !ok {
		return appErr.ErrInvalidPlan
	}
	if _, ok := durationUnits[params.DurationUnit]; !ok {
		return appErr.ErrInvalidPlan
	}
	return nil
}

// ListActive returns the plans users can buy into.
func (s *Service) ListActive(ctx context.Context) ([]model.InvestmentPlan, error) {
	var plans []model.InvestmentPlan
	if err := s.db.WithContext(ctx).
		Where("status = ?", model.PlanStatusActive).
		Order("min_amount ASC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *Service) AdminList(ctx context.Context, page, size int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&model.InvestmentPlan{}).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var plans []model.InvestmentPlan
	if total > 0 {
		offset := (page - 1) * size
		if err := s.db.WithContext(ctx).
			Model(&model.InvestmentPlan{}).
			Order("id DESC").
			Limit(size).
			Offset(offset).
			Find(&plans).Error; err != nil {
			return nil, err
		}
	}
	return &ListResult{Items: plans, Total: total}, nil
}

func (s *Service) Create(ctx context.Context, params MutationParams) (*model.InvestmentPlan, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	plan := model.InvestmentPlan{
		Name:                 strings.TrimSpace(params.Name),
		MinAmount:            params.MinAmount,
		MaxAmount:            params.MaxAmount,
		ROIPercent:           params.ROIPercent,
		ROIType:              strings.ToLower(params.ROIType),
		Duration:             params.Duration,
		DurationUnit:         strings.ToLower(params.DurationUnit),
		ReferralBonusPercent: params.ReferralBonusPercent,
		Status:               params.Status,
		Popular:              params.Popular,
	}
	if err := s.db.WithContext(ctx).Create(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// Update edits the plan template. Existing investments keep their cached
// expected profit and per-interval amount; only new purchases see the edit.
func (s *Service) Update(ctx context.Context, id int64, params MutationParams) (*model.InvestmentPlan, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"name":                   strings.TrimSpace(params.Name),
		"min_amount":             params.MinAmount,
		"max_amount":             params.MaxAmount,
		"ro_ipercent":            params.ROIPercent,
		"roi_type":               strings.ToLower(params.ROIType),
		"duration":               params.Duration,
		"duration_unit":          strings.ToLower(params.DurationUnit),
		"referral_bonus_percent": params.ReferralBonusPercent,
		"status":                 params.Status,
		"popular":                params.Popular,
	}

	result := s.db.WithContext(ctx).
		Model(&model.InvestmentPlan{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, appErr.ErrPlanNotFound
	}

	var plan model.InvestmentPlan
	if err := s.db.WithContext(ctx).First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.InvestmentPlan, error) {
	var plan model.InvestmentPlan
	if err := s.db.WithContext(ctx).First(&plan, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}
