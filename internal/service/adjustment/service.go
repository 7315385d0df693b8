package adjustment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"invest-service/internal/model"
	appErr "invest-service/pkg/errors"

	"gorm.io/gorm"
)

// Service manages admin profit-rate overrides. The distribution scheduler
// only ever reads these rows; all mutation goes through here.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type ListResult struct {
	Items []model.ProfitAdjustment
	Total int64
}

type MutationParams struct {
	ScopeType    string
	UserID       *int64
	InvestmentID *int64
	PlanID       *int64
	Kind         string
	Value        float64
	Priority     int
	StartAt      time.Time
	EndAt        *time.Time
	Active       bool
	CreatedBy    int64
	Reason       string
}

func (params MutationParams) validate() error {
	scope := strings.ToLower(params.ScopeType)
	switch scope {
	case model.ScopeGlobal:
		if params.UserID != nil || params.InvestmentID != nil || params.PlanID != nil {
			return fmt.Errorf("%w: global scope takes no target", appErr.ErrInvalidAdjustment)
		}
	case model.ScopeUser:
		if params.UserID == nil {
			return fmt.Errorf("%w: user scope requires userId", appErr.ErrInvalidAdjustment)
		}
	case model.ScopeInvestment:
		if params.InvestmentID == nil {
			return fmt.Errorf("%w: investment scope requires investmentId", appErr.ErrInvalidAdjustment)
		}
	case model.ScopePlan:
		if params.PlanID == nil {
			return fmt.Errorf("%w: plan scope requires planId", appErr.ErrInvalidAdjustment)
		}
	default:
		return fmt.Errorf("%w: unknown scope %q", appErr.ErrInvalidAdjustment, params.ScopeType)
	}

	switch strings.ToLower(params.Kind) {
	case model.AdjustmentPercentage, model.AdjustmentFixedAmount, model.AdjustmentMultiplier:
	default:
		return fmt.Errorf("%w: unknown kind %q", appErr.ErrInvalidAdjustment, params.Kind)
	}
	if params.Value < 0 {
		return fmt.Errorf("%w: value must be >= 0", appErr.ErrInvalidAdjustment)
	}
	if params.EndAt != nil && params.EndAt.Before(params.StartAt) {
		return fmt.Errorf("%w: endAt before startAt", appErr.ErrInvalidAdjustment)
	}
	return nil
}

func (s *Service) List(ctx context.Context, page, size int) (*ListResult, error) {
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
		Model(&model.ProfitAdjustment{}).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var items []model.ProfitAdjustment
	if total > 0 {
		offset := (page - 1) * size
		if err := s.db.WithContext(ctx).
			Model(&model.ProfitAdjustment{}).
			Order("id DESC").
			Limit(size).
			Offset(offset).
			Find(&items).Error; err != nil {
			return nil, err
		}
	}
	return &ListResult{Items: items, Total: total}, nil
}

func (s *Service) Create(ctx context.Context, params MutationParams) (*model.ProfitAdjustment, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	startAt := params.StartAt
	if startAt.IsZero() {
		startAt = time.Now()
	}
	adj := model.ProfitAdjustment{
		ScopeType:    strings.ToLower(params.ScopeType),
		UserID:       params.UserID,
		InvestmentID: params.InvestmentID,
		PlanID:       params.PlanID,
		Kind:         strings.ToLower(params.Kind),
		Value:        params.Value,
		Priority:     params.Priority,
		StartAt:      startAt,
		EndAt:        params.EndAt,
		Active:       params.Active,
		CreatedBy:    params.CreatedBy,
		Reason:       strings.TrimSpace(params.Reason),
	}
	if err := s.db.WithContext(ctx).Create(&adj).Error; err != nil {
		return nil, err
	}
	return &adj, nil
}

func (s *Service) Update(ctx context.Context, id int64, params MutationParams) (*model.ProfitAdjustment, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"scope_type":    strings.ToLower(params.ScopeType),
		"user_id":       params.UserID,
		"investment_id": params.InvestmentID,
		"plan_id":       params.PlanID,
		"kind":          strings.ToLower(params.Kind),
		"value":         params.Value,
		"priority":      params.Priority,
		"start_at":      params.StartAt,
		"end_at":        params.EndAt,
		"active":        params.Active,
		"reason":        strings.TrimSpace(params.Reason),
	}

	result := s.db.WithContext(ctx).
		Model(&model.ProfitAdjustment{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, appErr.ErrAdjustmentNotFound
	}

	var adj model.ProfitAdjustment
	if err := s.db.WithContext(ctx).First(&adj, id).Error; err != nil {
		return nil, err
	}
	return &adj, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&model.ProfitAdjustment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return appErr.ErrAdjustmentNotFound
	}
	return nil
}
