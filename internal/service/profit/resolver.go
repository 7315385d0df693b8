package profit

import (
	"context"
	"time"

	"invest-service/internal/model"

	"gorm.io/gorm"
)

// Resolution is the outcome of applying the highest-priority active
// adjustment to a base per-interval amount.
type Resolution struct {
	Amount     float64
	Adjustment *model.ProfitAdjustment
}

// Resolve finds the single highest-priority adjustment whose time window
// contains the evaluation instant and whose scope matches the investment,
// then applies it to the base amount. Equal priorities are broken by most
// recently created. No matching adjustment leaves the base amount untouched.
func (s *Service) Resolve(ctx context.Context, inv *model.Investment, base float64, at time.Time) (Resolution, error) {
	return resolveAdjustment(s.db.WithContext(ctx), inv, base, at)
}

func resolveAdjustment(db *gorm.DB, inv *model.Investment, base float64, at time.Time) (Resolution, error) {
	var matches []model.ProfitAdjustment
	err := db.
		Where("active = ?", true).
		Where("start_at <= ?", at).
		Where("end_at IS NULL OR end_at >= ?", at).
		Where(`scope_type = ?
			OR (scope_type = ? AND user_id = ?)
			OR (scope_type = ? AND investment_id = ?)
			OR (scope_type = ? AND plan_id = ?)`,
			model.ScopeGlobal,
			model.ScopeUser, inv.UserID,
			model.ScopeInvestment, inv.ID,
			model.ScopePlan, inv.PlanID,
		).
		Order("priority DESC, created_at DESC, id DESC").
		Limit(1).
		Find(&matches).Error
	if err != nil {
		return Resolution{}, err
	}
	if len(matches) == 0 {
		return Resolution{Amount: base}, nil
	}

	adj := matches[0]
	return Resolution{
		Amount:     ApplyAdjustment(base, &adj),
		Adjustment: &adj,
	}, nil
}

// ApplyAdjustment transforms a base per-interval amount. Percentage replaces
// the base with value% of it, fixed_amount ignores the base entirely,
// multiplier scales it.
func ApplyAdjustment(base float64, adj *model.ProfitAdjustment) float64 {
	switch adj.Kind {
	case model.AdjustmentPercentage:
		return base * adj.Value / 100
	case model.AdjustmentFixedAmount:
		return adj.Value
	case model.AdjustmentMultiplier:
		return base * adj.Value
	default:
		return base
	}
}
