package investment

import (
	"context"
	"fmt"
	"time"

	"invest-service/internal/config"
	"invest-service/internal/model"
	"invest-service/internal/repo"
	"invest-service/internal/service/profit"
	appErr "invest-service/pkg/errors"
	"invest-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body, category string)
}

type Service struct {
	db       *gorm.DB
	notifier Notifier
}

func NewService(db *gorm.DB, notifier Notifier) *Service {
	return &Service{db: db, notifier: notifier}
}

type ListResult struct {
	Items []model.Investment
	Total int64
}

type AdminListFilter struct {
	Page   int
	Size   int
	UserID *int64
	Status string
}

// Create stakes an amount from the user's wallet into a plan. The profit
// quote (expected total, per-interval amount, cadence) is computed here once
// and cached on the investment; later plan edits never touch it.
func (s *Service) Create(ctx context.Context, userID, planID int64, amount float64) (*model.Investment, error) {
	if amount <= 0 {
		return nil, appErr.ErrInvalidAmount
	}

	var inv *model.Investment
	var referrerID *int64
	var bonus float64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan model.InvestmentPlan
		if err := tx.First(&plan, planID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrPlanNotFound
			}
			return err
		}
		if plan.Status != model.PlanStatusActive {
			return appErr.ErrPlanInactive
		}
		if amount < plan.MinAmount || (plan.MaxAmount > 0 && amount > plan.MaxAmount) {
			return fmt.Errorf("%w: plan %s accepts %.2f - %.2f",
				appErr.ErrAmountOutOfRange, plan.Name, plan.MinAmount, plan.MaxAmount)
		}

		var wallet model.Wallet
		if err := repo.LockForUpdate(tx).
			Where("user_id = ?", userID).
			First(&wallet).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrInsufficientBalance
			}
			return err
		}
		if wallet.Balance < amount {
			return appErr.ErrInsufficientBalance
		}

		now := time.Now()
		if err := tx.Model(&model.Wallet{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"balance":        gorm.Expr("balance - ?", amount),
				"total_invested": gorm.Expr("total_invested + ?", amount),
				"updated_at":     now,
			}).Error; err != nil {
			return err
		}

		quote := profit.QuotePlan(amount, &plan)
		firstDue := now.Add(quote.Interval)
		record := model.Investment{
			UserID:         userID,
			PlanID:         plan.ID,
			Principal:      amount,
			ExpectedProfit: quote.ExpectedProfit,
			IntervalProfit: quote.IntervalProfit,
			StartAt:        now,
			EndAt:          now.Add(quote.Term),
			NextPayoutDue:  &firstDue,
			Status:         model.InvestmentStatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		trx := model.Transaction{
			UserID:        userID,
			Type:          model.TransactionTypeInvestment,
			Amount:        amount,
			NetAmount:     amount,
			Status:        "completed",
			RefNo:         uuid.NewString(),
			ReferenceType: "investment",
			ReferenceID:   &record.ID,
			Description:   fmt.Sprintf("Investment in plan %s", plan.Name),
			CreatedAt:     now,
		}
		if err := tx.Create(&trx).Error; err != nil {
			return err
		}

		if plan.ReferralBonusPercent > 0 {
			var user model.User
			if err := tx.First(&user, userID).Error; err != nil {
				return err
			}
			if user.ReferredBy != nil {
				bonus = profit.RoundCents(amount * plan.ReferralBonusPercent / 100)
				if bonus > 0 {
					if err := creditReferralBonus(tx, *user.ReferredBy, userID, record.ID, bonus, now); err != nil {
						return err
					}
					referrerID = user.ReferredBy
				}
			}
		}

		inv = &record
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("investment created",
		zap.Int64("investmentID", inv.ID),
		zap.Int64("userID", userID),
		zap.Int64("planID", planID),
		zap.Float64("principal", amount),
	)
	if s.notifier != nil && referrerID != nil {
		s.notifier.Notify(ctx, *referrerID, "Referral bonus",
			fmt.Sprintf("You earned a %.2f referral bonus", bonus), "investment")
	}
	return inv, nil
}

// Pause stops an investment from being selected for payouts. Its
// nextPayoutDue is deliberately left untouched; resume semantics are decided
// by the scheduler's payoutMissedOnResume setting.
func (s *Service) Pause(ctx context.Context, investmentID, adminID int64, reason string) (*model.Investment, error) {
	var inv model.Investment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.LockForUpdate(tx).First(&inv, investmentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrInvestmentNotFound
			}
			return err
		}
		if inv.Status != model.InvestmentStatusActive {
			return appErr.ErrInvestmentNotActive
		}
		if inv.IsPaused {
			return appErr.ErrInvestmentAlreadyPaused
		}
		now := time.Now()
		inv.IsPaused = true
		inv.PausedBy = &adminID
		inv.PauseReason = reason
		inv.PausedAt = &now
		inv.UpdatedAt = now
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Service) Resume(ctx context.Context, investmentID int64) (*model.Investment, error) {
	var inv model.Investment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.LockForUpdate(tx).First(&inv, investmentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrInvestmentNotFound
			}
			return err
		}
		if !inv.IsPaused {
			return appErr.ErrInvestmentNotPaused
		}
		now := time.Now()
		inv.IsPaused = false
		inv.PausedBy = nil
		inv.PauseReason = ""
		inv.PausedAt = nil
		inv.UpdatedAt = now

		if !config.GlobalConfig.Scheduler.PayoutMissedOnResume {
			var plan model.InvestmentPlan
			if err := tx.First(&plan, inv.PlanID).Error; err != nil {
				return err
			}
			next := now.Add(profit.PayoutInterval(plan.ROIType))
			inv.NextPayoutDue = &next
		}
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Cancel terminates an active investment early and refunds the principal.
// Profit already earned stays with the user; nothing further accrues.
func (s *Service) Cancel(ctx context.Context, investmentID, adminID int64, reason string) (*model.Investment, error) {
	var inv model.Investment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.LockForUpdate(tx).First(&inv, investmentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrInvestmentNotFound
			}
			return err
		}
		if inv.Status != model.InvestmentStatusActive {
			return appErr.ErrInvestmentNotActive
		}

		now := time.Now()
		if err := tx.Model(&model.Wallet{}).
			Where("user_id = ?", inv.UserID).
			Updates(map[string]interface{}{
				"balance":        gorm.Expr("balance + ?", inv.Principal),
				"total_invested": gorm.Expr("total_invested - ?", inv.Principal),
				"updated_at":     now,
			}).Error; err != nil {
			return err
		}

		trx := model.Transaction{
			UserID:        inv.UserID,
			Type:          model.TransactionTypeInvestment,
			Amount:        inv.Principal,
			NetAmount:     inv.Principal,
			Status:        "completed",
			RefNo:         uuid.NewString(),
			ReferenceType: "investment",
			ReferenceID:   &inv.ID,
			Description:   fmt.Sprintf("Principal refund for cancelled investment #%d", inv.ID),
			CreatedAt:     now,
		}
		if err := tx.Create(&trx).Error; err != nil {
			return err
		}

		inv.Status = model.InvestmentStatusCancelled
		inv.NextPayoutDue = nil
		inv.IsPaused = false
		inv.UpdatedAt = now
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("investment cancelled",
		zap.Int64("investmentID", investmentID),
		zap.Int64("adminID", adminID),
		zap.String("reason", reason),
	)
	if s.notifier != nil {
		s.notifier.Notify(ctx, inv.UserID, "Investment cancelled",
			fmt.Sprintf("Investment #%d was cancelled and the principal refunded", inv.ID), "investment")
	}
	return &inv, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]model.Investment, error) {
	var items []model.Investment
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) AdminList(ctx context.Context, filter AdminListFilter) (*ListResult, error) {
	page := filter.Page
	size := filter.Size
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	query := s.db.WithContext(ctx).Model(&model.Investment{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []model.Investment
	if total > 0 {
		offset := (page - 1) * size
		if err := query.Order("id DESC").Limit(size).Offset(offset).Find(&items).Error; err != nil {
			return nil, err
		}
	}
	return &ListResult{Items: items, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, investmentID int64) (*model.Investment, error) {
	var inv model.Investment
	if err := s.db.WithContext(ctx).First(&inv, investmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrInvestmentNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func creditReferralBonus(tx *gorm.DB, referrerID, fromUserID, investmentID int64, bonus float64, now time.Time) error {
	res := tx.Model(&model.Wallet{}).
		Where("user_id = ?", referrerID).
		Updates(map[string]interface{}{
			"balance":        gorm.Expr("balance + ?", bonus),
			"total_referral": gorm.Expr("total_referral + ?", bonus),
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		wallet := model.Wallet{UserID: referrerID, Balance: bonus, TotalReferral: bonus, UpdatedAt: now}
		if err := tx.Create(&wallet).Error; err != nil {
			return err
		}
	}

	trx := model.Transaction{
		UserID:        referrerID,
		Type:          model.TransactionTypeReferral,
		Amount:        bonus,
		NetAmount:     bonus,
		Status:        "completed",
		RefNo:         uuid.NewString(),
		ReferenceType: "investment",
		ReferenceID:   &investmentID,
		Description:   fmt.Sprintf("Referral bonus from user #%d", fromUserID),
		CreatedAt:     now,
	}
	return tx.Create(&trx).Error
}
