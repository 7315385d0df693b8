package profit

import (
	"context"
	"fmt"
	"math"
	"time"

	"invest-service/internal/model"
	"invest-service/internal/repo"
	appErr "invest-service/pkg/errors"
	"invest-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	OutcomeSuccessful = "successful"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
)

type Outcome struct {
	InvestmentID int64   `json:"investmentId"`
	UserID       int64   `json:"userId,omitempty"`
	Result       string  `json:"result"`
	Amount       float64 `json:"amount,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

type BatchResult struct {
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"startedAt"`
	Details    []Outcome `json:"details"`
}

// releaseLockScript deletes the lock only while it still holds the given
// token. A batch that overruns LockTTL loses the lock to the next acquirer;
// an unconditional DEL here would release that other holder's lock.
var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

func (s *Service) acquireDistributionLock(ctx context.Context) (string, error) {
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, distributionLockKey, token, s.cfg.LockTTL).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", appErr.ErrDistributionInProgress
	}
	return token, nil
}

func (s *Service) releaseDistributionLock(ctx context.Context, token string) {
	if err := releaseLockScript.Run(ctx, s.rdb, []string{distributionLockKey}, token).Err(); err != nil {
		logger.Log.Warn("failed to release distribution lock", zap.Error(err))
	}
}

// DistributeAll walks every investment currently due for a payout and
// processes each one independently. A failing investment is counted and
// logged but never aborts the rest of the batch. Only a failure of the
// selection query itself propagates.
func (s *Service) DistributeAll(ctx context.Context, testMode bool) (*BatchResult, error) {
	now := s.cfg.Clock()

	if s.rdb != nil {
		token, err := s.acquireDistributionLock(ctx)
		if err != nil {
			return nil, err
		}
		defer s.releaseDistributionLock(ctx, token)
	}

	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&model.Investment{}).
		Where("status = ? AND is_paused = ?", model.InvestmentStatusActive, false).
		Where("start_at <= ? AND end_at >= ?", now, now).
		Where("next_payout_due IS NULL OR next_payout_due <= ?", now).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	result := &BatchResult{
		Total:     len(ids),
		StartedAt: now,
		Details:   make([]Outcome, 0, len(ids)),
	}

	for _, id := range ids {
		outcome := s.processInvestment(ctx, id, testMode)
		switch outcome.Result {
		case OutcomeSuccessful:
			result.Successful++
		case OutcomeSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
		result.Details = append(result.Details, outcome)
	}

	logger.Log.Info("profit distribution batch finished",
		zap.Int("total", result.Total),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Bool("testMode", testMode),
	)
	s.publishBatch(ctx, result)

	return result, nil
}

// processInvestment handles one due investment inside a single database
// transaction: wallet credit, transaction row, distribution record and the
// investment's bookkeeping commit or roll back together. A failed investment
// keeps its nextPayoutDue, so it is naturally retried on the next firing.
func (s *Service) processInvestment(ctx context.Context, id int64, testMode bool) Outcome {
	now := s.cfg.Clock()
	out := Outcome{InvestmentID: id}

	var notifyUserID int64
	var notifyAmount float64
	var completedNow bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv model.Investment
		if err := repo.LockForUpdate(tx).First(&inv, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrInvestmentNotFound
			}
			return err
		}
		out.UserID = inv.UserID

		// Selection and processing are not atomic; re-check everything
		// against the locked row.
		if inv.Status != model.InvestmentStatusActive {
			out.Result = OutcomeSkipped
			out.Reason = "not active"
			return nil
		}
		if inv.IsPaused {
			out.Result = OutcomeSkipped
			out.Reason = "paused"
			return nil
		}
		if now.After(inv.EndAt) {
			// Expiry wins over payout: complete without distributing,
			// forfeiting whatever this cycle would have paid.
			if err := s.completeInvestment(tx, &inv, now, false); err != nil {
				return err
			}
			out.Result = OutcomeSkipped
			out.Reason = "expired"
			completedNow = true
			notifyUserID = inv.UserID
			return nil
		}

		var plan model.InvestmentPlan
		if err := tx.First(&plan, inv.PlanID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrPlanNotFound
			}
			return err
		}

		quote := QuotePlan(inv.Principal, &plan)
		base := quote.IntervalProfit

		res, err := resolveAdjustment(tx, &inv, base, now)
		if err != nil {
			return err
		}

		amount := RoundCents(math.Min(res.Amount, inv.ExpectedProfit-inv.EarnedProfit))
		if amount <= 0 {
			if err := s.completeInvestment(tx, &inv, now, false); err != nil {
				return err
			}
			out.Result = OutcomeSkipped
			out.Reason = "expected profit reached"
			completedNow = true
			notifyUserID = inv.UserID
			return nil
		}

		trx, err := creditWallet(tx, ledgerEntry{
			UserID:        inv.UserID,
			Amount:        amount,
			Type:          model.TransactionTypeProfit,
			Description:   fmt.Sprintf("Profit payout for investment #%d", inv.ID),
			ReferenceType: "investment",
			ReferenceID:   &inv.ID,
			Counter:       "total_profit",
			Meta: map[string]interface{}{
				"investmentId": inv.ID,
				"planId":       inv.PlanID,
				"baseAmount":   base,
			},
		}, now)
		if err != nil {
			return err
		}
		if _, err := recordDistribution(tx, &inv, amount, base, res.Adjustment, nil, "", trx.ID, now); err != nil {
			return err
		}

		payoutAt := now
		inv.EarnedProfit = RoundCents(inv.EarnedProfit + amount)
		inv.LastPayoutAt = &payoutAt
		inv.DistributionCount++
		inv.IntervalProfit = base

		next := now.Add(quote.Interval)
		if testMode {
			next = now.Add(s.cfg.TestPayoutInterval)
		}
		inv.NextPayoutDue = &next
		inv.UpdatedAt = now

		if inv.EarnedProfit >= inv.ExpectedProfit {
			if err := s.completeInvestment(tx, &inv, now, false); err != nil {
				return err
			}
			completedNow = true
		} else if err := tx.Save(&inv).Error; err != nil {
			return err
		}

		out.Result = OutcomeSuccessful
		out.Amount = amount
		notifyUserID = inv.UserID
		notifyAmount = amount
		return nil
	})
	if err != nil {
		logger.Log.Error("profit distribution failed",
			zap.Int64("investmentID", id),
			zap.Error(err),
		)
		out.Result = OutcomeFailed
		out.Reason = err.Error()
		return out
	}

	if s.notifier != nil && notifyUserID != 0 {
		if out.Result == OutcomeSuccessful {
			s.notifier.Notify(ctx, notifyUserID, "Profit received",
				fmt.Sprintf("You received %.2f profit on investment #%d", notifyAmount, id), "profit")
		}
		if completedNow {
			s.notifier.Notify(ctx, notifyUserID, "Investment completed",
				fmt.Sprintf("Investment #%d has completed", id), "investment")
		}
	}
	return out
}

// completeInvestment is the only place an investment transitions to
// completed. It returns the principal to the wallet exactly once (guarded by
// the locked status check in every caller) and, when payRemaining is set,
// pays out any shortfall between earned and expected profit in one lump.
func (s *Service) completeInvestment(tx *gorm.DB, inv *model.Investment, now time.Time, payRemaining bool) error {
	if payRemaining {
		remaining := RoundCents(inv.ExpectedProfit - inv.EarnedProfit)
		if remaining > 0 {
			trx, err := creditWallet(tx, ledgerEntry{
				UserID:        inv.UserID,
				Amount:        remaining,
				Type:          model.TransactionTypeProfit,
				Description:   fmt.Sprintf("Final profit payout for investment #%d", inv.ID),
				ReferenceType: "investment",
				ReferenceID:   &inv.ID,
				Counter:       "total_profit",
				Meta:          map[string]interface{}{"investmentId": inv.ID, "maturity": true},
			}, now)
			if err != nil {
				return err
			}
			if _, err := recordDistribution(tx, inv, remaining, remaining, nil, nil, "", trx.ID, now); err != nil {
				return err
			}
			payoutAt := now
			inv.EarnedProfit = RoundCents(inv.EarnedProfit + remaining)
			inv.LastPayoutAt = &payoutAt
			inv.DistributionCount++
		}
	}

	if _, err := creditWallet(tx, ledgerEntry{
		UserID:        inv.UserID,
		Amount:        inv.Principal,
		Type:          model.TransactionTypeInvestment,
		Description:   fmt.Sprintf("Principal returned for investment #%d", inv.ID),
		ReferenceType: "investment",
		ReferenceID:   &inv.ID,
		Meta:          map[string]interface{}{"investmentId": inv.ID, "principalReturn": true},
	}, now); err != nil {
		return err
	}

	inv.Status = model.InvestmentStatusCompleted
	inv.NextPayoutDue = nil
	inv.UpdatedAt = now
	return tx.Save(inv).Error
}

// RunMaturitySweep force-completes every active investment whose term has
// ended, crediting principal plus any remaining expected profit in one lump.
// It may race with the distribution batch on the same investment; the locked
// status check makes re-completing a completed investment a no-op.
func (s *Service) RunMaturitySweep(ctx context.Context) (int, error) {
	now := s.cfg.Clock()

	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&model.Investment{}).
		Where("status = ? AND end_at <= ?", model.InvestmentStatusActive, now).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	matured := 0
	for _, id := range ids {
		var userID int64
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var inv model.Investment
			if err := repo.LockForUpdate(tx).First(&inv, id).Error; err != nil {
				return err
			}
			if inv.Status != model.InvestmentStatusActive {
				return nil
			}
			userID = inv.UserID
			return s.completeInvestment(tx, &inv, now, true)
		})
		if err != nil {
			logger.Log.Error("maturity sweep failed for investment",
				zap.Int64("investmentID", id),
				zap.Error(err),
			)
			continue
		}
		if userID != 0 {
			matured++
			if s.notifier != nil {
				s.notifier.Notify(ctx, userID, "Investment matured",
					fmt.Sprintf("Investment #%d has matured and was paid out in full", id), "investment")
			}
		}
	}

	if matured > 0 {
		logger.Log.Info("maturity sweep finished", zap.Int("matured", matured))
	}
	return matured, nil
}

// ManualDistribute credits an admin-specified amount against an investment,
// bypassing the calculator and resolver. The amount is deliberately not
// clamped to the remaining expected profit, unlike automatic distribution.
func (s *Service) ManualDistribute(ctx context.Context, investmentID int64, amount float64, adminID int64, reason string) (*model.ProfitDistribution, error) {
	if amount <= 0 {
		return nil, appErr.ErrInvalidAmount
	}
	now := s.cfg.Clock()
	amount = RoundCents(amount)

	var dist *model.ProfitDistribution
	var userID int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv model.Investment
		if err := repo.LockForUpdate(tx).First(&inv, investmentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrInvestmentNotFound
			}
			return err
		}
		if inv.Status != model.InvestmentStatusActive {
			return appErr.ErrInvestmentNotActive
		}
		userID = inv.UserID

		trx, err := creditWallet(tx, ledgerEntry{
			UserID:        inv.UserID,
			Amount:        amount,
			Type:          model.TransactionTypeProfit,
			Description:   fmt.Sprintf("Manual profit distribution for investment #%d", inv.ID),
			ReferenceType: "investment",
			ReferenceID:   &inv.ID,
			Counter:       "total_profit",
			Meta:          map[string]interface{}{"investmentId": inv.ID, "manual": true, "adminId": adminID},
		}, now)
		if err != nil {
			return err
		}
		dist, err = recordDistribution(tx, &inv, amount, amount, nil, &adminID, reason, trx.ID, now)
		if err != nil {
			return err
		}

		payoutAt := now
		inv.EarnedProfit = RoundCents(inv.EarnedProfit + amount)
		inv.LastPayoutAt = &payoutAt
		inv.DistributionCount++
		inv.UpdatedAt = now
		if inv.EarnedProfit >= inv.ExpectedProfit {
			return s.completeInvestment(tx, &inv, now, false)
		}
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, userID, "Profit received",
			fmt.Sprintf("You received a manual profit payout of %.2f", amount), "profit")
	}
	return dist, nil
}

func (s *Service) publishBatch(ctx context.Context, result *BatchResult) {
	if s.rdb == nil {
		return
	}
	payload := mustJSON(result)
	if err := s.rdb.Publish(ctx, distributionEventChan, string(payload)).Err(); err != nil {
		logger.Log.Warn("failed to publish distribution batch event", zap.Error(err))
	}
}
