package wallet

import (
	"context"
	"fmt"
	"time"

	"invest-service/internal/model"
	"invest-service/internal/repo"
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

func (s *Service) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &model.Wallet{UserID: userID}, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (s *Service) ListTransactions(ctx context.Context, userID int64, page, size int) ([]model.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	query := s.db.WithContext(ctx).Model(&model.Transaction{}).Where("user_id = ?", userID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []model.Transaction
	if total > 0 {
		if err := query.Order("id DESC").Limit(size).Offset((page - 1) * size).Find(&items).Error; err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (s *Service) ListActiveGateways(ctx context.Context) ([]model.PaymentGateway, error) {
	var gateways []model.PaymentGateway
	if err := s.db.WithContext(ctx).
		Where("status = ?", "active").
		Order("id ASC").
		Find(&gateways).Error; err != nil {
		return nil, err
	}
	return gateways, nil
}

// RequestDeposit records a pending deposit against an active gateway. The
// wallet is only touched on admin approval.
func (s *Service) RequestDeposit(ctx context.Context, userID, gatewayID int64, amount float64) (*model.Deposit, error) {
	if amount <= 0 {
		return nil, appErr.ErrInvalidAmount
	}

	var gateway model.PaymentGateway
	if err := s.db.WithContext(ctx).First(&gateway, gatewayID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrGatewayNotFound
		}
		return nil, err
	}
	if gateway.Status != "active" {
		return nil, appErr.ErrGatewayInactive
	}
	if amount < gateway.MinAmount || (gateway.MaxAmount > 0 && amount > gateway.MaxAmount) {
		return nil, fmt.Errorf("%w: gateway %s accepts %.2f - %.2f",
			appErr.ErrAmountOutOfRange, gateway.Name, gateway.MinAmount, gateway.MaxAmount)
	}

	deposit := model.Deposit{
		UserID:    userID,
		GatewayID: gateway.ID,
		Amount:    amount,
		RefNo:     uuid.NewString(),
		Status:    model.ReviewStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(&deposit).Error; err != nil {
		return nil, err
	}
	return &deposit, nil
}

// ApproveDeposit credits the wallet and records the deposit transaction in
// one database transaction.
func (s *Service) ApproveDeposit(ctx context.Context, depositID, adminID int64) (*model.Deposit, error) {
	var deposit model.Deposit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.LockForUpdate(tx).First(&deposit, depositID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrDepositNotFound
			}
			return err
		}
		if deposit.Status != model.ReviewStatusPending {
			return appErr.ErrDepositNotPending
		}

		now := time.Now()
		if err := applyWalletCredit(tx, deposit.UserID, deposit.Amount, "total_deposited", now); err != nil {
			return err
		}

		trx := model.Transaction{
			UserID:        deposit.UserID,
			Type:          model.TransactionTypeDeposit,
			Amount:        deposit.Amount,
			NetAmount:     deposit.Amount,
			Status:        "completed",
			RefNo:         uuid.NewString(),
			ReferenceType: "deposit",
			ReferenceID:   &deposit.ID,
			Description:   fmt.Sprintf("Deposit #%d approved", deposit.ID),
			CreatedAt:     now,
		}
		if err := tx.Create(&trx).Error; err != nil {
			return err
		}

		deposit.Status = model.ReviewStatusApproved
		deposit.ReviewedBy = &adminID
		deposit.ReviewedAt = &now
		deposit.UpdatedAt = now
		return tx.Save(&deposit).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("deposit approved",
		zap.Int64("depositID", deposit.ID),
		zap.Int64("userID", deposit.UserID),
		zap.Float64("amount", deposit.Amount),
	)
	if s.notifier != nil {
		s.notifier.Notify(ctx, deposit.UserID, "Deposit approved",
			fmt.Sprintf("Your deposit of %.2f was approved", deposit.Amount), "deposit")
	}
	return &deposit, nil
}

func (s *Service) RejectDeposit(ctx context.Context, depositID, adminID int64, reason string) (*model.Deposit, error) {
	var deposit model.Deposit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.LockForUpdate(tx).First(&deposit, depositID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrDepositNotFound
			}
			return err
		}
		if deposit.Status != model.ReviewStatusPending {
			return appErr.ErrDepositNotPending
		}
		now := time.Now()
		deposit.Status = model.ReviewStatusRejected
		deposit.ReviewedBy = &adminID
		deposit.ReviewedAt = &now
		deposit.RejectReason = reason
		deposit.UpdatedAt = now
		return tx.Save(&deposit).Error
	})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, deposit.UserID, "Deposit rejected", reason, "deposit")
	}
	return &deposit, nil
}

// RequestWithdrawal debits the requested amount immediately so a raced
// approval can never push the balance negative; a rejection refunds it.
func (s *Service) RequestWithdrawal(ctx context.Context, userID int64, amount, feePercent float64) (*model.Withdrawal, error) {
	if amount <= 0 {
		return nil, appErr.ErrInvalidAmount
	}

	var withdrawal model.Withdrawal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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
				"balance":    gorm.Expr("balance - ?", amount),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		fee := amount * feePercent / 100
		withdrawal = model.Withdrawal{
			UserID:    userID,
			Amount:    amount,
			Fee:       fee,
			NetAmount: amount - fee,
			RefNo:     uuid.NewString(),
			Status:    model.ReviewStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Create(&withdrawal).Error
	})
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (s *Service) ApproveWithdrawal(ctx context.Context, withdrawalID, adminID int64) (*model.Withdrawal, error) {
	var withdrawal model.Withdrawal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.LockForUpdate(tx).First(&withdrawal, withdrawalID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrWithdrawalNotFound
			}
			return err
		}
		if withdrawal.Status != model.ReviewStatusPending {
			return appErr.ErrWithdrawalNotPending
		}

		now := time.Now()
		if err := tx.Model(&model.Wallet{}).
			Where("user_id = ?", withdrawal.UserID).
			Updates(map[string]interface{}{
				"total_withdrawn": gorm.Expr("total_withdrawn + ?", withdrawal.Amount),
				"updated_at":      now,
			}).Error; err != nil {
			return err
		}

		trx := model.Transaction{
			UserID:        withdrawal.UserID,
			Type:          model.TransactionTypeWithdraw,
			Amount:        withdrawal.Amount,
			Fee:           withdrawal.Fee,
			NetAmount:     withdrawal.NetAmount,
			Status:        "completed",
			RefNo:         uuid.NewString(),
			ReferenceType: "withdrawal",
			ReferenceID:   &withdrawal.ID,
			Description:   fmt.Sprintf("Withdrawal #%d approved", withdrawal.ID),
			CreatedAt:     now,
		}
		if err := tx.Create(&trx).Error; err != nil {
			return err
		}

		withdrawal.Status = model.ReviewStatusApproved
		withdrawal.ReviewedBy = &adminID
		withdrawal.ReviewedAt = &now
		withdrawal.UpdatedAt = now
		return tx.Save(&withdrawal).Error
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, withdrawal.UserID, "Withdrawal approved",
			fmt.Sprintf("Your withdrawal of %.2f was approved", withdrawal.Amount), "withdrawal")
	}
	return &withdrawal, nil
}

func (s *Service) RejectWithdrawal(ctx context.Context, withdrawalID, adminID int64, reason string) (*model.Withdrawal, error) {
	var withdrawal model.Withdrawal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.LockForUpdate(tx).First(&withdrawal, withdrawalID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrWithdrawalNotFound
			}
			return err
		}
		if withdrawal.Status != model.ReviewStatusPending {
			return appErr.ErrWithdrawalNotPending
		}

		now := time.Now()
		// refund the hold
		if err := tx.Model(&model.Wallet{}).
			Where("user_id = ?", withdrawal.UserID).
			Updates(map[string]interface{}{
				"balance":    gorm.Expr("balance + ?", withdrawal.Amount),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		withdrawal.Status = model.ReviewStatusRejected
		withdrawal.ReviewedBy = &adminID
		withdrawal.ReviewedAt = &now
		withdrawal.RejectReason = reason
		withdrawal.UpdatedAt = now
		return tx.Save(&withdrawal).Error
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, withdrawal.UserID, "Withdrawal rejected", reason, "withdrawal")
	}
	return &withdrawal, nil
}

func (s *Service) ListDeposits(ctx context.Context, userID *int64, status string, page, size int) ([]model.Deposit, int64, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	query := s.db.WithContext(ctx).Model(&model.Deposit{})
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []model.Deposit
	if total > 0 {
		if err := query.Order("id DESC").Limit(size).Offset((page - 1) * size).Find(&items).Error; err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (s *Service) ListWithdrawals(ctx context.Context, userID *int64, status string, page, size int) ([]model.Withdrawal, int64, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	query := s.db.WithContext(ctx).Model(&model.Withdrawal{})
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []model.Withdrawal
	if total > 0 {
		if err := query.Order("id DESC").Limit(size).Offset((page - 1) * size).Find(&items).Error; err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func applyWalletCredit(tx *gorm.DB, userID int64, amount float64, counter string, now time.Time) error {
	updates := map[string]interface{}{
		"balance":    gorm.Expr("balance + ?", amount),
		"updated_at": now,
	}
	if counter != "" {
		updates[counter] = gorm.Expr(counter+" + ?", amount)
	}
	res := tx.Model(&model.Wallet{}).Where("user_id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		wallet := model.Wallet{UserID: userID, Balance: amount, UpdatedAt: now}
		if counter == "total_deposited" {
			wallet.TotalDeposited = amount
		}
		return tx.Create(&wallet).Error
	}
	return nil
}
