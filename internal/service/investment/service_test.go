package investment_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"invest-service/internal/config"
	"invest-service/internal/model"
	invSvc "invest-service/internal/service/investment"
	"invest-service/internal/service/profit"
	appErr "invest-service/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, *invSvc.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Wallet{},
		&model.Transaction{},
		&model.InvestmentPlan{},
		&model.Investment{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	config.GlobalConfig = &config.Config{
		Scheduler: config.SchedulerConfig{PayoutMissedOnResume: true},
	}

	return db, invSvc.NewService(db, nil)
}

func createUser(t *testing.T, db *gorm.DB, email string, referredBy *int64) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		PasswordHash: "x",
		InviteCode:   email,
		ReferredBy:   referredBy,
		Status:       "normal",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	return user
}

func createWallet(t *testing.T, db *gorm.DB, userID int64, balance float64) {
	t.Helper()
	if err := db.Create(&model.Wallet{UserID: userID, Balance: balance}).Error; err != nil {
		t.Fatalf("failed to insert wallet: %v", err)
	}
}

func createPlan(t *testing.T, db *gorm.DB, mutate func(*model.InvestmentPlan)) *model.InvestmentPlan {
	t.Helper()
	plan := &model.InvestmentPlan{
		Name:         "Starter",
		MinAmount:    100,
		MaxAmount:    10000,
		ROIPercent:   5,
		ROIType:      profit.ROITypeDaily,
		Duration:     10,
		DurationUnit: profit.DurationDay,
		Status:       model.PlanStatusActive,
	}
	if mutate != nil {
		mutate(plan)
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("failed to insert plan: %v", err)
	}
	return plan
}

func TestCreateInvestmentCachesQuote(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, "a@test.io", nil)
	createWallet(t, db, user.ID, 5000)
	plan := createPlan(t, db, nil)

	before := time.Now()
	inv, err := svc.Create(context.Background(), user.ID, plan.ID, 1000)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if inv.Principal != 1000 {
		t.Fatalf("expected principal 1000, got %v", inv.Principal)
	}
	if inv.ExpectedProfit != 500 {
		t.Fatalf("expected cached total profit 500, got %v", inv.ExpectedProfit)
	}
	if inv.IntervalProfit != 50 {
		t.Fatalf("expected cached interval profit 50, got %v", inv.IntervalProfit)
	}
	if inv.Status != model.InvestmentStatusActive {
		t.Fatalf("expected active status, got %s", inv.Status)
	}
	if inv.NextPayoutDue == nil {
		t.Fatalf("expected first payout scheduled")
	}
	if diff := inv.NextPayoutDue.Sub(before.Add(24 * time.Hour)); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("expected first payout about 24h out, got %v", inv.NextPayoutDue)
	}
	if diff := inv.EndAt.Sub(before.Add(10 * 24 * time.Hour)); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("expected term to end about 10 days out, got %v", inv.EndAt)
	}

	var wallet model.Wallet
	if err := db.Where("user_id = ?", user.ID).First(&wallet).Error; err != nil {
		t.Fatalf("failed to load wallet: %v", err)
	}
	if wallet.Balance != 4000 {
		t.Fatalf("expected balance 4000 after staking, got %v", wallet.Balance)
	}
	if wallet.TotalInvested != 1000 {
		t.Fatalf("expected total_invested 1000, got %v", wallet.TotalInvested)
	}

	var trxCount int64
	if err := db.Model(&model.Transaction{}).
		Where("user_id = ? AND type = ?", user.ID, model.TransactionTypeInvestment).
		Count(&trxCount).Error; err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	if trxCount != 1 {
		t.Fatalf("expected 1 investment transaction, got %d", trxCount)
	}
}

func TestCreateInvestmentValidation(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, "a@test.io", nil)
	createWallet(t, db, user.ID, 5000)
	plan := createPlan(t, db, nil)
	inactive := createPlan(t, db, func(p *model.InvestmentPlan) {
		p.Name = "Closed"
		p.Status = model.PlanStatusInactive
	})

	if _, err := svc.Create(context.Background(), user.ID, 9999, 1000); !errors.Is(err, appErr.ErrPlanNotFound) {
		t.Fatalf("expected plan not found, got %v", err)
	}
	if _, err := svc.Create(context.Background(), user.ID, inactive.ID, 1000); !errors.Is(err, appErr.ErrPlanInactive) {
		t.Fatalf("expected inactive plan error, got %v", err)
	}
	if _, err := svc.Create(context.Background(), user.ID, plan.ID, 50); !errors.Is(err, appErr.ErrAmountOutOfRange) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if _, err := svc.Create(context.Background(), user.ID, plan.ID, 20000); !errors.Is(err, appErr.ErrAmountOutOfRange) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if _, err := svc.Create(context.Background(), user.ID, plan.ID, 0); !errors.Is(err, appErr.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount error, got %v", err)
	}
	if _, err := svc.Create(context.Background(), user.ID, plan.ID, 4900.01); err != nil {
		t.Fatalf("expected creation within balance to work, got %v", err)
	}
	if _, err := svc.Create(context.Background(), user.ID, plan.ID, 101); !errors.Is(err, appErr.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestCreateInvestmentPaysReferralBonus(t *testing.T) {
	db, svc := newTestService(t)
	referrer := createUser(t, db, "ref@test.io", nil)
	invitee := createUser(t, db, "new@test.io", &referrer.ID)
	createWallet(t, db, invitee.ID, 5000)
	plan := createPlan(t, db, func(p *model.InvestmentPlan) {
		p.ReferralBonusPercent = 2
	})

	if _, err := svc.Create(context.Background(), invitee.ID, plan.ID, 1000); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	var refWallet model.Wallet
	if err := db.Where("user_id = ?", referrer.ID).First(&refWallet).Error; err != nil {
		t.Fatalf("failed to load referrer wallet: %v", err)
	}
	if refWallet.Balance != 20 {
		t.Fatalf("expected referral bonus 20, got %v", refWallet.Balance)
	}
	if refWallet.TotalReferral != 20 {
		t.Fatalf("expected total_referral 20, got %v", refWallet.TotalReferral)
	}

	var trxCount int64
	if err := db.Model(&model.Transaction{}).
		Where("user_id = ? AND type = ?", referrer.ID, model.TransactionTypeReferral).
		Count(&trxCount).Error; err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	if trxCount != 1 {
		t.Fatalf("expected 1 referral transaction, got %d", trxCount)
	}
}

func TestPauseAndResume(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, "a@test.io", nil)
	createWallet(t, db, user.ID, 5000)
	plan := createPlan(t, db, nil)

	inv, err := svc.Create(context.Background(), user.ID, plan.ID, 1000)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	originalDue := *inv.NextPayoutDue

	paused, err := svc.Pause(context.Background(), inv.ID, 3, "suspicious activity")
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if !paused.IsPaused || paused.PausedBy == nil || *paused.PausedBy != 3 {
		t.Fatalf("expected paused by admin 3, got %+v", paused)
	}
	if paused.PauseReason != "suspicious activity" {
		t.Fatalf("expected pause reason, got %q", paused.PauseReason)
	}

	if _, err := svc.Pause(context.Background(), inv.ID, 3, ""); !errors.Is(err, appErr.ErrInvestmentAlreadyPaused) {
		t.Fatalf("expected already paused error, got %v", err)
	}

	resumed, err := svc.Resume(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.IsPaused || resumed.PausedBy != nil || resumed.PausedAt != nil {
		t.Fatalf("expected pause state cleared, got %+v", resumed)
	}
	// payoutMissedOnResume keeps the original schedule.
	if resumed.NextPayoutDue == nil {
		t.Fatalf("expected schedule kept")
	}
	if diff := resumed.NextPayoutDue.Sub(originalDue); diff < -time.Second || diff > time.Second {
		t.Fatalf("expected schedule kept at %v, got %v", originalDue, resumed.NextPayoutDue)
	}

	if _, err := svc.Resume(context.Background(), inv.ID); !errors.Is(err, appErr.ErrInvestmentNotPaused) {
		t.Fatalf("expected not paused error, got %v", err)
	}
}

func TestResumeReschedulesWhenMissedPayoutsForfeited(t *testing.T) {
	db, svc := newTestService(t)
	config.GlobalConfig.Scheduler.PayoutMissedOnResume = false
	user := createUser(t, db, "a@test.io", nil)
	createWallet(t, db, user.ID, 5000)
	plan := createPlan(t, db, nil)

	inv, err := svc.Create(context.Background(), user.ID, plan.ID, 1000)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Pause(context.Background(), inv.ID, 3, ""); err != nil {
		t.Fatalf("pause failed: %v", err)
	}

	before := time.Now()
	resumed, err := svc.Resume(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.NextPayoutDue == nil {
		t.Fatalf("expected next payout rescheduled")
	}
	if diff := resumed.NextPayoutDue.Sub(before.Add(24 * time.Hour)); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("expected next payout pushed a full interval out, got %v", resumed.NextPayoutDue)
	}
}

func TestPauseValidation(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, "a@test.io", nil)
	createWallet(t, db, user.ID, 5000)
	plan := createPlan(t, db, nil)

	inv, err := svc.Create(context.Background(), user.ID, plan.ID, 1000)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := db.Model(&model.Investment{}).Where("id = ?", inv.ID).
		Update("status", model.InvestmentStatusCompleted).Error; err != nil {
		t.Fatalf("failed to complete investment: %v", err)
	}

	if _, err := svc.Pause(context.Background(), inv.ID, 3, ""); !errors.Is(err, appErr.ErrInvestmentNotActive) {
		t.Fatalf("expected not active error, got %v", err)
	}
	if _, err := svc.Pause(context.Background(), 9999, 3, ""); !errors.Is(err, appErr.ErrInvestmentNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCancelRefundsPrincipal(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, "a@test.io", nil)
	createWallet(t, db, user.ID, 5000)
	plan := createPlan(t, db, nil)

	inv, err := svc.Create(context.Background(), user.ID, plan.ID, 1000)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), inv.ID, 3, "chargeback dispute")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != model.InvestmentStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
	if cancelled.NextPayoutDue != nil {
		t.Fatalf("cancelled investment must not stay scheduled")
	}

	var wallet model.Wallet
	if err := db.Where("user_id = ?", user.ID).First(&wallet).Error; err != nil {
		t.Fatalf("failed to load wallet: %v", err)
	}
	if wallet.Balance != 5000 {
		t.Fatalf("expected principal refunded to 5000, got %v", wallet.Balance)
	}
	if wallet.TotalInvested != 0 {
		t.Fatalf("expected total invested unwound, got %v", wallet.TotalInvested)
	}

	var refundCount int64
	if err := db.Model(&model.Transaction{}).
		Where("user_id = ? AND type = ? AND reference_id = ? AND amount = ?",
			user.ID, model.TransactionTypeInvestment, inv.ID, inv.Principal).
		Count(&refundCount).Error; err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	// The debit on create and the refund on cancel.
	if refundCount != 2 {
		t.Fatalf("expected refund transaction alongside the original debit, got %d", refundCount)
	}

	if _, err := svc.Cancel(context.Background(), inv.ID, 3, ""); !errors.Is(err, appErr.ErrInvestmentNotActive) {
		t.Fatalf("expected not active error on second cancel, got %v", err)
	}
	if _, err := svc.Cancel(context.Background(), 9999, 3, ""); !errors.Is(err, appErr.ErrInvestmentNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCancelClearsPauseState(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, "a@test.io", nil)
	createWallet(t, db, user.ID, 5000)
	plan := createPlan(t, db, nil)

	inv, err := svc.Create(context.Background(), user.ID, plan.ID, 1000)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Pause(context.Background(), inv.ID, 3, "under review"); err != nil {
		t.Fatalf("pause failed: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), inv.ID, 3, "review upheld")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != model.InvestmentStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
	if cancelled.IsPaused {
		t.Fatalf("cancelled investment must not stay paused")
	}
}
