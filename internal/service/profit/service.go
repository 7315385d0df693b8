package profit

import (
	"context"
	"encoding/json"
	"time"

	"invest-service/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	distributionLockKey   = "profit:distribution:lock"
	distributionEventChan = "profit:distribution:events"
)

// Notifier is the fire-and-forget notification sink. Implementations must
// never fail the payout path; errors are swallowed and logged internally.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body, category string)
}

type Config struct {
	TestInitialDelay   time.Duration
	TestInterval       time.Duration
	TestPayoutInterval time.Duration
	SweepInterval      time.Duration
	LockTTL            time.Duration
	Clock              func() time.Time
}

func defaultConfig() Config {
	return Config{
		TestInitialDelay:   3 * time.Second,
		TestInterval:       60 * time.Second,
		TestPayoutInterval: time.Minute,
		SweepInterval:      time.Hour,
		LockTTL:            10 * time.Minute,
		Clock:              time.Now,
	}
}

type Service struct {
	db       *gorm.DB
	rdb      *redis.Client
	notifier Notifier
	cfg      Config
}

func NewService(db *gorm.DB, rdb *redis.Client, notifier Notifier) *Service {
	return &Service{db: db, rdb: rdb, notifier: notifier, cfg: defaultConfig()}
}

// NewServiceWithConfig lets tests inject a clock and compressed intervals.
func NewServiceWithConfig(db *gorm.DB, rdb *redis.Client, notifier Notifier, cfg Config) *Service {
	def := defaultConfig()
	if cfg.TestInitialDelay == 0 {
		cfg.TestInitialDelay = def.TestInitialDelay
	}
	if cfg.TestInterval == 0 {
		cfg.TestInterval = def.TestInterval
	}
	if cfg.TestPayoutInterval == 0 {
		cfg.TestPayoutInterval = def.TestPayoutInterval
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = def.LockTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Service{db: db, rdb: rdb, notifier: notifier, cfg: cfg}
}

// SubscribeBatches opens a redis subscription on the batch result feed.
// Returns nil when the service runs without redis.
func (s *Service) SubscribeBatches(ctx context.Context) *redis.PubSub {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Subscribe(ctx, distributionEventChan)
}

// ledgerEntry describes one wallet credit plus its transaction row. The
// credit is an atomic read-modify-write so concurrent deposit approvals and
// payouts on the same wallet can never lose an update.
type ledgerEntry struct {
	UserID        int64
	Amount        float64
	Type          string
	Description   string
	ReferenceType string
	ReferenceID   *int64
	Counter       string // cumulative wallet column bumped with the balance
	Meta          map[string]interface{}
}

func creditWallet(tx *gorm.DB, e ledgerEntry, now time.Time) (*model.Transaction, error) {
	updates := map[string]interface{}{
		"balance":    gorm.Expr("balance + ?", e.Amount),
		"updated_at": now,
	}
	if e.Counter != "" {
		updates[e.Counter] = gorm.Expr(e.Counter+" + ?", e.Amount)
	}

	res := tx.Model(&model.Wallet{}).Where("user_id = ?", e.UserID).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		wallet := model.Wallet{UserID: e.UserID, Balance: e.Amount, UpdatedAt: now}
		switch e.Counter {
		case "total_profit":
			wallet.TotalProfit = e.Amount
		case "total_referral":
			wallet.TotalReferral = e.Amount
		case "total_deposited":
			wallet.TotalDeposited = e.Amount
		}
		if err := tx.Create(&wallet).Error; err != nil {
			return nil, err
		}
	}

	trx := model.Transaction{
		UserID:        e.UserID,
		Type:          e.Type,
		Amount:        e.Amount,
		Fee:           0,
		NetAmount:     e.Amount,
		Status:        "completed",
		RefNo:         uuid.NewString(),
		ReferenceType: e.ReferenceType,
		ReferenceID:   e.ReferenceID,
		Description:   e.Description,
		MetaJSON:      mustJSON(e.Meta),
		CreatedAt:     now,
	}
	if err := tx.Create(&trx).Error; err != nil {
		return nil, err
	}
	return &trx, nil
}

func recordDistribution(
	tx *gorm.DB,
	inv *model.Investment,
	amount, baseAmount float64,
	adj *model.ProfitAdjustment,
	adjustedBy *int64,
	reason string,
	trxID int64,
	now time.Time,
) (*model.ProfitDistribution, error) {
	dist := model.ProfitDistribution{
		InvestmentID:     inv.ID,
		UserID:           inv.UserID,
		Amount:           amount,
		BaseAmount:       baseAmount,
		AdjustedBy:       adjustedBy,
		AdjustmentReason: reason,
		TransactionID:    trxID,
		Status:           "completed",
		DistributedAt:    now,
		CreatedAt:        now,
	}
	if adj != nil {
		dist.AdjustmentID = &adj.ID
		dist.AdjustedBy = &adj.CreatedBy
		dist.AdjustmentReason = adj.Reason
	}
	if err := tx.Create(&dist).Error; err != nil {
		return nil, err
	}
	return &dist, nil
}

func mustJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("{}")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
