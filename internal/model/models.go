package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	InvestmentStatusActive    = "active"
	InvestmentStatusCompleted = "completed"
	InvestmentStatusCancelled = "cancelled"

	PlanStatusActive   = "active"
	PlanStatusInactive = "inactive"

	AdminRoleSuper    = "super"
	AdminRoleOperator = "operator"

	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdraw   = "withdraw"
	TransactionTypeInvestment = "investment"
	TransactionTypeProfit     = "profit"
	TransactionTypeReferral   = "referral"
	TransactionTypeBonus      = "bonus"
	TransactionTypeFee        = "fee"

	ScopeGlobal     = "global"
	ScopeUser       = "user"
	ScopeInvestment = "investment"
	ScopePlan       = "plan"

	AdjustmentPercentage  = "percentage"
	AdjustmentFixedAmount = "fixed_amount"
	AdjustmentMultiplier  = "multiplier"

	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// 2.1 Users & Admins

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
	InviteCode   string `gorm:"unique"`
	ReferredBy   *int64 `gorm:"index"`
	Status       string `gorm:"default:normal;not null"` // normal/banned
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Admin struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	Role         string `gorm:"size:16;default:super;not null"` // super/operator
	Status       string `gorm:"default:active;not null"`        // active/disabled
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// 2.2 Wallet & ledger

type Wallet struct {
	UserID         int64   `gorm:"primaryKey"`
	Balance        float64 `gorm:"type:decimal(15,2);not null;default:0"`
	TotalDeposited float64 `gorm:"type:decimal(15,2);not null;default:0"`
	TotalWithdrawn float64 `gorm:"type:decimal(15,2);not null;default:0"`
	TotalInvested  float64 `gorm:"type:decimal(15,2);not null;default:0"`
	TotalProfit    float64 `gorm:"type:decimal(15,2);not null;default:0"`
	TotalReferral  float64 `gorm:"type:decimal(15,2);not null;default:0"`
	UpdatedAt      time.Time
}

// Transaction is an immutable financial event. One row per money movement,
// never updated after creation except for pending deposit/withdrawal
// completion.
type Transaction struct {
	ID            int64   `gorm:"primaryKey;autoIncrement"`
	UserID        int64   `gorm:"not null;index"`
	Type          string  `gorm:"size:16;not null;index"` // deposit/withdraw/investment/profit/referral/bonus/fee
	Amount        float64 `gorm:"type:decimal(15,2);not null"`
	Fee           float64 `gorm:"type:decimal(15,2);not null;default:0"`
	NetAmount     float64 `gorm:"type:decimal(15,2);not null"`
	Status        string  `gorm:"size:16;default:completed;not null"` // pending/completed/rejected
	RefNo         string  `gorm:"size:64;uniqueIndex"`
	ReferenceType string  `gorm:"size:32"` // investment/deposit/withdrawal/referral
	ReferenceID   *int64
	Description   string         `gorm:"size:255"`
	MetaJSON      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

// 2.3 Plans & investments

type InvestmentPlan struct {
	ID                   int64   `gorm:"primaryKey;autoIncrement"`
	Name                 string  `gorm:"size:128;not null"`
	MinAmount            float64 `gorm:"type:decimal(15,2);not null"`
	MaxAmount            float64 `gorm:"type:decimal(15,2);not null"`
	ROIPercent           float64 `gorm:"type:decimal(8,4);not null"`
	ROIType              string  `gorm:"size:16;not null"` // hourly/daily/weekly/monthly/total
	Duration             int     `gorm:"not null"`
	DurationUnit         string  `gorm:"size:16;not null"` // minute/hour/day/week/month
	ReferralBonusPercent float64 `gorm:"type:decimal(8,4);not null;default:0"`
	Status               string  `gorm:"default:active;not null"` // active/inactive
	Popular              bool    `gorm:"default:false"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Investment caches its profit quote at creation time. Plan edits never
// retroactively change ExpectedProfit or IntervalProfit on existing rows.
type Investment struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	UserID            int64     `gorm:"not null;index"`
	PlanID            int64     `gorm:"not null;index"`
	Principal         float64   `gorm:"type:decimal(15,2);not null"`
	ExpectedProfit    float64   `gorm:"type:decimal(15,2);not null"`
	EarnedProfit      float64   `gorm:"type:decimal(15,2);not null;default:0"`
	IntervalProfit    float64   `gorm:"type:decimal(15,2);not null"`
	StartAt           time.Time `gorm:"not null"`
	EndAt             time.Time `gorm:"not null;index"`
	LastPayoutAt      *time.Time
	NextPayoutDue     *time.Time `gorm:"index"`
	DistributionCount int        `gorm:"not null;default:0"`
	Status            string     `gorm:"default:active;not null;index"` // active/completed/cancelled
	IsPaused          bool       `gorm:"not null;default:false"`
	PausedBy          *int64
	PauseReason       string `gorm:"size:255"`
	PausedAt          *time.Time
	AutoReinvest      bool `gorm:"not null;default:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProfitAdjustment is an admin rate override. Exactly one of UserID,
// InvestmentID, PlanID is set depending on ScopeType; global scope sets none.
type ProfitAdjustment struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	ScopeType    string    `gorm:"size:16;not null;index"` // global/user/investment/plan
	UserID       *int64    `gorm:"index"`
	InvestmentID *int64    `gorm:"index"`
	PlanID       *int64    `gorm:"index"`
	Kind         string    `gorm:"size:16;not null"` // percentage/fixed_amount/multiplier
	Value        float64   `gorm:"type:decimal(15,4);not null"`
	Priority     int       `gorm:"not null;default:0"`
	StartAt      time.Time `gorm:"not null"`
	EndAt        *time.Time
	Active       bool   `gorm:"not null;default:true"`
	CreatedBy    int64  `gorm:"not null"`
	Reason       string `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfitDistribution is the immutable audit record of one payout.
type ProfitDistribution struct {
	ID               int64   `gorm:"primaryKey;autoIncrement"`
	InvestmentID     int64   `gorm:"not null;index"`
	UserID           int64   `gorm:"not null;index"`
	Amount           float64 `gorm:"type:decimal(15,2);not null"`
	BaseAmount       float64 `gorm:"type:decimal(15,2);not null"`
	AdjustmentID     *int64
	AdjustedBy       *int64
	AdjustmentReason string    `gorm:"size:255"`
	TransactionID    int64     `gorm:"not null"`
	Status           string    `gorm:"size:16;default:completed;not null"`
	DistributedAt    time.Time `gorm:"not null;index"`
	CreatedAt        time.Time
}

// 2.4 Deposits & withdrawals

type PaymentGateway struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Name         string  `gorm:"size:128;not null"`
	Method       string  `gorm:"size:32;not null"` // bank/crypto/card
	MinAmount    float64 `gorm:"type:decimal(15,2);not null;default:0"`
	MaxAmount    float64 `gorm:"type:decimal(15,2);not null;default:0"`
	FeePercent   float64 `gorm:"type:decimal(8,4);not null;default:0"`
	Instructions string  `gorm:"size:1024"`
	Status       string  `gorm:"default:active;not null"` // active/inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Deposit struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	UserID       int64   `gorm:"not null;index"`
	GatewayID    int64   `gorm:"not null"`
	Amount       float64 `gorm:"type:decimal(15,2);not null"`
	RefNo        string  `gorm:"size:64;uniqueIndex"`
	Status       string  `gorm:"size:16;default:pending;not null;index"` // pending/approved/rejected
	ReviewedBy   *int64
	ReviewedAt   *time.Time
	RejectReason string `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Withdrawal struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	UserID       int64   `gorm:"not null;index"`
	Amount       float64 `gorm:"type:decimal(15,2);not null"`
	Fee          float64 `gorm:"type:decimal(15,2);not null;default:0"`
	NetAmount    float64 `gorm:"type:decimal(15,2);not null"`
	RefNo        string  `gorm:"size:64;uniqueIndex"`
	Status       string  `gorm:"size:16;default:pending;not null;index"` // pending/approved/rejected
	ReviewedBy   *int64
	ReviewedAt   *time.Time
	RejectReason string `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// 2.5 Notifications

type Notification struct {
	ID        int64          `gorm:"primaryKey;autoIncrement"`
	UserID    int64          `gorm:"not null;index"`
	Title     string         `gorm:"size:255;not null"`
	Body      string         `gorm:"size:1024"`
	Category  string         `gorm:"size:32;index"` // profit/deposit/withdrawal/investment
	Read      bool           `gorm:"not null;default:false"`
	MetaJSON  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
}
