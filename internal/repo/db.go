package repo

import (
	"log"

	"invest-service/internal/config"
	"invest-service/internal/model"
	"invest-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var DB *gorm.DB

// LockForUpdate adds a row lock to the query on dialects that support it.
// SQLite, used by the test suite, has no FOR UPDATE; its writes serialize on
// the whole database anyway.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func InitDB() {
	dsn := config.GlobalConfig.Database.DSN
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database",
			zap.Error(err),
		)
	}

	err = DB.AutoMigrate(
		&model.User{},
		&model.Admin{},
		&model.Wallet{},
		&model.Transaction{},
		&model.InvestmentPlan{},
		&model.Investment{},
		&model.ProfitAdjustment{},
		&model.ProfitDistribution{},
		&model.PaymentGateway{},
		&model.Deposit{},
		&model.Withdrawal{},
		&model.Notification{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
