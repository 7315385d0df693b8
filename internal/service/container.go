package service

import (
	"context"

	"invest-service/internal/config"
	"invest-service/internal/service/adjustment"
	"invest-service/internal/service/admin"
	"invest-service/internal/service/auth"
	"invest-service/internal/service/investment"
	"invest-service/internal/service/notify"
	"invest-service/internal/service/plan"
	"invest-service/internal/service/profit"
	"invest-service/internal/service/user"
	"invest-service/internal/service/wallet"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Auth       *auth.Service
	User       *user.Service
	Wallet     *wallet.Service
	Plan       *plan.Service
	Adjustment *adjustment.Service
	Investment *investment.Service
	Profit     *profit.Service
	Notify     *notify.Service
	Admin      *admin.Service

	scheduler *profit.Scheduler
}

func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	notifier := notify.NewService(db, rdb)
	profitSvc := profit.NewService(db, rdb, notifier)
	return &Container{
		Admin:      admin.NewService(db),
		Auth:       auth.NewService(db),
		User:       user.NewService(db),
		Wallet:     wallet.NewService(db, notifier),
		Plan:       plan.NewService(db),
		Adjustment: adjustment.NewService(db),
		Investment: investment.NewService(db, notifier),
		Profit:     profitSvc,
		Notify:     notifier,
		scheduler:  profit.NewScheduler(profitSvc, config.GlobalConfig.Scheduler.TestMode),
	}
}

func (c *Container) Start(ctx context.Context) error {
	if err := c.Admin.EnsureDefaultAdmin(ctx); err != nil {
		return err
	}
	c.scheduler.Start(ctx)
	return nil
}

func (c *Container) Stop() {
	c.scheduler.Stop()
}
