package profit

import (
	"context"
	"sync"
	"time"

	"invest-service/pkg/logger"

	"go.uber.org/zap"
)

// Scheduler drives the distribution batches. In production it fires at the
// next local midnight and every 24h after; in test mode it fires shortly
// after start and then every minute. An independent hourly sweep
// force-completes matured investments in both modes.
type Scheduler struct {
	svc      *Service
	testMode bool

	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewScheduler(svc *Service, testMode bool) *Scheduler {
	return &Scheduler{
		svc:      svc,
		testMode: testMode,
		stopCh:   make(chan struct{}),
	}
}

func (sc *Scheduler) Start(ctx context.Context) {
	sc.startOnce.Do(func() {
		logger.Log.Info("profit scheduler starting", zap.Bool("testMode", sc.testMode))
		go sc.runDistributionLoop(ctx)
		go sc.runSweepLoop(ctx)
	})
}

func (sc *Scheduler) Stop() {
	sc.stopOnce.Do(func() {
		close(sc.stopCh)
	})
}

func (sc *Scheduler) runDistributionLoop(ctx context.Context) {
	delay := sc.firstFireDelay()
	logger.Log.Info("next profit distribution scheduled", zap.Duration("in", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("profit scheduler stopped")
			return
		case <-sc.stopCh:
			logger.Log.Info("profit scheduler stopped")
			return
		case <-timer.C:
			if _, err := sc.svc.DistributeAll(ctx, sc.testMode); err != nil {
				// No immediate retry; the next scheduled firing picks
				// everything up again.
				logger.Log.Error("profit distribution batch error", zap.Error(err))
			}
			timer.Reset(sc.fireInterval())
		}
	}
}

func (sc *Scheduler) runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sc.svc.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sc.stopCh:
			return
		case <-ticker.C:
			if _, err := sc.svc.RunMaturitySweep(ctx); err != nil {
				logger.Log.Error("maturity sweep error", zap.Error(err))
			}
		}
	}
}

func (sc *Scheduler) firstFireDelay() time.Duration {
	if sc.testMode {
		return sc.svc.cfg.TestInitialDelay
	}
	now := sc.svc.cfg.Clock()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return next.Sub(now)
}

func (sc *Scheduler) fireInterval() time.Duration {
	if sc.testMode {
		return sc.svc.cfg.TestInterval
	}
	return 24 * time.Hour
}
