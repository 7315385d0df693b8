package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"invest-service/internal/model"
	"invest-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is a fire-and-forget notification sink: it persists a row and
// publishes it for live consumers. Failures are logged and swallowed so a
// broken notification channel can never fail a payout.
type Service struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb}
}

func (s *Service) Notify(ctx context.Context, userID int64, title, body, category string) {
	notification := model.Notification{
		UserID:    userID,
		Title:     title,
		Body:      body,
		Category:  category,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		logger.Log.Warn("failed to persist notification",
			zap.Int64("userID", userID),
			zap.String("category", category),
			zap.Error(err),
		)
		return
	}

	if s.rdb == nil {
		return
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return
	}
	channel := fmt.Sprintf("notify:user:%d", userID)
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		logger.Log.Warn("failed to publish notification", zap.Error(err))
	}
}

func (s *Service) ListByUser(ctx context.Context, userID int64, page, size int) ([]model.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	query := s.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []model.Notification
	if total > 0 {
		if err := query.Order("id DESC").Limit(size).Offset((page - 1) * size).Find(&items).Error; err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true).Error
}
