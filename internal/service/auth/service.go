package auth

import (
	"context"
	"strings"
	"time"

	"invest-service/internal/config"
	"invest-service/internal/model"
	pkgAuth "invest-service/pkg/auth"
	appErr "invest-service/pkg/errors"
	"invest-service/pkg/logger"
	"invest-service/pkg/utils/random"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const inviteCodeLength = 8

type Service struct {
	db *gorm.DB
}

type LoginResult struct {
	Token    string    `json:"token"`
	ExpireAt time.Time `json:"expireAt"`
	User     UserInfo  `json:"user"`
}

type UserInfo struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	InviteCode string    `json:"inviteCode"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

type RegisterParams struct {
	Email      string
	Password   string
	Name       string
	InviteCode string // referrer's code, optional
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || len(params.Password) < 8 {
		return nil, appErr.ErrInvalidCredentials
	}

	var referrerID *int64
	if code := strings.TrimSpace(params.InviteCode); code != "" {
		var referrer model.User
		if err := s.db.WithContext(ctx).Where("invite_code = ?", code).First(&referrer).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, appErr.ErrInviteCodeNotFound
			}
			return nil, err
		}
		referrerID = &referrer.ID
	}

	var existing int64
	if err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("email = ?", email).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, appErr.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(params.Name),
		InviteCode:   random.Code(inviteCodeLength),
		ReferredBy:   referrerID,
		Status:       "normal",
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		wallet := model.Wallet{UserID: user.ID, UpdatedAt: time.Now()}
		return tx.Create(&wallet).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("user registered",
		zap.Int64("userID", user.ID),
		zap.Bool("referred", referrerID != nil),
	)
	return s.issueToken(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, appErr.ErrInvalidCredentials
	}

	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Status == "banned" {
		return nil, appErr.ErrUserBanned
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, appErr.ErrInvalidCredentials
	}

	return s.issueToken(user)
}

func (s *Service) issueToken(user model.User) (*LoginResult, error) {
	token, err := pkgAuth.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	expireAt := time.Now().Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour)
	return &LoginResult{
		Token:    token,
		ExpireAt: expireAt,
		User:     sanitizeUser(user),
	}, nil
}

func sanitizeUser(user model.User) UserInfo {
	return UserInfo{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		InviteCode: user.InviteCode,
		Status:     user.Status,
		CreatedAt:  user.CreatedAt,
	}
}
