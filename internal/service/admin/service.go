package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"invest-service/internal/config"
	"invest-service/internal/model"
	pkgAuth "invest-service/pkg/auth"
	appErr "invest-service/pkg/errors"
	"invest-service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// Service manages admin accounts: authentication, account creation and the
// bootstrap of the first super admin. Authorization itself is role-based;
// see permissions.go.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type AdminInfo struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type LoginResult struct {
	Token    string    `json:"token"`
	ExpireAt time.Time `json:"expireAt"`
	Admin    AdminInfo `json:"admin"`
}

type CreateParams struct {
	Username    string
	Password    string
	DisplayName string
	Role        string
}

// Login authenticates an admin and issues a role-bearing token. The role in
// the token is the one checked by the permission middleware for the whole
// session; demoting an admin takes effect on their next login.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = normalizeUsername(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, appErr.ErrInvalidAdminPassword
	}

	admin, err := s.findByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(admin.Status, "active") {
		return nil, appErr.ErrAdminDisabled
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, appErr.ErrInvalidAdminPassword
	}

	if err := s.stampLastLogin(ctx, admin.ID); err != nil {
		return nil, err
	}

	token, err := pkgAuth.GenerateAdminToken(admin.ID, admin.Role)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("admin logged in",
		zap.Int64("adminID", admin.ID),
		zap.String("role", admin.Role),
	)
	return &LoginResult{
		Token:    token,
		ExpireAt: time.Now().Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour),
		Admin:    toInfo(admin),
	}, nil
}

// CreateAdmin adds an admin account. The caller's permission to do so is
// enforced at the route layer (PermAdminManage).
func (s *Service) CreateAdmin(ctx context.Context, params CreateParams) (*AdminInfo, error) {
	username := normalizeUsername(params.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username required", appErr.ErrInvalidAdminPassword)
	}
	if len(params.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters",
			appErr.ErrInvalidAdminPassword, minPasswordLength)
	}
	if !ValidRole(params.Role) {
		return nil, fmt.Errorf("%w: %q", appErr.ErrInvalidAdminRole, params.Role)
	}

	var taken int64
	if err := s.db.WithContext(ctx).
		Model(&model.Admin{}).
		Where("username = ?", username).
		Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, appErr.ErrUsernameTaken
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return nil, err
	}
	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		displayName = username
	}
	admin := model.Admin{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         params.Role,
		Status:       "active",
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return nil, err
	}

	logger.Log.Info("admin account created",
		zap.String("username", username),
		zap.String("role", params.Role),
	)
	info := toInfo(&admin)
	return &info, nil
}

// ChangePassword rotates the caller's own password after verifying the
// current one.
func (s *Service) ChangePassword(ctx context.Context, adminID int64, current, next string) error {
	if len(next) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters",
			appErr.ErrInvalidAdminPassword, minPasswordLength)
	}

	var admin model.Admin
	if err := s.db.WithContext(ctx).First(&admin, adminID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.ErrAdminNotFound
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(current)) != nil {
		return appErr.ErrInvalidAdminPassword
	}

	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&admin).
		Updates(map[string]interface{}{
			"password_hash": hash,
			"updated_at":    time.Now(),
		}).Error
}

// EnsureDefaultAdmin creates the configured bootstrap account as a super
// admin on first start. It never touches an existing account, so rotating
// the configured password has no effect once the row exists.
func (s *Service) EnsureDefaultAdmin(ctx context.Context) error {
	cfg := config.GlobalConfig.Admin
	if cfg.DefaultUsername == "" || cfg.DefaultPassword == "" {
		logger.Log.Warn("default admin credentials not configured; skipping bootstrap")
		return nil
	}

	username := normalizeUsername(cfg.DefaultUsername)
	var exists int64
	if err := s.db.WithContext(ctx).
		Model(&model.Admin{}).
		Where("username = ?", username).
		Count(&exists).Error; err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}

	_, err := s.CreateAdmin(ctx, CreateParams{
		Username: username,
		Password: cfg.DefaultPassword,
		Role:     model.AdminRoleSuper,
	})
	return err
}

func (s *Service) findByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var admin model.Admin
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

func (s *Service) stampLastLogin(ctx context.Context, adminID int64) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&model.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"updated_at":    now,
		}).Error
}

func toInfo(admin *model.Admin) AdminInfo {
	return AdminInfo{
		ID:          admin.ID,
		Username:    admin.Username,
		DisplayName: admin.DisplayName,
		Role:        admin.Role,
		Status:      admin.Status,
		LastLoginAt: admin.LastLoginAt,
		CreatedAt:   admin.CreatedAt,
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
