package admin_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"invest-service/internal/config"
	"invest-service/internal/model"
	adminsvc "invest-service/internal/service/admin"
	"invest-service/pkg/auth"
	appErr "invest-service/pkg/errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, *adminsvc.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.Admin{}); err != nil {
		t.Fatalf("failed to migrate admin model: %v", err)
	}

	config.GlobalConfig = &config.Config{
		JWT: config.JWTConfig{
			Secret: "test-secret",
			Expire: 1,
		},
		Admin: config.AdminSeedConfig{
			DefaultUsername: "bootstrap",
			DefaultPassword: "Bootstrap@123",
		},
	}

	return db, adminsvc.NewService(db)
}

func createAdmin(t *testing.T, db *gorm.DB, username, password, status string) *model.Admin {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	admin := &model.Admin{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  "Tester",
		Status:       status,
	}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("failed to insert admin: %v", err)
	}
	return admin
}

func TestLoginSuccess(t *testing.T) {
	db, svc := newTestService(t)
	record := createAdmin(t, db, "root", "Secret@123", "active")

	resp, err := svc.Login(context.Background(), "root", "Secret@123")
	if err != nil {
		t.Fatalf("expected login to succeed, got error: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("expected token in response")
	}
	if resp.Admin.ID != record.ID {
		t.Fatalf("expected admin id %d, got %d", record.ID, resp.Admin.ID)
	}

	var stored model.Admin
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("failed to reload admin: %v", err)
	}
	if stored.LastLoginAt == nil {
		t.Fatalf("expected last_login_at to be updated")
	}
	if stored.LastLoginAt.Before(time.Now().Add(-5 * time.Minute)) {
		t.Fatalf("unexpected last login timestamp: %v", stored.LastLoginAt)
	}

	// An admin created without an explicit role defaults to super.
	if resp.Admin.Role != model.AdminRoleSuper {
		t.Fatalf("expected super role, got %q", resp.Admin.Role)
	}
	claims, err := auth.ParseAdminToken(resp.Token)
	if err != nil {
		t.Fatalf("failed to parse issued token: %v", err)
	}
	if claims.Role != model.AdminRoleSuper {
		t.Fatalf("expected super role in token, got %q", claims.Role)
	}
}

func TestLoginInvalidPassword(t *testing.T) {
	db, svc := newTestService(t)
	createAdmin(t, db, "root", "Secret@123", "active")

	_, err := svc.Login(context.Background(), "root", "wrong-password")
	if !errors.Is(err, appErr.ErrInvalidAdminPassword) {
		t.Fatalf("expected invalid password error, got: %v", err)
	}
}

func TestLoginDisabledAdmin(t *testing.T) {
	db, svc := newTestService(t)
	createAdmin(t, db, "root", "Secret@123", "disabled")

	_, err := svc.Login(context.Background(), "root", "Secret@123")
	if !errors.Is(err, appErr.ErrAdminDisabled) {
		t.Fatalf("expected disabled error, got: %v", err)
	}
}

func TestLoginAdminNotFound(t *testing.T) {
	_, svc := newTestService(t)

	_, err := svc.Login(context.Background(), "ghost", "whatever")
	if !errors.Is(err, appErr.ErrAdminNotFound) {
		t.Fatalf("expected not found error, got: %v", err)
	}
}

func TestEnsureDefaultAdmin(t *testing.T) {
	db, svc := newTestService(t)

	ctx := context.Background()
	if err := svc.EnsureDefaultAdmin(ctx); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	var count int64
	if err := db.Model(&model.Admin{}).
		Where("username = ?", config.GlobalConfig.Admin.DefaultUsername).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count admins: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 default admin, got %d", count)
	}

	// Running bootstrap again should be idempotent.
	if err := svc.EnsureDefaultAdmin(ctx); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	if err := db.Model(&model.Admin{}).
		Where("username = ?", config.GlobalConfig.Admin.DefaultUsername).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count admins: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected idempotent bootstrap, got %d admins", count)
	}

	var seeded model.Admin
	if err := db.Where("username = ?", config.GlobalConfig.Admin.DefaultUsername).
		First(&seeded).Error; err != nil {
		t.Fatalf("failed to load seeded admin: %v", err)
	}
	if seeded.Role != model.AdminRoleSuper {
		t.Fatalf("bootstrap admin must be super, got %q", seeded.Role)
	}
}

func TestRolePermissions(t *testing.T) {
	allPerms := []string{
		adminsvc.PermPlanWrite,
		adminsvc.PermAdjustmentWrite,
		adminsvc.PermDistributionRun,
		adminsvc.PermMoneyReview,
		adminsvc.PermUserAdmin,
		adminsvc.PermAdminManage,
	}
	for _, perm := range allPerms {
		if !adminsvc.RoleCan(model.AdminRoleSuper, perm) {
			t.Fatalf("super must hold %s", perm)
		}
		if adminsvc.RoleCan("", perm) {
			t.Fatalf("empty role must hold nothing, held %s", perm)
		}
		if adminsvc.RoleCan("auditor", perm) {
			t.Fatalf("unknown role must hold nothing, held %s", perm)
		}
	}

	operatorHeld := map[string]bool{
		adminsvc.PermPlanWrite:       true,
		adminsvc.PermAdjustmentWrite: true,
		adminsvc.PermDistributionRun: true,
		adminsvc.PermMoneyReview:     false,
		adminsvc.PermUserAdmin:       false,
		adminsvc.PermAdminManage:     false,
	}
	for perm, want := range operatorHeld {
		if got := adminsvc.RoleCan(model.AdminRoleOperator, perm); got != want {
			t.Fatalf("operator on %s: expected %v, got %v", perm, want, got)
		}
	}
}

func TestCreateAdminAsOperator(t *testing.T) {
	db, svc := newTestService(t)

	info, err := svc.CreateAdmin(context.Background(), adminsvc.CreateParams{
		Username: "Desk.Operator ",
		Password: "Operator@123",
		Role:     model.AdminRoleOperator,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if info.Username != "desk.operator" {
		t.Fatalf("expected normalized username, got %q", info.Username)
	}
	if info.Role != model.AdminRoleOperator {
		t.Fatalf("expected operator role, got %q", info.Role)
	}
	if info.DisplayName != "desk.operator" {
		t.Fatalf("expected display name to default to the username, got %q", info.DisplayName)
	}

	var stored model.Admin
	if err := db.Where("username = ?", "desk.operator").First(&stored).Error; err != nil {
		t.Fatalf("failed to load created admin: %v", err)
	}
	if stored.Role != model.AdminRoleOperator || stored.Status != "active" {
		t.Fatalf("unexpected stored account: role %q status %q", stored.Role, stored.Status)
	}

	resp, err := svc.Login(context.Background(), "desk.operator", "Operator@123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	claims, err := auth.ParseAdminToken(resp.Token)
	if err != nil {
		t.Fatalf("failed to parse issued token: %v", err)
	}
	if claims.Role != model.AdminRoleOperator {
		t.Fatalf("expected operator role in token, got %q", claims.Role)
	}
}

func TestCreateAdminValidation(t *testing.T) {
	db, svc := newTestService(t)
	createAdmin(t, db, "root", "Secret@123", "active")
	ctx := context.Background()

	if _, err := svc.CreateAdmin(ctx, adminsvc.CreateParams{
		Username: "ROOT", Password: "Secret@123", Role: model.AdminRoleSuper,
	}); !errors.Is(err, appErr.ErrUsernameTaken) {
		t.Fatalf("expected username taken error, got: %v", err)
	}
	if _, err := svc.CreateAdmin(ctx, adminsvc.CreateParams{
		Username: "second", Password: "Secret@123", Role: "auditor",
	}); !errors.Is(err, appErr.ErrInvalidAdminRole) {
		t.Fatalf("expected invalid role error, got: %v", err)
	}
	if _, err := svc.CreateAdmin(ctx, adminsvc.CreateParams{
		Username: "second", Password: "short", Role: model.AdminRoleSuper,
	}); !errors.Is(err, appErr.ErrInvalidAdminPassword) {
		t.Fatalf("expected short password error, got: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	db, svc := newTestService(t)
	record := createAdmin(t, db, "root", "Secret@123", "active")
	ctx := context.Background()

	if err := svc.ChangePassword(ctx, record.ID, "wrong-password", "Rotated@456"); !errors.Is(err, appErr.ErrInvalidAdminPassword) {
		t.Fatalf("expected invalid current password error, got: %v", err)
	}
	if err := svc.ChangePassword(ctx, record.ID, "Secret@123", "short"); !errors.Is(err, appErr.ErrInvalidAdminPassword) {
		t.Fatalf("expected short password error, got: %v", err)
	}
	if err := svc.ChangePassword(ctx, 9999, "Secret@123", "Rotated@456"); !errors.Is(err, appErr.ErrAdminNotFound) {
		t.Fatalf("expected not found error, got: %v", err)
	}

	if err := svc.ChangePassword(ctx, record.ID, "Secret@123", "Rotated@456"); err != nil {
		t.Fatalf("change failed: %v", err)
	}
	if _, err := svc.Login(ctx, "root", "Secret@123"); !errors.Is(err, appErr.ErrInvalidAdminPassword) {
		t.Fatalf("old password must stop working, got: %v", err)
	}
	if _, err := svc.Login(ctx, "root", "Rotated@456"); err != nil {
		t.Fatalf("new password must work, got: %v", err)
	}
}
