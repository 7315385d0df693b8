package user_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"invest-service/internal/model"
	usersvc "invest-service/internal/service/user"
	appErr "invest-service/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, *usersvc.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db, usersvc.NewService(db)
}

func createUser(t *testing.T, db *gorm.DB, email, inviteCode string, referredBy *int64) *model.User {
	t.Helper()
	user := model.User{
		Email:        email,
		PasswordHash: "x",
		InviteCode:   inviteCode,
		ReferredBy:   referredBy,
		Status:       "normal",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db, "a@b.com", "AAAA1111", nil)

	updated, err := svc.UpdateProfile(context.Background(), user.ID, usersvc.UpdateProfileRequest{Name: strPtr("Alice")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Alice" {
		t.Fatalf("expected name Alice, got %q", updated.Name)
	}

	// Nil name leaves the profile untouched.
	same, err := svc.UpdateProfile(context.Background(), user.ID, usersvc.UpdateProfileRequest{})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if same.Name != "Alice" {
		t.Fatalf("expected name unchanged, got %q", same.Name)
	}
}

func TestAdminListUsersFilters(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()

	referrer := createUser(t, db, "ref@b.com", "REF11111", nil)
	createUser(t, db, "alice@b.com", "AAAA1111", &referrer.ID)
	banned := createUser(t, db, "bob@c.com", "BBBB2222", nil)
	if err := db.Model(banned).Update("status", "banned").Error; err != nil {
		t.Fatalf("ban user: %v", err)
	}

	all, err := svc.AdminListUsers(ctx, usersvc.AdminListUsersFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if all.Total != 3 {
		t.Fatalf("expected 3 users, got %d", all.Total)
	}

	bannedOnly, err := svc.AdminListUsers(ctx, usersvc.AdminListUsersFilter{Status: "Banned"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if bannedOnly.Total != 1 || bannedOnly.Items[0].Email != "bob@c.com" {
		t.Fatalf("unexpected banned filter result %+v", bannedOnly)
	}

	byEmail, err := svc.AdminListUsers(ctx, usersvc.AdminListUsersFilter{EmailKeyword: "@b.com"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if byEmail.Total != 2 {
		t.Fatalf("expected 2 users matching @b.com, got %d", byEmail.Total)
	}

	referred, err := svc.AdminListUsers(ctx, usersvc.AdminListUsersFilter{ReferredBy: &referrer.ID})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if referred.Total != 1 || referred.Items[0].Email != "alice@b.com" {
		t.Fatalf("unexpected referred filter result %+v", referred)
	}
}

func TestAdminUpdateUserStatus(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()
	user := createUser(t, db, "a@b.com", "AAAA1111", nil)

	updated, err := svc.AdminUpdateUserStatus(ctx, user.ID, "banned", "chargeback abuse")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != "banned" {
		t.Fatalf("expected banned status, got %q", updated.Status)
	}

	restored, err := svc.AdminUpdateUserStatus(ctx, user.ID, "Normal", "")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if restored.Status != "normal" {
		t.Fatalf("expected normal status, got %q", restored.Status)
	}

	if _, err := svc.AdminUpdateUserStatus(ctx, user.ID, "frozen", ""); !errors.Is(err, appErr.ErrInvalidUserStatus) {
		t.Fatalf("expected invalid status error, got %v", err)
	}
	if _, err := svc.AdminUpdateUserStatus(ctx, 9999, "banned", ""); !errors.Is(err, appErr.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}
