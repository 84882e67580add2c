package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"github.com/HiteshriGautam/Store-Rating-System/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultPassword satisfies the password rules.
const DefaultPassword = "Password123!"

var hashCache sync.Map // password -> encoded hash

// hashFor hashes each distinct password once per test binary.
func hashFor(t *testing.T, password string) string {
	t.Helper()
	if h, ok := hashCache.Load(password); ok {
		return h.(string)
	}
	h, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	hashCache.Store(password, h)
	return h
}

// CreateTestUser inserts a user with DefaultPassword.
func CreateTestUser(t *testing.T, db *gorm.DB, name, email string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Name:         name,
		Email:        email,
		Address:      "221B Baker Street, London",
		PasswordHash: hashFor(t, DefaultPassword),
		Role:         role,
	}
	if err := db.WithContext(context.Background()).Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user %s: %v", email, err)
	}
	return user
}

// CreateRandomUser inserts a user with a unique email.
func CreateRandomUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	id := uuid.NewString()[:8]
	return CreateTestUser(t, db, "Test User "+id, fmt.Sprintf("user-%s@example.com", id), role)
}

// CreateTestStore inserts a store owned by ownerID with zero aggregates.
func CreateTestStore(t *testing.T, db *gorm.DB, name, ownerID string) *models.Store {
	t.Helper()

	store := &models.Store{
		Name:    name,
		Email:   fmt.Sprintf("store-%s@example.com", uuid.NewString()[:8]),
		Address: "1 Market Square, Springfield",
		OwnerID: ownerID,
	}
	if err := db.Omit("Owner").Create(store).Error; err != nil {
		t.Fatalf("Failed to create test store %s: %v", name, err)
	}
	return store
}

// CreateStoreWithOwner inserts a fresh store_owner and a store they own.
func CreateStoreWithOwner(t *testing.T, db *gorm.DB, name string) (*models.Store, *models.User) {
	t.Helper()
	owner := CreateRandomUser(t, db, models.RoleStoreOwner)
	return CreateTestStore(t, db, name, owner.ID), owner
}

// ActorFor is the policy actor for a user.
func ActorFor(u *models.User) policy.Actor {
	return policy.Actor{ID: u.ID, Role: u.Role}
}
