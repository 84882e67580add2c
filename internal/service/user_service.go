package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"github.com/HiteshriGautam/Store-Rating-System/internal/query"
	"github.com/HiteshriGautam/Store-Rating-System/internal/repository"
	"github.com/HiteshriGautam/Store-Rating-System/internal/utils"
	"github.com/HiteshriGautam/Store-Rating-System/pkg/logger"
	"go.uber.org/zap"
)

type CreateUserInput struct {
	Name     string
	Email    string
	Address  string
	Password string
	Role     string
}

// UserPatch holds the fields to change; nil fields are left alone.
type UserPatch struct {
	Name    *string
	Email   *string
	Address *string
	Role    *string
}

type UserFilter struct {
	Search  string
	Name    string
	Email   string
	Address string
	Role    string
	Sort    string
	Order   string
}

// UserDetail is a user plus, for store owners, the store they own.
type UserDetail struct {
	models.User
	Store *models.Store `json:"store,omitempty"`
}

var userFields = []query.Field[models.User]{
	query.TextField("name", func(u models.User) string { return u.Name }),
	query.TextField("email", func(u models.User) string { return u.Email }),
	query.TextField("address", func(u models.User) string { return u.Address }),
	query.TextField("role", func(u models.User) string { return string(u.Role) }),
	query.NumberField("createdAt", func(u models.User) float64 { return float64(u.CreatedAt.UnixNano()) }),
}

type UserService struct {
	store  repository.Datastore
	ledger *RatingService
}

func NewUserService(store repository.Datastore, ledger *RatingService) *UserService {
	return &UserService{store: store, ledger: ledger}
}

// CreateUser is the admin path for adding an account of any role.
func (s *UserService) CreateUser(ctx context.Context, actor policy.Actor, in CreateUserInput) (*models.User, error) {
	start := time.Now()

	if actor.IsAnonymous() {
		return nil, ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	user, err := registerUser(ctx, s.store.Users(), in, models.Roles)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("User created by admin",
		zap.String("user_id", user.ID),
		zap.String("admin_id", actor.ID),
		zap.String("role", string(user.Role)),
		zap.Duration("total_duration", time.Since(start)),
	)
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, actor policy.Actor, f UserFilter) ([]models.User, error) {
	// Reading arbitrary users is admin-only; an empty owner never matches.
	if err := authorize(actor, policy.ActionRead, policy.User("")); err != nil {
		return nil, err
	}

	users, err := s.store.Users().List(ctx)
	if err != nil {
		logger.Log.Error("Failed to list users", zap.Error(err))
		return nil, err
	}

	if f.Role != "" {
		role, err := models.ParseRole(f.Role)
		if err != nil {
			return nil, fieldError("role", "unknown role")
		}
		filtered := users[:0:0]
		for _, u := range users {
			if u.Role == role {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	users = query.MatchField(users, f.Name, userFields[0])
	users = query.MatchField(users, f.Email, userFields[1])
	users = query.MatchField(users, f.Address, userFields[2])
	users = query.Search(users, f.Search, userFields[:3]...)

	users, err = query.Sort(users, f.Sort, query.ParseDirection(f.Order), userFields)
	if err != nil {
		return nil, fieldError("sort", "sort must be one of "+strings.Join(query.SortKeys(userFields), ", "))
	}

	logger.Log.Debug("Listed users", zap.Int("count", len(users)))
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, actor policy.Actor, id string) (*UserDetail, error) {
	if err := authorize(actor, policy.ActionRead, policy.User(id)); err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		logger.Log.Error("Failed to load user", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	detail := &UserDetail{User: *user}
	if user.Role == models.RoleStoreOwner {
		if detail.Store, err = s.store.Stores().GetByOwner(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// UpdateUser merges patch into the user. Only admins may change a role.
func (s *UserService) UpdateUser(ctx context.Context, actor policy.Actor, id string, patch UserPatch) (*models.User, error) {
	if err := authorize(actor, policy.ActionUpdate, policy.User(id)); err != nil {
		return nil, err
	}
	if patch.Role != nil && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		logger.Log.Error("Failed to load user", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	v := &ValidationError{}
	if patch.Name != nil {
		validateName(v, *patch.Name)
		user.Name = strings.TrimSpace(*patch.Name)
	}
	emailChanged := false
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		validateEmail(v, "email", email)
		emailChanged = email != user.Email
		user.Email = email
	}
	if patch.Address != nil {
		validateAddress(v, *patch.Address)
		user.Address = strings.TrimSpace(*patch.Address)
	}
	var demoted bool
	if patch.Role != nil {
		role, err := models.ParseRole(*patch.Role)
		if err != nil {
			v.Add("role", "unknown role")
		} else {
			demoted = user.Role == models.RoleStoreOwner && role != models.RoleStoreOwner
			user.Role = role
		}
	}
	if err := v.Err(); err != nil {
		logger.Log.Warn("User update validation failed", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}

	if emailChanged {
		existing, err := s.store.Users().GetByEmail(ctx, user.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != user.ID {
			return nil, ErrEmailExists
		}
	}

	if demoted {
		owned, err := s.store.Stores().GetByOwner(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if owned != nil {
			logger.Log.Warn("Refusing to demote owner of a store",
				zap.String("user_id", user.ID),
				zap.String("store_id", owned.ID),
			)
			return nil, ErrConflict
		}
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrEmailExists
		}
		logger.Log.Error("Failed to update user", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}

	logger.Log.Info("User updated",
		zap.String("user_id", id),
		zap.String("actor_id", actor.ID),
	)
	return user, nil
}

// ChangePassword lets a user replace their own password after proving the
// current one.
func (s *UserService) ChangePassword(ctx context.Context, actor policy.Actor, id, current, next string) error {
	if actor.IsAnonymous() {
		return ErrUnauthorized
	}
	if actor.ID == "" || actor.ID != id {
		return ErrForbidden
	}

	v := &ValidationError{}
	if current == "" {
		v.Add("currentPassword", "current password is required")
	}
	validatePassword(v, "newPassword", next)
	if err := v.Err(); err != nil {
		return err
	}

	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}

	ok, err := utils.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		logger.Log.Error("Failed to verify password", zap.String("user_id", id), zap.Error(err))
		return err
	}
	if !ok {
		logger.Log.Warn("Password change rejected: wrong current password", zap.String("user_id", id))
		return ErrInvalidCredentials
	}

	hash, err := utils.HashPassword(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hash

	if err := s.store.Users().Update(ctx, user); err != nil {
		logger.Log.Error("Failed to store new password", zap.String("user_id", id), zap.Error(err))
		return err
	}

	logger.Log.Info("Password changed", zap.String("user_id", id))
	return nil
}

// DeleteUser removes a user and their ratings. Owners of a store must have
// the store removed or reassigned first.
func (s *UserService) DeleteUser(ctx context.Context, actor policy.Actor, id string) error {
	if err := authorize(actor, policy.ActionDelete, policy.User(id)); err != nil {
		return err
	}
	if actor.ID == id {
		return fmt.Errorf("%w: cannot delete own account", ErrForbidden)
	}

	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}

	owned, err := s.store.Stores().GetByOwner(ctx, id)
	if err != nil {
		return err
	}
	if owned != nil {
		logger.Log.Warn("Refusing to delete owner of a store",
			zap.String("user_id", id),
			zap.String("store_id", owned.ID),
		)
		return ErrOwnerHasStore
	}

	err = s.ledger.removeUserRatings(ctx, id, func(tx repository.Datastore) error {
		return tx.Users().Delete(ctx, id)
	})
	if err != nil {
		logger.Log.Error("Failed to delete user", zap.String("user_id", id), zap.Error(err))
		return err
	}

	logger.Log.Info("User deleted",
		zap.String("user_id", id),
		zap.String("admin_id", actor.ID),
	)
	return nil
}

// registerUser validates in, hashes the password and stores the user. Roles
// outside allowed are rejected; an empty role means RoleUser.
func registerUser(ctx context.Context, users repository.UserRepository, in CreateUserInput, allowed []models.Role) (*models.User, error) {
	email := normalizeEmail(in.Email)

	v := &ValidationError{}
	validateName(v, in.Name)
	validateEmail(v, "email", email)
	validateAddress(v, in.Address)
	validatePassword(v, "password", in.Password)

	role := models.RoleUser
	if in.Role != "" {
		parsed, err := models.ParseRole(in.Role)
		if err != nil || !roleAllowed(parsed, allowed) {
			v.Add("role", "role is not allowed")
		} else {
			role = parsed
		}
	}
	if err := v.Err(); err != nil {
		logger.Log.Warn("User validation failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		logger.Log.Error("Failed to check email existence", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	if existing != nil {
		logger.Log.Warn("Email already exists", zap.String("email", email))
		return nil, ErrEmailExists
	}

	hashStart := time.Now()
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		logger.Log.Error("Failed to hash password", zap.Error(err))
		return nil, err
	}
	logger.Log.Debug("Password hashed successfully", zap.Duration("hash_duration", time.Since(hashStart)))

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Address:      strings.TrimSpace(in.Address),
		PasswordHash: hash,
		Role:         role,
	}
	if err := users.Create(ctx, user); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrEmailExists
		}
		logger.Log.Error("Failed to create user in database", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func roleAllowed(r models.Role, allowed []models.Role) bool {
	return slices.Contains(allowed, r)
}
