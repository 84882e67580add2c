package service

import (
	"context"
	"errors"
	"time"

	"github.com/HiteshriGautam/Store-Rating-System/internal/metrics"
	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"github.com/HiteshriGautam/Store-Rating-System/internal/repository"
	"github.com/HiteshriGautam/Store-Rating-System/internal/session"
	"github.com/HiteshriGautam/Store-Rating-System/internal/utils"
	"github.com/HiteshriGautam/Store-Rating-System/pkg/logger"
	"go.uber.org/zap"
)

// signupRoles are the roles a visitor may pick for themselves.
var signupRoles = []models.Role{models.RoleUser, models.RoleStoreOwner}

type SignupInput struct {
	Name     string
	Email    string
	Address  string
	Password string
	Role     string
}

type AuthService struct {
	store         repository.Datastore
	tokens        session.TokenStore
	jwtSecret     string
	jwtExpiration time.Duration
	environment   string
}

func NewAuthService(store repository.Datastore, tokens session.TokenStore, jwtSecret string, jwtExpiration time.Duration, environment string) *AuthService {
	return &AuthService{
		store:         store,
		tokens:        tokens,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		environment:   environment,
	}
}

// IsProduction returns true if running in production environment
func (s *AuthService) IsProduction() bool {
	return s.environment == "production"
}

// TokenTTL is the lifetime of issued tokens.
func (s *AuthService) TokenTTL() time.Duration {
	return s.jwtExpiration
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, string, error) {
	start := time.Now()

	logger.Log.Debug("Processing user signup",
		zap.String("email", in.Email),
		zap.String("role", in.Role),
	)

	if err := authorize(policy.Anonymous, policy.ActionCreate, policy.User("")); err != nil {
		return nil, "", err
	}

	user, err := registerUser(ctx, s.store.Users(), CreateUserInput(in), signupRoles)
	if err != nil {
		return nil, "", err
	}

	token, err := utils.GenerateToken(user, s.jwtSecret, s.jwtExpiration)
	if err != nil {
		logger.Log.Error("Failed to generate JWT token",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return nil, "", err
	}

	logger.Log.Info("User signed up successfully",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)),
		zap.Duration("total_duration", time.Since(start)),
	)

	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	start := time.Now()
	email = normalizeEmail(email)

	logger.Log.Debug("Processing user login",
		zap.String("email", email),
	)

	// 1. Get user by email
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		logger.Log.Error("Failed to get user by email",
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, "", err
	}
	if user == nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		logger.Log.Warn("Login failed: user not found",
			zap.String("email", email),
		)
		return nil, "", ErrInvalidCredentials
	}

	// 2. Verify password
	verifyStart := time.Now()
	valid, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		logger.Log.Error("Failed to verify password",
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, "", err
	}
	verifyDuration := time.Since(verifyStart)

	if !valid {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		logger.Log.Warn("Login failed: invalid password",
			zap.String("email", email),
			zap.String("user_id", user.ID),
		)
		return nil, "", ErrInvalidCredentials
	}

	// 3. Upgrade hashes made with older parameters
	if utils.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	// 4. Generate JWT token
	token, err := utils.GenerateToken(user, s.jwtSecret, s.jwtExpiration)
	if err != nil {
		logger.Log.Error("Failed to generate JWT token",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return nil, "", err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	logger.Log.Info("User logged in successfully",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Duration("password_verify_duration", verifyDuration),
		zap.Duration("total_duration", time.Since(start)),
	)

	return user, token, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *utils.Claims) error {
	if claims == nil || claims.ID == "" {
		return ErrUnauthorized
	}

	if err := s.tokens.Revoke(ctx, claims.ID, claims.RemainingTTL(time.Now())); err != nil {
		logger.Log.Error("Failed to revoke token",
			zap.String("user_id", claims.UserID),
			zap.Error(err),
		)
		return err
	}

	logger.Log.Info("User logged out", zap.String("user_id", claims.UserID))
	return nil
}

// Authenticate validates a raw token and rejects revoked ones. Identity
// fields of the returned claims come from the stored user, so a role change
// or deletion takes effect on the next request.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*utils.Claims, error) {
	claims, err := utils.ValidateToken(token, s.jwtSecret)
	if err != nil {
		return nil, errors.Join(ErrUnauthorized, err)
	}

	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		logger.Log.Error("Failed to check token revocation",
			zap.String("user_id", claims.UserID),
			zap.Error(err),
		)
		return nil, err
	}
	if revoked {
		return nil, ErrUnauthorized
	}

	user, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		logger.Log.Error("Failed to load token subject",
			zap.String("user_id", claims.UserID),
			zap.Error(err),
		)
		return nil, err
	}
	if user == nil {
		logger.Log.Warn("Token for deleted user", zap.String("user_id", claims.UserID))
		return nil, ErrUnauthorized
	}
	if user.Role != claims.Role {
		logger.Log.Debug("Token role is stale",
			zap.String("user_id", user.ID),
			zap.String("token_role", string(claims.Role)),
			zap.String("role", string(user.Role)),
		)
	}

	claims.Role = user.Role
	claims.Email = user.Email
	claims.Name = user.Name
	return claims, nil
}

// CurrentUser loads the caller's own record.
func (s *AuthService) CurrentUser(ctx context.Context, actor policy.Actor) (*models.User, error) {
	if actor.IsAnonymous() {
		return nil, ErrUnauthorized
	}

	user, err := s.store.Users().GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Account deleted after the token was issued.
		return nil, ErrUnauthorized
	}
	return user, nil
}

func (s *AuthService) rehash(ctx context.Context, user *models.User, password string) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		logger.Log.Warn("Failed to rehash password", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hash
	if err := s.store.Users().Update(ctx, user); err != nil {
		logger.Log.Warn("Failed to store rehashed password", zap.String("user_id", user.ID), zap.Error(err))
	}
}
