package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"github.com/HiteshriGautam/Store-Rating-System/internal/service"
	"github.com/HiteshriGautam/Store-Rating-System/internal/utils"
	"github.com/HiteshriGautam/Store-Rating-System/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errBadAuthHeader = errors.New("malformed authorization header")

const (
	ActorKey    = "actor"
	ClaimsKey   = "claims"
	TokenCookie = "token"
)

// Authenticator validates a raw token, including revocation, and returns
// claims carrying the caller's current role.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*utils.Claims, error)
}

// AuthMiddleware requires a valid token from the Authorization header or the
// token cookie.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			abortUnauthorized(c, "Invalid authorization format. Use: Bearer <token>")
			return
		}
		if token == "" {
			abortUnauthorized(c, "Authentication required")
			return
		}

		if !authenticate(c, auth, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth admits anonymous callers but still rejects a bad token.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			abortUnauthorized(c, "Invalid authorization format. Use: Bearer <token>")
			return
		}
		if token == "" {
			c.Set(ActorKey, policy.Anonymous)
			c.Next()
			return
		}

		if !authenticate(c, auth, token) {
			return
		}
		c.Next()
	}
}

// RequireRoles lets through only callers with one of roles. Must run after
// AuthMiddleware.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor.IsAnonymous() {
			abortUnauthorized(c, "Authentication required")
			return
		}

		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"error": "Insufficient permissions",
		})
		c.Abort()
	}
}

// ActorFrom returns the caller set by the auth middleware, or Anonymous.
func ActorFrom(c *gin.Context) policy.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if actor, ok := v.(policy.Actor); ok {
			return actor
		}
	}
	return policy.Anonymous
}

func ClaimsFrom(c *gin.Context) *utils.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok {
			return claims
		}
	}
	return nil
}

// extractToken prefers the Authorization header over the cookie.
func extractToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return "", errBadAuthHeader
		}
		return strings.TrimSpace(token), nil
	}

	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie, nil
	}
	return "", nil
}

func authenticate(c *gin.Context, auth Authenticator, token string) bool {
	claims, err := auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			abortUnauthorized(c, "Invalid or expired token")
			return false
		}
		logger.Log.Error("Token check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		c.Abort()
		return false
	}

	c.Set(ClaimsKey, claims)
	c.Set(ActorKey, policy.Actor{ID: claims.UserID, Role: claims.Role})
	return true
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": msg,
	})
	c.Abort()
}
