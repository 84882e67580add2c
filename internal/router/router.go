// Package router assembles the gin engine and its route table.
package router

import (
	"net/http"
	"time"

	"github.com/HiteshriGautam/Store-Rating-System/internal/config"
	"github.com/HiteshriGautam/Store-Rating-System/internal/handler"
	"github.com/HiteshriGautam/Store-Rating-System/internal/metrics"
	"github.com/HiteshriGautam/Store-Rating-System/internal/middleware"
	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Deps is everything the HTTP layer needs. Redis may be nil, which
// disables rate limiting.
type Deps struct {
	Config    *config.Config
	Redis     *redis.Client
	Auth      *service.AuthService
	Users     *service.UserService
	Stores    *service.StoreService
	Ratings   *service.RatingService
	Dashboard *service.DashboardService
}

func New(d Deps) *gin.Engine {
	metrics.Init()

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.SecurityHeaders(d.Config.IsProduction()),
		cors.New(cors.Config{
			AllowOrigins:     d.Config.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	authHandler := handler.NewAuthHandler(d.Auth)
	storeHandler := handler.NewStoreHandler(d.Stores, d.Ratings)
	ratingHandler := handler.NewRatingHandler(d.Ratings)
	userHandler := handler.NewUserHandler(d.Users)
	dashboardHandler := handler.NewDashboardHandler(d.Dashboard)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	requireAuth := middleware.AuthMiddleware(d.Auth)
	optionalAuth := middleware.OptionalAuth(d.Auth)
	admin := middleware.RequireRoles(models.RoleAdmin)

	// Public routes
	auth := api.Group("/auth")
	{
		limited := auth.Group("")
		if d.Redis != nil {
			limiter := middleware.NewRateLimiter(d.Redis, middleware.RateLimiterConfig{
				MaxRequests: d.Config.RateLimitMaxRequests,
				Window:      d.Config.RateLimitWindow,
				Prefix:      "auth",
			})
			limited.Use(limiter.Middleware())
		}
		limited.POST("/signup", authHandler.Signup)
		limited.POST("/login", authHandler.Login)

		auth.POST("/logout", requireAuth, authHandler.Logout)
		auth.GET("/me", requireAuth, authHandler.Me)
	}

	stores := api.Group("/stores")
	{
		stores.GET("", optionalAuth, storeHandler.List)
		stores.GET("/:id", optionalAuth, storeHandler.Get)
		stores.POST("", requireAuth, admin, storeHandler.Create)
		stores.PUT("/:id", requireAuth, middleware.RequireRoles(models.RoleAdmin, models.RoleStoreOwner), storeHandler.Update)
		stores.DELETE("/:id", requireAuth, admin, storeHandler.Delete)
		stores.GET("/:id/ratings", requireAuth, middleware.RequireRoles(models.RoleAdmin, models.RoleStoreOwner), storeHandler.Ratings)
	}

	api.GET("/owner/stores", requireAuth, middleware.RequireRoles(models.RoleStoreOwner), storeHandler.Owned)

	ratings := api.Group("/ratings", requireAuth)
	{
		ratings.POST("", middleware.RequireRoles(models.RoleUser, models.RoleAdmin), ratingHandler.Submit)
		ratings.GET("", ratingHandler.List)
		ratings.DELETE("/:id", admin, ratingHandler.Delete)
	}

	users := api.Group("/users", requireAuth)
	{
		users.GET("", admin, userHandler.List)
		users.POST("", admin, userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", admin, userHandler.Delete)
		users.PUT("/:id/password", userHandler.ChangePassword)
	}

	dashboard := api.Group("/dashboard", requireAuth)
	{
		dashboard.GET("/stats", admin, dashboardHandler.Stats)
		dashboard.GET("/owner", middleware.RequireRoles(models.RoleStoreOwner), dashboardHandler.Owner)
	}

	return r
}
