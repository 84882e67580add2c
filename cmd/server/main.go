package main

import (
	"context"
	"log"
	"time"

	"github.com/HiteshriGautam/Store-Rating-System/internal/config"
	"github.com/HiteshriGautam/Store-Rating-System/internal/database"
	"github.com/HiteshriGautam/Store-Rating-System/internal/repository"
	"github.com/HiteshriGautam/Store-Rating-System/internal/router"
	"github.com/HiteshriGautam/Store-Rating-System/internal/service"
	"github.com/HiteshriGautam/Store-Rating-System/internal/session"
	"github.com/HiteshriGautam/Store-Rating-System/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(!cfg.IsProduction(), cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database.Connect(cfg)
	database.Migrate()

	// Redis backs token revocation and the auth rate limiter
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := session.NewRedisClient(ctx, cfg.RedisURL)
	cancel()
	if err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	tokens := session.NewRedisTokenStore(redisClient)
	defer tokens.Close()

	// Initialize services
	store := repository.NewGormDatastore(database.DB)
	ratingService := service.NewRatingService(store)
	userService := service.NewUserService(store, ratingService)
	storeService := service.NewStoreService(store, ratingService)
	authService := service.NewAuthService(store, tokens, cfg.JWTSecret, cfg.JWTExpiry, cfg.Environment)
	dashboardService := service.NewDashboardService(store)

	engine := router.New(router.Deps{
		Config:    cfg,
		Redis:     redisClient,
		Auth:      authService,
		Users:     userService,
		Stores:    storeService,
		Ratings:   ratingService,
		Dashboard: dashboardService,
	})

	logger.Log.Info("Server starting",
		zap.String("port", cfg.ServerPort),
		zap.String("environment", cfg.Environment),
		zap.String("database_driver", cfg.DatabaseDriver),
	)
	if err := engine.Run(cfg.ServerPort); err != nil {
		logger.Log.Fatal("Failed to start server", zap.Error(err))
	}
}
