package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/guestlink/guestlink/api"
	"github.com/guestlink/guestlink/internal/cart"
	"github.com/guestlink/guestlink/internal/config"
	"github.com/guestlink/guestlink/internal/database"
	"github.com/guestlink/guestlink/internal/identities"
	"github.com/guestlink/guestlink/internal/marketplace"
	"github.com/guestlink/guestlink/internal/middleware/ratelimit"
	"github.com/guestlink/guestlink/internal/orders"
	"github.com/guestlink/guestlink/internal/payment"
	"github.com/guestlink/guestlink/pkg/logger"
	"github.com/guestlink/guestlink/pkg/metrics"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	zapLogger, err := logger.NewLogger(logLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := database.NewPostgresDB(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, caching and rate limiting degraded", zap.Error(err))
	}

	// Schedule DB pool metrics collection every 30s
	tickerDB := time.NewTicker(30 * time.Second)
	go func() {
		for range tickerDB.C {
			if sqlDB, err := db.DB(); err == nil {
				stats := sqlDB.Stats()
				metrics.DBOpenConns.WithLabelValues("postgres").Set(float64(stats.OpenConnections))
				metrics.DBIdleConns.WithLabelValues("postgres").Set(float64(stats.Idle))
				metrics.DBInUseConns.WithLabelValues("postgres").Set(float64(stats.InUse))
			}
		}
	}()

	// Create services
	identitiesSvc, err := identities.NewService(db, zapLogger, cfg.JWT.Secret, time.Duration(cfg.JWT.ExpirationHours)*time.Hour)
	if err != nil {
		zapLogger.Fatal("Failed to create identities service", zap.Error(err))
	}
	if err := identitiesSvc.EnsureAdmin(context.Background(), cfg.Admin.Email, cfg.Admin.Password); err != nil {
		zapLogger.Fatal("Failed to provision admin account", zap.Error(err))
	}

	verifier, err := payment.NewVerifier(cfg.Gateway.Secret)
	if err != nil {
		zapLogger.Fatal("Failed to create payment verifier", zap.Error(err))
	}
	settlementSvc := payment.NewService(verifier, payment.NewGormOrderStore(db), zapLogger)

	marketplaceSvc := marketplace.NewService(db, redisClient, cfg.CacheTTL, zapLogger)
	cartSvc := cart.NewService(db, zapLogger)
	ordersSvc := orders.NewService(db, zapLogger)

	// Create API server
	apiServer := api.NewServer(
		zapLogger,
		cfg,
		db,
		identitiesSvc,
		identities.NewHandler(identitiesSvc, zapLogger),
		marketplace.NewHandler(marketplaceSvc, zapLogger),
		cart.NewHandler(cartSvc, zapLogger),
		orders.NewHandler(ordersSvc, zapLogger),
		payment.NewHandler(settlementSvc, zapLogger),
		ratelimit.NewLimiter(redisClient),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		if err := apiServer.Start(addr); err != nil {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	// Wait for interrupt to shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	if err := redisClient.Close(); err != nil {
		zapLogger.Error("Failed to close redis client", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			zapLogger.Error("Failed to close database", zap.Error(err))
		}
	}

	zapLogger.Info("Server exited properly")
}
