// Package api assembles the HTTP server and routes.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/guestlink/guestlink/internal/cart"
	"github.com/guestlink/guestlink/internal/config"
	"github.com/guestlink/guestlink/internal/identities"
	"github.com/guestlink/guestlink/internal/marketplace"
	"github.com/guestlink/guestlink/internal/middleware/ratelimit"
	"github.com/guestlink/guestlink/internal/orders"
	"github.com/guestlink/guestlink/internal/payment"
	"github.com/guestlink/guestlink/pkg/metrics"
	"github.com/guestlink/guestlink/pkg/models"
)

// Server represents the API server
type Server struct {
	router      *gin.Engine
	logger      *zap.Logger
	db          *gorm.DB
	identities  *identities.Service
	marketplace *marketplace.Handler
	cart        *cart.Handler
	orders      *orders.Handler
	payment     *payment.Handler
	auth        *identities.Handler
	rateLimiter gin.HandlerFunc
}

// NewServer creates a new API server with injected handlers.
func NewServer(
	logger *zap.Logger,
	cfg *config.Config,
	db *gorm.DB,
	identitiesSvc *identities.Service,
	authHandler *identities.Handler,
	marketplaceHandler *marketplace.Handler,
	cartHandler *cart.Handler,
	ordersHandler *orders.Handler,
	paymentHandler *payment.Handler,
	limiter *ratelimit.Limiter,
) *Server {
	server := &Server{
		logger:      logger,
		db:          db,
		identities:  identitiesSvc,
		auth:        authHandler,
		marketplace: marketplaceHandler,
		cart:        cartHandler,
		orders:      ordersHandler,
		payment:     paymentHandler,
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(func(c *gin.Context) {
		metrics.HTTPInFlight.Inc()
		defer metrics.HTTPInFlight.Dec()
		c.Next()
	})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RateLimit.Enabled {
		server.rateLimiter = ratelimit.Middleware(limiter, cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate, logger)
	} else {
		server.rateLimiter = func(c *gin.Context) { c.Next() }
	}

	server.router = router
	server.registerRoutes()
	return server
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router returns the internal Gin engine for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	public := s.router.Group("/api/v1")
	{
		public.GET("/metrics", gin.WrapH(promhttp.Handler()))
		public.GET("/health", s.healthCheck)

		auth := public.Group("/auth", s.rateLimiter)
		{
			auth.POST("/register", s.auth.Register)
			auth.POST("/login", s.auth.Login)
			auth.POST("/refresh", s.auth.Refresh)
			auth.POST("/logout", s.auth.Logout)
		}

		market := public.Group("/marketplace")
		{
			market.GET("/websites", s.marketplace.List)
			market.GET("/websites/:id", s.marketplace.Get)
			market.POST("/websites",
				s.identities.RequireAuth(),
				identities.RequireRole(models.RoleEditor, models.RoleAdmin),
				s.marketplace.Create)
		}

		cartGroup := public.Group("/cart", s.identities.RequireAuth())
		{
			cartGroup.GET("", s.cart.Get)
			cartGroup.POST("/items", s.cart.Add)
			cartGroup.DELETE("/items/:websiteId", s.cart.Remove)
		}

		ordersGroup := public.Group("/orders", s.identities.RequireAuth())
		{
			ordersGroup.POST("/checkout", s.orders.Checkout)
			ordersGroup.GET("", s.orders.List)
			ordersGroup.GET("/:reference", s.orders.Get)
			ordersGroup.PUT("/:reference/status",
				identities.RequireRole(models.RoleAdmin),
				s.orders.UpdateStatus)
		}

		// Gateway callbacks authenticate by signature, not by token.
		public.POST("/payments/verify", s.rateLimiter, s.payment.VerifyPayment)
	}
}

// healthCheck reports process and database health.
func (s *Server) healthCheck(c *gin.Context) {
	status := gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		status["status"] = "unhealthy"
		status["database"] = "disconnected"
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}

	status["database"] = "connected"
	c.JSON(http.StatusOK, status)
}
