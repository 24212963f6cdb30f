// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keyforge/storefront/internal/config"
	"github.com/keyforge/storefront/internal/domain/analytics"
	"github.com/keyforge/storefront/internal/domain/cart"
	"github.com/keyforge/storefront/internal/domain/invoice"
	"github.com/keyforge/storefront/internal/domain/notification"
	"github.com/keyforge/storefront/internal/domain/order"
	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/keyforge/storefront/internal/domain/sale"
	"github.com/keyforge/storefront/internal/domain/user"
	"github.com/keyforge/storefront/internal/interfaces/http/handlers"
	"github.com/keyforge/storefront/internal/interfaces/http/middleware"
	"github.com/keyforge/storefront/internal/interfaces/http/routes"
	"github.com/keyforge/storefront/internal/pkg/auth"
	"github.com/keyforge/storefront/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const cartEventsPath = "/api/v1/cart/events"

// Services are the domain services the HTTP layer exposes
type Services struct {
	Users         *user.Service
	UserAdmin     *user.AdminService
	Products      *product.Service
	Catalog       *sale.Catalog
	Sales         *sale.Service
	Carts         *cart.Service
	Orders        *order.Service
	Invoices      *invoice.Service
	Notifications *notification.Service
	Analytics     *analytics.Service
	Mailer        handlers.OrderMailer
	JWT           *auth.JWTManager
}

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	logger      *logrus.Logger
	gin         *gin.Engine
	httpServer  *http.Server
	db          *gorm.DB
	redisClient *redis.Client
	services    Services
	startedAt   time.Time
}

// NewServer creates a new HTTP server instance with its routes mounted.
// redisClient may be nil, which disables rate limiting.
func NewServer(cfg *config.Config, log *logrus.Logger, db *gorm.DB, redisClient *redis.Client, services Services) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:      cfg,
		logger:      log,
		gin:         gin.New(),
		db:          db,
		redisClient: redisClient,
		services:    services,
		startedAt:   time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.WithFields(logrus.Fields{
		"port":     s.config.Server.Port,
		"base_url": fmt.Sprintf("http://localhost:%s/api/v1", s.config.Server.Port),
	}).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server stopped gracefully")
	return nil
}

// setupMiddleware configures all middleware for the server
func (s *Server) setupMiddleware() {
	s.gin.Use(gin.Recovery())
	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Logger(s.logger))
	s.gin.Use(middleware.CORS(s.config))
	s.gin.Use(middleware.SecurityHeaders())
	s.gin.Use(middleware.RateLimit(s.config.Security.RateLimitPerMinute, s.redisClient,
		logger.Component(s.logger, "rate_limit")))
	s.gin.Use(middleware.RequestSizeLimit(s.config.Server.MaxRequestBytes))
	s.gin.Use(middleware.Timeout(s.config.Server.RequestTimeout, cartEventsPath))
}

// setupRoutes configures all routes for the server
func (s *Server) setupRoutes() {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)

	svc := s.services
	cartHandler := handlers.NewCartHandler(svc.Carts, svc.Catalog, s.config)

	orderHandler := handlers.NewOrderHandler(svc.Orders, svc.Invoices, svc.Carts, cartHandler.SessionID,
		svc.Mailer, logger.Component(s.logger, "checkout"))

	h := &routes.Handlers{
		Auth:         handlers.NewAuthHandler(svc.Users),
		Profile:      handlers.NewUserProfileHandler(svc.Users),
		Product:      handlers.NewProductHandler(svc.Products, svc.Catalog),
		Cart:         cartHandler,
		Order:        orderHandler,
		Dashboard:    handlers.NewDashboardHandler(svc.Orders, svc.Notifications),
		Invoice:      handlers.NewInvoiceHandler(svc.Invoices),
		Campaign:     handlers.NewCampaignHandler(svc.Sales),
		Notification: handlers.NewNotificationAdminHandler(svc.Notifications),
		UserAdmin:    handlers.NewUserAdminHandler(svc.UserAdmin),
		Analytics:    handlers.NewAnalyticsHandler(svc.Analytics),
	}

	routes.SetupRoutes(s.gin.Group("/api/v1"), h, svc.JWT)

	if s.config.IsDevelopment() {
		s.gin.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"message":     s.config.App.Name + " API",
				"version":     s.config.App.Version,
				"environment": s.config.App.Environment,
				"health":      "/health",
				"endpoints": gin.H{
					"auth":     "/api/v1/auth",
					"products": "/api/v1/products",
					"cart":     "/api/v1/cart",
					"checkout": "/api/v1/checkout",
					"orders":   "/api/v1/orders",
					"admin":    "/api/v1/admin",
				},
			})
		})
	}
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database ping failed",
		})
		return
	}

	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "redis ping failed",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	})
}

// readinessCheck handles readiness check requests
func (s *Server) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}
