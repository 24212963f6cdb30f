// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keyforge/storefront/internal/config"
	"github.com/keyforge/storefront/internal/domain/analytics"
	"github.com/keyforge/storefront/internal/domain/cart"
	"github.com/keyforge/storefront/internal/domain/invoice"
	"github.com/keyforge/storefront/internal/domain/notification"
	"github.com/keyforge/storefront/internal/domain/order"
	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/keyforge/storefront/internal/domain/sale"
	"github.com/keyforge/storefront/internal/domain/user"
	"github.com/keyforge/storefront/internal/infrastructure/database/postgres"
	"github.com/keyforge/storefront/internal/infrastructure/database/redis"
	"github.com/keyforge/storefront/internal/interfaces/http"
	"github.com/keyforge/storefront/internal/pkg/auth"
	"github.com/keyforge/storefront/internal/pkg/email"
	"github.com/keyforge/storefront/internal/pkg/logger"
	"github.com/keyforge/storefront/internal/pkg/pdf"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg)
	log.WithFields(logrus.Fields{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting storefront")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.NewConnection(cfg, logger.Component(log, "postgres"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		log.Fatalf("Database health check failed: %v", err)
	}

	// Redis backs the carts and the rate limiter. With the memory backend
	// the store runs without it.
	var redisClient *goredis.Client
	rc, err := redis.NewConnection(cfg, logger.Component(log, "redis"))
	switch {
	case err == nil:
		defer rc.Close()
		redisClient = rc.GetClient()
	case cfg.Cart.Backend == "redis":
		log.Fatalf("Failed to connect to Redis: %v", err)
	default:
		log.WithError(err).Warn("Redis unavailable, rate limiting disabled")
	}

	migration := postgres.NewMigration(db.GetDB(), logger.Component(log, "migration"))
	if err := migration.RunAutoMigrations(ctx); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
	if err := migration.CreateIndexes(ctx); err != nil {
		log.WithError(err).Warn("Index creation failed")
	}
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(ctx); err != nil {
			log.WithError(err).Warn("Data seeding failed")
		}
	}

	var kv cart.KeyValueStore = cart.NewMemoryStore()
	if cfg.Cart.Backend == "redis" {
		kv = cart.NewRedisStore(redisClient, cfg.Cart.TTL)
	}

	gdb := db.GetDB()
	mailer := email.NewEmailService(cfg, logger.Component(log, "email"))
	products := product.NewService(gdb)
	sales := sale.NewService(gdb)
	userAdmin := user.NewAdminService(gdb)

	services := http.Services{
		Users:         user.NewService(gdb, cfg),
		UserAdmin:     userAdmin,
		Products:      products,
		Catalog:       sale.NewCatalog(products, sales, logger.Component(log, "catalog")),
		Sales:         sales,
		Carts:         cart.NewService(kv, logger.Component(log, "cart")),
		Orders:        order.NewService(gdb, cfg.Invoice.Currency, logger.Component(log, "order")),
		Invoices:      invoice.NewService(gdb, cfg.Invoice, pdf.NewService(), logger.Component(log, "invoice")),
		Notifications: notification.NewService(gdb, userAdmin, mailer, logger.Component(log, "notification")),
		Analytics:     analytics.NewService(gdb, sales),
		Mailer:        mailer,
		JWT:           auth.NewJWTManager(cfg),
	}

	server := http.NewServer(cfg, log, gdb, redisClient, services)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	log.Info("Server shutdown completed")
}
