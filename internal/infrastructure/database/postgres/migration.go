// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keyforge/storefront/internal/domain/invoice"
	"github.com/keyforge/storefront/internal/domain/notification"
	"github.com/keyforge/storefront/internal/domain/order"
	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/keyforge/storefront/internal/domain/sale"
	"github.com/keyforge/storefront/internal/domain/user"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Entry
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Entry) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// User domain
		&user.User{},

		// Catalog
		&product.Product{},
		&sale.Campaign{},
		&sale.CampaignProduct{},

		// Order domain
		&order.Order{},
		&order.OrderItem{},
		&order.LicenseKey{},
		&order.OrderStatusHistory{},

		// Back office
		&notification.Notification{},
		&notification.Read{},
		&invoice.Invoice{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations(ctx context.Context) error {
	m.logger.Info("Running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.WithContext(ctx).AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates the composite indexes gorm tags cannot express
func (m *Migration) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_featured ON products(is_featured, is_active)",

		// Campaign indexes
		"CREATE INDEX IF NOT EXISTS idx_sale_campaigns_window ON sale_campaigns(active, start_date, end_date)",
		"CREATE INDEX IF NOT EXISTS idx_sale_campaign_products_product ON sale_campaign_products(product_id)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_license_keys_user_status ON license_keys(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",

		// Notification indexes
		"CREATE INDEX IF NOT EXISTS idx_notification_reads_user ON notification_reads(user_id)",
	}

	failCount := 0
	for _, indexSQL := range indexes {
		if err := m.db.WithContext(ctx).Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).WithField("sql", indexSQL).Warn("Failed to create index")
			failCount++
		}
	}

	m.logger.Infof("Created %d indexes (%d failed)", len(indexes)-failCount, failCount)
	if failCount > 0 {
		return fmt.Errorf("%d indexes could not be created", failCount)
	}
	return nil
}

// SeedInitialData inserts development data: an admin account, a handful
// of products and a running campaign
func (m *Migration) SeedInitialData(ctx context.Context) error {
	m.logger.Info("Seeding initial data")

	if err := m.seedAdminUser(ctx); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	products, err := m.seedProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	if err := m.seedCampaign(ctx, products); err != nil {
		return fmt.Errorf("failed to seed campaign: %w", err)
	}

	return nil
}

const (
	seedAdminEmail    = "admin@keyforge.local"
	seedAdminPassword = "Keyforge2026"
)

func (m *Migration) seedAdminUser(ctx context.Context) error {
	var existing user.User
	err := m.db.WithContext(ctx).Where("email = ?", seedAdminEmail).First(&existing).Error
	if err == nil {
		m.logger.Debug("Admin user already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(seedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := user.User{
		Email:     seedAdminEmail,
		Password:  string(hashedPassword),
		FirstName: "Admin",
		LastName:  "User",
		IsActive:  true,
		IsAdmin:   true,
	}
	if err := m.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	m.logger.WithField("email", seedAdminEmail).Info("Created development admin user")
	return nil
}

func (m *Migration) seedProducts(ctx context.Context) ([]product.Product, error) {
	seeds := []product.Product{
		{
			SKU:         "KF-GAME-001",
			Name:        "Starfall Tactics",
			Slug:        "starfall-tactics",
			Description: "Turn-based space strategy with a forty hour campaign.",
			Price:       decimal.RequireFromString("29.99"),
			Category:    "Games",
			DownloadURL: "https://downloads.keyforge.local/starfall-tactics",
			IsActive:    true,
			IsFeatured:  true,
		},
		{
			SKU:         "KF-SOFT-001",
			Name:        "PixelForge Studio",
			Slug:        "pixelforge-studio",
			Description: "Layered image editor for sprite and texture work.",
			Price:       decimal.RequireFromString("49.00"),
			Category:    "Software",
			DownloadURL: "https://downloads.keyforge.local/pixelforge-studio",
			IsActive:    true,
		},
		{
			SKU:         "KF-BOOK-001",
			Name:        "Practical Shader Cookbook",
			Slug:        "practical-shader-cookbook",
			Description: "Eighty recipes for real-time rendering, PDF and EPUB.",
			Price:       decimal.RequireFromString("19.50"),
			Category:    "E-books",
			DownloadURL: "https://downloads.keyforge.local/shader-cookbook",
			IsActive:    true,
		},
	}

	products := make([]product.Product, 0, len(seeds))
	for _, seed := range seeds {
		var existing product.Product
		err := m.db.WithContext(ctx).Where("sku = ?", seed.SKU).First(&existing).Error
		switch {
		case err == nil:
			products = append(products, existing)
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := m.db.WithContext(ctx).Create(&seed).Error; err != nil {
				return nil, fmt.Errorf("failed to create product %s: %w", seed.SKU, err)
			}
			m.logger.WithField("sku", seed.SKU).Info("Created seed product")
			products = append(products, seed)
		default:
			return nil, err
		}
	}
	return products, nil
}

func (m *Migration) seedCampaign(ctx context.Context, products []product.Product) error {
	var count int64
	if err := m.db.WithContext(ctx).Model(&sale.Campaign{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 || len(products) == 0 {
		return nil
	}

	now := time.Now().UTC()
	campaign := sale.Campaign{
		Name:               "Launch Week",
		Description:        "Opening discount on the flagship title",
		DiscountPercentage: 20,
		StartDate:          now.Add(-time.Hour),
		EndDate:            now.AddDate(0, 0, 7),
		Active:             true,
		Products:           []sale.CampaignProduct{{ProductID: products[0].ID}},
	}
	if err := m.db.WithContext(ctx).Create(&campaign).Error; err != nil {
		return err
	}

	m.logger.WithField("campaign", campaign.Name).Info("Created seed campaign")
	return nil
}
