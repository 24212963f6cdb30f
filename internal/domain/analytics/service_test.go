package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/keyforge/storefront/internal/domain/cart"
	"github.com/keyforge/storefront/internal/domain/order"
	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/keyforge/storefront/internal/domain/sale"
	"github.com/keyforge/storefront/internal/domain/user"
	"github.com/keyforge/storefront/internal/pkg/logger"
	"github.com/keyforge/storefront/internal/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	return testutil.NewDB(t,
		&product.Product{}, &user.User{},
		&order.Order{}, &order.OrderItem{}, &order.LicenseKey{}, &order.OrderStatusHistory{},
		&sale.Campaign{}, &sale.CampaignProduct{},
	)
}

func seed(t *testing.T, db *gorm.DB) (*product.Product, *product.Product) {
	ctx := context.Background()
	products := product.NewService(db)
	inactive := false

	game, err := products.CreateProduct(ctx, &product.CreateRequest{SKU: "GAME", Name: "Game", Price: decimal.RequireFromString("20.00")})
	require.NoError(t, err)
	tool, err := products.CreateProduct(ctx, &product.CreateRequest{SKU: "TOOL", Name: "Tool", Price: decimal.RequireFromString("5.00")})
	require.NoError(t, err)
	_, err = products.CreateProduct(ctx, &product.CreateRequest{SKU: "OLD", Name: "Old", Price: decimal.RequireFromString("1.00"), IsActive: &inactive})
	require.NoError(t, err)

	require.NoError(t, db.Create(&[]user.User{
		{Email: "alice@example.com", Password: "x", IsActive: true},
		{Email: "bob@example.com", Password: "x", IsActive: false},
		{Email: "boss@example.com", Password: "x", IsActive: true, IsAdmin: true},
	}).Error)

	return game, tool
}

func checkout(t *testing.T, db *gorm.DB, userID string, items ...*product.Product) *order.Order {
	ctx := context.Background()
	log := logger.Component(logger.Discard(), "analytics")
	store := cart.NewService(cart.NewMemoryStore(), log).Store(userID)
	for _, p := range items {
		require.NoError(t, store.AddToCart(ctx, *p))
	}
	o, err := order.NewService(db, "USD", log).Checkout(ctx, order.Customer{UserID: userID, Email: userID + "@example.com"}, store)
	require.NoError(t, err)
	return o
}

func TestGetDashboardStats(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	game, tool := seed(t, db)

	now := time.Now().UTC()
	campaigns := sale.NewService(db)
	_, err := campaigns.CreateCampaign(ctx, &sale.CampaignRequest{
		Name:               "Launch",
		DiscountPercentage: 10,
		StartDate:          now.Add(-time.Hour),
		EndDate:            now.Add(time.Hour),
		Active:             true,
		ProductIDs:         []string{game.ID},
	})
	require.NoError(t, err)

	checkout(t, db, "alice", game, game, tool)
	refunded := checkout(t, db, "alice", tool)
	_, err = order.NewService(db, "USD", logger.Component(logger.Discard(), "order")).
		UpdateOrderStatus(ctx, refunded.ID, &order.UpdateStatusRequest{Status: order.OrderStatusRefunded}, "boss")
	require.NoError(t, err)

	stats, err := NewService(db, campaigns).GetDashboardStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, "45.00", stats.TotalRevenue.StringFixed(2), "refunded orders are excluded")
	assert.Equal(t, "45.00", stats.RevenueThisMonth.StringFixed(2))
	assert.Equal(t, "45.00", stats.AvgOrderValue.StringFixed(2))
	assert.Equal(t, int64(1), stats.TotalOrders)
	assert.Equal(t, int64(3), stats.LicenseKeysIssued)
	assert.Equal(t, int64(2), stats.TotalCustomers)
	assert.Equal(t, int64(1), stats.ActiveCustomers)
	assert.Equal(t, int64(2), stats.NewCustomersThisMonth)
	assert.Equal(t, int64(3), stats.TotalProducts)
	assert.Equal(t, int64(2), stats.ActiveProducts)
	assert.Equal(t, int64(1), stats.ActiveCampaigns)
}

func TestGetSalesAnalytics(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	game, tool := seed(t, db)

	checkout(t, db, "alice", game, tool)
	checkout(t, db, "alice", tool, tool)

	analytics, err := NewService(db, sale.NewService(db)).GetSalesAnalytics(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, 7, analytics.Days)
	require.Len(t, analytics.DailyRevenue, 7)
	last := analytics.DailyRevenue[6]
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), last.Date)
	assert.Equal(t, "35.00", last.Value.StringFixed(2))
	assert.Equal(t, int64(2), last.Count)
	assert.True(t, analytics.DailyRevenue[0].Value.IsZero())

	assert.Equal(t, int64(2), analytics.TotalSales)
	assert.Equal(t, "17.50", analytics.AvgOrderValue.StringFixed(2))

	require.Len(t, analytics.TopProducts, 2)
	assert.Equal(t, game.ID, analytics.TopProducts[0].ProductID)
	assert.Equal(t, tool.ID, analytics.TopProducts[1].ProductID)
	assert.Equal(t, int64(3), analytics.TopProducts[1].TotalSold)
	assert.Equal(t, "15.00", analytics.TopProducts[1].Revenue.StringFixed(2))
}
