// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/keyforge/storefront/internal/domain/order"
	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/keyforge/storefront/internal/domain/user"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// CampaignCounter reports how many campaigns are running
type CampaignCounter interface {
	CountActiveCampaigns(ctx context.Context, now time.Time) (int64, error)
}

// Service handles analytics business logic
type Service struct {
	db        *gorm.DB
	campaigns CampaignCounter
	now       func() time.Time
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, campaigns CampaignCounter) *Service {
	return &Service{
		db:        db,
		campaigns: campaigns,
		now:       time.Now,
	}
}

// DashboardStats represents overall dashboard statistics
type DashboardStats struct {
	// Sales metrics
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	RevenueThisMonth decimal.Decimal `json:"revenue_this_month"`
	AvgOrderValue    decimal.Decimal `json:"avg_order_value"`

	// Order metrics
	TotalOrders       int64 `json:"total_orders"`
	OrdersThisMonth   int64 `json:"orders_this_month"`
	LicenseKeysIssued int64 `json:"license_keys_issued"`

	// Customer metrics
	TotalCustomers        int64 `json:"total_customers"`
	ActiveCustomers       int64 `json:"active_customers"`
	NewCustomersThisMonth int64 `json:"new_customers_this_month"`

	// Catalog metrics
	TotalProducts   int64 `json:"total_products"`
	ActiveProducts  int64 `json:"active_products"`
	ActiveCampaigns int64 `json:"active_campaigns"`
}

// SalesAnalytics represents revenue over a trailing window
type SalesAnalytics struct {
	Days          int                `json:"days"`
	DailyRevenue  []TimeSeriesData   `json:"daily_revenue"`
	TotalSales    int64              `json:"total_sales"`
	TotalRevenue  decimal.Decimal    `json:"total_revenue"`
	AvgOrderValue decimal.Decimal    `json:"avg_order_value"`
	TopProducts   []ProductSalesData `json:"top_products"`
}

// Supporting data structures
type TimeSeriesData struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
	Count int64           `json:"count"`
}

type ProductSalesData struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	TotalSold   int64           `json:"total_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// sumRevenue adds order totals; SUM over decimals differs across drivers
func sumRevenue(query *gorm.DB) (decimal.Decimal, error) {
	var totals []decimal.Decimal
	if err := query.Pluck("total", &totals).Error; err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, total := range totals {
		sum = sum.Add(total)
	}
	return sum, nil
}

// GetDashboardStats retrieves overall dashboard statistics
func (s *Service) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	now := s.now().UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	db := s.db.WithContext(ctx)
	completed := func() *gorm.DB {
		return db.Model(&order.Order{}).Where("status = ?", order.OrderStatusCompleted)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.TotalRevenue, err = sumRevenue(completed())
		return err
	})
	g.Go(func() (err error) {
		stats.RevenueThisMonth, err = sumRevenue(completed().Where("created_at >= ?", thisMonth))
		return err
	})
	g.Go(func() error {
		return completed().Count(&stats.TotalOrders).Error
	})
	g.Go(func() error {
		return completed().Where("created_at >= ?", thisMonth).Count(&stats.OrdersThisMonth).Error
	})
	g.Go(func() error {
		return db.Model(&order.LicenseKey{}).Where("status = ?", order.LicenseStatusActive).Count(&stats.LicenseKeysIssued).Error
	})
	g.Go(func() error {
		return db.Model(&user.User{}).Where("is_admin = ?", false).Count(&stats.TotalCustomers).Error
	})
	g.Go(func() error {
		return db.Model(&user.User{}).Where("is_admin = ? AND is_active = ?", false, true).Count(&stats.ActiveCustomers).Error
	})
	g.Go(func() error {
		return db.Model(&user.User{}).Where("is_admin = ? AND created_at >= ?", false, thisMonth).Count(&stats.NewCustomersThisMonth).Error
	})
	g.Go(func() error {
		return db.Model(&product.Product{}).Count(&stats.TotalProducts).Error
	})
	g.Go(func() error {
		return db.Model(&product.Product{}).Where("is_active = ?", true).Count(&stats.ActiveProducts).Error
	})
	g.Go(func() (err error) {
		stats.ActiveCampaigns, err = s.campaigns.CountActiveCampaigns(gctx, now)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to collect dashboard stats: %w", err)
	}

	if stats.TotalOrders > 0 {
		stats.AvgOrderValue = stats.TotalRevenue.Div(decimal.NewFromInt(stats.TotalOrders)).Round(2)
	}

	return stats, nil
}

// GetSalesAnalytics retrieves revenue per day and the best sellers of the
// last days
func (s *Service) GetSalesAnalytics(ctx context.Context, days int) (*SalesAnalytics, error) {
	// Default to 30 days if not specified
	if days <= 0 || days > 365 {
		days = 30
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startDate := today.AddDate(0, 0, -(days - 1))

	analytics := &SalesAnalytics{Days: days, TotalRevenue: decimal.Zero, AvgOrderValue: decimal.Zero}

	var orders []order.Order
	err := s.db.WithContext(ctx).
		Select("id", "total", "created_at").
		Where("status = ? AND created_at >= ?", order.OrderStatusCompleted, startDate).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}

	// Bucket by UTC day so every day in the window is present
	buckets := make(map[string]*TimeSeriesData, days)
	for i := 0; i < days; i++ {
		date := startDate.AddDate(0, 0, i).Format("2006-01-02")
		point := TimeSeriesData{Date: date, Value: decimal.Zero}
		analytics.DailyRevenue = append(analytics.DailyRevenue, point)
	}
	for i := range analytics.DailyRevenue {
		buckets[analytics.DailyRevenue[i].Date] = &analytics.DailyRevenue[i]
	}

	for _, o := range orders {
		if point, ok := buckets[o.CreatedAt.UTC().Format("2006-01-02")]; ok {
			point.Value = point.Value.Add(o.Total)
			point.Count++
		}
		analytics.TotalRevenue = analytics.TotalRevenue.Add(o.Total)
		analytics.TotalSales++
	}

	if analytics.TotalSales > 0 {
		analytics.AvgOrderValue = analytics.TotalRevenue.Div(decimal.NewFromInt(analytics.TotalSales)).Round(2)
	}

	top, err := s.topProducts(ctx, startDate, 10)
	if err != nil {
		return nil, err
	}
	analytics.TopProducts = top

	return analytics, nil
}

// topProducts ranks products by revenue from completed orders
func (s *Service) topProducts(ctx context.Context, since time.Time, limit int) ([]ProductSalesData, error) {
	var items []order.OrderItem
	err := s.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ? AND orders.created_at >= ?", order.OrderStatusCompleted, since).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get top products: %w", err)
	}

	byProduct := make(map[string]*ProductSalesData)
	for _, item := range items {
		data, ok := byProduct[item.ProductID]
		if !ok {
			data = &ProductSalesData{ProductID: item.ProductID, ProductName: item.Name, Revenue: decimal.Zero}
			byProduct[item.ProductID] = data
		}
		data.TotalSold += int64(item.Quantity)
		data.Revenue = data.Revenue.Add(item.LineTotal)
	}

	top := make([]ProductSalesData, 0, len(byProduct))
	for _, data := range byProduct {
		top = append(top, *data)
	}
	sort.Slice(top, func(i, j int) bool {
		if cmp := top[i].Revenue.Cmp(top[j].Revenue); cmp != 0 {
			return cmp > 0
		}
		return top[i].ProductID < top[j].ProductID
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}
