// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/keyforge/storefront/internal/domain/cart"
	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrEmptyCart is returned when checking out an empty cart
	ErrEmptyCart = errors.New("cart is empty")
	// ErrOrderNotFound is returned when no order matches the lookup
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned for a disallowed status change
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// UnavailableError lists cart lines whose products can no longer be bought
type UnavailableError struct {
	ProductIDs []string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("products no longer available: %s", strings.Join(e.ProductIDs, ", "))
}

// Cart is the part of a cart store checkout needs
type Cart interface {
	GetCart(ctx context.Context) cart.Snapshot
	RemoveLines(ctx context.Context, lines cart.Snapshot) error
}

// Service handles checkout and order business logic
type Service struct {
	db       *gorm.DB
	currency string
	logger   *logrus.Entry
}

// NewService creates a new order service
func NewService(db *gorm.DB, currency string, logger *logrus.Entry) *Service {
	return &Service{
		db:       db,
		currency: currency,
		logger:   logger,
	}
}

// Customer identifies who is checking out
type Customer struct {
	UserID string
	Email  string
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int         `form:"page,default=1"`
	Limit     int         `form:"limit,default=20"`
	Status    OrderStatus `form:"status"`
	Search    string      `form:"search"`
	SortBy    string      `form:"sort_by,default=created_at"`
	SortOrder string      `form:"sort_order,default=desc"`
	UserID    string      `form:"-"`
}

// OrderResponse represents a page of orders
type OrderResponse struct {
	Orders     []Order            `json:"orders"`
	Pagination product.Pagination `json:"pagination"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status  OrderStatus `json:"status" binding:"required"`
	Comment string      `json:"comment"`
}

// Dashboard summarises a customer's purchases
type Dashboard struct {
	OrderCount   int64           `json:"order_count"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	LicenseKeys  int64           `json:"license_keys"`
	RecentOrders []Order         `json:"recent_orders"`
}

// Checkout turns the cart into a completed order with one license key per
// unit, then removes the ordered lines from the cart. Prices are the ones
// captured in the cart. Lines added while the order is written stay in it.
func (s *Service) Checkout(ctx context.Context, customer Customer, c Cart) (*Order, error) {
	snapshot := c.GetCart(ctx)
	if len(snapshot) == 0 {
		return nil, ErrEmptyCart
	}

	if err := s.checkAvailability(ctx, snapshot); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := Order{
		UserID:      customer.UserID,
		Email:       customer.Email,
		Status:      OrderStatusCompleted,
		Currency:    s.currency,
		Subtotal:    snapshot.Total(),
		Total:       snapshot.Total(),
		CompletedAt: &now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items", "LicenseKeys", "StatusHistory").Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, line := range snapshot {
			item := OrderItem{
				OrderID:   order.ID,
				ProductID: line.ID,
				Name:      line.Name,
				Image:     line.Image,
				UnitPrice: line.UnitPrice,
				Quantity:  line.Quantity,
				LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}

			keys := make([]LicenseKey, line.Quantity)
			for i := range keys {
				keys[i] = LicenseKey{
					Key:         GenerateLicenseKey(),
					OrderID:     order.ID,
					OrderItemID: item.ID,
					ProductID:   line.ID,
					ProductName: line.Name,
					UserID:      customer.UserID,
					Status:      LicenseStatusActive,
				}
			}
			if err := tx.Create(&keys).Error; err != nil {
				return fmt.Errorf("failed to issue license keys: %w", err)
			}
		}

		history := OrderStatusHistory{
			OrderID:   order.ID,
			Status:    OrderStatusCompleted,
			Comment:   "Order placed",
			CreatedBy: customer.UserID,
			CreatedAt: now,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.RemoveLines(ctx, snapshot); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("Order placed but cart could not be updated")
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      customer.UserID,
		"total":        order.Total.StringFixed(2),
	}).Info("Order placed")

	return s.GetOrder(ctx, order.ID)
}

// checkAvailability verifies every cart line still refers to an active product
func (s *Service) checkAvailability(ctx context.Context, snapshot cart.Snapshot) error {
	ids := make([]string, len(snapshot))
	for i, line := range snapshot {
		ids[i] = line.ID
	}

	var available []string
	err := s.db.WithContext(ctx).Model(&product.Product{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Pluck("id", &available).Error
	if err != nil {
		return fmt.Errorf("failed to check products: %w", err)
	}

	found := make(map[string]bool, len(available))
	for _, id := range available {
		found[id] = true
	}

	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &UnavailableError{ProductIDs: missing}
	}
	return nil
}

// GetOrders lists orders with filtering and pagination
func (s *Service) GetOrders(ctx context.Context, req *OrderListRequest) (*OrderResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Order{})

	if req.UserID != "" {
		query = query.Where("user_id = ?", req.UserID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(email) LIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	err := query.Preload("Items").
		Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset((req.Page - 1) * req.Limit).Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderResponse{
		Orders: orders,
		Pagination: product.Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetUserOrders lists one customer's orders
func (s *Service) GetUserOrders(ctx context.Context, userID string, page, limit int) (*OrderResponse, error) {
	return s.GetOrders(ctx, &OrderListRequest{
		Page:      page,
		Limit:     limit,
		UserID:    userID,
		SortBy:    "created_at",
		SortOrder: "desc",
	})
}

// GetOrder retrieves an order with items, keys and history
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("LicenseKeys").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

// GetUserOrder retrieves an order only if it belongs to the user
func (s *Service) GetUserOrder(ctx context.Context, userID, id string) (*Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// UpdateOrderStatus moves an order along the status table. Cancelled and
// refunded orders have their license keys revoked.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, req *UpdateStatusRequest, updatedBy string) (*Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.CanTransitionTo(req.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, req.Status)
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": req.Status}
		if req.Status == OrderStatusCompleted {
			updates["completed_at"] = now
		}
		if err := tx.Model(&Order{}).Where("id = ?", orderID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		if req.Status == OrderStatusCancelled || req.Status == OrderStatusRefunded {
			err := tx.Model(&LicenseKey{}).
				Where("order_id = ? AND status = ?", orderID, LicenseStatusActive).
				Updates(map[string]interface{}{"status": LicenseStatusRevoked, "revoked_at": now}).Error
			if err != nil {
				return fmt.Errorf("failed to revoke license keys: %w", err)
			}
		}

		history := OrderStatusHistory{
			OrderID:   orderID,
			Status:    req.Status,
			Comment:   req.Comment,
			CreatedBy: updatedBy,
			CreatedAt: now,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, orderID)
}

// GetUserLicenseKeys lists every key issued to a user, newest first
func (s *Service) GetUserLicenseKeys(ctx context.Context, userID string) ([]LicenseKey, error) {
	var keys []LicenseKey
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve license keys: %w", err)
	}
	return keys, nil
}

// GetDashboard summarises a customer's orders and keys
func (s *Service) GetDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	dashboard := &Dashboard{TotalSpent: decimal.Zero}
	db := s.db.WithContext(ctx)

	if err := db.Model(&Order{}).Where("user_id = ?", userID).Count(&dashboard.OrderCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var totals []decimal.Decimal
	err := db.Model(&Order{}).
		Where("user_id = ? AND status = ?", userID, OrderStatusCompleted).
		Pluck("total", &totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum orders: %w", err)
	}
	for _, total := range totals {
		dashboard.TotalSpent = dashboard.TotalSpent.Add(total)
	}

	err = db.Model(&LicenseKey{}).
		Where("user_id = ? AND status = ?", userID, LicenseStatusActive).
		Count(&dashboard.LicenseKeys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count license keys: %w", err)
	}

	err = db.Where("user_id = ?", userID).
		Preload("Items").
		Order("created_at DESC, id ASC").
		Limit(5).
		Find(&dashboard.RecentOrders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve recent orders: %w", err)
	}

	return dashboard, nil
}

// buildOrderClause builds ORDER BY clause for sorting
func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"total":        true,
		"status":       true,
		"order_number": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s, id asc", sortBy, sortOrder)
}
