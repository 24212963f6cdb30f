// internal/domain/order/entity.go
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// LicenseStatus represents whether a license key can still be used
type LicenseStatus string

const (
	LicenseStatusActive  LicenseStatus = "active"
	LicenseStatusRevoked LicenseStatus = "revoked"
)

// Order represents a placed order for digital goods
type Order struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	OrderNumber string          `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      string          `gorm:"not null;index;size:36" json:"user_id"`
	Email       string          `gorm:"not null;size:255" json:"email"`
	Status      OrderStatus     `gorm:"not null;size:20;index" json:"status"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	CompletedAt *time.Time      `json:"completed_at"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
	LicenseKeys   []LicenseKey         `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"license_keys,omitempty"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is one cart line frozen into an order
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   string          `gorm:"not null;index;size:36" json:"order_id"`
	ProductID string          `gorm:"not null;index;size:36" json:"product_id"`
	Name      string          `gorm:"not null;size:255" json:"name"`
	Image     string          `gorm:"size:500" json:"image"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
	CreatedAt time.Time       `json:"created_at"`
}

// LicenseKey is issued for every purchased unit
type LicenseKey struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Key         string        `gorm:"uniqueIndex;not null;size:32" json:"key"`
	OrderID     string        `gorm:"not null;index;size:36" json:"order_id"`
	OrderItemID uint          `gorm:"not null;index" json:"order_item_id"`
	ProductID   string        `gorm:"not null;index;size:36" json:"product_id"`
	ProductName string        `gorm:"size:255" json:"product_name"`
	UserID      string        `gorm:"not null;index;size:36" json:"user_id"`
	Status      LicenseStatus `gorm:"not null;size:20" json:"status"`
	RevokedAt   *time.Time    `json:"revoked_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   string      `gorm:"not null;index;size:36" json:"order_id"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy string      `gorm:"size:36" json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (LicenseKey) TableName() string         { return "license_keys" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// BeforeCreate assigns an id and order number to new orders
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = GenerateOrderNumber(time.Now().UTC())
	}
	return nil
}

// IsCompleted checks if order is completed
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusCompleted
}

// GenerateOrderNumber returns ORD-YYYYMMDD-XXXXXXXX
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// GenerateLicenseKey returns a key of four dash-separated groups of five
// upper-case hex characters
func GenerateLicenseKey() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%s-%s-%s", raw[0:5], raw[5:10], raw[10:15], raw[15:20])
}

// validTransitions lists the statuses an order may move to
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted: {OrderStatusRefunded},
	OrderStatusCancelled: {},
	OrderStatusRefunded:  {},
}

// CanTransitionTo reports whether the order may move to status
func (o *Order) CanTransitionTo(status OrderStatus) bool {
	for _, allowed := range validTransitions[o.Status] {
		if allowed == status {
			return true
		}
	}
	return false
}
