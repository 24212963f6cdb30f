// internal/domain/sale/entity.go
package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Campaign is a time-bounded percentage discount over a set of products
type Campaign struct {
	ID                 string            `json:"id" gorm:"primaryKey;size:36"`
	Name               string            `json:"name" gorm:"not null;size:255"`
	Description        string            `json:"description" gorm:"type:text"`
	DiscountPercentage int               `json:"discount_percentage" gorm:"not null"`
	StartDate          time.Time         `json:"start_date" gorm:"not null;index"`
	EndDate            time.Time         `json:"end_date" gorm:"not null;index"`
	Active             bool              `json:"active" gorm:"not null;index"`
	Products           []CampaignProduct `json:"-" gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE"`
	ProductIDs         []string          `json:"product_ids" gorm:"-"`
	CreatedAt          time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// CampaignProduct links a campaign to one product it discounts
type CampaignProduct struct {
	CampaignID string `json:"campaign_id" gorm:"primaryKey;size:36"`
	ProductID  string `json:"product_id" gorm:"primaryKey;size:36;index"`
}

// TableName returns the table name for Campaign
func (Campaign) TableName() string {
	return "sale_campaigns"
}

// TableName returns the table name for CampaignProduct
func (CampaignProduct) TableName() string {
	return "sale_campaign_products"
}

// BeforeCreate assigns an id to new campaigns
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// AfterFind flattens the preloaded product links into ProductIDs
func (c *Campaign) AfterFind(tx *gorm.DB) error {
	c.syncProductIDs()
	return nil
}

func (c *Campaign) syncProductIDs() {
	ids := make([]string, 0, len(c.Products))
	for _, link := range c.Products {
		ids = append(ids, link.ProductID)
	}
	c.ProductIDs = ids
}

// Covers reports whether the campaign lists the product
func (c *Campaign) Covers(productID string) bool {
	for _, link := range c.Products {
		if link.ProductID == productID {
			return true
		}
	}
	for _, id := range c.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// IsActiveAt reports whether the campaign is switched on and now lies in
// its window. Both ends of the window are inclusive.
func (c *Campaign) IsActiveAt(now time.Time) bool {
	return c.Active && !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// ProductWithSale is a product as shown to shoppers, with at most one
// campaign's discount applied to Price
type ProductWithSale struct {
	product.Product
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	SaleDiscount  int              `json:"sale_discount"`
	OnSale        bool             `json:"on_sale"`
	CampaignID    string           `json:"campaign_id,omitempty"`
}
