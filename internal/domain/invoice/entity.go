// internal/domain/invoice/entity.go
package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is the billing record issued once per order
type Invoice struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	InvoiceNumber string          `gorm:"uniqueIndex;not null;size:50" json:"invoice_number"`
	OrderID       string          `gorm:"uniqueIndex;not null;size:36" json:"order_id"`
	UserID        string          `gorm:"not null;index;size:36" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	IssuedAt      time.Time       `gorm:"not null;index" json:"issued_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName override
func (Invoice) TableName() string { return "invoices" }

// BeforeCreate assigns an id and invoice number
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.InvoiceNumber == "" {
		i.InvoiceNumber = GenerateInvoiceNumber(i.IssuedAt)
	}
	return nil
}

// GenerateInvoiceNumber returns INV-YYYYMM-XXXXXXXX
func GenerateInvoiceNumber(issuedAt time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("INV-%s-%s", issuedAt.Format("200601"), suffix)
}
