// internal/domain/cart/entity.go
package cart

import (
	"github.com/shopspring/decimal"
)

// LineItem is one product in the cart. Display fields are copied from the
// product when it is first added and are not refreshed afterwards.
type LineItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// Snapshot is the full cart in first-add order
type Snapshot []LineItem

// Total is the sum of unit price times quantity
func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Count is the total number of units, not distinct items
func (s Snapshot) Count() int {
	count := 0
	for _, item := range s {
		count += item.Quantity
	}
	return count
}

// indexOf returns the position of the line with the given id or -1
func (s Snapshot) indexOf(id string) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

// Summary is the cart as returned over HTTP
type Summary struct {
	SessionID string          `json:"session_id,omitempty"`
	Items     Snapshot        `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Count     int             `json:"count"`
}

// NewSummary builds a summary from a snapshot
func NewSummary(sessionID string, snapshot Snapshot) Summary {
	if snapshot == nil {
		snapshot = Snapshot{}
	}
	return Summary{
		SessionID: sessionID,
		Items:     snapshot,
		Total:     snapshot.Total(),
		Count:     snapshot.Count(),
	}
}
