// internal/domain/sale/overlay.go
package sale

import (
	"time"

	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// GetActiveCampaigns keeps the campaigns that are active at now, in their
// original order
func GetActiveCampaigns(campaigns []Campaign, now time.Time) []Campaign {
	active := make([]Campaign, 0, len(campaigns))
	for i := range campaigns {
		if campaigns[i].IsActiveAt(now) {
			active = append(active, campaigns[i])
		}
	}
	return active
}

// ApplyDiscounts annotates each product with the first campaign in active
// that covers it. Products are never modified in place.
func ApplyDiscounts(products []product.Product, active []Campaign) []ProductWithSale {
	out := make([]ProductWithSale, len(products))
	for i, p := range products {
		out[i] = applyCampaigns(p, active)
	}
	return out
}

func applyCampaigns(p product.Product, active []Campaign) ProductWithSale {
	for i := range active {
		if !active[i].Covers(p.ID) {
			continue
		}

		pct := ClampPercentage(active[i].DiscountPercentage)
		original := p.Price
		p.Price = DiscountedPrice(original, pct)
		return ProductWithSale{
			Product:       p,
			OriginalPrice: &original,
			SaleDiscount:  pct,
			OnSale:        true,
			CampaignID:    active[i].ID,
		}
	}
	return ProductWithSale{Product: p}
}

// DiscountedPrice returns price * (1 - pct/100) rounded down to the cent.
// Rounding down keeps any non-zero discount on a non-zero price visible.
func DiscountedPrice(price decimal.Decimal, pct int) decimal.Decimal {
	pct = ClampPercentage(pct)
	if pct == 0 {
		return price
	}
	return price.Mul(decimal.NewFromInt(int64(100 - pct))).Div(hundred).RoundFloor(2)
}

// ClampPercentage bounds a discount percentage to 0..100
func ClampPercentage(pct int) int {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
