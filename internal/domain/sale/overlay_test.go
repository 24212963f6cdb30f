package sale

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noon = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func campaign(id string, pct int, start, end time.Time, productIDs ...string) Campaign {
	return Campaign{
		ID:                 id,
		Name:               "Campaign " + id,
		DiscountPercentage: pct,
		StartDate:          start,
		EndDate:            end,
		Active:             true,
		ProductIDs:         productIDs,
	}
}

func priced(id, price string) product.Product {
	return product.Product{ID: id, Name: id, Price: decimal.RequireFromString(price)}
}

func TestGetActiveCampaigns_InclusiveWindow(t *testing.T) {
	start := noon
	end := noon.Add(time.Hour)
	c := campaign("c", 10, start, end)

	tests := []struct {
		name   string
		now    time.Time
		active bool
	}{
		{"at start", start, true},
		{"at end", end, true},
		{"inside", start.Add(30 * time.Minute), true},
		{"just before start", start.Add(-time.Microsecond), false},
		{"just after end", end.Add(time.Microsecond), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetActiveCampaigns([]Campaign{c}, tt.now)
			assert.Equal(t, tt.active, len(got) == 1)
		})
	}
}

func TestGetActiveCampaigns_SkipsDisabledAndKeepsOrder(t *testing.T) {
	window := []time.Time{noon.Add(-time.Hour), noon.Add(time.Hour)}
	off := campaign("off", 50, window[0], window[1])
	off.Active = false

	got := GetActiveCampaigns([]Campaign{
		campaign("first", 10, window[0], window[1]),
		off,
		campaign("expired", 10, window[0], noon.Add(-time.Minute)),
		campaign("second", 20, window[0], window[1]),
	}, noon)

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)

	assert.Empty(t, GetActiveCampaigns(nil, noon))
}

func TestApplyDiscounts_Scenario(t *testing.T) {
	c := campaign("spring", 20, noon.Add(-time.Hour), noon.Add(time.Hour), "B")
	catalog := []product.Product{priced("B", "50.00"), priced("C", "9.99")}

	out := ApplyDiscounts(catalog, GetActiveCampaigns([]Campaign{c}, noon))
	require.Len(t, out, 2)

	b := out[0]
	assert.Equal(t, "B", b.ID)
	require.NotNil(t, b.OriginalPrice)
	assert.Equal(t, "50.00", b.OriginalPrice.StringFixed(2))
	assert.Equal(t, "40.00", b.Price.StringFixed(2))
	assert.Equal(t, 20, b.SaleDiscount)
	assert.True(t, b.OnSale)
	assert.Equal(t, "spring", b.CampaignID)

	unmatched := out[1]
	assert.False(t, unmatched.OnSale)
	assert.Nil(t, unmatched.OriginalPrice)
	assert.Equal(t, "9.99", unmatched.Price.StringFixed(2))

	assert.Equal(t, "50.00", catalog[0].Price.StringFixed(2), "input products are not mutated")
}

func TestApplyDiscounts_FirstMatchWins(t *testing.T) {
	window := []time.Time{noon.Add(-time.Hour), noon.Add(time.Hour)}
	older := campaign("older", 10, window[0], window[1], "P")
	newer := campaign("newer", 60, window[0], window[1], "P")

	out := ApplyDiscounts([]product.Product{priced("P", "100")}, []Campaign{older, newer})
	assert.Equal(t, "older", out[0].CampaignID)
	assert.Equal(t, "90.00", out[0].Price.StringFixed(2))
}

func TestApplyDiscounts_ZeroPercentKeepsDiscountField(t *testing.T) {
	c := campaign("launch", 0, noon.Add(-time.Hour), noon.Add(time.Hour), "P")

	out := ApplyDiscounts([]product.Product{priced("P", "20.00")}, []Campaign{c})
	require.True(t, out[0].OnSale)
	assert.Equal(t, "20.00", out[0].Price.StringFixed(2))

	data, err := json.Marshal(out[0])
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Contains(t, fields, "sale_discount")
	assert.EqualValues(t, 0, fields["sale_discount"])
	assert.Equal(t, true, fields["on_sale"])
}

func TestApplyDiscounts_NoCampaigns(t *testing.T) {
	out := ApplyDiscounts([]product.Product{priced("P", "12.34")}, nil)
	require.Len(t, out, 1)
	assert.False(t, out[0].OnSale)
	assert.Equal(t, "12.34", out[0].Price.StringFixed(2))
}

func TestDiscountedPrice_Bound(t *testing.T) {
	prices := []string{"0.01", "0.05", "0.99", "1.00", "9.99", "19.95", "50.00", "1234.56"}

	for _, raw := range prices {
		price := decimal.RequireFromString(raw)
		for pct := 0; pct <= 100; pct++ {
			got := DiscountedPrice(price, pct)
			assert.True(t, got.LessThanOrEqual(price), "%s at %d%%", raw, pct)
			if pct == 0 {
				assert.True(t, got.Equal(price), "%s at 0%%", raw)
			} else {
				assert.True(t, got.LessThan(price), "%s at %d%% gave %s", raw, pct, got)
			}
			assert.True(t, got.Equal(got.Round(2)), "whole cents")
		}
	}
}

func TestDiscountedPrice_Rounding(t *testing.T) {
	assert.Equal(t, "6.69", DiscountedPrice(decimal.RequireFromString("9.99"), 33).StringFixed(2))
	assert.Equal(t, "0.00", DiscountedPrice(decimal.RequireFromString("0.01"), 1).StringFixed(2))
	assert.Equal(t, "0.00", DiscountedPrice(decimal.RequireFromString("25"), 100).StringFixed(2))
}

func TestClampPercentage(t *testing.T) {
	assert.Equal(t, 0, ClampPercentage(-5))
	assert.Equal(t, 100, ClampPercentage(150))
	assert.Equal(t, 42, ClampPercentage(42))

	c := campaign("wild", 250, noon.Add(-time.Hour), noon.Add(time.Hour), "P")
	out := ApplyDiscounts([]product.Product{priced("P", "10")}, []Campaign{c})
	assert.Equal(t, 100, out[0].SaleDiscount)
	assert.True(t, out[0].Price.IsZero())
}
