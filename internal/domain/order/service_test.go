package order

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/keyforge/storefront/internal/domain/cart"
	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/keyforge/storefront/internal/pkg/logger"
	"github.com/keyforge/storefront/internal/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var licenseKeyPattern = regexp.MustCompile(`^[0-9A-F]{5}-[0-9A-F]{5}-[0-9A-F]{5}-[0-9A-F]{5}$`)

type fixture struct {
	orders   *Service
	products *product.Service
	carts    *cart.Service
}

func setupFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t, &product.Product{}, &Order{}, &OrderItem{}, &LicenseKey{}, &OrderStatusHistory{})
	log := logger.Component(logger.Discard(), "order")
	return &fixture{
		orders:   NewService(db, "USD", log),
		products: product.NewService(db),
		carts:    cart.NewService(cart.NewMemoryStore(), log),
	}
}

func (f *fixture) product(t *testing.T, sku, price string) *product.Product {
	p, err := f.products.CreateProduct(context.Background(), &product.CreateRequest{
		SKU:   sku,
		Name:  "Product " + sku,
		Price: decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return p
}

// failingRemove wraps a cart store whose RemoveLines always fails
type failingRemove struct {
	*cart.Store
}

func (f failingRemove) RemoveLines(context.Context, cart.Snapshot) error {
	return errors.New("redis unavailable")
}

// racingCart adds a product through a second store for the same session
// right after checkout has read the cart
type racingCart struct {
	*cart.Store
	other *cart.Store
	late  product.Product
	t     *testing.T
}

func (r racingCart) GetCart(ctx context.Context) cart.Snapshot {
	snapshot := r.Store.GetCart(ctx)
	require.NoError(r.t, r.other.AddToCart(ctx, r.late))
	return snapshot
}

var alice = Customer{UserID: "user-alice", Email: "alice@example.com"}

func TestCheckout(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10.00")
	b := f.product(t, "B", "2.50")

	store := f.carts.Store("sess-1")
	require.NoError(t, store.AddToCart(ctx, *a))
	require.NoError(t, store.AddToCart(ctx, *a))
	require.NoError(t, store.AddToCart(ctx, *b))

	order, err := f.orders.Checkout(ctx, alice, store)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusCompleted, order.Status)
	assert.NotNil(t, order.CompletedAt)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, order.OrderNumber)
	assert.Equal(t, "22.50", order.Total.StringFixed(2))
	assert.Equal(t, "USD", order.Currency)
	require.Len(t, order.Items, 2)
	require.Len(t, order.LicenseKeys, 3, "one key per unit")
	for _, key := range order.LicenseKeys {
		assert.Regexp(t, licenseKeyPattern, key.Key)
		assert.Equal(t, LicenseStatusActive, key.Status)
		assert.Equal(t, alice.UserID, key.UserID)
	}
	require.Len(t, order.StatusHistory, 1)

	assert.Empty(t, store.GetCart(ctx), "cart is cleared after checkout")
}

func TestCheckout_KeepsLinesAddedDuringCheckout(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10.00")
	b := f.product(t, "B", "2.50")

	store := f.carts.Store("sess-1")
	require.NoError(t, store.AddToCart(ctx, *a))

	c := racingCart{Store: store, other: f.carts.Store("sess-1"), late: *b, t: t}
	order, err := f.orders.Checkout(ctx, alice, c)
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, a.ID, order.Items[0].ProductID)

	left := store.GetCart(ctx)
	require.Len(t, left, 1, "the late line is neither ordered nor lost")
	assert.Equal(t, b.ID, left[0].ID)
	assert.Equal(t, 1, left[0].Quantity)
}

func TestCheckout_UsesCartPrices(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10.00")

	store := f.carts.Store("sess-1")
	require.NoError(t, store.AddToCart(ctx, *a))

	newPrice := decimal.RequireFromString("30.00")
	_, err := f.products.UpdateProduct(ctx, a.ID, &product.UpdateRequest{Price: &newPrice})
	require.NoError(t, err)

	order, err := f.orders.Checkout(ctx, alice, store)
	require.NoError(t, err)
	assert.Equal(t, "10.00", order.Total.StringFixed(2))
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := setupFixture(t)

	_, err := f.orders.Checkout(context.Background(), alice, f.carts.Store("empty"))
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_UnavailableProduct(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10.00")
	b := f.product(t, "B", "5.00")

	store := f.carts.Store("sess-1")
	require.NoError(t, store.AddToCart(ctx, *a))
	require.NoError(t, store.AddToCart(ctx, *b))
	require.NoError(t, f.products.DeleteProduct(ctx, b.ID))

	_, err := f.orders.Checkout(ctx, alice, store)
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{b.ID}, unavailable.ProductIDs)
	assert.Len(t, store.GetCart(ctx), 2, "cart is kept when checkout fails")

	orders, err := f.orders.GetUserOrders(ctx, alice.UserID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, orders.Orders)
}

func TestCheckout_CartUpdateFailureKeepsOrder(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "4.00")

	store := f.carts.Store("sess-1")
	require.NoError(t, store.AddToCart(ctx, *a))

	order, err := f.orders.Checkout(ctx, alice, failingRemove{store})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCompleted, order.Status)
}

func TestUserScopedQueries(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "7.00")

	store := f.carts.Store("sess-1")
	require.NoError(t, store.AddToCart(ctx, *a))
	order, err := f.orders.Checkout(ctx, alice, store)
	require.NoError(t, err)

	_, err = f.orders.GetUserOrder(ctx, "someone-else", order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	mine, err := f.orders.GetUserOrder(ctx, alice.UserID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, mine.ID)

	keys, err := f.orders.GetUserLicenseKeys(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "Product A", keys[0].ProductName)

	dashboard, err := f.orders.GetDashboard(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dashboard.OrderCount)
	assert.Equal(t, "7.00", dashboard.TotalSpent.StringFixed(2))
	assert.Equal(t, int64(1), dashboard.LicenseKeys)
	assert.Len(t, dashboard.RecentOrders, 1)
}

func TestUpdateOrderStatus(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "7.00")

	store := f.carts.Store("sess-1")
	require.NoError(t, store.AddToCart(ctx, *a))
	order, err := f.orders.Checkout(ctx, alice, store)
	require.NoError(t, err)

	_, err = f.orders.UpdateOrderStatus(ctx, order.ID, &UpdateStatusRequest{Status: OrderStatusCancelled}, "admin")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	refunded, err := f.orders.UpdateOrderStatus(ctx, order.ID, &UpdateStatusRequest{Status: OrderStatusRefunded, Comment: "customer request"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusRefunded, refunded.Status)
	require.Len(t, refunded.LicenseKeys, 1)
	assert.Equal(t, LicenseStatusRevoked, refunded.LicenseKeys[0].Status)
	assert.NotNil(t, refunded.LicenseKeys[0].RevokedAt)
	require.Len(t, refunded.StatusHistory, 2)
	assert.Equal(t, "customer request", refunded.StatusHistory[1].Comment)

	dashboard, err := f.orders.GetDashboard(ctx, alice.UserID)
	require.NoError(t, err)
	assert.True(t, dashboard.TotalSpent.IsZero())
	assert.Zero(t, dashboard.LicenseKeys)

	_, err = f.orders.UpdateOrderStatus(ctx, "missing", &UpdateStatusRequest{Status: OrderStatusRefunded}, "admin")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetOrders_AdminFilters(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "1.00")

	for i, customer := range []Customer{alice, {UserID: "user-bob", Email: "bob@example.com"}} {
		store := f.carts.Store(customer.UserID)
		require.NoError(t, store.AddToCart(ctx, *a))
		_, err := f.orders.Checkout(ctx, customer, store)
		require.NoError(t, err, "order %d", i)
	}

	all, err := f.orders.GetOrders(ctx, &OrderListRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 2)

	bob, err := f.orders.GetOrders(ctx, &OrderListRequest{Page: 1, Limit: 10, Search: "BOB@"})
	require.NoError(t, err)
	require.Len(t, bob.Orders, 1)
	assert.Equal(t, "user-bob", bob.Orders[0].UserID)

	pending, err := f.orders.GetOrders(ctx, &OrderListRequest{Page: 1, Limit: 10, Status: OrderStatusPending})
	require.NoError(t, err)
	assert.Empty(t, pending.Orders)
}

func TestGenerateLicenseKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := GenerateLicenseKey()
		assert.Regexp(t, licenseKeyPattern, key)
		assert.False(t, seen[key])
		seen[key] = true
	}
}

func TestCanTransitionTo(t *testing.T) {
	pending := &Order{Status: OrderStatusPending}
	assert.True(t, pending.CanTransitionTo(OrderStatusCompleted))
	assert.True(t, pending.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, pending.CanTransitionTo(OrderStatusRefunded))

	refunded := &Order{Status: OrderStatusRefunded}
	assert.False(t, refunded.CanTransitionTo(OrderStatusCompleted))
}
