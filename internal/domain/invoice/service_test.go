package invoice

import (
	"context"
	"errors"
	"testing"

	"github.com/keyforge/storefront/internal/config"
	"github.com/keyforge/storefront/internal/domain/cart"
	"github.com/keyforge/storefront/internal/domain/order"
	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/keyforge/storefront/internal/pkg/logger"
	"github.com/keyforge/storefront/internal/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRenderer records the HTML it was asked to convert
type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) GenerateFromHTML(_ context.Context, html string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.html = html
	return []byte("%PDF-1.4 fake"), nil
}

type fixture struct {
	db       *gorm.DB
	invoices *Service
	orders   *order.Service
	renderer *fakeRenderer
}

func setupFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t, &product.Product{}, &order.Order{}, &order.OrderItem{}, &order.LicenseKey{}, &order.OrderStatusHistory{}, &Invoice{})
	log := logger.Component(logger.Discard(), "invoice")
	renderer := &fakeRenderer{}
	return &fixture{
		db: db,
		invoices: NewService(db, config.InvoiceConfig{
			CompanyName:  "KeyForge Digital Ltd.",
			CompanyEmail: "billing@keyforge.example",
		}, renderer, log),
		orders:   order.NewService(db, "USD", log),
		renderer: renderer,
	}
}

func (f *fixture) placeOrder(t *testing.T, userID string) *order.Order {
	ctx := context.Background()
	p, err := product.NewService(f.db).CreateProduct(ctx, &product.CreateRequest{
		SKU:   "SKU-" + userID,
		Name:  "Nebula <Deluxe>",
		Price: decimal.RequireFromString("12.50"),
	})
	require.NoError(t, err)

	store := cart.NewService(cart.NewMemoryStore(), logger.Component(logger.Discard(), "cart")).Store(userID)
	require.NoError(t, store.AddToCart(ctx, *p))
	require.NoError(t, store.AddToCart(ctx, *p))

	o, err := f.orders.Checkout(ctx, order.Customer{UserID: userID, Email: userID + "@example.com"}, store)
	require.NoError(t, err)
	return o
}

func TestGenerateForOrder_Idempotent(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	o := f.placeOrder(t, "alice")

	first, err := f.invoices.GenerateForOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^INV-\d{6}-[0-9A-F]{8}$`, first.InvoiceNumber)
	assert.Equal(t, "25.00", first.Amount.StringFixed(2))
	assert.Equal(t, "alice", first.UserID)

	again, err := f.invoices.GenerateForOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	list, err := f.invoices.ListInvoices(ctx, &ListRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list.Invoices, 1)
}

func TestGenerateForOrder_Errors(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.invoices.GenerateForOrder(ctx, "missing")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	pending := &order.Order{UserID: "bob", Email: "bob@example.com", Status: order.OrderStatusPending, Currency: "USD"}
	require.NoError(t, f.db.Create(pending).Error)
	_, err = f.invoices.GenerateForOrder(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrNotInvoiceable)
}

func TestUserScopedInvoices(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	aliceInv, err := f.invoices.GenerateForOrder(ctx, f.placeOrder(t, "alice").ID)
	require.NoError(t, err)
	_, err = f.invoices.GenerateForOrder(ctx, f.placeOrder(t, "bob").ID)
	require.NoError(t, err)

	mine, err := f.invoices.ListUserInvoices(ctx, "alice", &ListRequest{})
	require.NoError(t, err)
	require.Len(t, mine.Invoices, 1)
	assert.Equal(t, aliceInv.ID, mine.Invoices[0].ID)

	_, err = f.invoices.GetUserInvoice(ctx, "bob", aliceInv.ID)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)

	got, err := f.invoices.GetInvoice(ctx, aliceInv.ID)
	require.NoError(t, err)
	assert.Equal(t, aliceInv.InvoiceNumber, got.InvoiceNumber)
}

func TestRender(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	o := f.placeOrder(t, "alice")
	inv, err := f.invoices.GenerateForOrder(ctx, o.ID)
	require.NoError(t, err)

	html, err := f.invoices.RenderHTML(ctx, inv)
	require.NoError(t, err)
	assert.Contains(t, html, inv.InvoiceNumber)
	assert.Contains(t, html, o.OrderNumber)
	assert.Contains(t, html, "Nebula &lt;Deluxe&gt;")
	assert.Contains(t, html, "25.00")
	assert.Contains(t, html, "KeyForge Digital Ltd.")

	out, err := f.invoices.RenderPDF(ctx, inv)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(out))
	assert.Equal(t, html, f.renderer.html)

	f.renderer.err = errors.New("wkhtmltopdf missing")
	_, err = f.invoices.RenderPDF(ctx, inv)
	assert.Error(t, err)

	disabled := NewService(f.db, config.InvoiceConfig{}, nil, logger.Component(logger.Discard(), "invoice"))
	_, err = disabled.RenderPDF(ctx, inv)
	assert.ErrorIs(t, err, ErrRendererDisabled)
}
