package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keyforge/storefront/internal/config"
	"github.com/keyforge/storefront/internal/domain/analytics"
	"github.com/keyforge/storefront/internal/domain/cart"
	"github.com/keyforge/storefront/internal/domain/invoice"
	"github.com/keyforge/storefront/internal/domain/notification"
	"github.com/keyforge/storefront/internal/domain/order"
	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/keyforge/storefront/internal/domain/sale"
	"github.com/keyforge/storefront/internal/domain/user"
	"github.com/keyforge/storefront/internal/infrastructure/database/postgres"
	"github.com/keyforge/storefront/internal/pkg/auth"
	"github.com/keyforge/storefront/internal/pkg/email"
	"github.com/keyforge/storefront/internal/pkg/logger"
	"github.com/keyforge/storefront/internal/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Keyforge2026"

type fakeRenderer struct{}

func (fakeRenderer) GenerateFromHTML(_ context.Context, html string) ([]byte, error) {
	return []byte("%PDF-1.4 " + html), nil
}

type testServer struct {
	handler http.Handler
	users   *user.Service
}

func setupServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App:      config.AppConfig{Name: "KeyForge Test", Version: "test", Environment: "test", BaseURL: "http://localhost"},
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second, MaxRequestBytes: 1 << 20},
		JWT:      config.JWTConfig{Secret: "test-secret-that-is-long-enough-123", AccessTokenExpiry: time.Hour},
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost},
		Cart:     config.CartConfig{Backend: "memory", TTL: time.Hour, SessionCookie: "cart_session"},
		Email:    config.EmailConfig{Provider: "log", FromEmail: "store@keyforge.local", FromName: "KeyForge"},
		Invoice:  config.InvoiceConfig{CompanyName: "KeyForge Ltd", Currency: "USD"},
	}

	db := testutil.NewDB(t, postgres.Models()...)
	log := logger.Discard()
	mailer := email.NewEmailService(cfg, logger.Component(log, "email"))
	products := product.NewService(db)
	sales := sale.NewService(db)
	userAdmin := user.NewAdminService(db)
	users := user.NewService(db, cfg)

	services := Services{
		Users:         users,
		UserAdmin:     userAdmin,
		Products:      products,
		Catalog:       sale.NewCatalog(products, sales, logger.Component(log, "catalog")),
		Sales:         sales,
		Carts:         cart.NewService(cart.NewMemoryStore(), logger.Component(log, "cart")),
		Orders:        order.NewService(db, "USD", logger.Component(log, "order")),
		Invoices:      invoice.NewService(db, cfg.Invoice, fakeRenderer{}, logger.Component(log, "invoice")),
		Notifications: notification.NewService(db, userAdmin, mailer, logger.Component(log, "notification")),
		Analytics:     analytics.NewService(db, sales),
		Mailer:        mailer,
		JWT:           auth.NewJWTManager(cfg),
	}

	return &testServer{
		handler: NewServer(cfg, log, db, nil, services).Handler(),
		users:   users,
	}
}

// client keeps the cart cookie and bearer token between requests
type client struct {
	t       *testing.T
	handler http.Handler
	token   string
	cookies []*http.Cookie
}

func (s *testServer) client(t *testing.T) *client {
	return &client{t: t, handler: s.handler}
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	if set := rec.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return envelope.Data
}

func (s *testServer) customer(t *testing.T, emailAddr string) *client {
	c := s.client(t)
	rec := c.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"email":            emailAddr,
		"password":         testPassword,
		"confirm_password": testPassword,
		"first_name":       "Ada",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c.token = decode[user.AuthResponse](t, rec).AccessToken
	return c
}

func (s *testServer) admin(t *testing.T) *client {
	_, err := s.users.CreateAdmin(context.Background(), "ops@keyforge.local", testPassword, "Ops", "")
	require.NoError(t, err)

	c := s.client(t)
	rec := c.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "ops@keyforge.local", "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c.token = decode[user.AuthResponse](t, rec).AccessToken
	return c
}

func TestHealthAndReady(t *testing.T) {
	s := setupServer(t)
	c := s.client(t)

	rec := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = c.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShopperJourney(t *testing.T) {
	s := setupServer(t)
	admin := s.admin(t)

	rec := admin.do(http.MethodPost, "/api/v1/admin/products", gin.H{
		"sku":      "GAME-1",
		"name":     "Star Forge",
		"price":    "20.00",
		"category": "games",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	game := decode[product.Product](t, rec)

	now := time.Now().UTC()
	rec = admin.do(http.MethodPost, "/api/v1/admin/campaigns", gin.H{
		"name":                "Quarter off",
		"discount_percentage": 25,
		"start_date":          now.Add(-time.Hour),
		"end_date":            now.Add(time.Hour),
		"active":              true,
		"product_ids":         []string{game.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	shopper := s.customer(t, "ada@example.com")

	// Catalog shows the sale price
	rec = shopper.do(http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[sale.CatalogPage](t, rec)
	require.Len(t, page.Products, 1)
	assert.True(t, page.Products[0].OnSale)
	assert.Equal(t, "15.00", page.Products[0].Price.StringFixed(2))
	require.NotNil(t, page.Products[0].OriginalPrice)
	assert.Equal(t, "20.00", page.Products[0].OriginalPrice.StringFixed(2))

	// The cart captures the sale price
	for i := 0; i < 2; i++ {
		rec = shopper.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": game.ID})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	summary := decode[cart.Summary](t, rec)
	assert.Equal(t, 2, summary.Count)
	assert.True(t, decimal.RequireFromString("30").Equal(summary.Total))

	rec = shopper.do(http.MethodGet, "/api/v1/cart/count", nil)
	assert.Equal(t, 2, decode[struct {
		Count int `json:"count"`
	}](t, rec).Count)

	rec = shopper.do(http.MethodPost, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[order.Order](t, rec)
	assert.Equal(t, order.OrderStatusCompleted, placed.Status)
	assert.Equal(t, "30.00", placed.Total.StringFixed(2))
	assert.Len(t, placed.LicenseKeys, 2)

	rec = shopper.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 0, decode[cart.Summary](t, rec).Count, "checkout empties the cart")

	rec = shopper.do(http.MethodGet, "/api/v1/license-keys", nil)
	assert.Len(t, decode[[]order.LicenseKey](t, rec), 2)

	rec = shopper.do(http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[order.OrderResponse](t, rec).Orders, 1)

	rec = shopper.do(http.MethodGet, "/api/v1/orders/"+placed.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Checkout issued the invoice
	rec = shopper.do(http.MethodGet, "/api/v1/invoices", nil)
	invoices := decode[invoice.ListResponse](t, rec).Invoices
	require.Len(t, invoices, 1)
	inv := invoices[0]
	assert.Equal(t, placed.ID, inv.OrderID)

	rec = shopper.do(http.MethodGet, "/api/v1/invoices/"+inv.ID+"/download?format=html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), inv.InvoiceNumber)

	rec = shopper.do(http.MethodGet, "/api/v1/invoices/"+inv.ID+"/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), inv.InvoiceNumber+".pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = shopper.do(http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dashboard := decode[struct {
		OrderCount  int64 `json:"order_count"`
		LicenseKeys int64 `json:"license_keys"`
	}](t, rec)
	assert.Equal(t, int64(1), dashboard.OrderCount)
	assert.Equal(t, int64(2), dashboard.LicenseKeys)

	// Someone else cannot read the order or the invoice
	other := s.customer(t, "eve@example.com")
	assert.Equal(t, http.StatusNotFound, other.do(http.MethodGet, "/api/v1/orders/"+placed.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, other.do(http.MethodGet, "/api/v1/invoices/"+inv.ID+"/download", nil).Code)

	// The back office sees the sale
	rec = admin.do(http.MethodGet, "/api/v1/admin/analytics/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[analytics.DashboardStats](t, rec)
	assert.Equal(t, "30.00", stats.TotalRevenue.StringFixed(2))

	rec = admin.do(http.MethodGet, "/api/v1/admin/analytics/sales?days=7", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = admin.do(http.MethodPut, "/api/v1/admin/orders/"+placed.ID+"/status", gin.H{"status": "refunded"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, order.OrderStatusRefunded, decode[order.Order](t, rec).Status)
}

func TestCartUpdateAndRemove(t *testing.T) {
	s := setupServer(t)
	admin := s.admin(t)

	rec := admin.do(http.MethodPost, "/api/v1/admin/products", gin.H{"sku": "APP-1", "name": "Notes Pro", "price": "4.99"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	app := decode[product.Product](t, rec)

	guest := s.client(t)
	require.Equal(t, http.StatusOK, guest.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": app.ID}).Code)
	require.NotEmpty(t, guest.cookies, "a session cookie is issued")

	rec = guest.do(http.MethodPut, "/api/v1/cart/items/"+app.ID, gin.H{"quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[cart.Summary](t, rec).Count)

	rec = guest.do(http.MethodPut, "/api/v1/cart/items/"+app.ID, gin.H{"quantity": 0})
	assert.Equal(t, 0, decode[cart.Summary](t, rec).Count, "zero quantity removes the line")

	require.Equal(t, http.StatusOK, guest.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": app.ID}).Code)
	rec = guest.do(http.MethodDelete, "/api/v1/cart/items/"+app.ID, nil)
	assert.Equal(t, 0, decode[cart.Summary](t, rec).Count)

	assert.Equal(t, http.StatusNotFound, guest.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "missing"}).Code)
	assert.Equal(t, http.StatusBadRequest, guest.do(http.MethodPost, "/api/v1/cart/items", gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, guest.do(http.MethodPut, "/api/v1/cart/items/"+app.ID, gin.H{}).Code)
}

func TestAuthErrors(t *testing.T) {
	s := setupServer(t)
	shopper := s.customer(t, "ada@example.com")
	anonymous := s.client(t)

	assert.Equal(t, http.StatusUnauthorized, anonymous.do(http.MethodPost, "/api/v1/checkout", nil).Code)
	assert.Equal(t, http.StatusForbidden, shopper.do(http.MethodGet, "/api/v1/admin/orders", nil).Code)
	assert.Equal(t, http.StatusBadRequest, shopper.do(http.MethodPost, "/api/v1/checkout", nil).Code, "empty cart")

	rec := anonymous.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = anonymous.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"email":            "ada@example.com",
		"password":         testPassword,
		"confirm_password": testPassword,
		"first_name":       "Ada",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = shopper.do(http.MethodPut, "/api/v1/auth/profile", gin.H{"last_name": "Lovelace"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lovelace", decode[user.User](t, rec).LastName)
}

func TestNotifications(t *testing.T) {
	s := setupServer(t)
	admin := s.admin(t)
	shopper := s.customer(t, "ada@example.com")

	rec := admin.do(http.MethodPost, "/api/v1/admin/notifications", gin.H{
		"title":      "Maintenance",
		"message":    "Downloads pause tonight at 02:00 UTC.",
		"send_email": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[notification.SendResult](t, rec).Emailed)

	rec = shopper.do(http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]notification.Notification](t, rec)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)

	unread := func() int64 {
		rec := shopper.do(http.MethodGet, "/api/v1/dashboard", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		return decode[struct {
			Unread int64 `json:"unread_notifications"`
		}](t, rec).Unread
	}
	assert.Equal(t, int64(1), unread())

	require.Equal(t, http.StatusOK, shopper.do(http.MethodPost, "/api/v1/notifications/read-all", nil).Code)
	assert.Equal(t, int64(0), unread())

	rec = admin.do(http.MethodDelete, "/api/v1/admin/notifications/"+list[0].ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, admin.do(http.MethodDelete, "/api/v1/admin/notifications/"+list[0].ID, nil).Code)
}

func TestAdminUserStatus(t *testing.T) {
	s := setupServer(t)
	admin := s.admin(t)
	shopper := s.customer(t, "ada@example.com")

	rec := shopper.do(http.MethodGet, "/api/v1/auth/profile", nil)
	profile := decode[user.User](t, rec)

	rec = admin.do(http.MethodPut, "/api/v1/admin/users/"+profile.ID+"/status", gin.H{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.client(t).do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "ada@example.com", "password": testPassword})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "deactivated accounts cannot log in")

	rec = admin.do(http.MethodGet, "/api/v1/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[user.UserListResponse](t, rec).Users, 2)
}
