// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/keyforge/storefront/internal/config"
	"github.com/keyforge/storefront/internal/domain/cart"
	"github.com/keyforge/storefront/internal/domain/sale"
)

// CartHandler handles cart endpoints. The cart belongs to the browser
// session identified by a cookie.
type CartHandler struct {
	carts     *cart.Service
	catalog   *sale.Catalog
	cookie    string
	cookieTTL time.Duration
	secure    bool
	heartbeat time.Duration
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *cart.Service, catalog *sale.Catalog, cfg *config.Config) *CartHandler {
	return &CartHandler{
		carts:     carts,
		catalog:   catalog,
		cookie:    cfg.Cart.SessionCookie,
		cookieTTL: cfg.Cart.TTL,
		secure:    cfg.IsProduction(),
		heartbeat: 25 * time.Second,
	}
}

// AddToCartRequest represents an add-to-cart request
type AddToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// UpdateQuantityRequest represents a quantity change. Zero or less removes
// the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	store := h.carts.Store(h.getOrCreateSessionID(c))
	h.respond(c, store, "Cart retrieved successfully")
}

// GetCartCount handles GET /cart/count
func (h *CartHandler) GetCartCount(c *gin.Context) {
	store := h.carts.Store(h.getOrCreateSessionID(c))

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart count retrieved successfully",
		"data":    gin.H{"count": store.GetCartCount(c.Request.Context())},
	})
}

// AddToCart handles POST /cart/items. The line captures the price shown in
// the catalog at this moment, sale included.
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	view, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		respondError(c, err, "Failed to add item to cart")
		return
	}

	store := h.carts.Store(h.getOrCreateSessionID(c))
	if err := store.AddToCart(ctx, view.Product); err != nil {
		respondError(c, err, "Failed to add item to cart")
		return
	}

	h.respond(c, store, "Item added to cart successfully")
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	store := h.carts.Store(h.getOrCreateSessionID(c))
	if err := store.UpdateQuantity(c.Request.Context(), c.Param("id"), *req.Quantity); err != nil {
		respondError(c, err, "Failed to update cart item")
		return
	}

	h.respond(c, store, "Cart item updated successfully")
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	store := h.carts.Store(h.getOrCreateSessionID(c))
	if err := store.RemoveFromCart(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to remove cart item")
		return
	}

	h.respond(c, store, "Item removed from cart successfully")
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	store := h.carts.Store(h.getOrCreateSessionID(c))
	if err := store.ClearCart(c.Request.Context()); err != nil {
		respondError(c, err, "Failed to clear cart")
		return
	}

	h.respond(c, store, "Cart cleared successfully")
}

// Events handles GET /cart/events, a Server-Sent Events stream that pushes
// the cart whenever another tab or request of the same session changes it
func (h *CartHandler) Events(c *gin.Context) {
	sessionID := h.getOrCreateSessionID(c)
	ctx := c.Request.Context()

	changes, unsubscribe := h.carts.Subscribe(sessionID)
	defer unsubscribe()

	// The stream outlives the server write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	store := h.carts.Store(sessionID)
	c.SSEvent("cart", cart.NewSummary("", store.GetCart(ctx)))
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case _, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("cart", cart.NewSummary("", store.GetCart(ctx)))
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

func (h *CartHandler) respond(c *gin.Context, store *cart.Store, message string) {
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    cart.NewSummary("", store.GetCart(c.Request.Context())),
	})
}

// sessionID returns the cart session of the request, if any
func (h *CartHandler) sessionID(c *gin.Context) string {
	sessionID, err := c.Cookie(h.cookie)
	if err != nil {
		return ""
	}
	parsed, err := uuid.Parse(sessionID)
	if err != nil {
		return ""
	}
	return parsed.String()
}

// getOrCreateSessionID gets session ID from cookie or creates a new one.
// The cookie is refreshed on every request so it expires with the cart.
func (h *CartHandler) getOrCreateSessionID(c *gin.Context) string {
	sessionID := h.sessionID(c)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie, sessionID, int(h.cookieTTL.Seconds()), "/", "", h.secure, true)
	return sessionID
}

// SessionID exposes the cart session of the request to other handlers
func (h *CartHandler) SessionID(c *gin.Context) string {
	return h.getOrCreateSessionID(c)
}
