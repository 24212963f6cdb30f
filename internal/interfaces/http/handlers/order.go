// internal/interfaces/http/handlers/order.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyforge/storefront/internal/domain/cart"
	"github.com/keyforge/storefront/internal/domain/invoice"
	"github.com/keyforge/storefront/internal/domain/order"
	"github.com/keyforge/storefront/internal/interfaces/http/middleware"
	"github.com/keyforge/storefront/internal/pkg/email"
	"github.com/sirupsen/logrus"
)

// OrderMailer sends the order confirmation
type OrderMailer interface {
	SendOrderConfirmationEmail(ctx context.Context, to string, data email.OrderConfirmationData) error
}

// OrderHandler handles checkout, order history and license keys
type OrderHandler struct {
	orderService   *order.Service
	invoiceService *invoice.Service
	carts          *cart.Service
	sessionID      func(*gin.Context) string
	mailer         OrderMailer
	logger         *logrus.Entry
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(
	orderService *order.Service,
	invoiceService *invoice.Service,
	carts *cart.Service,
	sessionID func(*gin.Context) string,
	mailer OrderMailer,
	logger *logrus.Entry,
) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		invoiceService: invoiceService,
		carts:          carts,
		sessionID:      sessionID,
		mailer:         mailer,
		logger:         logger,
	}
}

// Checkout handles POST /checkout. The session cart becomes a completed
// order; the invoice and confirmation mail follow on a best-effort basis.
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	userEmail, _ := middleware.GetUserEmailFromContext(c)
	ctx := c.Request.Context()

	placed, err := h.orderService.Checkout(ctx, order.Customer{UserID: userID, Email: userEmail},
		h.carts.Store(h.sessionID(c)))
	if err != nil {
		respondError(c, err, "Failed to place order")
		return
	}

	log := h.logger.WithFields(logrus.Fields{"order_id": placed.ID, "user_id": userID})

	if _, err := h.invoiceService.GenerateForOrder(ctx, placed.ID); err != nil {
		log.WithError(err).Warn("Failed to issue invoice")
	}

	if h.mailer != nil {
		if err := h.mailer.SendOrderConfirmationEmail(ctx, placed.Email, confirmationData(placed)); err != nil {
			log.WithError(err).Warn("Failed to send order confirmation")
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data":    placed,
	})
}

// confirmationData groups the issued keys under their order lines
func confirmationData(o *order.Order) email.OrderConfirmationData {
	keys := make(map[uint][]string)
	for _, key := range o.LicenseKeys {
		keys[key.OrderItemID] = append(keys[key.OrderItemID], key.Key)
	}

	data := email.OrderConfirmationData{
		OrderNumber: o.OrderNumber,
		OrderDate:   o.CreatedAt.Format("January 2, 2006"),
		OrderTotal:  o.Total.StringFixed(2),
		Currency:    o.Currency,
	}
	for _, item := range o.Items {
		data.Items = append(data.Items, email.OrderItem{
			Name:        item.Name,
			Quantity:    item.Quantity,
			Total:       item.LineTotal.StringFixed(2),
			LicenseKeys: keys[item.ID],
		})
	}
	return data
}

// GetOrders handles GET /orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.orderService.GetUserOrders(c.Request.Context(), userID, req.Page, req.Limit)
	if err != nil {
		respondError(c, err, "Failed to retrieve orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    response,
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	o, err := h.orderService.GetUserOrder(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// GetLicenseKeys handles GET /license-keys
func (h *OrderHandler) GetLicenseKeys(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	keys, err := h.orderService.GetUserLicenseKeys(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to retrieve license keys")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "License keys retrieved successfully",
		"data":    keys,
	})
}

// AdminGetOrders handles GET /admin/orders
func (h *OrderHandler) AdminGetOrders(c *gin.Context) {
	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.orderService.GetOrders(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to retrieve orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    response,
	})
}

// AdminGetOrder handles GET /admin/orders/:id
func (h *OrderHandler) AdminGetOrder(c *gin.Context) {
	o, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// AdminUpdateOrderStatus handles PUT /admin/orders/:id/status
func (h *OrderHandler) AdminUpdateOrderStatus(c *gin.Context) {
	adminID, _ := middleware.GetUserIDFromContext(c)

	var req order.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	o, err := h.orderService.UpdateOrderStatus(c.Request.Context(), c.Param("id"), &req, adminID)
	if err != nil {
		respondError(c, err, "Failed to update order status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully",
		"data":    o,
	})
}
