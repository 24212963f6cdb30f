// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyforge/storefront/internal/domain/cart"
	"github.com/keyforge/storefront/internal/domain/invoice"
	"github.com/keyforge/storefront/internal/domain/notification"
	"github.com/keyforge/storefront/internal/domain/order"
	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/keyforge/storefront/internal/domain/sale"
	"github.com/keyforge/storefront/internal/domain/user"
	"github.com/keyforge/storefront/internal/pkg/auth"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var writeErr *cart.WriteError
	var unavailable *order.UnavailableError

	switch {
	case errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, sale.ErrCampaignNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, notification.ErrNotificationNotFound),
		errors.Is(err, notification.ErrRecipientNotFound),
		errors.Is(err, invoice.ErrInvoiceNotFound):
		return http.StatusNotFound
	case errors.Is(err, product.ErrDuplicateSKU),
		errors.Is(err, user.ErrEmailTaken),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, invoice.ErrNotInvoiceable),
		errors.As(err, &unavailable):
		return http.StatusConflict
	case errors.Is(err, product.ErrInvalidPrice),
		errors.Is(err, sale.ErrInvalidPercentage),
		errors.Is(err, sale.ErrInvalidWindow),
		errors.Is(err, sale.ErrUnknownProduct),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, user.ErrPasswordMismatch),
		errors.Is(err, user.ErrSelfDeactivation),
		errors.Is(err, notification.ErrEmptyNotification),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.As(err, &writeErr),
		errors.Is(err, invoice.ErrRendererDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope. Internal errors are recorded on
// the context for the request logger and replaced by fallback.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": fallback})
		return
	}

	body := gin.H{"error": err.Error()}
	var unavailable *order.UnavailableError
	if errors.As(err, &unavailable) {
		body["product_ids"] = unavailable.ProductIDs
	}
	c.JSON(status, body)
}

// respondBindError reports a request that failed to bind
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}
