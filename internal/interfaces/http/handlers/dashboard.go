// internal/interfaces/http/handlers/dashboard.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyforge/storefront/internal/domain/notification"
	"github.com/keyforge/storefront/internal/domain/order"
	"github.com/keyforge/storefront/internal/interfaces/http/middleware"
)

// DashboardHandler serves the customer dashboard and notification inbox
type DashboardHandler struct {
	orderService        *order.Service
	notificationService *notification.Service
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(orderService *order.Service, notificationService *notification.Service) *DashboardHandler {
	return &DashboardHandler{
		orderService:        orderService,
		notificationService: notificationService,
	}
}

// DashboardResponse is the customer dashboard
type DashboardResponse struct {
	*order.Dashboard
	UnreadNotifications int64                       `json:"unread_notifications"`
	Notifications       []notification.Notification `json:"notifications"`
}

// GetDashboard handles GET /dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	ctx := c.Request.Context()

	dashboard, err := h.orderService.GetDashboard(ctx, userID)
	if err != nil {
		respondError(c, err, "Failed to retrieve dashboard")
		return
	}

	unread, err := h.notificationService.UnreadCount(ctx, userID)
	if err != nil {
		respondError(c, err, "Failed to retrieve dashboard")
		return
	}

	recent, err := h.notificationService.ListForUser(ctx, userID, 5)
	if err != nil {
		respondError(c, err, "Failed to retrieve dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dashboard retrieved successfully",
		"data": DashboardResponse{
			Dashboard:           dashboard,
			UnreadNotifications: unread,
			Notifications:       recent,
		},
	})
}

// GetNotifications handles GET /notifications
func (h *DashboardHandler) GetNotifications(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var query struct {
		Limit int `form:"limit,default=20"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	list, err := h.notificationService.ListForUser(c.Request.Context(), userID, query.Limit)
	if err != nil {
		respondError(c, err, "Failed to retrieve notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notifications retrieved successfully",
		"data":    list,
	})
}

// MarkNotificationRead handles POST /notifications/:id/read
func (h *DashboardHandler) MarkNotificationRead(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.notificationService.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err, "Failed to mark notification read")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification marked as read",
	})
}

// MarkAllNotificationsRead handles POST /notifications/read-all
func (h *DashboardHandler) MarkAllNotificationsRead(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.notificationService.MarkAllRead(c.Request.Context(), userID); err != nil {
		respondError(c, err, "Failed to mark notifications read")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "All notifications marked as read",
	})
}
