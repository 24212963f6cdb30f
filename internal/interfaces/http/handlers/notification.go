// internal/interfaces/http/handlers/notification.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyforge/storefront/internal/domain/notification"
	"github.com/keyforge/storefront/internal/interfaces/http/middleware"
)

// NotificationAdminHandler handles notifications sent from the back office
type NotificationAdminHandler struct {
	notificationService *notification.Service
}

// NewNotificationAdminHandler creates a new notification admin handler
func NewNotificationAdminHandler(notificationService *notification.Service) *NotificationAdminHandler {
	return &NotificationAdminHandler{notificationService: notificationService}
}

// SendNotification handles POST /admin/notifications. An empty user_id
// broadcasts to every customer.
func (h *NotificationAdminHandler) SendNotification(c *gin.Context) {
	adminID, _ := middleware.GetUserIDFromContext(c)

	var req notification.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.notificationService.Send(c.Request.Context(), &req, adminID)
	if err != nil {
		respondError(c, err, "Failed to send notification")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Notification sent successfully",
		"data":    result,
	})
}

// GetNotifications handles GET /admin/notifications
func (h *NotificationAdminHandler) GetNotifications(c *gin.Context) {
	var req notification.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.notificationService.ListNotifications(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to retrieve notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notifications retrieved successfully",
		"data":    response,
	})
}

// DeleteNotification handles DELETE /admin/notifications/:id
func (h *NotificationAdminHandler) DeleteNotification(c *gin.Context) {
	if err := h.notificationService.DeleteNotification(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification deleted successfully",
	})
}
