// internal/interfaces/http/handlers/user_admin.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyforge/storefront/internal/domain/user"
	"github.com/keyforge/storefront/internal/interfaces/http/middleware"
)

// UserAdminHandler handles admin user management
type UserAdminHandler struct {
	adminService *user.AdminService
}

// NewUserAdminHandler creates a new user admin handler
func NewUserAdminHandler(adminService *user.AdminService) *UserAdminHandler {
	return &UserAdminHandler{adminService: adminService}
}

// GetUsers gets all users with filtering and pagination
func (h *UserAdminHandler) GetUsers(c *gin.Context) {
	var req user.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.adminService.GetUsers(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to retrieve users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Users retrieved successfully",
		"data":    response,
	})
}

// UpdateUserStatus activates or deactivates a user account
func (h *UserAdminHandler) UpdateUserStatus(c *gin.Context) {
	adminID, _ := middleware.GetUserIDFromContext(c)

	var req user.UserStatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID := c.Param("id")
	if err := h.adminService.UpdateUserStatus(c.Request.Context(), userID, *req.IsActive, adminID); err != nil {
		respondError(c, err, "Failed to update user status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User status updated successfully",
		"data": gin.H{
			"user_id":   userID,
			"is_active": *req.IsActive,
		},
	})
}
