// internal/domain/user/admin_service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keyforge/storefront/internal/domain/product"
	"gorm.io/gorm"
)

// AdminService handles back-office user management
type AdminService struct {
	db *gorm.DB
}

// NewAdminService creates a new admin user service
func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// UserListRequest represents user list query parameters
type UserListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Search    string `form:"search"`
	Status    string `form:"status"` // active, inactive, all
	Role      string `form:"role"`   // admin, customer, all
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`
}

// UserListResponse represents user list with pagination
type UserListResponse struct {
	Users      []User             `json:"users"`
	Pagination product.Pagination `json:"pagination"`
}

// UserStatusUpdateRequest represents user status update data
type UserStatusUpdateRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// GetUsers retrieves users with filtering and pagination
func (s *AdminService) GetUsers(ctx context.Context, req *UserListRequest) (*UserListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&User{})

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", search, search, search)
	}

	switch req.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}

	switch req.Role {
	case "admin":
		query = query.Where("is_admin = ?", true)
	case "customer":
		query = query.Where("is_admin = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	var users []User
	err := query.Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset((req.Page - 1) * req.Limit).Limit(req.Limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &UserListResponse{
		Users: users,
		Pagination: product.Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// UpdateUserStatus activates or deactivates an account. Admins cannot
// deactivate themselves.
func (s *AdminService) UpdateUserStatus(ctx context.Context, userID string, isActive bool, adminID string) error {
	if userID == adminID && !isActive {
		return ErrSelfDeactivation
	}

	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("is_active", isActive)
	if result.Error != nil {
		return fmt.Errorf("failed to update user status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ActiveCustomerEmails returns the address of every active customer
func (s *AdminService) ActiveCustomerEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("is_active = ? AND is_admin = ?", true, false).
		Order("email ASC").
		Pluck("email", &emails).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list customer emails: %w", err)
	}
	return emails, nil
}

// EmailOf returns the address of an active account
func (s *AdminService) EmailOf(ctx context.Context, userID string) (string, error) {
	var user User
	err := s.db.WithContext(ctx).Select("email").
		Where("id = ? AND is_active = ?", userID, true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	return user.Email, nil
}

// CountCustomers returns the number of customer accounts
func (s *AdminService) CountCustomers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("is_admin = ?", false).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}

// buildOrderClause builds ORDER BY clause for sorting
func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"email":         true,
		"first_name":    true,
		"last_name":     true,
		"created_at":    true,
		"last_login_at": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s, id asc", sortBy, sortOrder)
}
