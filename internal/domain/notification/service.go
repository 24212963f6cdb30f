// internal/domain/notification/service.go
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrRecipientNotFound    = errors.New("recipient not found")
	ErrEmptyNotification    = errors.New("title and message are required")
)

// Directory resolves customer e-mail addresses
type Directory interface {
	EmailOf(ctx context.Context, userID string) (string, error)
	ActiveCustomerEmails(ctx context.Context) ([]string, error)
}

// Mailer delivers notification e-mails
type Mailer interface {
	SendNotificationEmail(ctx context.Context, recipients []string, title, message string) error
}

// Service handles notification business logic
type Service struct {
	db        *gorm.DB
	directory Directory
	mailer    Mailer
	logger    *logrus.Entry
}

// NewService creates a new notification service
func NewService(db *gorm.DB, directory Directory, mailer Mailer, logger *logrus.Entry) *Service {
	return &Service{
		db:        db,
		directory: directory,
		mailer:    mailer,
		logger:    logger,
	}
}

// SendRequest represents an admin notification. An empty UserID broadcasts.
type SendRequest struct {
	UserID    string `json:"user_id"`
	Title     string `json:"title" binding:"required,max=200"`
	Message   string `json:"message" binding:"required"`
	SendEmail bool   `json:"send_email"`
}

// SendResult reports what was stored and whether mail went out
type SendResult struct {
	Notification *Notification `json:"notification"`
	Emailed      int           `json:"emailed"`
}

// ListRequest represents notification list query parameters
type ListRequest struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

// ListResponse represents notifications with pagination
type ListResponse struct {
	Notifications []Notification     `json:"notifications"`
	Pagination    product.Pagination `json:"pagination"`
}

// Send stores a notification and optionally e-mails it. A mail failure is
// logged and does not undo the notification.
func (s *Service) Send(ctx context.Context, req *SendRequest, adminID string) (*SendResult, error) {
	title := strings.TrimSpace(req.Title)
	message := strings.TrimSpace(req.Message)
	if title == "" || message == "" {
		return nil, ErrEmptyNotification
	}

	n := &Notification{
		Title:     title,
		Message:   message,
		CreatedBy: adminID,
	}

	var recipients []string
	if req.UserID != "" {
		email, err := s.directory.EmailOf(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRecipientNotFound, err)
		}
		userID := req.UserID
		n.UserID = &userID
		recipients = []string{email}
	}

	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	result := &SendResult{Notification: n}
	if !req.SendEmail || s.mailer == nil {
		return result, nil
	}

	if n.IsBroadcast() {
		emails, err := s.directory.ActiveCustomerEmails(ctx)
		if err != nil {
			s.logger.WithError(err).WithField("notification_id", n.ID).Warn("Failed to resolve broadcast recipients")
			return result, nil
		}
		recipients = emails
	}
	if len(recipients) == 0 {
		return result, nil
	}

	if err := s.mailer.SendNotificationEmail(ctx, recipients, n.Title, n.Message); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"notification_id": n.ID,
			"recipients":      len(recipients),
		}).Warn("Failed to e-mail notification")
		return result, nil
	}

	result.Emailed = len(recipients)
	return result, nil
}

// visibleTo scopes a query to notifications the user can see
func (s *Service) visibleTo(ctx context.Context, userID string) *gorm.DB {
	return s.db.WithContext(ctx).Table("notifications n").
		Joins("LEFT JOIN notification_reads r ON r.notification_id = n.id AND r.user_id = ?", userID).
		Where("n.user_id = ? OR n.user_id IS NULL", userID)
}

// ListForUser returns the newest notifications addressed to the user or
// broadcast, with their read state
func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var notifications []Notification
	err := s.visibleTo(ctx, userID).
		Select("n.id, n.user_id, n.title, n.message, n.created_by, n.created_at, r.notification_id IS NOT NULL AS is_read").
		Order("n.created_at DESC, n.id DESC").
		Limit(limit).
		Scan(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount returns how many visible notifications the user has not read
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.visibleTo(ctx, userID).
		Where("r.notification_id IS NULL").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead records that the user has seen a notification. Marking twice is
// a no-op.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND (user_id = ? OR user_id IS NULL)", notificationID, userID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to find notification: %w", err)
	}
	if count == 0 {
		return ErrNotificationNotFound
	}

	read := &Read{NotificationID: notificationID, UserID: userID, ReadAt: time.Now()}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(read).Error; err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every visible notification read for the user
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	var ids []string
	err := s.visibleTo(ctx, userID).
		Where("r.notification_id IS NULL").
		Pluck("n.id", &ids).Error
	if err != nil {
		return fmt.Errorf("failed to list unread notifications: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	now := time.Now()
	reads := make([]Read, 0, len(ids))
	for _, id := range ids {
		reads = append(reads, Read{NotificationID: id, UserID: userID, ReadAt: now})
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&reads).Error; err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// ListNotifications returns every sent notification for the back office
func (s *Service) ListNotifications(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Notification{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	var notifications []Notification
	err := query.Order("created_at DESC, id DESC").
		Offset((req.Page - 1) * req.Limit).Limit(req.Limit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListResponse{
		Notifications: notifications,
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

// DeleteNotification removes a notification and its read receipts
func (s *Service) DeleteNotification(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("notification_id = ?", id).Delete(&Read{}).Error; err != nil {
			return fmt.Errorf("failed to delete read receipts: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&Notification{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete notification: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotificationNotFound
		}
		return nil
	})
}
