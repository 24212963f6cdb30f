// internal/domain/notification/entity.go
package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is a message from the back office. A nil UserID addresses
// every customer.
type Notification struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    *string   `gorm:"index;size:36" json:"user_id"`
	Title     string    `gorm:"not null;size:200" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedBy string    `gorm:"size:36" json:"created_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Read is computed per reader from notification_reads
	Read bool `gorm:"column:is_read;->;-:migration" json:"read"`
}

// Read marks a notification as seen by one user
type Read struct {
	NotificationID string    `gorm:"primaryKey;size:36" json:"notification_id"`
	UserID         string    `gorm:"primaryKey;size:36" json:"user_id"`
	ReadAt         time.Time `json:"read_at"`
}

// TableName overrides
func (Notification) TableName() string { return "notifications" }
func (Read) TableName() string         { return "notification_reads" }

// BeforeCreate assigns an id to new notifications
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// IsBroadcast reports whether the notification targets every customer
func (n *Notification) IsBroadcast() bool {
	return n.UserID == nil
}
