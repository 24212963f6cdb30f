// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeNotification      EmailType = "notification"
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
)

// Email represents an email message
type Email struct {
	To          []string  `json:"to"`
	BCC         []string  `json:"bcc,omitempty"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"html_content"`
	Type        EmailType `json:"type"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName string `json:"site_name"`
	SiteURL  string `json:"site_url"`
	Year     int    `json:"year"`
}

// NotificationData contains data for a back-office notification email
type NotificationData struct {
	EmailTemplateData
	Title   string `json:"title"`
	Message string `json:"message"`
}

// OrderConfirmationData contains data for order confirmation email
type OrderConfirmationData struct {
	EmailTemplateData
	OrderNumber string      `json:"order_number"`
	OrderDate   string      `json:"order_date"`
	OrderTotal  string      `json:"order_total"`
	Currency    string      `json:"currency"`
	Items       []OrderItem `json:"items"`
}

// OrderItem represents an item in the order with the keys issued for it
type OrderItem struct {
	Name        string   `json:"name"`
	Quantity    int      `json:"quantity"`
	Total       string   `json:"total"`
	LicenseKeys []string `json:"license_keys"`
}

// GetBaseTemplateData returns common template data
func GetBaseTemplateData(siteName, siteURL string) EmailTemplateData {
	return EmailTemplateData{
		SiteName: siteName,
		SiteURL:  siteURL,
		Year:     time.Now().Year(),
	}
}
