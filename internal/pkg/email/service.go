// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/keyforge/storefront/internal/config"
	"github.com/sirupsen/logrus"
)

const layout = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
<div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
<h1 style="color: #333;">{{.SiteName}}</h1>
{{template "content" .}}
<hr>
<p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}. <a href="{{.SiteURL}}">{{.SiteURL}}</a></p>
</div>
</body>
</html>`

var contents = map[EmailType]string{
	EmailTypeNotification: `{{define "content"}}<h2>{{.Title}}</h2><p>{{.Message}}</p>{{end}}`,
	EmailTypeOrderConfirmation: `{{define "content"}}<h2>Thank you for your order {{.OrderNumber}}</h2>
<p>Placed on {{.OrderDate}}. Total: {{.OrderTotal}} {{.Currency}}</p>
{{range .Items}}<h3>{{.Name}} &times; {{.Quantity}} ({{.Total}})</h3>
<ul>{{range .LicenseKeys}}<li><code>{{.}}</code></li>{{end}}</ul>{{end}}{{end}}`,
}

// Mailer delivers a rendered email
type Mailer interface {
	SendEmail(ctx context.Context, email *Email) error
}

// EmailService renders and sends storefront emails
type EmailService struct {
	config    config.EmailConfig
	siteName  string
	siteURL   string
	templates map[EmailType]*template.Template
	logger    *logrus.Entry
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, logger *logrus.Entry) *EmailService {
	service := &EmailService{
		config:    cfg.Email,
		siteName:  cfg.App.Name,
		siteURL:   cfg.App.BaseURL,
		templates: make(map[EmailType]*template.Template, len(contents)),
		logger:    logger,
	}

	for name, content := range contents {
		service.templates[name] = template.Must(template.Must(template.New(string(name)).Parse(layout)).Parse(content))
	}

	return service
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	if len(email.To) == 0 && len(email.BCC) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	switch s.config.Provider {
	case "smtp":
		return s.sendSMTPEmail(ctx, email)
	case "log":
		s.logger.WithFields(logrus.Fields{
			"type":       email.Type,
			"subject":    email.Subject,
			"recipients": len(email.To) + len(email.BCC),
		}).Info("Email not sent, log provider in use")
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Provider)
	}
}

// SendNotificationEmail mails a notification to the given addresses. The
// recipients are blind-copied so customers do not see each other.
func (s *EmailService) SendNotificationEmail(ctx context.Context, recipients []string, title, message string) error {
	html, err := s.renderTemplate(EmailTypeNotification, NotificationData{
		EmailTemplateData: GetBaseTemplateData(s.siteName, s.siteURL),
		Title:             title,
		Message:           message,
	})
	if err != nil {
		return err
	}

	email := &Email{
		Subject:     title,
		HTMLContent: html,
		Type:        EmailTypeNotification,
	}
	if len(recipients) == 1 {
		email.To = recipients
	} else {
		email.To = []string{s.config.FromEmail}
		email.BCC = recipients
	}

	return s.SendEmail(ctx, email)
}

// SendOrderConfirmationEmail sends the order summary with license keys
func (s *EmailService) SendOrderConfirmationEmail(ctx context.Context, to string, data OrderConfirmationData) error {
	data.EmailTemplateData = GetBaseTemplateData(s.siteName, s.siteURL)

	html, err := s.renderTemplate(EmailTypeOrderConfirmation, data)
	if err != nil {
		return err
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{to},
		Subject:     fmt.Sprintf("Your order %s", data.OrderNumber),
		HTMLContent: html,
		Type:        EmailTypeOrderConfirmation,
	})
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(name EmailType, data interface{}) (string, error) {
	tmpl, exists := s.templates[name]
	if !exists {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}
