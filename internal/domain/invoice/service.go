// internal/domain/invoice/service.go
package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keyforge/storefront/internal/config"
	"github.com/keyforge/storefront/internal/domain/order"
	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrInvoiceNotFound is returned when no invoice matches the lookup
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrNotInvoiceable is returned for orders that were never completed
	ErrNotInvoiceable = errors.New("order cannot be invoiced in its current status")
	// ErrRendererDisabled is returned by RenderPDF when no renderer is set
	ErrRendererDisabled = errors.New("pdf rendering is not configured")
)

// Renderer turns an HTML document into a PDF
type Renderer interface {
	GenerateFromHTML(ctx context.Context, html string) ([]byte, error)
}

// Service issues and renders invoices
type Service struct {
	db       *gorm.DB
	renderer Renderer
	company  CompanyInfo
	logger   *logrus.Entry
	now      func() time.Time
}

// NewService creates a new invoice service
func NewService(db *gorm.DB, cfg config.InvoiceConfig, renderer Renderer, logger *logrus.Entry) *Service {
	return &Service{
		db:       db,
		renderer: renderer,
		company: CompanyInfo{
			Name:    cfg.CompanyName,
			Address: cfg.CompanyAddress,
			Email:   cfg.CompanyEmail,
			Website: cfg.CompanyWebsite,
		},
		logger: logger,
		now:    time.Now,
	}
}

// ListRequest represents invoice list query parameters
type ListRequest struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

// ListResponse represents invoices with pagination
type ListResponse struct {
	Invoices   []Invoice          `json:"invoices"`
	Pagination product.Pagination `json:"pagination"`
}

// GenerateForOrder issues the invoice for a completed order. Calling it
// again returns the invoice already issued.
func (s *Service) GenerateForOrder(ctx context.Context, orderID string) (*Invoice, error) {
	if existing, err := s.findByOrder(ctx, orderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrInvoiceNotFound) {
		return nil, err
	}

	var o order.Order
	if err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if o.Status != order.OrderStatusCompleted && o.Status != order.OrderStatusRefunded {
		return nil, ErrNotInvoiceable
	}

	issuedAt := s.now().UTC()
	if o.CompletedAt != nil {
		issuedAt = o.CompletedAt.UTC()
	}

	inv := &Invoice{
		OrderID:  o.ID,
		UserID:   o.UserID,
		Amount:   o.Total,
		Currency: o.Currency,
		IssuedAt: issuedAt,
	}
	if err := s.db.WithContext(ctx).Create(inv).Error; err != nil {
		// A concurrent caller may have issued it first
		if existing, findErr := s.findByOrder(ctx, orderID); findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_number": inv.InvoiceNumber,
		"order_id":       o.ID,
	}).Info("Invoice issued")

	return inv, nil
}

func (s *Service) findByOrder(ctx context.Context, orderID string) (*Invoice, error) {
	var inv Invoice
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return &inv, nil
}

// GetInvoice retrieves an invoice by id
func (s *Service) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ?", id))
}

// GetUserInvoice retrieves an invoice owned by the user
func (s *Service) GetUserInvoice(ctx context.Context, userID, id string) (*Invoice, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID))
}

func (s *Service) first(query *gorm.DB) (*Invoice, error) {
	var inv Invoice
	if err := query.First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &inv, nil
}

// ListInvoices returns every invoice for the back office
func (s *Service) ListInvoices(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	return s.list(s.db.WithContext(ctx).Model(&Invoice{}), req)
}

// ListUserInvoices returns the invoices of one customer
func (s *Service) ListUserInvoices(ctx context.Context, userID string, req *ListRequest) (*ListResponse, error) {
	return s.list(s.db.WithContext(ctx).Model(&Invoice{}).Where("user_id = ?", userID), req)
}

func (s *Service) list(query *gorm.DB, req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	var invoices []Invoice
	err := query.Order("issued_at DESC, id DESC").
		Offset((req.Page - 1) * req.Limit).Limit(req.Limit).
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListResponse{
		Invoices: invoices,
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

// RenderHTML renders the printable invoice document
func (s *Service) RenderHTML(ctx context.Context, inv *Invoice) (string, error) {
	var o order.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("id = ?", inv.OrderID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", order.ErrOrderNotFound
		}
		return "", fmt.Errorf("failed to load order: %w", err)
	}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, documentData{Invoice: inv, Order: &o, Company: s.company}); err != nil {
		return "", fmt.Errorf("failed to execute invoice template: %w", err)
	}
	return buf.String(), nil
}

// RenderPDF renders the invoice and converts it to PDF
func (s *Service) RenderPDF(ctx context.Context, inv *Invoice) ([]byte, error) {
	if s.renderer == nil {
		return nil, ErrRendererDisabled
	}

	html, err := s.RenderHTML(ctx, inv)
	if err != nil {
		return nil, err
	}

	out, err := s.renderer.GenerateFromHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice %s: %w", inv.InvoiceNumber, err)
	}
	return out, nil
}
