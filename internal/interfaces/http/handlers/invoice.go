// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyforge/storefront/internal/domain/invoice"
	"github.com/keyforge/storefront/internal/interfaces/http/middleware"
)

// InvoiceHandler handles invoice-related endpoints
type InvoiceHandler struct {
	invoiceService *invoice.Service
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// GetInvoices handles GET /invoices
func (h *InvoiceHandler) GetInvoices(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req invoice.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.invoiceService.ListUserInvoices(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, "Failed to retrieve invoices")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Invoices retrieved successfully",
		"data":    response,
	})
}

// DownloadInvoice handles GET /invoices/:id/download
func (h *InvoiceHandler) DownloadInvoice(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	inv, err := h.invoiceService.GetUserInvoice(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve invoice")
		return
	}
	h.download(c, inv)
}

// AdminGetInvoices handles GET /admin/invoices
func (h *InvoiceHandler) AdminGetInvoices(c *gin.Context) {
	var req invoice.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.invoiceService.ListInvoices(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to retrieve invoices")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Invoices retrieved successfully",
		"data":    response,
	})
}

// AdminGenerateInvoice handles POST /admin/orders/:id/invoice
func (h *InvoiceHandler) AdminGenerateInvoice(c *gin.Context) {
	inv, err := h.invoiceService.GenerateForOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to generate invoice")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Invoice generated successfully",
		"data":    inv,
	})
}

// AdminDownloadInvoice handles GET /admin/invoices/:id/download
func (h *InvoiceHandler) AdminDownloadInvoice(c *gin.Context) {
	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve invoice")
		return
	}
	h.download(c, inv)
}

// download writes the invoice as PDF, or as HTML with ?format=html
func (h *InvoiceHandler) download(c *gin.Context, inv *invoice.Invoice) {
	ctx := c.Request.Context()

	if c.Query("format") == "html" {
		html, err := h.invoiceService.RenderHTML(ctx, inv)
		if err != nil {
			respondError(c, err, "Failed to generate invoice")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
		return
	}

	pdfBytes, err := h.invoiceService.RenderPDF(ctx, inv)
	if err != nil {
		respondError(c, err, "Failed to generate invoice")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", inv.InvoiceNumber))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
