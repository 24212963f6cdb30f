// internal/interfaces/http/handlers/campaign.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyforge/storefront/internal/domain/sale"
)

// CampaignHandler handles sale campaign administration
type CampaignHandler struct {
	saleService *sale.Service
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(saleService *sale.Service) *CampaignHandler {
	return &CampaignHandler{saleService: saleService}
}

// AdminGetCampaigns handles GET /admin/campaigns
func (h *CampaignHandler) AdminGetCampaigns(c *gin.Context) {
	var req sale.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.saleService.ListCampaigns(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to retrieve campaigns")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Campaigns retrieved successfully",
		"data":    response,
	})
}

// AdminGetCampaign handles GET /admin/campaigns/:id
func (h *CampaignHandler) AdminGetCampaign(c *gin.Context) {
	campaign, err := h.saleService.GetCampaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve campaign")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Campaign retrieved successfully",
		"data":    campaign,
	})
}

// AdminCreateCampaign handles POST /admin/campaigns
func (h *CampaignHandler) AdminCreateCampaign(c *gin.Context) {
	var req sale.CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	campaign, err := h.saleService.CreateCampaign(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create campaign")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Campaign created successfully",
		"data":    campaign,
	})
}

// AdminUpdateCampaign handles PUT /admin/campaigns/:id
func (h *CampaignHandler) AdminUpdateCampaign(c *gin.Context) {
	var req sale.CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	campaign, err := h.saleService.UpdateCampaign(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to update campaign")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Campaign updated successfully",
		"data":    campaign,
	})
}

// AdminToggleCampaign handles PATCH /admin/campaigns/:id/toggle
func (h *CampaignHandler) AdminToggleCampaign(c *gin.Context) {
	campaign, err := h.saleService.ToggleCampaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to toggle campaign")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Campaign toggled successfully",
		"data":    campaign,
	})
}

// AdminDeleteCampaign handles DELETE /admin/campaigns/:id
func (h *CampaignHandler) AdminDeleteCampaign(c *gin.Context) {
	if err := h.saleService.DeleteCampaign(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete campaign")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Campaign deleted successfully",
	})
}
