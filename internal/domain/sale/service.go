// internal/domain/sale/service.go
package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keyforge/storefront/internal/domain/product"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var (
	// ErrCampaignNotFound is returned when no campaign matches the id
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrInvalidPercentage is returned for discounts outside 0..100
	ErrInvalidPercentage = errors.New("discount percentage must be between 0 and 100")
	// ErrInvalidWindow is returned when a campaign window is missing or ends before it starts
	ErrInvalidWindow = errors.New("start and end dates are required and end must not be before start")
	// ErrUnknownProduct is returned when a campaign references a missing product
	ErrUnknownProduct = errors.New("campaign references an unknown product")
)

// Service manages sales campaigns
type Service struct {
	db    *gorm.DB
	group singleflight.Group
}

// NewService creates a new sale service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CampaignRequest represents campaign creation and full update data
type CampaignRequest struct {
	Name               string    `json:"name" binding:"required"`
	Description        string    `json:"description"`
	DiscountPercentage int       `json:"discount_percentage"`
	StartDate          time.Time `json:"start_date" binding:"required"`
	EndDate            time.Time `json:"end_date" binding:"required"`
	Active             bool      `json:"active"`
	ProductIDs         []string  `json:"product_ids"`
}

// ListRequest represents campaign list query parameters
type ListRequest struct {
	Page   int   `form:"page,default=1"`
	Limit  int   `form:"limit,default=20"`
	Active *bool `form:"active"`
}

// ListResponse represents a page of campaigns
type ListResponse struct {
	Campaigns  []Campaign         `json:"campaigns"`
	Pagination product.Pagination `json:"pagination"`
}

// Validate checks the request against campaign rules
func (r *CampaignRequest) Validate() error {
	if r.DiscountPercentage < 0 || r.DiscountPercentage > 100 {
		return ErrInvalidPercentage
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() || r.EndDate.Before(r.StartDate) {
		return ErrInvalidWindow
	}
	return nil
}

// ListCampaigns lists campaigns, newest first
func (s *Service) ListCampaigns(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Campaign{})
	if req.Active != nil {
		query = query.Where("active = ?", *req.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count campaigns: %w", err)
	}

	var campaigns []Campaign
	err := query.Preload("Products").
		Order("created_at DESC, id ASC").
		Offset((req.Page - 1) * req.Limit).Limit(req.Limit).
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve campaigns: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListResponse{
		Campaigns: campaigns,
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

// GetCampaign retrieves a campaign with its products
func (s *Service) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	var campaign Campaign
	err := s.db.WithContext(ctx).Preload("Products").Where("id = ?", id).First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to retrieve campaign: %w", err)
	}
	return &campaign, nil
}

// CreateCampaign creates a campaign and its product links
func (s *Service) CreateCampaign(ctx context.Context, req *CampaignRequest) (*Campaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	campaign := Campaign{
		Name:               req.Name,
		Description:        req.Description,
		DiscountPercentage: req.DiscountPercentage,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		Active:             req.Active,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links, err := productLinks(tx, req.ProductIDs)
		if err != nil {
			return err
		}

		if err := tx.Omit("Products").Create(&campaign).Error; err != nil {
			return fmt.Errorf("failed to create campaign: %w", err)
		}
		return replaceLinks(tx, campaign.ID, links)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCampaign(ctx, campaign.ID)
}

// UpdateCampaign overwrites a campaign in place, product set included
func (s *Service) UpdateCampaign(ctx context.Context, id string, req *CampaignRequest) (*Campaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links, err := productLinks(tx, req.ProductIDs)
		if err != nil {
			return err
		}

		result := tx.Model(&Campaign{}).Where("id = ?", id).Updates(map[string]interface{}{
			"name":                req.Name,
			"description":         req.Description,
			"discount_percentage": req.DiscountPercentage,
			"start_date":          req.StartDate,
			"end_date":            req.EndDate,
			"active":              req.Active,
			"updated_at":          time.Now().UTC(),
		})
		if result.Error != nil {
			return fmt.Errorf("failed to update campaign: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrCampaignNotFound
		}

		return replaceLinks(tx, id, links)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCampaign(ctx, id)
}

// ToggleCampaign flips the active flag
func (s *Service) ToggleCampaign(ctx context.Context, id string) (*Campaign, error) {
	campaign, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&Campaign{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":     !campaign.Active,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to toggle campaign: %w", err)
	}

	return s.GetCampaign(ctx, id)
}

// DeleteCampaign removes a campaign and its product links
func (s *Service) DeleteCampaign(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("campaign_id = ?", id).Delete(&CampaignProduct{}).Error; err != nil {
			return fmt.Errorf("failed to delete campaign products: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&Campaign{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete campaign: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrCampaignNotFound
		}
		return nil
	})
}

// ListActiveCampaigns returns the campaigns active at now, earliest created
// first. That order decides which campaign wins when several cover a product.
func (s *Service) ListActiveCampaigns(ctx context.Context, now time.Time) ([]Campaign, error) {
	v, err, _ := s.group.Do("enabled", func() (interface{}, error) {
		var campaigns []Campaign
		err := s.db.WithContext(ctx).Preload("Products").
			Where("active = ?", true).
			Order("created_at ASC, id ASC").
			Find(&campaigns).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load campaigns: %w", err)
		}
		return campaigns, nil
	})
	if err != nil {
		return nil, err
	}

	return GetActiveCampaigns(v.([]Campaign), now), nil
}

// CountActiveCampaigns returns how many campaigns are active at now
func (s *Service) CountActiveCampaigns(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Campaign{}).
		Where("active = ? AND start_date <= ? AND end_date >= ?", true, now, now).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count campaigns: %w", err)
	}
	return count, nil
}

// productLinks checks that every id names an existing product and
// de-duplicates the list
func productLinks(tx *gorm.DB, ids []string) ([]CampaignProduct, error) {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, nil
	}

	var found int64
	if err := tx.Model(&product.Product{}).Where("id IN ?", unique).Count(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to check campaign products: %w", err)
	}
	if found != int64(len(unique)) {
		return nil, ErrUnknownProduct
	}

	links := make([]CampaignProduct, len(unique))
	for i, id := range unique {
		links[i] = CampaignProduct{ProductID: id}
	}
	return links, nil
}

func replaceLinks(tx *gorm.DB, campaignID string, links []CampaignProduct) error {
	if err := tx.Where("campaign_id = ?", campaignID).Delete(&CampaignProduct{}).Error; err != nil {
		return fmt.Errorf("failed to clear campaign products: %w", err)
	}
	if len(links) == 0 {
		return nil
	}

	for i := range links {
		links[i].CampaignID = campaignID
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to link campaign products: %w", err)
	}
	return nil
}
