// internal/domain/sale/catalog.go
package sale

import (
	"context"
	"time"

	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ProductSource is the part of the catalog the storefront reads
type ProductSource interface {
	ListProducts(ctx context.Context, req *product.ListRequest) (*product.ListResponse, error)
	GetActiveProduct(ctx context.Context, id string) (*product.Product, error)
}

// CampaignSource yields the campaigns active at a point in time
type CampaignSource interface {
	ListActiveCampaigns(ctx context.Context, now time.Time) ([]Campaign, error)
}

// CatalogPage is one page of the shopper-facing catalog
type CatalogPage struct {
	Products   []ProductWithSale  `json:"products"`
	Pagination product.Pagination `json:"pagination"`
}

// Catalog serves products with the sale overlay applied
type Catalog struct {
	products  ProductSource
	campaigns CampaignSource
	logger    *logrus.Entry
	now       func() time.Time
}

// NewCatalog creates a catalog reader
func NewCatalog(products ProductSource, campaigns CampaignSource, logger *logrus.Entry) *Catalog {
	return &Catalog{
		products:  products,
		campaigns: campaigns,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListProducts reads a page of active products and the active campaigns
// concurrently and joins them. Failing to load campaigns only drops the discounts.
func (c *Catalog) ListProducts(ctx context.Context, req *product.ListRequest) (*CatalogPage, error) {
	active := true
	req.IsActive = &active

	var (
		page      *product.ListResponse
		campaigns []Campaign
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = c.products.ListProducts(gctx, req)
		return err
	})
	g.Go(func() error {
		campaigns = c.activeCampaigns(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &CatalogPage{
		Products:   ApplyDiscounts(page.Products, campaigns),
		Pagination: page.Pagination,
	}, nil
}

// GetProduct returns one active product with its current sale price
func (c *Catalog) GetProduct(ctx context.Context, id string) (*ProductWithSale, error) {
	var (
		p         *product.Product
		campaigns []Campaign
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = c.products.GetActiveProduct(gctx, id)
		return err
	})
	g.Go(func() error {
		campaigns = c.activeCampaigns(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := ApplyDiscounts([]product.Product{*p}, campaigns)[0]
	return &view, nil
}

func (c *Catalog) activeCampaigns(ctx context.Context) []Campaign {
	campaigns, err := c.campaigns.ListActiveCampaigns(ctx, c.now())
	if err != nil {
		c.logger.WithError(err).Warn("Failed to load campaigns, serving catalog without discounts")
		return nil
	}
	return campaigns
}
