// internal/domain/product/category_service.go
package product

import (
	"context"
	"fmt"
)

// CategoryWithProductCount represents a catalog category with its product count
type CategoryWithProductCount struct {
	Name         string `json:"name"`
	ProductCount int64  `json:"product_count"`
}

// GetCategories lists the categories in use by the catalog. Categories are a
// free-form attribute of products, so only those with at least one product appear.
func (s *Service) GetCategories(ctx context.Context, activeOnly bool) ([]CategoryWithProductCount, error) {
	var categories []CategoryWithProductCount

	query := s.db.WithContext(ctx).Model(&Product{}).
		Select("category AS name, COUNT(*) AS product_count").
		Where("category <> ''")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Group("category").Order("category ASC").Scan(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve categories: %w", err)
	}

	return categories, nil
}
