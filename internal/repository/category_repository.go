package repository

import (
	"context"

	"mechanical_shop/internal/models"

	"gorm.io/gorm"
)

type CategoryWithCount struct {
	models.Category
	ProductCount int64 `json:"productCount"`
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	ListWithCounts(ctx context.Context) ([]CategoryWithCount, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) ListWithCounts(ctx context.Context) ([]CategoryWithCount, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Preload("Children").Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}

	var counts []struct {
		CategoryID string
		Total      int64
	}
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("category_id, COUNT(*) AS total").
		Where("is_active = ? AND category_id IS NOT NULL", true).
		Group("category_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string]int64, len(counts))
	for _, c := range counts {
		byCategory[c.CategoryID] = c.Total
	}

	result := make([]CategoryWithCount, 0, len(categories))
	for _, c := range categories {
		result = append(result, CategoryWithCount{Category: c, ProductCount: byCategory[c.ID]})
	}
	return result, nil
}
