package repository

import (
	"context"
	"strings"

	"mechanical_shop/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductFilter struct {
	CategoryID string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Search     string
	Page       Page
}

type ReviewStats struct {
	AverageRating float64
	ReviewCount   int64
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	Find(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	Count(ctx context.Context, filter ProductFilter) (int64, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	SearchKeywords(ctx context.Context, keywords []string, limit int) ([]models.Product, error)
	DecrementStock(ctx context.Context, id string, quantity int) error
	IncrementStock(ctx context.Context, id string, quantity int) error
	ReviewStats(ctx context.Context, productID string) (ReviewStats, error)
	RecentReviews(ctx context.Context, productID string, limit int) ([]models.Review, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) filtered(ctx context.Context, filter ProductFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)

	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}
	return q
}

func (r *productRepository) Find(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	var products []models.Product
	err := r.filtered(ctx, filter).
		Preload("Category").
		Order("created_at DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit).
		Find(&products).Error
	return products, err
}

func (r *productRepository) Count(ctx context.Context, filter ProductFilter) (int64, error) {
	var total int64
	err := r.filtered(ctx, filter).Count(&total).Error
	return total, err
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *productRepository) SearchKeywords(ctx context.Context, keywords []string, limit int) ([]models.Product, error) {
	var products []models.Product
	if len(keywords) == 0 {
		return products, nil
	}

	conds := make([]string, 0, len(keywords))
	args := make([]interface{}, 0, len(keywords)*2)
	for _, kw := range keywords {
		pattern := "%" + strings.ToLower(kw) + "%"
		conds = append(conds, "LOWER(name) LIKE ? OR LOWER(description) LIKE ?")
		args = append(args, pattern, pattern)
	}

	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("("+strings.Join(conds, " OR ")+")", args...).
		Order("created_at DESC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

// DecrementStock subtracts quantity only if enough stock remains at write time.
func (r *productRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND is_active = ? AND stock_quantity >= ?", id, true, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}

func (r *productRepository) IncrementStock(ctx context.Context, id string, quantity int) error {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) ReviewStats(ctx context.Context, productID string) (ReviewStats, error) {
	var row struct {
		Average float64
		Total   int64
	}
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
		Where("product_id = ?", productID).
		Scan(&row).Error
	if err != nil {
		return ReviewStats{}, err
	}
	return ReviewStats{AverageRating: row.Average, ReviewCount: row.Total}, nil
}

func (r *productRepository) RecentReviews(ctx context.Context, productID string, limit int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reviews).Error
	return reviews, err
}
