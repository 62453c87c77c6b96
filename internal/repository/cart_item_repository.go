package repository

import (
	"context"

	"mechanical_shop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartItemRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	GetForUser(ctx context.Context, id, userID string) (*models.CartItem, error)
	FindByProduct(ctx context.Context, userID, productID string) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	AddQuantity(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, id string, quantity int) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type cartItemRepository struct {
	db *gorm.DB
}

func NewCartItemRepository(db *gorm.DB) CartItemRepository {
	return &cartItemRepository{db: db}
}

func (r *cartItemRepository) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *cartItemRepository) GetForUser(ctx context.Context, id, userID string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		First(&item, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *cartItemRepository) FindByProduct(ctx context.Context, userID, productID string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).First(&item, "user_id = ? AND product_id = ?", userID, productID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *cartItemRepository) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// AddQuantity inserts the line or adds to the existing one in a single upsert.
func (r *cartItemRepository) AddQuantity(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error) {
	item := &models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("cart_items.quantity + ?", quantity)}),
	}).Create(item).Error
	if err != nil {
		return nil, err
	}
	return r.FindByProduct(ctx, userID, productID)
}

func (r *cartItemRepository) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	return r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

func (r *cartItemRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", id).Error
}

func (r *cartItemRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}
