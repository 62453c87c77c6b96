package repository

import (
	"context"

	"mechanical_shop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetForUser(ctx context.Context, id, userID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string, page Page) ([]models.Order, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	TransitionStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) error
	SetPaymentStatus(ctx context.Context, id string, from []models.PaymentStatus, to models.PaymentStatus, transactionID string) error
	AttachPayment(ctx context.Context, id string, method models.PaymentMethod, transactionID string) error
	SetPaymentProof(ctx context.Context, id, proofURL string) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order row only; items go through OrderItemRepository.
func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("OrderItems.Product").
		Preload("User").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (r *orderRepository) GetForUser(ctx context.Context, id, userID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("OrderItems.Product").
		First(&order, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string, page Page) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("OrderItems.Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error
	return total, err
}

// TransitionStatus moves the order to `to` only if its current status is one of `from`.
func (r *orderRepository) TransitionStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *orderRepository) SetPaymentStatus(ctx context.Context, id string, from []models.PaymentStatus, to models.PaymentStatus, transactionID string) error {
	updates := map[string]interface{}{"payment_status": to}
	if transactionID != "" {
		updates["sepay_transaction_id"] = transactionID
	}

	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *orderRepository) AttachPayment(ctx context.Context, id string, method models.PaymentMethod, transactionID string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_method":       method,
			"sepay_transaction_id": transactionID,
		}).Error
}

func (r *orderRepository) SetPaymentProof(ctx context.Context, id, proofURL string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("payment_proof", proofURL).Error
}
