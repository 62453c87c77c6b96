package repository

import (
	"context"

	"mechanical_shop/internal/models"

	"gorm.io/gorm"
)

type AddressRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Address, error)
	GetForUser(ctx context.Context, id, userID string) (*models.Address, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	Create(ctx context.Context, address *models.Address) error
	Update(ctx context.Context, address *models.Address) error
	Delete(ctx context.Context, id string) error
	ClearDefault(ctx context.Context, userID string) error
	SetDefault(ctx context.Context, id string) error
	Earliest(ctx context.Context, userID string) (*models.Address, error)
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

// ListByUser returns the default address first, then the newest.
func (r *addressRepository) ListByUser(ctx context.Context, userID string) ([]models.Address, error) {
	var addresses []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at DESC").
		Find(&addresses).Error
	return addresses, err
}

func (r *addressRepository) GetForUser(ctx context.Context, id, userID string) (*models.Address, error) {
	var address models.Address
	if err := r.db.WithContext(ctx).First(&address, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &address, nil
}

func (r *addressRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Address{}).Where("user_id = ?", userID).Count(&total).Error
	return total, err
}

func (r *addressRepository) Create(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Create(address).Error
}

func (r *addressRepository) Update(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Save(address).Error
}

func (r *addressRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Address{}, "id = ?", id).Error
}

func (r *addressRepository) ClearDefault(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		UpdateColumn("is_default", false).Error
}

func (r *addressRepository) SetDefault(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&models.Address{}).
		Where("id = ?", id).
		UpdateColumn("is_default", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Earliest returns the first-created address of the user, or ErrNotFound.
func (r *addressRepository) Earliest(ctx context.Context, userID string) (*models.Address, error) {
	var address models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		First(&address).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &address, nil
}
