package services

import (
	"context"
	"errors"
	"fmt"

	"mechanical_shop/internal/models"
	"mechanical_shop/internal/repository"

	log "github.com/sirupsen/logrus"
)

type AddressInput struct {
	Label       string `json:"label"`
	FullName    string `json:"fullName" binding:"required"`
	Phone       string `json:"phone" binding:"required"`
	AddressLine string `json:"addressLine" binding:"required"`
	Ward        string `json:"ward"`
	District    string `json:"district"`
	City        string `json:"city" binding:"required"`
	IsDefault   bool   `json:"isDefault"`
}

// AddressUpdate carries a partial update; nil fields are left untouched.
type AddressUpdate struct {
	Label       *string `json:"label"`
	FullName    *string `json:"fullName"`
	Phone       *string `json:"phone"`
	AddressLine *string `json:"addressLine"`
	Ward        *string `json:"ward"`
	District    *string `json:"district"`
	City        *string `json:"city"`
	IsDefault   *bool   `json:"isDefault"`
}

type AddressService interface {
	List(ctx context.Context, userID string) ([]models.Address, error)
	Create(ctx context.Context, userID string, input AddressInput) (*models.Address, error)
	Update(ctx context.Context, userID, addressID string, input AddressUpdate) (*models.Address, error)
	SetDefault(ctx context.Context, userID, addressID string) (*models.Address, error)
	Delete(ctx context.Context, userID, addressID string) error
}

type addressService struct {
	store repository.Store
}

func NewAddressService(store repository.Store) AddressService {
	return &addressService{store: store}
}

func (s *addressService) List(ctx context.Context, userID string) ([]models.Address, error) {
	addresses, err := s.store.Addresses().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	if addresses == nil {
		addresses = []models.Address{}
	}
	return addresses, nil
}

// withUserLock runs fn in a transaction that first touches the user row,
// so address mutations of one user are applied one at a time.
func (s *addressService) withUserLock(ctx context.Context, userID string, fn func(tx repository.Store) error) error {
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().Touch(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return fn(tx)
	})
}

func (s *addressService) Create(ctx context.Context, userID string, input AddressInput) (*models.Address, error) {
	address := &models.Address{
		UserID:      userID,
		Label:       input.Label,
		FullName:    input.FullName,
		Phone:       input.Phone,
		AddressLine: input.AddressLine,
		Ward:        input.Ward,
		District:    input.District,
		City:        input.City,
	}
	if address.FullName == "" || address.Phone == "" || address.AddressLine == "" || address.City == "" {
		return nil, fmt.Errorf("%w: fullName, phone, addressLine and city are required", ErrInvalidInput)
	}

	err := s.withUserLock(ctx, userID, func(tx repository.Store) error {
		count, err := tx.Addresses().CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if count >= models.MaxAddressesPerUser {
			return ErrAddressLimitReached
		}

		if count == 0 || input.IsDefault {
			if err := tx.Addresses().ClearDefault(ctx, userID); err != nil {
				return err
			}
			address.IsDefault = true
		}

		return tx.Addresses().Create(ctx, address)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": userID, "address_id": address.ID, "default": address.IsDefault}).Info("Address created")
	return address, nil
}

func (s *addressService) Update(ctx context.Context, userID, addressID string, input AddressUpdate) (*models.Address, error) {
	var address *models.Address

	err := s.withUserLock(ctx, userID, func(tx repository.Store) error {
		current, err := tx.Addresses().GetForUser(ctx, addressID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAddressNotFound
			}
			return err
		}

		applyString(&current.Label, input.Label)
		applyString(&current.FullName, input.FullName)
		applyString(&current.Phone, input.Phone)
		applyString(&current.AddressLine, input.AddressLine)
		applyString(&current.Ward, input.Ward)
		applyString(&current.District, input.District)
		applyString(&current.City, input.City)

		if current.FullName == "" || current.Phone == "" || current.AddressLine == "" || current.City == "" {
			return fmt.Errorf("%w: fullName, phone, addressLine and city cannot be empty", ErrInvalidInput)
		}

		// unsetting the default is ignored; another address must be promoted instead
		if input.IsDefault != nil && *input.IsDefault && !current.IsDefault {
			if err := tx.Addresses().ClearDefault(ctx, userID); err != nil {
				return err
			}
			current.IsDefault = true
		}

		address = current
		return tx.Addresses().Update(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	return address, nil
}

func (s *addressService) SetDefault(ctx context.Context, userID, addressID string) (*models.Address, error) {
	var address *models.Address

	err := s.withUserLock(ctx, userID, func(tx repository.Store) error {
		current, err := tx.Addresses().GetForUser(ctx, addressID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAddressNotFound
			}
			return err
		}

		if err := tx.Addresses().ClearDefault(ctx, userID); err != nil {
			return err
		}
		if err := tx.Addresses().SetDefault(ctx, current.ID); err != nil {
			return err
		}

		current.IsDefault = true
		address = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": userID, "address_id": addressID}).Info("Default address changed")
	return address, nil
}

// Delete removes the address; when it was the default the earliest remaining one is promoted.
func (s *addressService) Delete(ctx context.Context, userID, addressID string) error {
	return s.withUserLock(ctx, userID, func(tx repository.Store) error {
		current, err := tx.Addresses().GetForUser(ctx, addressID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAddressNotFound
			}
			return err
		}

		if err := tx.Addresses().Delete(ctx, current.ID); err != nil {
			return err
		}
		if !current.IsDefault {
			return nil
		}

		next, err := tx.Addresses().Earliest(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Addresses().SetDefault(ctx, next.ID)
	})
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
