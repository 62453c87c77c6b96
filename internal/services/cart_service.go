package services

import (
	"context"
	"errors"
	"fmt"

	"mechanical_shop/internal/models"
	"mechanical_shop/internal/repository"

	"github.com/shopspring/decimal"
)

type CartView struct {
	Items     []models.CartItem `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"itemCount"`
}

type CartService interface {
	GetCart(ctx context.Context, userID string) (*CartView, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error)
	UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID string) error
	Clear(ctx context.Context, userID string) error
}

type cartService struct {
	store repository.Store
}

func NewCartService(store repository.Store) CartService {
	return &cartService{store: store}
}

// GetCart prices every line at the product's current price.
func (s *cartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	items, err := s.store.CartItems().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	total := decimal.Zero
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	if items == nil {
		items = []models.CartItem{}
	}
	return &CartView{Items: items, Total: total, ItemCount: len(items)}, nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.activeProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	var item *models.CartItem
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		added, err := tx.CartItems().AddQuantity(ctx, userID, productID, quantity)
		if err != nil {
			return fmt.Errorf("failed to add cart item: %w", err)
		}
		if product.StockQuantity < added.Quantity {
			return fmt.Errorf("%w for %s", ErrInsufficientStock, product.Name)
		}
		item = added
		return nil
	})
	if err != nil {
		return nil, err
	}

	item.Product = product
	return item, nil
}

func (s *cartService) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.store.CartItems().GetForUser(ctx, itemID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	if item.Product == nil || item.Product.StockQuantity < quantity {
		return nil, ErrInsufficientStock
	}

	if err := s.store.CartItems().UpdateQuantity(ctx, item.ID, quantity); err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	item.Quantity = quantity
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	item, err := s.store.CartItems().GetForUser(ctx, itemID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCartItemNotFound
		}
		return err
	}
	return s.store.CartItems().Delete(ctx, item.ID)
}

func (s *cartService) Clear(ctx context.Context, userID string) error {
	return s.store.CartItems().DeleteByUser(ctx, userID)
}

func (s *cartService) activeProduct(ctx context.Context, productID string) (*models.Product, error) {
	product, err := s.store.Products().GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductNotFound
	}
	return product, nil
}
